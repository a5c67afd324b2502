package tools

import "errors"

var (
	ErrToolNotFound          = errors.New("tool not found")
	ErrToolNameEmpty         = errors.New("tool name cannot be empty")
	ErrToolExecuteNil        = errors.New("tool execute function cannot be nil")
	ErrToolAlreadyRegistered = errors.New("tool already registered")
	ErrMissingRequiredArg    = errors.New("missing required argument")
	ErrInvalidArgs           = errors.New("invalid arguments")
)
