package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"jobdesk/internal/domain"
	"jobdesk/internal/engine"
	"jobdesk/internal/migrate"
	"jobdesk/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Logger   *zap.Logger
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"unknown_tool"`
	Message string         `json:"message" example:"unknown tool: drop_tables"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"tool\":\"drop_tables\"}"`
}

// apiError models the required error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the jobdesk API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the requested envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(requestLogger(logger))
	router.Use(middleware.Recoverer)
	hcfg := huma.DefaultConfig("jobdesk API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group, cfg.Engine)
	registerTools(group, cfg.Engine)
	registerJobs(group, cfg.Engine)
	registerToolCalls(group, cfg.Engine)
	registerExecutions(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("latency", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, engine.ErrUnknownTool):
		return newAPIError(http.StatusNotFound, "unknown_tool", err.Error(), nil)
	case errors.Is(err, repo.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, repo.ErrInvalidDocument):
		return newAPIError(http.StatusBadRequest, "invalid_document", err.Error(), nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return newAPIError(http.StatusServiceUnavailable, "cancelled", err.Error(), nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var (
		once sync.Once
		spec []byte
	)
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			spec, _ = json.Marshal(oas)
		})
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>jobdesk API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body HealthResponse `json:"body"`
	}, error) {
		out := HealthResponse{Status: "ok"}
		if e.DB != nil {
			v, err := migrate.Version(ctx, e.DB)
			if err != nil {
				return nil, handleError(err)
			}
			out.SchemaVersion = v
		}
		return &struct {
			Body HealthResponse `json:"body"`
		}{Body: out}, nil
	})
}

func registerTools(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tools",
		Method:      http.MethodGet,
		Path:        "/tools",
		Summary:     "List tool definitions",
	}, func(ctx context.Context, input *struct {
		Category string `query:"category" enum:"job,estimate,schedule,payment,comparison"`
	}) (*struct {
		Body []ToolDefinitionResponse `json:"body"`
	}, error) {
		out := []ToolDefinitionResponse{}
		for _, def := range e.Tools.Definitions() {
			if input.Category != "" && string(def.Category) != input.Category {
				continue
			}
			out = append(out, definitionResponse(def))
		}
		return &struct {
			Body []ToolDefinitionResponse `json:"body"`
		}{Body: out}, nil
	})
}

func registerJobs(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-jobs",
		Method:      http.MethodGet,
		Path:        "/jobs",
		Summary:     "List or search jobs",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Query string `query:"query" doc:"Substring matched against title, client, street and job prefix"`
		Limit int    `query:"limit" default:"50"`
	}) (*struct {
		Body JobListResponse `json:"body"`
	}, error) {
		var items []domain.JobSummary
		if strings.TrimSpace(input.Query) != "" {
			found, err := e.Repo.SearchJobs(ctx, e.Config.Company.ID, input.Query)
			if err != nil {
				return nil, handleError(err)
			}
			items = found
		} else {
			recs, err := e.Repo.ListJobs(ctx, e.Config.Company.ID, normalizeLimit(input.Limit))
			if err != nil {
				return nil, handleError(err)
			}
			for _, rec := range recs {
				items = append(items, rec.Summary)
			}
		}
		return &struct {
			Body JobListResponse `json:"body"`
		}{Body: JobListResponse{Items: nonNilSlice(items)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "import-job",
		Method:        http.MethodPost,
		Path:          "/jobs",
		Summary:       "Import or replace a job document",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body map[string]any `doc:"Job document, keyed by documentId"`
	}) (*struct {
		Body domain.JobSummary `json:"body"`
	}, error) {
		doc, err := json.Marshal(input.Body)
		if err != nil {
			return nil, handleError(fmt.Errorf("%w: %v", repo.ErrInvalidDocument, err))
		}
		job, err := e.ImportJob(ctx, doc)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.JobSummary `json:"body"`
		}{Body: job.Summary()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-job",
		Method:      http.MethodGet,
		Path:        "/jobs/{job_id}",
		Summary:     "Get a job document",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		JobID string `path:"job_id"`
	}) (*struct {
		Body any `json:"body"`
	}, error) {
		job, err := e.Repo.GetJob(ctx, e.Config.Company.ID, input.JobID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body any `json:"body"`
		}{Body: job}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-job",
		Method:        http.MethodDelete,
		Path:          "/jobs/{job_id}",
		Summary:       "Delete a job document",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		JobID string `path:"job_id"`
	}) (*struct{}, error) {
		if err := e.Repo.DeleteJob(ctx, e.Config.Company.ID, input.JobID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "job-brief",
		Method:      http.MethodGet,
		Path:        "/jobs/{job_id}/brief",
		Summary:     "Schedule, payment and budget overview of a job",
	}, func(ctx context.Context, input *struct {
		JobID string `path:"job_id"`
	}) (*struct {
		Body BriefResponse `json:"body"`
	}, error) {
		b, err := e.Brief(ctx, input.JobID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body BriefResponse `json:"body"`
		}{Body: briefResponse(b)}, nil
	})
}

func registerToolCalls(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "call-tool",
		Method:      http.MethodPost,
		Path:        "/jobs/{job_id}/tools/{tool}",
		Summary:     "Run a tool against a job",
		Description: "Tool failures such as an unknown task are returned with status 200 and is_error set; only an unknown tool name is an HTTP error.",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		JobID string           `path:"job_id"`
		Tool  string           `path:"tool"`
		Body  *ToolCallRequest `required:"false"`
	}) (*struct {
		Body ExecutionResponse `json:"body"`
	}, error) {
		var args map[string]any
		if input.Body != nil {
			args = input.Body.Args
		}
		exec, err := e.Execute(ctx, engine.Request{JobID: input.JobID, Tool: input.Tool, Args: args})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ExecutionResponse `json:"body"`
		}{Body: executionResponse(exec)}, nil
	})
}

func registerExecutions(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-executions",
		Method:      http.MethodGet,
		Path:        "/executions",
		Summary:     "List recorded tool executions",
	}, func(ctx context.Context, input *struct {
		JobID string `query:"job_id"`
		Tool  string `query:"tool"`
		Limit int    `query:"limit" default:"20"`
	}) (*struct {
		Body ExecutionListResponse `json:"body"`
	}, error) {
		items, err := e.History(ctx, repo.ExecutionFilter{JobID: input.JobID, Tool: input.Tool, Limit: normalizeLimit(input.Limit)})
		if err != nil {
			return nil, handleError(err)
		}
		resp := ExecutionListResponse{Items: []ExecutionResponse{}}
		for _, it := range items {
			resp.Items = append(resp.Items, executionResponse(it))
		}
		return &struct {
			Body ExecutionListResponse `json:"body"`
		}{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-execution",
		Method:      http.MethodGet,
		Path:        "/executions/{execution_id}",
		Summary:     "Get one recorded tool execution",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ExecutionID string `path:"execution_id"`
	}) (*struct {
		Body ExecutionResponse `json:"body"`
	}, error) {
		exec, err := e.Repo.GetExecution(ctx, input.ExecutionID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ExecutionResponse `json:"body"`
		}{Body: executionResponse(exec)}, nil
	})
}

func normalizeLimit(in int) int {
	if in <= 0 {
		return 50
	}
	if in > 500 {
		return 500
	}
	return in
}
