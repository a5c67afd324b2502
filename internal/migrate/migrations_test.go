package migrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobdesk/internal/db"
)

func TestVersionTracksMigrate(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	v, err := Version(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, 0, v)

	require.NoError(t, Migrate(ctx, conn))
	require.NoError(t, Migrate(ctx, conn))
	v, err = Version(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}
