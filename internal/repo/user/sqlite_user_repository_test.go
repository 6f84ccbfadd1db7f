package user_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mkrupp/postboard/internal/infra/sqlite"
	"github.com/mkrupp/postboard/internal/repo/user"
)

func TestSQLiteUserRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	db, err := sqlite.Open(ctx, sqlite.SQLiteConfig{DatabasePath: filepath.Join(t.TempDir(), "users.db")})
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close(ctx) })

	repo, err := user.SQLiteUserRepositoryFactory(db)()
	require.NoError(t, err)

	testRepository(t, repo)
}
