package post_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/postboard/internal/domain"
	"github.com/mkrupp/postboard/internal/infra/sqlite"
	"github.com/mkrupp/postboard/internal/repo/post"
	"github.com/mkrupp/postboard/internal/util/encoding"
)

func newSQLiteID() string {
	id := uuid.Must(uuid.NewV7())

	return encoding.EncodeCrockfordB32LC(id[:])
}

func TestSQLitePostRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	db, err := sqlite.Open(ctx, sqlite.SQLiteConfig{DatabasePath: filepath.Join(t.TempDir(), "posts.db")})
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close(ctx) })

	repo, err := post.SQLitePostRepositoryFactory(db)()
	require.NoError(t, err)

	testRepository(t, repo,
		func() domain.UserID { return domain.UserID(newSQLiteID()) },
		domain.PostID(newSQLiteID()),
	)
}
