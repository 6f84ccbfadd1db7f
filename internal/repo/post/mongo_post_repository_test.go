//go:build integration || all

package post_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mkrupp/postboard/internal/domain"
	"github.com/mkrupp/postboard/internal/infra/mongodb"
	"github.com/mkrupp/postboard/internal/repo/post"
)

func TestMongoPostRepository(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}

	ctx := context.Background()

	client, err := mongodb.Connect(ctx, mongodb.MongoConfig{
		URI:            uri,
		Database:       "postboard_test_" + uuid.NewString()[:8],
		ConnectTimeout: 5,
	})
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx))

	t.Cleanup(func() {
		_ = client.Database().Drop(ctx)
		_ = client.Close(ctx)
	})

	repo, err := post.MongoPostRepositoryFactory(client)()
	require.NoError(t, err)

	testRepository(t, repo,
		func() domain.UserID { return domain.UserID(primitive.NewObjectID().Hex()) },
		domain.PostID(primitive.NewObjectID().Hex()),
	)
}
