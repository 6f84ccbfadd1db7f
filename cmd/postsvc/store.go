package main

import (
	"context"
	"fmt"

	"github.com/mkrupp/postboard/internal/infra/mongodb"
	"github.com/mkrupp/postboard/internal/infra/sqlite"
	"github.com/mkrupp/postboard/internal/repo/post"
	"github.com/mkrupp/postboard/internal/repo/user"
)

const (
	StoreDriverMongo  = "mongo"
	StoreDriverSQLite = "sqlite"

	ObjectStoreDriverSupabase   = "supabase"
	ObjectStoreDriverFilesystem = "filesystem"
)

// store is the document store client shared by all repositories of the process.
type store struct {
	users user.RepositoryFactory
	posts post.RepositoryFactory
	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

func (s *store) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

func (s *store) Close(ctx context.Context) error {
	return s.close(ctx)
}

func openStore(ctx context.Context, cfg Config) (*store, error) {
	switch cfg.StoreDriver {
	case StoreDriverMongo:
		client, err := mongodb.Connect(ctx, cfg.Mongo)
		if err != nil {
			return nil, fmt.Errorf("connect mongodb: %w", err)
		}

		return &store{
			users: user.MongoUserRepositoryFactory(client),
			posts: post.MongoPostRepositoryFactory(client),
			ping:  client.Ping,
			close: client.Close,
		}, nil

	case StoreDriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLite)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}

		return &store{
			users: user.SQLiteUserRepositoryFactory(db),
			posts: post.SQLitePostRepositoryFactory(db),
			ping:  db.Ping,
			close: db.Close,
		}, nil

	default:
		return nil, fmt.Errorf("%w: STORE_DRIVER=%q", ErrUnknownDriver, cfg.StoreDriver)
	}
}
