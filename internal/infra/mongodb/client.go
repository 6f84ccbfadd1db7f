// Package mongodb owns the process-wide MongoDB connection.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/mkrupp/postboard/internal/domain"
	"github.com/mkrupp/postboard/internal/infra/logging"
)

// DefaultURI is used when the configured URI is empty or malformed.
const DefaultURI = "mongodb://localhost:27017"

const (
	UsersCollection = "users"
	PostsCollection = "posts"
)

// MongoConfig holds connection settings.
type MongoConfig struct {
	URI      string `env:"URI" default:"mongodb://localhost:27017"`
	Database string `env:"DB" default:"fastapi_app"`

	// ConnectTimeout bounds server selection and the startup ping, in seconds.
	ConnectTimeout int64 `env:"CONNECT_TIMEOUT" default:"10"`
}

// Client wraps a connected mongo.Client and the configured database.
type Client struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
	log     logging.Logger
}

// CleanURI trims uri and checks its scheme. Anything that is not a mongodb:// or
// mongodb+srv:// URI is replaced by DefaultURI; ok reports whether uri was usable.
func CleanURI(uri string) (cleaned string, ok bool) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return DefaultURI, false
	}

	if !strings.HasPrefix(uri, "mongodb://") && !strings.HasPrefix(uri, "mongodb+srv://") {
		return DefaultURI, false
	}

	return uri, true
}

// redact hides credentials so the URI can be logged.
func redact(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "<unparseable>"
	}

	if u.User != nil {
		u.User = url.User("***")
	}

	return u.String()
}

// Connect creates the client. A failed startup ping is logged and does not fail
// the call: the driver reconnects lazily and /ready reports the outage.
func Connect(ctx context.Context, cfg MongoConfig) (*Client, error) {
	log := logging.GetLogger("infra.mongodb.client")

	uri, ok := CleanURI(cfg.URI)
	if !ok {
		log.WarnContext(ctx, "invalid mongodb uri, using default", "uri", redact(cfg.URI), "default", DefaultURI)
	}

	timeout := time.Duration(cfg.ConnectTimeout) * time.Second

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(timeout).
		SetConnectTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	c := &Client{
		client:  client,
		db:      client.Database(cfg.Database),
		timeout: timeout,
		log:     log.With(logging.Group("mongo", "uri", redact(uri), "db", cfg.Database)),
	}

	if err := c.Ping(ctx); err != nil {
		c.log.ErrorContext(ctx, "mongodb connection failed", "error", err)

		return c, nil
	}

	c.log.InfoContext(ctx, "mongodb connected")

	if err := c.EnsureIndexes(ctx); err != nil {
		c.log.ErrorContext(ctx, "ensure indexes failed", "error", err)
	}

	return c, nil
}

// Database returns the configured database handle.
func (c *Client) Database() *mongo.Database {
	return c.db
}

// Collection returns a collection of the configured database.
func (c *Client) Collection(name string) *mongo.Collection {
	return c.db.Collection(name)
}

// Ping checks that the primary is reachable.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.client.Ping(ctx, readpref.Primary()); err != nil {
		return errors.Join(domain.ErrStoreUnavailable, fmt.Errorf("ping: %w", err))
	}

	return nil
}

// EnsureIndexes creates the unique email index and the post author index.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	if _, err := c.Collection(UsersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("create users.email index: %w", err)
	}

	//nolint:exhaustruct
	if _, err := c.Collection(PostsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "author_id", Value: 1}},
	}); err != nil {
		return fmt.Errorf("create posts.author_id index: %w", err)
	}

	return nil
}

// Close disconnects the client.
func (c *Client) Close(ctx context.Context) error {
	if err := c.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}

	c.log.InfoContext(ctx, "mongodb connection closed")

	return nil
}
