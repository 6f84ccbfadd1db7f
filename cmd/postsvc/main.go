package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mkrupp/postboard/internal/infra/config"
	"github.com/mkrupp/postboard/internal/infra/logging"
	"github.com/mkrupp/postboard/internal/infra/mongodb"
	"github.com/mkrupp/postboard/internal/infra/sqlite"
	http_ "github.com/mkrupp/postboard/internal/infra/transport/http"
	"github.com/mkrupp/postboard/internal/repo/blob"
	"github.com/mkrupp/postboard/internal/svc/authsvc"
	"github.com/mkrupp/postboard/internal/svc/imagesvc"
	"github.com/mkrupp/postboard/internal/svc/postsvc"
)

const (
	appName = "postboard"
	svcName = "postsvc"
)

type Config struct {
	config.EnvConfig

	// StoreDriver selects the document store: "mongo" or "sqlite".
	StoreDriver string `env:"STORE_DRIVER" default:"mongo"`

	// ObjectStoreDriver selects where post images go: "supabase" or "filesystem".
	ObjectStoreDriver string `env:"OBJECTSTORE_DRIVER" default:"supabase"`

	Log      logging.LoggerConfig                `envPrefix:"LOG_"`
	Mongo    mongodb.MongoConfig                 `envPrefix:"MONGO_"`
	SQLite   sqlite.SQLiteConfig                 `envPrefix:"SQLITE_"`
	Token    authsvc.TokenConfig                 `envPrefix:"JWT_"`
	Auth     authsvc.AuthConfig                  `envPrefix:"AUTH_"`
	Supabase blob.SupabaseBlobRepositoryConfig   `envPrefix:"SUPABASE_"`
	Blob     blob.FileSystemBlobRepositoryConfig `envPrefix:"BLOB_"`
	Image    imagesvc.ImageConfig                `envPrefix:"IMAGE_"`
	Media    imagesvc.HTTPTransportConfig        `envPrefix:"MEDIA_"`
	Posts    postsvc.HTTPTransportConfig         `envPrefix:"POSTS_"`
	HTTP     http_.HTTPTransportConfig           `envPrefix:"HTTP_"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newCLI().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		cancel()
		os.Exit(1) //nolint:gocritic
	}
}

func newCLI() *cli.App {
	return &cli.App{
		Name:  svcName,
		Usage: "Accounts, posts, likes and comments over HTTP",
		Commands: []*cli.Command{
			serveCmd(),
			pingCmd(),
		},
		// no command given: serve with the configured address
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c.Context)
			if err != nil {
				return err
			}

			return serve(c.Context, cfg)
		},
	}
}

// loadConfig parses the environment and configures logging. Config values that
// fell back to their defaults are logged once logging is up.
func loadConfig(ctx context.Context) (Config, error) {
	var (
		cfg Config

		configPrefix = strings.ToUpper(strings.Join([]string{appName, svcName}, "_"))
		loggerName   = strings.ToLower(strings.Join([]string{appName, svcName}, "."))
	)

	if err := config.Parse(ctx, &cfg, configPrefix); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := logging.Configure(ctx, cfg.Log, loggerName); err != nil {
		return Config{}, fmt.Errorf("configure logging: %w", err)
	}

	log := logging.GetLogger("cmd.postsvc")

	if dotenv := cfg.Dotenv(); dotenv != "" {
		log.DebugContext(ctx, "dotenv loaded", "path", dotenv)
	}

	for _, fallback := range cfg.Fallbacks() {
		log.WarnContext(ctx, "invalid config value, using default",
			"var", fallback.Name, "value", fallback.Value, "default", fallback.Default, "error", fallback.Err)
	}

	return cfg, nil
}

func serveCmd() *cli.Command {
	var addr string

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the HTTP API until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "Address to listen on (overrides HTTP_SERVER_ADDR)",
				Destination: &addr,
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c.Context)
			if err != nil {
				return err
			}

			if addr != "" {
				cfg.HTTP.ServerAddr = addr
			}

			return serve(c.Context, cfg)
		},
	}
}

func serve(ctx context.Context, cfg Config) (err error) {
	log := logging.GetLogger("cmd.postsvc")

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "error", "err", err)
		} else {
			log.InfoContext(ctx, "shutdown")
		}
	}()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}

	defer func() {
		// ctx is already cancelled at this point
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		if closeErr := a.Close(closeCtx); closeErr != nil {
			log.ErrorContext(ctx, "close failed", "error", closeErr)
		}
	}()

	log.InfoContext(ctx, "listening",
		"addr", cfg.HTTP.ServerAddr, "store", cfg.StoreDriver, "objectstore", cfg.ObjectStoreDriver)

	if err := http_.ListenAndServe(ctx, a.handler, cfg.HTTP); err != nil {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

func pingCmd() *cli.Command {
	return &cli.Command{
		Name:  "ping",
		Usage: "Connect to the configured store, ping it and exit",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c.Context)
			if err != nil {
				return err
			}

			return ping(c.Context, cfg)
		},
	}
}

func ping(ctx context.Context, cfg Config) error {
	log := logging.GetLogger("cmd.postsvc")

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	defer func() { _ = st.Close(context.WithoutCancel(ctx)) }()

	if err := st.Ping(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", cfg.StoreDriver, err)
	}

	log.InfoContext(ctx, "store reachable", "store", cfg.StoreDriver)

	return nil
}
