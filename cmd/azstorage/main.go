package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/urfave/cli/v2"

	"github.com/meltwater/azstorage/internal"
	"github.com/meltwater/azstorage/internal/command"
	"github.com/meltwater/azstorage/retry"
	"github.com/meltwater/azstorage/storage"
)

// Version is set at build time.
var Version = "0.0.0"

func main() {
	app := newApp()

	if err := app.Run(os.Args); err != nil {
		if errors.Is(err, command.ErrNotFound) {
			os.Exit(1)
		}

		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "azstorage",
		Usage:   "access an Azure storage account described by a connection string",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log.level",
				Aliases: []string{"ll"},
				Usage:   "log filtering level. ('error', 'warn', 'info', 'debug')",
				Value:   internal.LogLevelInfo,
				EnvVars: []string{"AZSTORAGE_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log.format",
				Aliases: []string{"lf"},
				Usage:   "log format to use. ('logfmt', 'json')",
				Value:   internal.LogFormatLogfmt,
				EnvVars: []string{"AZSTORAGE_LOG_FORMAT"},
			},
			&cli.StringFlag{
				Name:    "connection-string",
				Usage:   "storage account connection string",
				EnvVars: []string{"AZSTORAGE_CONNECTION_STRING", "AZURE_STORAGE_CONNECTION_STRING"},
			},
			&cli.StringFlag{
				Name:    "container",
				Usage:   "blob container name",
				EnvVars: []string{"AZSTORAGE_CONTAINER"},
			},
			&cli.BoolFlag{
				Name:    "create-container",
				Usage:   "create the container if it does not exist",
				EnvVars: []string{"AZSTORAGE_CREATE_CONTAINER"},
			},
			&cli.StringFlag{
				Name:    "location-mode",
				Usage:   "endpoint selection. ('PrimaryOnly', 'PrimaryThenSecondary', 'SecondaryOnly', 'SecondaryThenPrimary')",
				Value:   retry.PrimaryOnly.String(),
				EnvVars: []string{"AZSTORAGE_LOCATION_MODE"},
			},
			&cli.StringFlag{
				Name:    "retry.type",
				Usage:   "retry decider. ('General', 'AppendBlobRetry')",
				Value:   string(retry.General),
				EnvVars: []string{"AZSTORAGE_RETRY_TYPE"},
			},
			&cli.IntFlag{
				Name:    "retry.max",
				Usage:   "maximum number of retries per request",
				Value:   retry.DefaultMaxRetries,
				EnvVars: []string{"AZSTORAGE_RETRY_MAX"},
			},
			&cli.DurationFlag{
				Name:    "retry.interval",
				Usage:   "base backoff interval",
				Value:   retry.DefaultInterval,
				EnvVars: []string{"AZSTORAGE_RETRY_INTERVAL"},
			},
			&cli.StringFlag{
				Name:    "retry.accumulation",
				Usage:   "backoff growth. ('Linear', 'Exponential')",
				Value:   string(retry.Linear),
				EnvVars: []string{"AZSTORAGE_RETRY_ACCUMULATION"},
			},
			&cli.BoolFlag{
				Name:    "retry.connect",
				Usage:   "retry attempts that failed to connect",
				EnvVars: []string{"AZSTORAGE_RETRY_CONNECT"},
			},
			&cli.StringFlag{
				Name:    "history-file",
				Usage:   "append every attempt to this file",
				EnvVars: []string{"AZSTORAGE_HISTORY_FILE"},
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Usage:   "timeout of a whole command",
				Value:   5 * time.Minute,
				EnvVars: []string{"AZSTORAGE_TIMEOUT"},
			},
			&cli.StringFlag{
				Name:    "oidc-token-id",
				Usage:   "OIDC token used as client assertion",
				EnvVars: []string{"AZSTORAGE_OIDC_TOKEN_ID"},
			},
			&cli.StringFlag{
				Name:    "tenant-id",
				Usage:   "Azure tenant ID",
				EnvVars: []string{"AZSTORAGE_TENANT_ID", "AZURE_TENANT_ID"},
			},
			&cli.StringFlag{
				Name:    "client-id",
				Usage:   "Azure application (client) ID",
				EnvVars: []string{"AZSTORAGE_CLIENT_ID", "AZURE_CLIENT_ID"},
			},
			&cli.StringFlag{
				Name:    "client-secret",
				Usage:   "Azure application secret",
				EnvVars: []string{"AZSTORAGE_CLIENT_SECRET", "AZURE_CLIENT_SECRET"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "resolve",
				Usage: "print the endpoints of the connection string",
				Action: func(c *cli.Context) error {
					s, err := config(c).Settings()
					if err != nil {
						return err
					}

					return command.Resolve(c.App.Writer, s)
				},
			},
			{
				Name:      "ls",
				Usage:     "list blobs",
				ArgsUsage: "[prefix]",
				Action: withBackend(func(ctx context.Context, c *cli.Context, _ log.Logger, b storage.Backend) error {
					return command.List(ctx, b, c.App.Writer, c.Args().First())
				}),
			},
			{
				Name:      "get",
				Usage:     "download a blob",
				ArgsUsage: "<blob> [file]",
				Action: withBackend(func(ctx context.Context, c *cli.Context, l log.Logger, b storage.Backend) error {
					if c.NArg() < 1 {
						return cli.Exit("blob name is required", 2)
					}

					return command.Get(ctx, l, b, c.Args().Get(0), c.Args().Get(1), c.App.Writer)
				}),
			},
			{
				Name:      "put",
				Usage:     "upload a file, '-' reads stdin",
				ArgsUsage: "<file> <blob>",
				Action: withBackend(func(ctx context.Context, c *cli.Context, l log.Logger, b storage.Backend) error {
					if c.NArg() < 2 {
						return cli.Exit("file and blob name are required", 2)
					}

					return command.Put(ctx, l, b, c.Args().Get(0), c.Args().Get(1), os.Stdin)
				}),
			},
			{
				Name:      "exists",
				Usage:     "check whether a blob exists, exits 1 when it does not",
				ArgsUsage: "<blob>",
				Action: withBackend(func(ctx context.Context, c *cli.Context, _ log.Logger, b storage.Backend) error {
					if c.NArg() < 1 {
						return cli.Exit("blob name is required", 2)
					}

					return command.Exists(ctx, b, c.App.Writer, c.Args().First())
				}),
			},
			{
				Name:      "rm",
				Usage:     "delete a blob",
				ArgsUsage: "<blob>",
				Action: withBackend(func(ctx context.Context, c *cli.Context, l log.Logger, b storage.Backend) error {
					if c.NArg() < 1 {
						return cli.Exit("blob name is required", 2)
					}

					return command.Remove(ctx, l, b, c.Args().First())
				}),
			},
		},
	}
}

func withBackend(fn func(ctx context.Context, c *cli.Context, l log.Logger, b storage.Backend) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		logger, err := internal.NewLogger(c.String("log.level"), c.String("log.format"), c.App.Name)
		if err != nil {
			return err
		}

		cfg := config(c)

		b, err := cfg.Backend(logger)
		if err != nil {
			level.Error(logger).Log("msg", "failed to initialize backend", "err", err)
			return err
		}

		ctx, cancel := context.WithTimeout(c.Context, cfg.Timeout)
		defer cancel()

		return fn(ctx, c, logger, b)
	}
}

func config(c *cli.Context) command.Config {
	return command.Config{
		ConnectionString:  c.String("connection-string"),
		Container:         c.String("container"),
		CreateContainer:   c.Bool("create-container"),
		LocationMode:      c.String("location-mode"),
		HistoryFile:       c.String("history-file"),
		Timeout:           c.Duration("timeout"),
		RetryType:         c.String("retry.type"),
		MaxRetries:        c.Int("retry.max"),
		RetryInterval:     c.Duration("retry.interval"),
		RetryAccumulation: c.String("retry.accumulation"),
		RetryConnect:      c.Bool("retry.connect"),
		OIDCTokenID:       c.String("oidc-token-id"),
		TenantID:          c.String("tenant-id"),
		ClientID:          c.String("client-id"),
		ClientSecret:      c.String("client-secret"),
	}
}
