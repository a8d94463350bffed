package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/docgen"
	"github.com/spf13/cobra"

	"github.com/sakif/articles-api/internal/auth"
	"github.com/sakif/articles-api/internal/config"
	"github.com/sakif/articles-api/internal/model"
	"github.com/sakif/articles-api/internal/server"
)

var envFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "server",
		Short:         "Articles and comments REST API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file read before the environment")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API until SIGINT or SIGTERM",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "routes",
			Short: "Print the route table as Markdown",
			RunE:  runRoutes,
		},
		newTokenCmd(),
	)
	return root
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		return err
	}
	return srv.Start()
}

// runRoutes builds the router against a throwaway in-memory store so docs
// can be generated without a database.
func runRoutes(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	cfg.DBDriver = config.DriverSQLite
	cfg.DBPath = ":memory:"
	cfg.AdminEmail, cfg.AdminPassword = "", ""
	if len(cfg.JWTSecret) < 16 {
		cfg.JWTSecret = "route-docs-only-secret"
	}

	srv, err := server.New(cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		return err
	}
	defer srv.Close()

	fmt.Fprintln(cmd.OutOrStdout(), docgen.MarkdownRoutesDoc(srv.Router(), docgen.MarkdownOpts{
		ProjectPath: "github.com/sakif/articles-api",
		Intro:       "Routes served by the articles API.",
	}))
	return nil
}

func newTokenCmd() *cobra.Command {
	var (
		id      model.Identity
		ttl     time.Duration
		isAdmin bool
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed token for an identity",
		Long: `Mint a signed token with JWT_SECRET for local testing. The identity
does not have to exist in the database.

Example:
  server token --id user-1 --first Ada --last Lovelace --admin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
			if err != nil {
				return err
			}

			id.IsAdmin = isAdmin
			if ttl <= 0 {
				ttl = cfg.TokenTTL
			}
			token, err := tokens.GenerateWithDuration(id, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&id.ID, "id", "", "user id carried in the subject claim")
	cmd.Flags().StringVar(&id.FirstName, "first", "", "first name claim")
	cmd.Flags().StringVar(&id.LastName, "last", "", "last name claim")
	cmd.Flags().BoolVar(&isAdmin, "admin", false, "mark the identity as admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default TOKEN_TTL)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newLogger(cfg config.Config) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger, nil
}
