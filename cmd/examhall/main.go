package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/examhall/internal/analytics"
	"github.com/pavelanni/examhall/internal/auth"
	"github.com/pavelanni/examhall/internal/exam"
	"github.com/pavelanni/examhall/internal/handler"
	appI18n "github.com/pavelanni/examhall/internal/i18n"
	"github.com/pavelanni/examhall/internal/model"
	"github.com/pavelanni/examhall/internal/store"
)

func main() {
	// A missing .env file is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "load .env:", err)
	}
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "examhall",
		Short: "Online multiple-choice test administration server",
	}

	serve := serveCmd()
	root.AddCommand(serve, importCmd(), exportCmd(), addUserCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `examhall --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

// commonFlags registers the flags every command understands.
func commonFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("db", "examhall.db", "SQLite database path")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	commonFlags(cmd)
	f := cmd.Flags()
	f.StringP("addr", "a", ":5000", "HTTP listen address")
	f.String("jwt-secret", "", "Secret used to sign bearer tokens (or set EXAMHALL_JWT_SECRET)")
	f.Duration("token-ttl", auth.DefaultTTL, "Lifetime of issued bearer tokens")
	f.String("admin-email", "admin@examhall.local", "Email of the admin seeded into an empty database")
	f.String("admin-password", "", "Password of the seeded admin (or set EXAMHALL_ADMIN_PASSWORD)")
	f.StringP("lang", "l", "en", "Fallback language for API messages (en, ru)")
	f.Float64("pass-mark", analytics.DefaultPassMark, "Percentage at or above which an attempt passes")
	f.StringSlice("cors-origins", nil, "Allowed browser origins (default any)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("EXAMHALL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("examhall")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/examhall")
	v.AddConfigPath("/etc/examhall")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := seedAdmin(ctx, db, v.GetString("admin-email"), v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	tokens, err := auth.NewIssuer(v.GetString("jwt-secret"), v.GetDuration("token-ttl"))
	if err != nil {
		return fmt.Errorf("token issuer: %w (set --jwt-secret or EXAMHALL_JWT_SECRET)", err)
	}

	h := handler.New(
		db,
		exam.NewService(db),
		analytics.New(db, v.GetFloat64("pass-mark")),
		tokens,
		handler.Config{CORSOrigins: v.GetStringSlice("cors-origins")},
	)

	addr := v.GetString("addr")
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			"addr", addr,
			"db", v.GetString("db"),
			"lang", lang,
			"languages", appI18n.Languages(),
			"pass_mark", v.GetFloat64("pass-mark"),
			"token_ttl", v.GetDuration("token-ttl"),
		)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func seedAdmin(ctx context.Context, db *store.Store, email, password string) error {
	count, err := db.UserCount(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		return fmt.Errorf("admin password is required: set --admin-password flag or EXAMHALL_ADMIN_PASSWORD env var")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = db.CreateUser(ctx, model.User{
		Name:         "Administrator",
		Email:        email,
		PasswordHash: hash,
		Role:         model.UserRoleAdmin,
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("seeded default admin user", "email", store.NormalizeEmail(email))
	return nil
}
