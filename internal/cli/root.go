package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/intake/internal/control"
	"github.com/vietddude/intake/internal/core/config"
	"github.com/vietddude/intake/internal/core/domain"
	"github.com/vietddude/intake/internal/fetch"
)

var (
	cfgPath string
	isDebug bool
)

var rootCmd = &cobra.Command{
	Use:   "intake",
	Short: "Patient intake API client",
	Long:  `Intake is the authenticated client for the patient intake backend: credentials, connectivity, retries and session handling.`,
	Run:   runServe,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
}

// loadConfig reads .env and the config file and sets up logging.
func loadConfig() *config.AppConfig {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	slogLevel := slog.LevelInfo
	switch {
	case isDebug || cfg.Logging.Level == "debug":
		slogLevel = slog.LevelDebug
	case cfg.Logging.Level == "warn":
		slogLevel = slog.LevelWarn
	case cfg.Logging.Level == "error":
		slogLevel = slog.LevelError
	}
	initLogging(cfg.Logging.Format, slogLevel)
	return cfg
}

// initLogging installs the default logger: JSON lines for "json", the
// colored console handler otherwise.
func initLogging(format string, level slog.Level) {
	if format == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return
	}
	stylelog.InitDefault(&tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	})
}

// newApp builds the client. Navigation and notices from the session guard
// are printed to stderr since a terminal has no login page.
func newApp() *control.App {
	cfg := loadConfig()

	app, err := control.NewApp(cfg, control.Options{
		Navigator: fetch.NavigatorFunc(func(path string) {
			fmt.Fprintf(os.Stderr, "sign in again (%s)\n", path)
		}),
		Notifier: fetch.NotifierFunc(func(msg string) {
			fmt.Fprintln(os.Stderr, msg)
		}),
	})
	if err != nil {
		slog.Error("Failed to initialize client", "error", err)
		os.Exit(1)
	}
	app.OnSubscriptionRequired(func(ev domain.SubscriptionEvent) {
		fmt.Fprintf(os.Stderr, "subscription required: %s\n", ev.Error)
	})
	return app
}

// action is the body of a command that needs the client.
type action func(ctx context.Context, app *control.App) error

// withApp builds the client, runs fn and releases the client before
// reporting fn's error and exiting.
func withApp(msg string, fn action) {
	app := newApp()
	err := fn(context.Background(), app)
	closeApp(app)
	if err != nil {
		slog.Error(msg, "error", err, "kind", errorKind(err))
		fmt.Fprintln(os.Stderr, fetch.UserMessage(err))
		os.Exit(1)
	}
}

// persistent guards actions whose only effect is stored state, which a
// process-local store would drop on exit.
func persistent(fn action) action {
	return func(ctx context.Context, app *control.App) error {
		if err := app.RequireDurable(); err != nil {
			return err
		}
		return fn(ctx, app)
	}
}

func errorKind(err error) string {
	if reqErr, ok := fetch.AsRequestError(err); ok {
		return string(reqErr.Kind)
	}
	return ""
}

func closeApp(app *control.App) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Stop(ctx); err != nil {
		slog.Warn("Error during shutdown", "error", err)
	}
}

func runServe(cmd *cobra.Command, args []string) {
	app := newApp()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := app.Start(ctx); err != nil {
		slog.Error("Failed to start client", "error", err)
		os.Exit(1)
	}

	slog.Info("Client started", "config", cfgPath, "base_url", app.Config().BaseURL())

	sig := <-sigChan
	slog.Info("Received signal, shutting down...", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := app.Stop(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
		os.Exit(1)
	}
}
