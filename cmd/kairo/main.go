// Package main is the kairo terminal client for the Kairo task and meeting backend.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/Joseda-hg/kairo/internal/api"
	"github.com/Joseda-hg/kairo/internal/config"
	"github.com/Joseda-hg/kairo/internal/db"
	"github.com/Joseda-hg/kairo/internal/logging"
	"github.com/Joseda-hg/kairo/internal/notify"
	"github.com/Joseda-hg/kairo/internal/session"
	"github.com/Joseda-hg/kairo/internal/store"
	"github.com/Joseda-hg/kairo/internal/tui"
	"github.com/Joseda-hg/kairo/internal/web"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

type globalFlags struct {
	configPath string
	dbPath     string
	apiURL     string
}

// app holds everything a command needs once config is resolved.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	views   *db.Store
	session *session.Session
	client  *api.Client
	store   *store.Store
	close   func()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	cmd := &cobra.Command{
		Use:           "kairo",
		Short:         "Terminal client for Kairo tasks and meetings",
		Long:          "kairo shows your Kairo tasks as a kanban board and lets you browse meeting summaries.\nRun without a subcommand to start the terminal UI.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), flags)
		},
	}
	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flags.dbPath, "db", "", "sqlite db path")
	cmd.PersistentFlags().StringVar(&flags.apiURL, "api", "", "backend API base URL")

	cmd.AddCommand(
		newLoginCmd(flags),
		newLogoutCmd(flags),
		newWhoamiCmd(flags),
		newSyncCmd(flags),
		newMeetingsCmd(flags),
		newSummaryCmd(flags),
		newServeCmd(flags),
	)
	return cmd
}

func resolveConfigPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return config.DefaultConfigPath()
}

// loadConfig resolves the config file, applies flag overrides and writes the
// result back so the next run starts from the same settings.
func loadConfig(flags *globalFlags) (config.Config, string, error) {
	cfgPath, err := resolveConfigPath(flags.configPath)
	if err != nil {
		return config.Config{}, "", err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, "", err
	}

	if flags.dbPath != "" {
		cfg.DBPath = flags.dbPath
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(filepath.Dir(cfgPath), "kairo.db")
	}
	if flags.apiURL != "" {
		cfg.APIURL = flags.apiURL
	}
	if cfg.LogPath == "" {
		cfg.LogPath = logging.DefaultPath(cfgPath)
	}
	if cfg.WebPort == 0 {
		cfg.WebPort = config.DefaultWebPort
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return config.Config{}, "", err
	}
	return cfg, cfgPath, nil
}

func openApp(ctx context.Context, flags *globalFlags) (*app, error) {
	cfg, _, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Options{Path: cfg.LogPath, Level: cfg.LogLevel})
	if err != nil {
		return nil, err
	}

	if err := config.EnsureDir(cfg.DBPath); err != nil {
		return nil, err
	}
	sqlDB, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	views := db.NewStore(sqlDB)

	sess, err := session.New(ctx, views, logger)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	opts := []api.Option{api.WithLogger(logger), api.WithRateLimit(cfg.RequestsPerSecond)}
	if cfg.RequestTimeout > 0 {
		opts = append(opts, api.WithTimeout(cfg.RequestTimeout))
	}
	client := api.New(cfg.APIURL, sess, opts...)

	logger.Info("kairo starting", zap.String("api_url", cfg.APIURL), zap.String("db_path", cfg.DBPath))
	return &app{
		cfg:     cfg,
		logger:  logger,
		views:   views,
		session: sess,
		client:  client,
		store:   store.New(client, sess, logger),
		close: func() {
			_ = logger.Sync()
			_ = sqlDB.Close()
		},
	}, nil
}

// newWebServer builds the browser dashboard on a store of its own, so page
// loads never touch the filter or the tasks the terminal board is showing.
func (a *app) newWebServer() *web.Server {
	return web.NewServer(a.session, store.New(a.client, a.session, a.logger), a.cfg.APIURL, a.logger)
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runTUI(parent context.Context, flags *globalFlags) error {
	ctx, cancel := signalContext(parent)
	defer cancel()

	a, err := openApp(ctx, flags)
	if err != nil {
		return err
	}
	defer a.close()

	deps := tui.Deps{
		Store:           a.store,
		Session:         a.session,
		Views:           a.views,
		Toasts:          notify.NewQueue(),
		Logger:          a.logger,
		LoginURL:        a.client.LoginURL(),
		RefreshInterval: a.cfg.RefreshInterval,
	}

	// The callback server runs for the whole session when the web dashboard
	// is enabled, otherwise only from the first login attempt.
	server := a.newWebServer()
	var startOnce sync.Once
	startServer := func() {
		startOnce.Do(func() {
			addr := fmt.Sprintf(":%d", a.cfg.WebPort)
			go func() {
				if err := server.Start(ctx, addr); err != nil {
					a.logger.Error("web server stopped", zap.Error(err))
				}
			}()
		})
	}
	if a.cfg.WebEnabled {
		startServer()
	}
	deps.Tokens = server.Tokens()
	deps.StartLogin = func() error {
		startServer()
		return openBrowser(a.client.LoginURL())
	}

	return tui.Run(ctx, deps)
}
