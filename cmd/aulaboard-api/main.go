package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/aulaboard/backend/internal/auth"
	"github.com/aulaboard/backend/internal/board"
	"github.com/aulaboard/backend/internal/config"
	"github.com/aulaboard/backend/internal/database"
	"github.com/aulaboard/backend/internal/logging"
	"github.com/aulaboard/backend/internal/notify"
	"github.com/aulaboard/backend/internal/server"
	"github.com/aulaboard/backend/internal/users"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "aulaboard-api",
		Short: "Aulaboard task board backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().Int("token-ttl-minutes", defaults.GetInt("token.ttl_minutes"), "Bearer token TTL in minutes")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("signing-secret", "", "Token signing secret (overrides env)")
	cmd.PersistentFlags().String("vapid-public-key", defaults.GetString("vapid.public_key"), "VAPID public key for Web Push")
	cmd.PersistentFlags().String("vapid-private-key", "", "VAPID private key for Web Push (overrides env)")
	cmd.PersistentFlags().String("vapid-subscriber", defaults.GetString("vapid.subscriber"), "Contact address sent to push services")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "token.ttl_minutes", "token-ttl-minutes")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
	bindFlag(cmd, "vapid.public_key", "vapid-public-key")
	bindFlag(cmd, "vapid.private_key", "vapid-private-key")
	bindFlag(cmd, "vapid.subscriber", "vapid-subscriber")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	tokenManager := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		Issuer:        "aulaboard-auth",
		Audience:      "aulaboard-api",
		TokenTTL:      appConfig.TokenTTL,
	})

	bus := notify.NewGroupBus()

	pushConfig := notify.WebPushConfig{
		VAPIDPublicKey:  appConfig.VAPIDPublicKey,
		VAPIDPrivateKey: appConfig.VAPIDPrivateKey,
		Subscriber:      appConfig.VAPIDSubscriber,
	}
	var pushSender notify.PushSender
	if pushConfig.Configured() {
		pushSender = notify.NewWebPushSender(pushConfig)
	}

	dispatcher, err := notify.NewDispatcher(notify.DispatcherConfig{
		Database: db,
		Bus:      bus,
		Push:     pushSender,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	engine, err := notify.NewEngine(notify.EngineConfig{
		Database:  db,
		Deliverer: dispatcher,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	boardService, err := board.NewService(board.ServiceConfig{
		Database: db,
		Events:   engine,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	accountService, err := users.NewService(users.ServiceConfig{Database: db})
	if err != nil {
		return err
	}

	notificationService, err := notify.NewService(db)
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		TokenManager:  tokenManager,
		Accounts:      accountService,
		Boards:        boardService,
		Notifications: notificationService,
		Bus:           bus,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go engine.Run(signalCtx)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
