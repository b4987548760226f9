package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-grid/auth"
	"chat-grid/moderation"
	"chat-grid/repositories"
	"chat-grid/runtime"
	"chat-grid/runtime/workers"
	"chat-grid/services"
	"chat-grid/transport"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/mama165/sdk-go/logs"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const shutdownTimeout = 10 * time.Second

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes
// error reporting, so every defer (database close, worker shutdown) executes
// before the process exits.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	charReplacement, err := config.CharacterRune()
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Relational store (PostgreSQL)
	// TranslateError turns driver-specific failures into gorm sentinels the
	// repositories rely on.
	db, err := gorm.Open(postgres.Open(config.DatabaseDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		return exitRuntime, fmt.Errorf("database connection failed: %w", err)
	}

	if err := db.AutoMigrate(
		&repositories.User{},
		&repositories.Group{},
		&repositories.GroupMember{},
		&repositories.GroupInvitation{},
	); err != nil {
		return exitRuntime, fmt.Errorf("migration failed: %w", err)
	}

	// 3. Message store (BadgerDB)
	badgerDB, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("message store opening failed: %w", err)
	}
	defer func() {
		// Defer ensures the database lock is released and buffers are flushed
		// before the function returns.
		logger.Info("Closing BadgerDB...")
		_ = badgerDB.Close()
	}()

	// 4. Context & Signals
	// NotifyContext captures OS signals and cancels the context to trigger a shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Live channel registry, moderation and services
	registry := runtime.NewRegistry(logger, config.ChannelCapacity)

	moderator, err := moderation.NewDefaultModerator(charReplacement, logger)
	if err != nil {
		return exitRuntime, fmt.Errorf("moderator init failed: %w", err)
	}

	userRepository := repositories.NewUserRepository(db)
	groupRepository := repositories.NewGroupRepository(db)
	invitationRepository := repositories.NewInvitationRepository(db)
	messageRepository := repositories.NewMessageRepository(badgerDB, logger, config.LimitMessages)

	tokens := auth.NewTokenManager(config.JWTSecret, config.TokenTTL)

	authService := services.NewAuthService(userRepository, tokens)
	chatService := services.NewChatService(logger, registry, messageRepository, moderator)
	groupService := services.NewGroupService(logger, groupRepository, invitationRepository,
		userRepository, messageRepository, chatService)

	// 6. Background workers
	supervisor := workers.NewSupervisor(logger, config.RestartInterval).
		Add(
			workers.NewTelemetryWorker(logger, registry, config.StatsInterval),
			workers.NewCompactionWorker(logger, badgerDB, config.GCInterval),
		)
	go supervisor.Run(ctx)
	defer supervisor.Stop()

	// 7. HTTP & websocket surface
	app := transport.NewRouter(
		logger,
		tokens,
		transport.NewUserHandler(logger, authService, userRepository),
		transport.NewGroupHandler(logger, groupService, chatService),
		transport.NewInvitationHandler(logger, groupService),
		transport.NewChatHandler(logger, ctx, registry, chatService, groupService, tokens),
		registry,
	).Build()

	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received, draining connections...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = app.Shutdown(shutdownCtx)
	}()

	logger.Info("Server listening", "address", config.Address())
	if err := app.Listen(config.Address(),
		iris.WithoutInterruptHandler,
		iris.WithoutServerError(iris.ErrServerClosed)); err != nil {
		return exitRuntime, fmt.Errorf("server error: %w", err)
	}

	logger.Info("Server stopped")
	return exitOK, nil
}
