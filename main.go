package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/myownradio/channel-bot/config"
	"github.com/myownradio/channel-bot/internal/adapters/broadcast/radiomanager"
	"github.com/myownradio/channel-bot/internal/adapters/search/rutracker"
	"github.com/myownradio/channel-bot/internal/adapters/suggest"
	"github.com/myownradio/channel-bot/internal/adapters/tagreader"
	"github.com/myownradio/channel-bot/internal/adapters/torrentengine/transmission"
	"github.com/myownradio/channel-bot/internal/api"
	"github.com/myownradio/channel-bot/internal/api/service"
	"github.com/myownradio/channel-bot/internal/auth"
	"github.com/myownradio/channel-bot/internal/pipeline"
	"github.com/myownradio/channel-bot/internal/processor"
	"github.com/myownradio/channel-bot/internal/store"
	"github.com/myownradio/channel-bot/internal/supervisor"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()

	slog.Info("Starting channel-bot service",
		"bind_address", cfg.BindAddress,
		"download_directory", cfg.DownloadDirectory,
		"state_storage_directory", cfg.StateStorageDirectory,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		slog.Info("Shutdown signal received")
		cancel()
	}()

	stateStore, err := store.NewDiskStore(cfg.StateStorageDirectory)
	if err != nil {
		slog.Error("Failed to initialize state store", "error", err)
		os.Exit(1)
	}

	searchClient, err := rutracker.New(ctx, cfg.SearchUsername, cfg.SearchPassword, cfg.SearchBaseURL)
	if err != nil {
		slog.Error("Failed to log in to search provider", "error", err)
		os.Exit(1)
	}

	torrentClient := transmission.New(cfg.TransmissionRPCEndpoint, cfg.TransmissionUsername, cfg.TransmissionPassword)

	broadcastClient, err := radiomanager.New(ctx, cfg.RadioManagerEndpoint, cfg.RadioManagerUsername, cfg.RadioManagerPassword)
	if err != nil {
		slog.Error("Failed to log in to broadcast backend", "error", err)
		os.Exit(1)
	}

	tagReader := tagreader.New()
	suggestClient := suggest.New(cfg.SuggestAPIBaseURL, cfg.SuggestAPIKey, cfg.SuggestModel)

	handlers := &pipeline.Handlers{
		Search:            searchClient,
		Torrent:           torrentClient,
		Broadcast:         broadcastClient,
		Tags:              tagReader,
		DownloadDirectory: cfg.DownloadDirectory,
	}

	proc := processor.New(stateStore, handlers)
	sup := supervisor.New(ctx, proc)

	if err := sup.Recover(ctx); err != nil {
		slog.Error("Failed to recover in-flight requests", "error", err)
		os.Exit(1)
	}

	authenticator := auth.New(auth.Config{
		Username:  cfg.OperatorUsername,
		Password:  cfg.OperatorPassword,
		JWTSecret: cfg.JWTSecret,
	})

	server := api.NewServer(cfg.BindAddress, api.Deps{
		Auth:        authenticator,
		Requests:    service.NewRequestService(sup),
		Suggestions: service.NewSuggestionService(broadcastClient, suggestClient),
	})

	go func() {
		<-ctx.Done()
		slog.Info("Shutting down HTTP server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("HTTP server error", "error", err)
		os.Exit(1)
	}

	sup.Wait()
	slog.Info("Server stopped")
}
