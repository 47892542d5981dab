package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/config"
	transport "trivia-quiz-service/internal/transport/http"

	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := newDeps(ctx, configPath)
	if err != nil {
		return err
	}
	defer rt.Close()
	log := rt.log

	finalPort := portFlag
	if finalPort == "" {
		finalPort = rt.cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	service := app.NewQuizService(rt.sessionRepository(), rt.remote, rt.pool, rt.recorder(), app.ServiceConfig{
		MaxAttempts: rt.cfg.Provider.MaxAttempts,
		Logger:      log,
	})
	defaults := rt.defaultOptions(ctx)
	router := transport.NewRouter(transport.RouterConfig{
		WSHandler:  transport.NewWSHandler(service, defaults, rt.prefs),
		APIHandler: transport.NewAPIHandler(rt.ledger, rt.stats, rt.prefs, rt.remote),
		Logger:     log,
	})

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// websocket connections are long-lived; per-write deadlines are left to the handler
		WriteTimeout: 0,
	}

	go func() {
		log.WithField("port", finalPort).Info("starting trivia quiz service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(config.ContextWithLogger(context.Background(), log), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
