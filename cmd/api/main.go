package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"healthcoach/internal/foods"
	"healthcoach/internal/genai"
	"healthcoach/internal/planner"
	"healthcoach/internal/server"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Info().Msg("shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown with error")
	}

	log.Info().Msg("Server exiting")

	// Notify the main goroutine that the shutdown is complete.
	done <- true
}

func main() {
	generator, err := genai.NewClientFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Fatal error: could not initialize generation client")
	}

	engine := planner.NewEngine(generator, foods.NewResolverFromEnv(), planner.ConfigFromEnv())
	apiServer := server.NewServer(engine)

	// Create a done channel to signal when the shutdown is complete.
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine.
	go gracefulShutdown(apiServer, done)

	log.Info().Msgf("Listening on %s", apiServer.Addr)
	if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete.
	<-done
	log.Info().Msg("Graceful shutdown complete.")
}
