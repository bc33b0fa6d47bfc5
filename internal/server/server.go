/*
Package server implements the application's network transport layer.
It initializes the HTTP server, configures timeouts, and wires the
recommendation engine into the route handlers. The transport carries no
engine logic: bind the request, call the engine, map errors to statuses.
*/
package server

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"healthcoach/internal/planner"
)

// Server holds the configuration and dependencies for the HTTP service.
type Server struct {
	// port specifies the TCP port the server will listen on.
	port int

	// engine runs the recommendation pipeline behind every endpoint.
	engine *planner.Engine
}

// NewServer wires the engine into a configured *http.Server. It reads the
// port from the environment and sets production-ready network timeouts.
func NewServer(engine *planner.Engine) *http.Server {
	// Attempt to parse port from environment; fallback to 8080 if not set or invalid.
	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil || port == 0 {
		port = 8080
	}

	app := &Server{
		port:   port,
		engine: engine,
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", app.port),
		Handler:      app.RegisterRoutes(),
		IdleTimeout:  time.Minute,      // Time to wait for the next request on keep-alive connections.
		ReadTimeout:  10 * time.Second, // Maximum duration for reading the entire request.
		WriteTimeout: 150 * time.Second, // Must outlast the engine's 2-minute generation time limit.
	}
}
