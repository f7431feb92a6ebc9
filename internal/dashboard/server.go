// Package dashboard is the HTTP surface of the shop: a JSON API over
// the reconciler, a server-sent change feed, and the broadcast
// websocket.
package dashboard

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ckshop/shopflow/internal/ai"
	"github.com/ckshop/shopflow/internal/broadcast"
	"github.com/ckshop/shopflow/internal/config"
	"github.com/ckshop/shopflow/internal/reconcile"
)

// Deps holds the subsystems the API serves.
type Deps struct {
	Rec  *reconcile.Reconciler
	Hub  *broadcast.Hub
	AI   *ai.Client
	Cfg  *config.Config
	Feed *ChangeFeed
}

// StartOpts holds configuration for the API server.
type StartOpts struct {
	Deps Deps
	Port int
	Out  io.Writer
}

// Start launches the HTTP server and blocks until ctx is cancelled,
// draining in-flight requests before returning.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Deps.Rec == nil {
		return fmt.Errorf("dashboard: reconciler is required")
	}
	if opts.Deps.Cfg == nil {
		return fmt.Errorf("dashboard: config is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	router := NewRouter(opts.Deps)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Shopflow API running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	registerRoutes(router, deps)
	return router
}
