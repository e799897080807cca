package api

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/strmhub/transcoder/config"
	"github.com/strmhub/transcoder/handlers"
	"github.com/strmhub/transcoder/log"
	"github.com/strmhub/transcoder/metrics"
	"github.com/strmhub/transcoder/middleware"
)

// ListenAndServe runs the streaming API until the context is cancelled or
// the listener fails.
func ListenAndServe(ctx context.Context, addr string, streamHandlers *handlers.StreamHandlersCollection) error {
	router := NewStreamRouter(streamHandlers)
	server := http.Server{Addr: addr, Handler: router}
	ctx, cancel := context.WithCancel(ctx)

	log.LogNoRequestID(
		"Starting transcoder API",
		"version", config.Version,
		"host", addr,
	)

	var err error
	go func() {
		err = server.ListenAndServe()
		cancel()
	}()

	<-ctx.Done()
	if err != nil {
		return err
	}

	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

// NewStreamRouter builds the streaming router. Every route is dynamic, so
// the healthcheck and metrics cannot live here, the router rejects static
// siblings of a wildcard segment.
func NewStreamRouter(streamHandlers *handlers.StreamHandlersCollection) *httprouter.Router {
	router := httprouter.New()
	withLogging := middleware.LogRequest()

	router.GET("/:resource/:slug/*file", withLogging(streamHandlers.Stream()))

	return router
}

// ListenAndServeInternal runs the operator-facing listener: healthcheck
// and Prometheus metrics.
func ListenAndServeInternal(ctx context.Context, addr string, streamHandlers *handlers.StreamHandlersCollection) error {
	router := httprouter.New()
	withLogging := middleware.LogRequest()
	router.GET("/ok", withLogging(streamHandlers.Ok()))
	router.Handler(http.MethodGet, "/metrics", metrics.Handler())

	server := http.Server{Addr: addr, Handler: router}
	ctx, cancel := context.WithCancel(ctx)

	log.LogNoRequestID("Starting internal API", "host", addr)

	var err error
	go func() {
		err = server.ListenAndServe()
		cancel()
	}()

	<-ctx.Done()
	if err != nil {
		return err
	}

	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
