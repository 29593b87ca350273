// Package server wires the storefront backend together: document store,
// id generator, sessions, tokens, services, the HTTP API and the gRPC health
// endpoint. It handles graceful shutdown on SIGINT, SIGTERM and SIGQUIT.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/storefront/internal/logging"
	"github.com/dmitrijs2005/storefront/internal/server/auth"
	"github.com/dmitrijs2005/storefront/internal/server/config"
	"github.com/dmitrijs2005/storefront/internal/server/docstore"
	"github.com/dmitrijs2005/storefront/internal/server/events"
	"github.com/dmitrijs2005/storefront/internal/server/gate"
	"github.com/dmitrijs2005/storefront/internal/server/idgen"
	"github.com/dmitrijs2005/storefront/internal/server/rest"
	"github.com/dmitrijs2005/storefront/internal/server/services"
	"github.com/dmitrijs2005/storefront/internal/server/sessions"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	gs "github.com/dmitrijs2005/storefront/internal/server/grpc"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	store     docstore.Store
	publisher events.Publisher
	http      *rest.Server
	grpc      *gs.GRPCServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	zl, err := logging.NewZap(c.Environment)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	return newApp(ctx, c, zl)
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {

	store, err := docstore.Open(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}

	ids := idgen.New(store, c.CounterPrefix)
	ss := sessions.New(store)
	tokens := auth.NewTokenService([]byte(c.SecretKey))
	pub := events.New(c.Brokers(), c.KafkaTopic, logger)

	accounts, err := services.NewAccountService(store, ids, ss, tokens, pub, c.SessionTTL, c.BcryptCost, logger)
	if err != nil {
		_ = pub.Close()
		_ = store.Close()
		return nil, err
	}
	customers := services.NewCustomerService(store, logger)
	orders := services.NewOrderService(store, ids, pub, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := rest.NewMetrics(rest.MetricsOptions{Registerer: registry})
	if err != nil {
		_ = pub.Close()
		_ = store.Close()
		return nil, fmt.Errorf("metrics init error: %w", err)
	}

	g := gate.New(tokens, ss, c.SessionTTL, logger)
	h := rest.NewHandler(accounts, customers, orders, store, logger)
	router := rest.NewRouter(h, g, metrics, registry, logger)

	return &App{
		config:    c,
		logger:    logger,
		store:     store,
		publisher: pub,
		http:      rest.NewServer(c.EndpointAddrHTTP, router, c.ShutdownTimeout, logger),
		grpc:      gs.NewGRPCServer(c.EndpointAddrGRPC, logger, store, c.HealthProbeInterval),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.http.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpc.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until a signal arrives, ctx is cancelled or either server fails.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "store", app.config.StoreBackend)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.close(context.Background())
}

func (app *App) close(ctx context.Context) {
	if err := app.publisher.Close(); err != nil {
		app.logger.Error(ctx, "failed to close event publisher", "error", err)
	}
	if err := app.store.Close(); err != nil {
		app.logger.Error(ctx, "failed to close store", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
