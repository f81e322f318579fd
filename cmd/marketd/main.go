package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	_ "github.com/MikeMC777/marketplace/docs"
	"github.com/MikeMC777/marketplace/internal/catalog"
	"github.com/MikeMC777/marketplace/internal/checkout"
	"github.com/MikeMC777/marketplace/internal/config"
	"github.com/MikeMC777/marketplace/internal/events"
	"github.com/MikeMC777/marketplace/internal/httpx"
	"github.com/MikeMC777/marketplace/internal/inventory"
	"github.com/MikeMC777/marketplace/internal/ledger"
	"github.com/MikeMC777/marketplace/internal/market"
	"github.com/MikeMC777/marketplace/internal/metrics"
	"github.com/MikeMC777/marketplace/internal/order"
	"github.com/MikeMC777/marketplace/internal/product"
	"github.com/MikeMC777/marketplace/internal/request"
	"github.com/MikeMC777/marketplace/internal/seed"
	"github.com/MikeMC777/marketplace/internal/store"
	"github.com/MikeMC777/marketplace/internal/user"
)

type app struct {
	store    store.Store
	metrics  *metrics.Metrics
	lines    *order.Service
	dispatch *checkout.Dispatcher
	ledger   *ledger.Ledger
	requests *request.Tracker
	catalog  *catalog.Service
	browser  *product.Browser
	users    *user.Service
}

func newApp(st store.Store, m *metrics.Metrics, topic string) *app {
	inv := inventory.New(inventory.WithAlarm(m.StockAlarm))
	l := ledger.New(st, topic)
	lines := order.NewService(st, inv)
	co := checkout.New(st, inv, l, checkout.WithObserver(m))
	return &app{
		store:    st,
		metrics:  m,
		lines:    lines,
		dispatch: checkout.NewDispatcher(lines, co),
		ledger:   l,
		requests: request.NewTracker(st),
		catalog:  catalog.NewService(st, inv),
		browser:  product.NewBrowser(st),
		users:    user.NewService(st),
	}
}

func (a *app) lookupUser(ctx context.Context, id string) (*market.User, error) {
	var u *market.User
	err := a.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		u, err = tx.GetUser(ctx, id)
		return err
	})
	return u, err
}

func newRouter(a *app, timeout time.Duration) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger(), httpx.Metrics(a.metrics), httpx.Timeout(timeout))

	r.GET("/healthz", func(c *gin.Context) {
		if err := a.store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(a.metrics.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	g := r.Group("/", httpx.CurrentUser(a.lookupUser))

	g.GET("/profile", profileHandler(a.users))
	g.POST("/profile", updateProfileHandler(a.users))

	g.GET("/shops", listShopsHandler(a.browser))
	g.GET("/items", listItemsHandler(a.browser))
	g.GET("/items/search", searchItemsHandler(a.browser))
	g.GET("/items/:id", getItemHandler(a.browser))

	g.POST("/cart/items", addToCartHandler(a.lines))
	g.GET("/cart", cartHandler(a.lines))
	g.POST("/cart/actions", cartActionHandler(a.dispatch))
	g.POST("/checkout", checkoutHandler(a.dispatch))

	g.GET("/orders", listOrdersHandler(a.lines))
	g.GET("/orders/confirmation/:ids", confirmationHandler(a.lines))
	g.PUT("/orders/:id/status", updateStatusHandler(a.lines))

	g.GET("/transactions/purchases", purchasesHandler(a.ledger))
	g.GET("/transactions/sales", salesHandler(a.ledger))

	g.POST("/shops/:shop_id/requests", createRequestHandler(a.requests))
	g.GET("/shops/:shop_id/requests", shopRequestsHandler(a.requests))
	g.GET("/requests", myRequestsHandler(a.requests))
	g.POST("/requests/:id/reply", replyRequestHandler(a.requests))
	g.POST("/requests/:id/action", requestActionHandler(a.requests))

	g.POST("/shops/:shop_id/items", createItemHandler(a.catalog))
	g.PUT("/items/:id", updateItemHandler(a.catalog))
	g.DELETE("/items/:id", deleteItemHandler(a.catalog))
	g.DELETE("/shops/:shop_id", deleteShopHandler(a.catalog))
	g.DELETE("/account", closeAccountHandler(a.catalog))
	return r
}

// openStore returns the configured store and a func releasing it.
func openStore(ctx context.Context, cfg config.Config) (store.Store, func(), error) {
	if cfg.Store == "memory" {
		log.Printf("[store] using in-memory store")
		return store.NewMemory(), func() {}, nil
	}
	pool, err := store.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	pg := store.NewPostgres(pool)
	if err := pg.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	log.Printf("[store] postgres ready")
	return pg, pool.Close, nil
}

// watchHealth keeps the gRPC health status in line with store reachability,
// pinging the store every interval.
func watchHealth(ctx context.Context, st store.Store, hs *health.Server, every time.Duration) error {
	t := time.NewTicker(every)
	defer t.Stop()
	last := healthpb.HealthCheckResponse_UNKNOWN
	for {
		status := healthpb.HealthCheckResponse_SERVING
		if err := st.Ping(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			status = healthpb.HealthCheckResponse_NOT_SERVING
			log.Printf("[grpc] store unreachable: %v", err)
		}
		if status != last {
			hs.SetServingStatus("", status)
			last = status
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

// @title                      Marketplace API
// @version                    1.0
// @description                Cart, checkout, inventory and shop request endpoints.
// @BasePath                   /
// @securityDefinitions.apikey UserID
// @in                         header
// @name                       X-User-ID
func main() {
	os.Exit(run())
}

// run returns the process exit code once every deferred cleanup is done.
func run() int {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Printf("[store] %v", err)
		return 1
	}
	defer closeStore()

	if cfg.SeedFile != "" {
		f, err := seed.LoadFile(cfg.SeedFile)
		if err == nil {
			err = seed.Apply(ctx, st, f)
		}
		if err != nil {
			log.Printf("[seed] %v", err)
			return 1
		}
	}

	m := metrics.New("marketd")
	a := newApp(st, m, cfg.KafkaTopic)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           newRouter(a, cfg.RequestTimeout),
		ReadHeaderTimeout: 5 * time.Second,
	}
	hs := health.NewServer()
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("marketd listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return err
		}
		log.Printf("[grpc] health listening on %s", cfg.GRPCAddr)
		return gs.Serve(lis)
	})
	g.Go(func() error { return watchHealth(gctx, st, hs, 10*time.Second) })
	if cfg.Store == "memory" {
		// no external relay can read the in-memory outbox
		relay := events.NewRelay(st, events.LogPublisher{},
			events.WithBatch(cfg.OutboxBatch),
			events.WithInterval(cfg.OutboxInterval),
			events.WithObserver(m.ObserveOutbox))
		g.Go(func() error { return relay.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Printf("marketd shutting down")
		hs.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		gs.GracefulStop()
		return err
	})

	if err := g.Wait(); err != nil {
		log.Printf("marketd: %v", err)
		return 1
	}
	return 0
}
