package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/pranjay/orders-core/internal/address"
	"github.com/pranjay/orders-core/internal/cart"
	"github.com/pranjay/orders-core/internal/catalog"
	"github.com/pranjay/orders-core/internal/checkout"
	"github.com/pranjay/orders-core/internal/config"
	"github.com/pranjay/orders-core/internal/httpx"
	"github.com/pranjay/orders-core/internal/inventory"
	kafkax "github.com/pranjay/orders-core/internal/kafka"
	"github.com/pranjay/orders-core/internal/metrics"
	"github.com/pranjay/orders-core/internal/notify"
	"github.com/pranjay/orders-core/internal/orders"
	"github.com/pranjay/orders-core/internal/postgres"
	"github.com/pranjay/orders-core/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log = log.With(zap.String("service", cfg.ServiceName))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	pPlaced := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024)
	pPlaced.Start(ctx)
	pShipped := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderShipped, 1024)
	pShipped.Start(ctx)

	events := &notify.Publisher{
		Placed:  pPlaced,
		Shipped: pShipped,
		Service: cfg.ServiceName,
		Log:     log,
	}

	ledger := &inventory.Ledger{DB: db}
	catalogRepo := &catalog.Repo{DB: db}
	cartRepo := &cart.Repo{DB: db, Catalog: catalogRepo}
	addressRepo := &address.Repo{DB: db}
	orderRepo := &orders.Repo{DB: db, Ledger: ledger, Prefix: cfg.OrderPrefix}

	checkoutSvc := &checkout.Service{
		Addresses: addressRepo,
		Cart:      cartRepo,
		Catalog:   catalogRepo,
		Orders:    orderRepo,
		Events:    events,
		Prefix:    cfg.OrderPrefix,
		Log:       log,
	}

	m := metrics.New("api")
	auth := &httpx.Auth{Secret: []byte(cfg.JWTSecret)}
	router := httpx.NewRouter()

	oh := &httpx.OrdersHandler{
		Checkout: checkoutSvc,
		Repo:     orderRepo,
		Events:   events,
		Redis:    rdb,
		Metrics:  m,
		Log:      log,
	}
	oh.Register(router, auth)

	ch := &httpx.CartHandler{Cart: cartRepo, Catalog: catalogRepo}
	ch.Register(router, auth)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	pPlaced.Close()
	pShipped.Close()
	cancel()
	pPlaced.WaitClosed()
	pShipped.WaitClosed()
}
