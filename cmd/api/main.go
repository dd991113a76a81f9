package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-order-core.git/internal/clock"
	"github.com/ariefcatur/go-order-core.git/internal/config"
	"github.com/ariefcatur/go-order-core.git/internal/httpx"
	"github.com/ariefcatur/go-order-core.git/internal/inventory"
	kafkax "github.com/ariefcatur/go-order-core.git/internal/kafka"
	"github.com/ariefcatur/go-order-core.git/internal/orders"
	"github.com/ariefcatur/go-order-core.git/internal/postgres"
	"github.com/ariefcatur/go-order-core.git/internal/redisx"
	"github.com/ariefcatur/go-order-core.git/internal/stats"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per lifecycle topic
	pCreated := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024, logger)
	pCreated.Start(ctx)
	pStatus := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatusChanged, 1024, logger)
	pStatus.Start(ctx)
	pCancelled := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCancelled, 1024, logger)
	pCancelled.Start(ctx)

	// Repos
	orderRepo := &orders.Repo{DB: db}
	productRepo := &orders.ProductRepo{DB: db}
	userRepo := &orders.UserRepo{DB: db}

	// Domain
	ledger := inventory.NewLedger(productRepo, logger, inventory.WithLockTimeout(cfg.LockTimeout))
	svc := &orders.Service{
		Catalog: productRepo,
		Ledger:  ledger,
		Store:   orderRepo,
		Users:   userRepo,
		Clock:   clock.NewSystem(),
		Log:     logger,
	}
	machine := orders.NewStateMachine(orderRepo, ledger, userRepo, logger)
	machine.LockTimeout = cfg.LockTimeout
	agg := &stats.Aggregator{Store: orderRepo, Users: userRepo, Cache: rdb}

	// HTTP
	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{
		Service:       svc,
		Machine:       machine,
		Stats:         agg,
		Redis:         rdb,
		Created:       pCreated,
		StatusChanged: pStatus,
		Cancelled:     pCancelled,
		ServiceName:   cfg.ServiceName,
	}
	oh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		logger.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	pCreated.Close()
	pStatus.Close()
	pCancelled.Close()
	cancel()
	pCreated.WaitClosed()
	pStatus.WaitClosed()
	pCancelled.WaitClosed()
}
