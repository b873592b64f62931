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

	"github.com/vqhuy/go-storefront-orders/internal/config"
	"github.com/vqhuy/go-storefront-orders/internal/httpx"
	kafkax "github.com/vqhuy/go-storefront-orders/internal/kafka"
	"github.com/vqhuy/go-storefront-orders/internal/orders"
	"github.com/vqhuy/go-storefront-orders/internal/payment"
	"github.com/vqhuy/go-storefront-orders/internal/postgres"
	"github.com/vqhuy/go-storefront-orders/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	prodCreated := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024, log)
	prodCreated.Start(ctx)
	prodSettled := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicPaymentSettled, 1024, log)
	prodSettled.Start(ctx)
	prodCancel := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCancelled, 1024, log)
	prodCancel.Start(ctx)

	repo := &orders.Repo{DB: db}
	svc := &orders.Service{
		Store:    repo,
		Catalog:  repo,
		Redis:    rdb,
		Producer: prodCreated,
		Log:      log,
		Name:     cfg.ServiceName,
	}
	rec := &orders.Reconciler{
		Store:           repo,
		Redis:           rdb,
		ProducerSettled: prodSettled,
		ProducerCancel:  prodCancel,
		Log:             log,
		Name:            cfg.ServiceName,
	}
	gate := payment.New(cfg.Gateway)

	router := httpx.NewRouter()
	(&httpx.OrdersHandler{Svc: svc, Rec: rec}).Register(router)
	(&httpx.PaymentHandler{Gate: gate, Rec: rec, Log: log}).Register(router)
	(&httpx.CatalogHandler{Store: repo}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	// close inboxes -> flush, stop loops, drain
	prodCreated.Close()
	prodSettled.Close()
	prodCancel.Close()
	cancel()
	prodCreated.WaitClosed()
	prodSettled.WaitClosed()
	prodCancel.WaitClosed()
}
