package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/vqhuy/go-storefront-orders/internal/config"
	kafkax "github.com/vqhuy/go-storefront-orders/internal/kafka"
	"github.com/vqhuy/go-storefront-orders/internal/orders"
	"github.com/vqhuy/go-storefront-orders/internal/redisx"
	"github.com/vqhuy/go-storefront-orders/internal/statuscache"
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

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	w := &statuscache.Worker{
		Redis:       rdb,
		Log:         log,
		ServiceName: cfg.ServiceName + "-worker",
	}

	group := getenv("WORKER_GROUP", "statuscache-svc")
	workers := mustAtoi(os.Getenv("WORKER_CONCURRENCY"), "4")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicPaymentSettled, workers, log)

	go func() {
		log.Info("settlement consumer started",
			zap.String("group", group),
			zap.String("topic", orders.TopicPaymentSettled),
			zap.Int("workers", workers))
		if err := cons.Start(ctx, w.HandlePaymentSettled); err != nil {
			log.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down consumer")
	cancel()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}
