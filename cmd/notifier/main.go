package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/pranjay/orders-core/internal/config"
	kafkax "github.com/pranjay/orders-core/internal/kafka"
	"github.com/pranjay/orders-core/internal/notify"
	"github.com/pranjay/orders-core/internal/orders"
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
	log = log.With(zap.String("service", cfg.ServiceName+"-notifier"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	var mailer notify.Mailer
	if cfg.EmailAPIKey != "" {
		mailer = notify.NewAPIMailer(cfg.EmailAPIBase, cfg.EmailAPIKey, cfg.EmailFrom)
	} else {
		mailer = &notify.LogMailer{Log: log}
	}

	svc := &notify.Service{
		Mailer:     mailer,
		Dedup:      &notify.RedisDeduper{Redis: rdb},
		AdminEmail: cfg.AdminEmail,
		Log:        log,
	}

	topics := []string{orders.TopicOrderPlaced, orders.TopicOrderShipped}
	for _, topic := range topics {
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifierGroup, topic, cfg.NotifierWorkers, log)
		go func(topic string) {
			log.Info("consumer started",
				zap.String("group", cfg.NotifierGroup),
				zap.String("topic", topic),
				zap.Int("workers", cfg.NotifierWorkers))
			if err := cons.Start(ctx, svc.HandleEvent); err != nil {
				log.Error("consumer exit", zap.String("topic", topic), zap.Error(err))
				cancel()
			}
		}(topic)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		log.Info("shutting down consumers")
	case <-ctx.Done():
	}
	cancel()
}
