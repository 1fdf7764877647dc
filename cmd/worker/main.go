// cmd/worker/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ipriyanshu25/fluentcrm-backend/internal/config"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/db"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/logger"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/queue"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/repository"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/service"
)

const processTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "error", err.Error())
		os.Exit(1)
	}
	if cfg.AMQP.URL == "" {
		logger.Error("AMQP_URL is required for the audit worker")
		os.Exit(1)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	logger.SetRedactPII(cfg.Log.RedactPII)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg.Database.DSN())
	if err != nil {
		logger.Error("open database", "error", err.Error())
		os.Exit(1)
	}
	defer conn.Close()

	q, err := queue.NewAMQPQueue(cfg.AMQP.URL, cfg.AMQP.Exchange)
	if err != nil {
		logger.Error("connect rabbitmq", "error", err.Error())
		os.Exit(1)
	}
	defer q.Close()

	audit := logger.New(os.Stdout, logger.INFO, cfg.Log.RedactPII)
	worker := service.NewAuditWorker(&repository.CampaignRepository{DB: conn}, audit)
	if err := queue.StartCampaignAuditSubscriber(q, processWith(ctx, worker)); err != nil {
		logger.Error("subscribe", "topic", queue.TopicCampaignSent, "error", err.Error())
		os.Exit(1)
	}

	logger.Info("worker running, waiting for campaign events", "exchange", cfg.AMQP.Exchange)
	<-ctx.Done()
	logger.Info("worker stopped")
}

// processWith bounds each event by processTimeout.
func processWith(ctx context.Context, w *service.AuditWorker) func(queue.CampaignSentEvent) error {
	return func(ev queue.CampaignSentEvent) error {
		ctx, cancel := context.WithTimeout(ctx, processTimeout)
		defer cancel()
		return w.Process(ctx, ev)
	}
}
