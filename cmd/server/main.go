// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ipriyanshu25/fluentcrm-backend/internal/config"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/controller"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/db"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/handler"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/ingest"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/lock"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/logger"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/mailer"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/queue"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/repository"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/service"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/storage"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/vault"
)

const listLockTTL = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "error", err.Error())
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err.Error())
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
	if err := db.Migrate(ctx, conn); err != nil {
		logger.Error("migrate database", "error", err.Error())
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("connect redis", "addr", cfg.Redis.Addr, "error", err.Error())
			os.Exit(1)
		}
		logger.Info("list locks backed by redis", "addr", cfg.Redis.Addr)
	} else {
		logger.Info("list locks backed by postgres advisory locks")
	}
	locker := lock.NewLocker(redisClient, conn, listLockTTL)

	cipher, err := vault.NewCipher(cfg.Vault.Key)
	if err != nil {
		logger.Error("init credential cipher", "error", err.Error())
		os.Exit(1)
	}

	listRepo := &repository.ActivityListRepository{DB: conn}
	marketerRepo := &repository.MarketerRepository{DB: conn}
	credentialRepo := &repository.CredentialRepository{DB: conn}
	campaignRepo := &repository.CampaignRepository{DB: conn}

	q, closeQueue, err := openQueue(cfg, campaignRepo)
	if err != nil {
		logger.Error("init queue", "error", err.Error())
		os.Exit(1)
	}
	defer closeQueue()

	var uploads storage.UploadArchive
	if cfg.Storage.Bucket != "" {
		archive, err := storage.NewS3Archive(ctx, cfg.Storage.Bucket, cfg.Storage.Region, cfg.Storage.Prefix)
		if err != nil {
			logger.Error("init upload archive", "bucket", cfg.Storage.Bucket, "error", err.Error())
			os.Exit(1)
		}
		uploads = archive
	}

	credentialVault := &vault.Vault{Repo: credentialRepo, Cipher: cipher}

	listService := &service.ListService{
		ListRepo:     listRepo,
		MarketerRepo: marketerRepo,
		Locker:       locker,
		Engine:       ingest.NewEngine(),
		Uploads:      uploads,
	}
	dispatchService := &service.DispatchService{
		MarketerRepo: marketerRepo,
		ListRepo:     listRepo,
		ArchiveRepo:  campaignRepo,
		Credentials:  credentialVault,
		Transport:    mailer.NewSMTPTransport(cfg.SMTP.DialTimeout),
		Queue:        q,
		SendTimeout:  cfg.SMTP.SendTimeout,
	}
	archiveService := &service.ArchiveService{
		ArchiveRepo:  campaignRepo,
		ListRepo:     listRepo,
		MarketerRepo: marketerRepo,
	}

	router := handler.SetupRoutes(handler.Routes{
		Lists:       &controller.ListController{ListService: listService},
		Credentials: &controller.CredentialController{Vault: credentialVault},
		Marketers:   &controller.MarketerController{MarketerService: &service.MarketerService{MarketerRepo: marketerRepo}},
		Campaigns:   handler.NewCampaignHandler(archiveService),
		Mail:        &handler.MailHandler{Dispatch: dispatchService},
		DB:          conn,
	}, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server running", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err.Error())
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err.Error())
	}
	logger.Info("server exited")
}

// openQueue connects to RabbitMQ when configured. Without a broker, events
// stay in-process and are audited by a local subscriber.
func openQueue(cfg *config.Config, archive service.CampaignLookup) (queue.Queue, func(), error) {
	if cfg.AMQP.URL != "" {
		q, err := queue.NewAMQPQueue(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("campaign events published to rabbitmq", "exchange", cfg.AMQP.Exchange)
		return q, func() { q.Close() }, nil
	}

	q := queue.NewInMemoryQueue()
	audit := logger.New(os.Stdout, logger.INFO, cfg.Log.RedactPII)
	worker := service.NewAuditWorker(archive, audit)
	if err := queue.StartCampaignAuditSubscriber(q, func(ev queue.CampaignSentEvent) error {
		return worker.Process(context.Background(), ev)
	}); err != nil {
		return nil, nil, err
	}
	return q, func() {}, nil
}
