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

	"luntera-pos-services/internal/cart"
	"luntera-pos-services/internal/config"
	"luntera-pos-services/internal/db"
	"luntera-pos-services/internal/directory"
	"luntera-pos-services/internal/fiscal"
	httpapi "luntera-pos-services/internal/http"
	"luntera-pos-services/internal/http/handlers"
	"luntera-pos-services/internal/logger"
	"luntera-pos-services/internal/netstatus"
	"luntera-pos-services/internal/payment"
	"luntera-pos-services/internal/queue"
	"luntera-pos-services/internal/storage"
	"luntera-pos-services/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logger.New(cfg.Env, cfg.TerminalID)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("local database connection failed", zap.Error(err))
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		log.Fatal("local schema setup failed", zap.Error(err))
	}

	var queueClient *queue.Client
	if cfg.RabbitMQURL != "" {
		qc, err := queue.New(cfg.RabbitMQURL)
		if err != nil {
			if cfg.Env == "production" {
				log.Fatal("rabbitmq connection failed", zap.Error(err))
			}
			log.Warn("rabbitmq connection failed; continuing without events", zap.Error(err))
			qc = nil
		}
		if qc != nil {
			if err := qc.EnsureExchange(queue.EventsExchange); err != nil {
				if cfg.Env == "production" {
					log.Fatal("rabbitmq exchange failed", zap.Error(err))
				}
				log.Warn("rabbitmq exchange failed; continuing without events", zap.Error(err))
				_ = qc.Close()
				qc = nil
			}
		}
		queueClient = qc
		if qc != nil {
			defer qc.Close()
			log.Info("event publishing enabled", zap.String("exchange", queue.EventsExchange))
		}
	} else {
		log.Info("event publishing disabled (RABBITMQ_URL is empty)")
	}

	var paymentEvents payment.EventPublisher
	var fiscalEvents fiscal.EventPublisher
	if publisher := queue.NewEventPublisher(queueClient, cfg.TerminalID, log); publisher != nil {
		paymentEvents = publisher
		fiscalEvents = publisher
	}

	var objectStore *storage.ObjectStore
	if cfg.ObjectStoreEndpoint != "" {
		objectStore, err = storage.NewObjectStore(ctx, storage.Config{
			Endpoint:        cfg.ObjectStoreEndpoint,
			Region:          cfg.ObjectStoreRegion,
			AccessKeyID:     cfg.ObjectStoreAccessKeyID,
			SecretAccessKey: cfg.ObjectStoreSecretAccessKey,
			Bucket:          cfg.ObjectStoreBucket,
			PublicBaseURL:   cfg.ObjectStorePublicBaseURL,
			StorageClass:    cfg.ObjectStoreStorageClass,
		})
		if err != nil {
			if cfg.Env == "production" {
				log.Fatal("object store setup failed", zap.Error(err))
			}
			log.Warn("object store setup failed; continuing without archive", zap.Error(err))
			objectStore = nil
		}
	}

	monitor := netstatus.NewMonitor(&netstatus.HTTPProber{URL: cfg.ProbeURL}, cfg.RemoteTimeout, log)
	monitor.StartPolling(cfg.NetProbeInterval)
	defer monitor.StopPolling()

	var invoiceArchive fiscal.InvoiceArchiver
	if objectStore != nil {
		invoiceArchive = objectStore
	}
	reconciler := fiscal.NewReconciler(
		fiscal.NewPGStore(pool),
		fiscal.NewHTTPSubmitter(cfg.FiscalServiceURL, cfg.RemoteTimeout),
		monitor,
		invoiceArchive,
		fiscalEvents,
		log,
	)
	if err := reconciler.Recover(ctx); err != nil {
		log.Fatal("pending invoice recovery failed", zap.Error(err))
	}
	log.Info("pending invoice queue recovered", zap.Int("entries", reconciler.PendingCount()))
	reconciler.Start(cfg.ReconcileInterval, monitor.Subscribe())
	defer reconciler.Stop()

	carts := cart.NewStore(cart.NewHTTPClient(cfg.CartServiceURL, cfg.RemoteTimeout), cfg.TableSlotCount, log)

	payments := payment.NewCoordinator(
		payment.NewHTTPClient(cfg.PaymentServiceURL, cfg.RemoteTimeout),
		reconciler,
		payment.NewPGArchive(pool),
		paymentEvents,
		log,
	)

	h := &handlers.Handler{
		Carts:     carts,
		Payments:  payments,
		Invoices:  reconciler,
		Monitor:   monitor,
		Directory: directory.New(cfg.DirectoryServiceURL, cfg.RemoteTimeout),
		Archive:   objectStore,
		Logger:    log,
		Config:    cfg,
	}

	wsServer := ws.New(monitor, reconciler, log, cfg.WSStatusPushInterval)
	apiServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewRouter(h, wsServer, log, cfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("terminal api ready", zap.String("base", "/api"))
		log.Info("terminal status stream ready", zap.String("base", "/ws/status"))
		log.Info("terminal service listening", zap.String("addr", cfg.HTTPAddr))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctxShutdown); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}
}
