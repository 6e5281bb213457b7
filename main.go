package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	ammapp "argus-control/internal/amm/application"
	amm "argus-control/internal/amm/domain"
	ammmemory "argus-control/internal/amm/infrastructure/memory"
	ammpostgres "argus-control/internal/amm/infrastructure/postgres"
	ammhttp "argus-control/internal/amm/interfaces/http"
	apihttp "argus-control/internal/api/http"
	"argus-control/internal/audit"
	"argus-control/internal/auth"
	"argus-control/internal/config"
	"argus-control/internal/eventing"
	"argus-control/internal/exchange"
	"argus-control/internal/notify"
	"argus-control/internal/observability/metrics"
	orderapp "argus-control/internal/orders/application"
	ordersevents "argus-control/internal/orders/application/events"
	orders "argus-control/internal/orders/domain"
	ordersmemory "argus-control/internal/orders/infrastructure/memory"
	orderspostgres "argus-control/internal/orders/infrastructure/postgres"
	ordershttp "argus-control/internal/orders/interfaces/http"
	"argus-control/internal/poller"
	"argus-control/internal/protocol"
	resultsevents "argus-control/internal/results/application/events"
	results "argus-control/internal/results/domain"
	resultsmemory "argus-control/internal/results/infrastructure/memory"
	resultspostgres "argus-control/internal/results/infrastructure/postgres"
	resultshttp "argus-control/internal/results/interfaces/http"
	"argus-control/internal/watcher"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		orderRepo  orders.Repository
		resultRepo results.Store
		configRepo amm.Repository
		auditRepo  *audit.Repository
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("db open error: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("db ping error: %v", err)
		}
		orderRepo = orderspostgres.NewOrderRepository(db)
		resultRepo = resultspostgres.NewResultStore(db)
		configRepo = ammpostgres.NewConfigRepository(db)
		auditRepo = audit.NewRepository(db)
		logger.Info("using postgres storage")
	} else {
		orderRepo = ordersmemory.NewOrderRepository()
		resultRepo = resultsmemory.NewResultStore()
		configRepo = ammmemory.NewConfigRepository()
		logger.Info("using in-memory storage")
	}

	metrics.Init()

	dirs := exchange.Dirs{
		Inbox:     cfg.Exchange.Inbox,
		Outbox:    cfg.Exchange.Outbox,
		Requests:  cfg.Exchange.Requests,
		Responses: cfg.Exchange.Responses,
	}
	if err := dirs.EnsureAll(); err != nil {
		logger.Fatalf("exchange directories error: %v", err)
	}

	bus := eventing.NewInMemoryBus()
	wireEventLog(bus, logger)
	if auditRepo != nil {
		audit.WireBus(bus, auditRepo)
	}
	if cfg.WebhookURL != "" {
		notify.WireBus(bus, notify.NewWebhookNotifier(cfg.WebhookURL), logger)
	}

	codec := protocol.NewCodec(cfg.Sender.Name, cfg.Sender.PC)
	ids := protocol.NewIDGenerator(nil)

	orderService, err := orderapp.NewService(orderRepo, codec, ids, dirs, bus)
	if err != nil {
		logger.Fatalf("order service error: %v", err)
	}
	ammService, err := ammapp.NewService(configRepo)
	if err != nil {
		logger.Fatalf("configuration service error: %v", err)
	}

	dispatcher, err := watcher.NewDispatcher(orderRepo, resultRepo, bus, dirs, logger)
	if err != nil {
		logger.Fatalf("dispatcher error: %v", err)
	}
	outboxWatcher, err := watcher.New(cfg.Exchange.Outbox, dispatcher, logger, cfg.WatcherQuiet)
	if err != nil {
		logger.Fatalf("watcher error: %v", err)
	}

	scheduler, err := ammapp.NewScheduler(configRepo, orderService, logger)
	if err != nil {
		logger.Fatalf("scheduler error: %v", err)
	}
	scheduler.SetInterval(cfg.SchedulerInterval)

	statePoller, err := poller.New(resultRepo, orderService, orderService, logger)
	if err != nil {
		logger.Fatalf("poller error: %v", err)
	}
	statePoller.SetInterval(cfg.PollerInterval)
	statePoller.SetThreshold(cfg.StateThreshold)

	// Background workers are joined after the HTTP server stops, so an
	// in-flight dispatch or scheduler tick finishes before exit.
	var workers sync.WaitGroup
	workers.Add(4)
	go func() {
		defer workers.Done()
		if err := outboxWatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Error("outbox watcher stopped")
		}
	}()
	go func() {
		defer workers.Done()
		scheduler.Start(ctx)
	}()
	go func() {
		defer workers.Done()
		if err := statePoller.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Error("state poller stopped")
		}
	}()
	go func() {
		defer workers.Done()
		expireLoop(ctx, orderService, cfg.OrderMaxAge, cfg.ExpiryInterval, logger)
	}()

	orderHandler, err := ordershttp.NewHandler(orderService)
	if err != nil {
		logger.Fatalf("order handler error: %v", err)
	}
	responseHandler, err := resultshttp.NewHandler(resultRepo)
	if err != nil {
		logger.Fatalf("response handler error: %v", err)
	}
	configHandler, err := ammhttp.NewHandler(ammService)
	if err != nil {
		logger.Fatalf("configuration handler error: %v", err)
	}

	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret))

	mux := http.NewServeMux()
	mux.Handle("/api/v1/orders", orderHandler)
	mux.Handle("/api/v1/orders/", orderHandler)
	mux.Handle("/api/v1/responses", responseHandler)
	mux.Handle("/api/v1/responses/", responseHandler)
	mux.Handle("/api/v1/measurements", configHandler)
	mux.Handle("/api/v1/measurements/", configHandler)
	mux.Handle("/api/v1/system-state", apihttp.NewSystemStateHandler(resultRepo))
	mux.Handle("/api/v1/system-params", apihttp.NewSystemParamsHandler(resultRepo))
	mux.Handle("/api/v1/exports/stations.csv", apihttp.NewExportStationsCSVHandler(resultRepo))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.WithField("addr", cfg.HTTPAddr).Info("http listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("http server error: %v", err)
	}

	stop()
	workers.Wait()
	logger.Info("shutdown complete")
}

func wireEventLog(bus *eventing.InMemoryBus, logger *logrus.Logger) {
	bus.Subscribe(eventing.TypeOf[ordersevents.OrderSubmitted](), func(ctx context.Context, event any) error {
		evt, ok := event.(ordersevents.OrderSubmitted)
		if !ok {
			return eventing.ErrInvalidEventType
		}
		logger.WithFields(logrus.Fields{"order_id": evt.OrderID, "order_type": evt.OrderType}).Info("order submitted")
		return nil
	})
	bus.Subscribe(eventing.TypeOf[ordersevents.OrderFinished](), func(ctx context.Context, event any) error {
		evt, ok := event.(ordersevents.OrderFinished)
		if !ok {
			return eventing.ErrInvalidEventType
		}
		logger.WithField("order_id", evt.OrderID).Info("order finished")
		return nil
	})
	bus.Subscribe(eventing.TypeOf[ordersevents.OrderFailed](), func(ctx context.Context, event any) error {
		evt, ok := event.(ordersevents.OrderFailed)
		if !ok {
			return eventing.ErrInvalidEventType
		}
		logger.WithFields(logrus.Fields{"order_id": evt.OrderID, "code": evt.Code, "message": evt.Message}).Warn("order failed")
		return nil
	})
	bus.Subscribe(eventing.TypeOf[resultsevents.ResponseParseFailed](), func(ctx context.Context, event any) error {
		evt, ok := event.(resultsevents.ResponseParseFailed)
		if !ok {
			return eventing.ErrInvalidEventType
		}
		logger.WithFields(logrus.Fields{"source_file": evt.SourceFile, "reason": evt.Reason}).Warn("response parse failed")
		return nil
	})
}

func expireLoop(ctx context.Context, service *orderapp.Service, maxAge, interval time.Duration, logger *logrus.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, err := service.ExpireStale(ctx, maxAge)
			if err != nil {
				logger.WithError(err).Warn("order expiry failed")
				continue
			}
			if expired > 0 {
				logger.WithField("count", expired).Info("expired stale orders")
			}
		}
	}
}

func loggingMiddleware(next http.Handler, logger *logrus.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   resp.status,
			"duration": time.Since(start).String(),
		}).Info("http request")
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
