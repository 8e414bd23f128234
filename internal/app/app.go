package app

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"voltgate/internal/config"
	"voltgate/internal/db"
	"voltgate/internal/handlers"
	"voltgate/internal/metrics"
	"voltgate/internal/ocpp"
	"voltgate/internal/ocpp/protocol"
	"voltgate/internal/redis"
	"voltgate/internal/repository"
	"voltgate/internal/service"
	"voltgate/internal/ws"
)

const activeChargeTTL = 24 * time.Hour

// App wires all dependencies for the gateway.
type App struct {
	httpServer *http.Server
	pool       *sql.DB
	redis      *goredis.Client
	manager    *ws.Manager
	logger     *zap.Logger
}

// New builds the application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	pool, err := db.NewPostgres(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	var redisClient *goredis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = redis.NewClient(cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			pool.Close()
			return nil, err
		}
	}

	m := metrics.Init()

	stationRepo := repository.NewStationRepository(pool)
	tokenRepo := repository.NewTokenRepository(pool)
	settingsRepo := repository.NewSettingsRepository(pool)
	transactionRepo := repository.NewTransactionRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	messageLogRepo := repository.NewMessageLogRepository(pool)

	var cache service.ChargeCache
	if redisClient != nil {
		cache = service.NewActiveChargeCache(redisClient, activeChargeTTL)
	}

	authorizer := service.NewAuthorizer(tokenRepo, settingsRepo, logger)
	ledger := service.NewLedger(transactionRepo, sessionRepo, cache, logger)

	router := ocpp.NewRouter()
	parser := ocpp.NewParser()
	processor := ocpp.NewProcessor(parser, router, messageLogRepo, logger, m)

	router.Register(protocol.ActionBootNotification, handlers.NewBootNotificationHandler(stationRepo, cfg.HeartbeatInterval(), logger))
	router.Register(protocol.ActionHeartbeat, handlers.NewHeartbeatHandler(stationRepo, logger))
	router.Register(protocol.ActionStatusNotification, handlers.NewStatusNotificationHandler(stationRepo, logger))
	router.Register(protocol.ActionAuthorize, handlers.NewAuthorizeHandler(authorizer, logger))
	router.Register(protocol.ActionStartTransaction, handlers.NewStartTransactionHandler(authorizer, ledger, logger))
	router.Register(protocol.ActionStopTransaction, handlers.NewStopTransactionHandler(ledger, logger))
	router.Register(protocol.ActionMeterValues, handlers.NewMeterValuesHandler(ledger, logger))

	manager := ws.NewManager(cfg.PingInterval())
	hub := ws.NewObserverHub(stationRepo, cfg.WriteTimeout(), logger, m)
	wsServer := ws.NewServer(manager, hub, processor, stationRepo, cfg.WriteTimeout(), logger, m)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("/metrics", promhttp.Handler())
	// Station identity can live at the root of the path, so the websocket
	// endpoint is the catch-all.
	mux.HandleFunc("/", wsServer.HandleWS)

	httpServer := &http.Server{
		Addr:        cfg.HTTPAddress(),
		Handler:     mux,
		ReadTimeout: 0, // websocket connections are long-lived
		IdleTimeout: 0,
	}

	return &App{
		httpServer: httpServer,
		pool:       pool,
		redis:      redisClient,
		manager:    manager,
		logger:     logger,
	}, nil
}

// Run starts the keepalive loop and HTTP server, blocking until ctx is done
// or the server fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go a.manager.Start(ctx)

	go func() {
		a.logger.Info("starting csms gateway", zap.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// Close releases resources.
func (a *App) Close() {
	if a.pool != nil {
		if err := a.pool.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
