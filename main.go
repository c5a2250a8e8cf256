package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"smart-cart-service/config"
	"smart-cart-service/database"
	"smart-cart-service/kafka"
	"smart-cart-service/logger"
	"smart-cart-service/models"
	"smart-cart-service/routes"
	"smart-cart-service/sensors"
	"smart-cart-service/services"
)

func main() {
	cfg := config.Load()

	logger.Initialize(cfg.Env)
	defer logger.Log.Sync()
	log := logger.Log

	// Remote ledger: a failed dial means the cart starts offline, it is
	// not fatal. The probe loop picks the connection back up.
	mongoDB, err := database.ConnectMongo(cfg.MongoURI, cfg.MongoDB, cfg.MongoTimeout)
	if err != nil {
		log.Warn("remote ledger unreachable, starting offline", zap.Error(err))
	}
	ledger := database.NewMongoLedger(mongoDB, cfg.MongoTimeout, log)

	// Local durable store is mandatory: without it an outage would lose
	// session data.
	store, err := database.OpenOfflineStore(cfg.OfflineDBPath)
	if err != nil {
		log.Fatal("failed to open offline store", zap.Error(err))
	}
	defer store.Close()

	redisClient := database.NewRedisClient(cfg.RedisURL, log)
	catalog := database.NewCatalogRepository(ledger, redisClient, log)

	var publisher services.CheckoutPublisher
	if producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, log); producer != nil {
		publisher = producer
		defer producer.Close()
	}

	// Sensor variant is chosen once here; call sites never probe.
	var sensor sensors.LoadCellReader
	switch cfg.SensorMode {
	default:
		log.Info("using simulated load cell", zap.String("mode", cfg.SensorMode))
		sensor = sensors.NewSimulatedSensor()
	}

	monitor := sensors.NewScaleMonitor(sensor, sensors.Options{
		SamplePeriod:       cfg.SamplePeriod,
		WindowSize:         cfg.WindowSize,
		RawSamples:         cfg.RawSamples,
		StabilityThreshold: cfg.StabilityThreshold,
		ItemThreshold:      cfg.ItemThreshold,
		SettleDelay:        cfg.SettleDelay,
		MismatchTolerance:  cfg.MismatchTolerance,
	}, log)

	relay := services.NewActivityRelay(ledger, store, cfg.CartID, cfg.ProbeInterval, log)
	sessions := services.NewSessionService(cfg.CartID, ledger, store, catalog, relay, monitor, publisher, log)
	relay.OnOnline(func(ctx context.Context) {
		if _, err := sessions.SyncOffline(ctx); err != nil {
			log.Warn("session reconciliation failed", zap.Error(err))
		}
	})

	monitor.Start()
	relay.Start()

	// Bridge scale signals into the activity log
	bridgeStop := make(chan struct{})
	go bridgeScaleSignals(monitor, relay, log, bridgeStop)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), logger.RequestLogger())
	routes.RegisterRoutes(router, sessions, relay, monitor, ledger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info("smart cart service running",
			zap.String("port", cfg.Port),
			zap.String("cart_id", cfg.CartID),
			zap.Bool("online", ledger.Online()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down gracefully")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}

	close(bridgeStop)
	relay.Stop()
	monitor.Stop()

	if err := database.DisconnectMongo(mongoDB); err != nil {
		log.Warn("mongo disconnect failed", zap.Error(err))
	}
	log.Info("shutdown complete")
}

// bridgeScaleSignals forwards weight change events and mismatch anomalies
// from the monitor into the activity log. Pure diagnostics; nothing here
// touches the session.
func bridgeScaleSignals(monitor *sensors.ScaleMonitor, relay *services.ActivityRelay, log *zap.Logger, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case ev := <-monitor.Events():
			relay.Log(context.Background(), models.ActivityWeightChange, map[string]any{
				"change":      string(ev.Type),
				"delta_grams": ev.DeltaGrams,
			})
		case mm := <-monitor.Mismatches():
			log.Warn("weight mismatch reported to operator",
				zap.String("item_id", mm.ItemID),
				zap.Float64("expected_grams", mm.ExpectedGrams),
				zap.Float64("actual_grams", mm.ActualGrams),
			)
			relay.Log(context.Background(), models.ActivityWeightChange, map[string]any{
				"mismatch":       true,
				"item_id":        mm.ItemID,
				"expected_grams": mm.ExpectedGrams,
				"actual_grams":   mm.ActualGrams,
			})
		}
	}
}
