package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"dev.hon.one/l2scheme/common"
	"dev.hon.one/l2scheme/db"
	"dev.hon.one/l2scheme/importer"
	"dev.hon.one/l2scheme/topology"
	"dev.hon.one/l2scheme/util"
)

// app - Everything a command needs, built from the global config.
type app struct {
	store     db.Store
	analyzer  *topology.Analyzer
	pipeline  *importer.Pipeline
	registry  *prometheus.Registry
	redis     *redis.Client
	shutdown  *util.ShutdownChannelDistributor
	waitGroup sync.WaitGroup
}

// openApp - Open storage, the VLAN locker and the history client.
// The shutdown distributor stops background clients when the app is closed.
func openApp(ctx context.Context, shutdown *util.ShutdownChannelDistributor) (*app, error) {
	config := common.GlobalConfig
	store, err := db.Open(ctx, config.Storage)
	if err != nil {
		return nil, err
	}

	app := &app{
		store:    store,
		registry: prometheus.NewRegistry(),
		shutdown: shutdown,
	}
	app.registry.MustRegister(collectors.NewGoCollector())
	util.NewExporterMetric(app.registry, common.PrometheusNamespace, common.AppVersion)

	var locker topology.Locker
	if config.Redis.Address != "" {
		app.redis = redis.NewClient(&redis.Options{
			Addr:     config.Redis.Address,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
		if err := app.redis.Ping(ctx).Err(); err != nil {
			app.Close()
			return nil, fmt.Errorf("connecting to redis %v: %w", config.Redis.Address, err)
		}
		locker = topology.NewRedisLocker(app.redis, time.Duration(config.Redis.LockTTLSeconds)*time.Second)
		log.WithField("address", config.Redis.Address).Info("Using Redis VLAN locks")
	}

	app.analyzer = topology.NewAnalyzer(store, locker, topology.HopPolicy(config.Topology.HopPolicy))
	app.pipeline = importer.NewPipeline(store, app.analyzer, importer.NewMetrics(app.registry))
	app.pipeline.SetHistory(db.StoreImportEntry)
	db.StartHistoryClient(&app.waitGroup, shutdown)
	return app, nil
}

// Close - Stop background clients and release storage.
func (app *app) Close() {
	app.shutdown.Shutdown()
	app.waitGroup.Wait()
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			log.WithError(err).Warn("Failed to close Redis client")
		}
	}
	if err := app.store.Close(); err != nil {
		log.WithError(err).Warn("Failed to close store")
	}
}

// runOnce - Run a one-shot command against a freshly opened app.
func runOnce(fn func(ctx context.Context, app *app) error) error {
	shutdown := util.NewShutdownChannelDistributor(notifySignals())
	ctx := shutdown.Context()
	app, err := openApp(ctx, shutdown)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(ctx, app)
}

// warnEphemeralStore - Warn when a command needs earlier imports but the store lives only in this process.
func warnEphemeralStore(command string, storage common.StorageConfig) bool {
	if storage.Driver != common.StorageDriverMemory {
		return false
	}
	log.WithFields(log.Fields{
		"command": command,
		"driver":  storage.Driver,
	}).Warn("The memory store starts empty in every run, configure the postgres driver to use earlier imports")
	return true
}

func notifySignals() <-chan os.Signal {
	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)
	return signalChannel
}

func printJSON(value interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
