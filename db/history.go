package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"dev.hon.one/l2scheme/common"
	"dev.hon.one/l2scheme/util"
)

// HistoryMeasurement - InfluxDB measurement of import entries.
const HistoryMeasurement = "import"

// HistoryQueryRecentTime - InfluxDB-formatted time to consider for fetching "recent" entries.
const HistoryQueryRecentTime = "-24h"

var historyMutex sync.RWMutex
var historyQueryAPI influxdb2api.QueryAPI
var historyWriteAPI influxdb2api.WriteAPI

// StartHistoryClient - Start the import history client in the background.
// Without an InfluxDB URL history is only logged.
func StartHistoryClient(waitGroup *sync.WaitGroup, shutdown *util.ShutdownChannelDistributor) {
	config := common.GlobalConfig.InfluxDB
	if config.URL == "" {
		log.Debug("No InfluxDB URL configured, import history disabled")
		return
	}

	// Setup shutdown signal and waitgroup
	shutdownChannel := make(chan bool, 1)
	if !shutdown.AddListener(shutdownChannel) {
		return
	}
	waitGroup.Add(1)

	client := influxdb2.NewClient(config.URL, config.Token)

	cleanup := func() {
		historyMutex.Lock()
		writeAPI := historyWriteAPI
		historyWriteAPI = nil
		historyQueryAPI = nil
		historyMutex.Unlock()
		if writeAPI != nil {
			writeAPI.Flush()
		}
		client.Close()
		log.Info("History client stopped")
		waitGroup.Done()
	}

	go func() {
		// Wait for DB connection (true) to come up or for shutdown signal (false)
		if !waitForDBUp(client, shutdownChannel) {
			cleanup()
			return
		}

		// Setup query API, async write API and error logging
		writeAPI := client.WriteAPI(config.Org, config.Bucket)
		go func() {
			for err := range writeAPI.Errors() {
				log.WithError(err).Error("Failed to write import history")
			}
		}()
		historyMutex.Lock()
		historyQueryAPI = client.QueryAPI(config.Org)
		historyWriteAPI = writeAPI
		historyMutex.Unlock()
		log.Info("History client started: ", config.URL)

		<-shutdownChannel
		cleanup()
	}()
}

func waitForDBUp(client influxdb2.Client, shutdownChannel <-chan bool) bool {
	checkHealth := func() bool {
		_, err := client.Health(context.Background())
		if err != nil {
			log.WithError(err).Tracef("Database connection error")
			return false
		}
		return true
	}
	if checkHealth() {
		return true
	}
	log.Info("Waiting for database")
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if checkHealth() {
				return true
			}
		case <-shutdownChannel:
			return false
		}
	}
}

// ImportEntryPoint - InfluxDB point of an import entry.
func ImportEntryPoint(entry common.ImportEntry) *influxdb2write.Point {
	return influxdb2.NewPointWithMeasurement(HistoryMeasurement).
		AddTag("device_ip", entry.DeviceIP).
		AddTag("kind", entry.Kind).
		AddTag("format", entry.Format).
		AddField("success", entry.Success).
		AddField("duration_seconds", entry.Duration.Seconds()).
		AddField("entries_processed", entry.EntriesProcessed).
		AddField("entries_imported", entry.EntriesImported).
		AddField("entries_failed", entry.EntriesFailed).
		AddField("vlans_analyzed", entry.VlansAnalyzed).
		SetTime(entry.Time)
}

// StoreImportEntry - Attempt to store an import entry in the DB.
func StoreImportEntry(entry common.ImportEntry) {
	log.WithFields(log.Fields{
		"device":   entry.DeviceIP,
		"kind":     entry.Kind,
		"format":   entry.Format,
		"success":  entry.Success,
		"duration": entry.Duration,
	}).Trace("Import entry")

	historyMutex.RLock()
	writeAPI := historyWriteAPI
	historyMutex.RUnlock()
	if writeAPI == nil {
		return
	}
	writeAPI.WritePoint(ImportEntryPoint(entry))
}

// FetchRecentImportEntries - Fetch recent import entries from the DB, nil if history is disabled.
func FetchRecentImportEntries(ctx context.Context) ([]common.ImportEntry, error) {
	historyMutex.RLock()
	queryAPI := historyQueryAPI
	historyMutex.RUnlock()
	if queryAPI == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`from(bucket:%q)
|> range(start: %s)
|> filter(fn: (r) => r._measurement == %q)
|> pivot(rowKey: ["_time", "device_ip", "kind", "format"], columnKey: ["_field"], valueColumn: "_value")`,
		common.GlobalConfig.InfluxDB.Bucket, HistoryQueryRecentTime, HistoryMeasurement)
	result, err := queryAPI.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying import history: %w", err)
	}
	defer result.Close()

	var entries []common.ImportEntry
	for result.Next() {
		record := result.Record()
		entry := common.ImportEntry{Time: record.Time()}
		entry.DeviceIP, _ = record.ValueByKey("device_ip").(string)
		entry.Kind, _ = record.ValueByKey("kind").(string)
		entry.Format, _ = record.ValueByKey("format").(string)
		entry.Success, _ = record.ValueByKey("success").(bool)
		if seconds, ok := record.ValueByKey("duration_seconds").(float64); ok {
			entry.Duration = time.Duration(seconds * float64(time.Second))
		}
		entry.EntriesProcessed = int64Field(record.ValueByKey("entries_processed"))
		entry.EntriesImported = int64Field(record.ValueByKey("entries_imported"))
		entry.EntriesFailed = int64Field(record.ValueByKey("entries_failed"))
		entry.VlansAnalyzed = int64Field(record.ValueByKey("vlans_analyzed"))
		entries = append(entries, entry)
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("parsing import history: %w", result.Err())
	}
	return entries, nil
}

func int64Field(value interface{}) int {
	if number, ok := value.(int64); ok {
		return int(number)
	}
	return 0
}
