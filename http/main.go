// Package http serves the status page, device statistics and Prometheus metrics.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"dev.hon.one/l2scheme/common"
	"dev.hon.one/l2scheme/db"
	"dev.hon.one/l2scheme/importer"
	"dev.hon.one/l2scheme/util"
)

// ShutdownTimeout - How long in-flight requests get to finish on shutdown.
const ShutdownTimeout = 5 * time.Second

type handler struct {
	registry *prometheus.Registry
	pipeline *importer.Pipeline
}

// NewHandler - Routes of the server. The registry holds the long-lived metrics.
func NewHandler(registry *prometheus.Registry, pipeline *importer.Pipeline) http.Handler {
	handler := &handler{registry: registry, pipeline: pipeline}
	var mainServeMux http.ServeMux
	mainServeMux.HandleFunc("/", handler.handleOtherRequest)
	mainServeMux.HandleFunc("/stats", handler.handleStatsRequest)
	mainServeMux.HandleFunc("/history", handler.handleHistoryRequest)
	mainServeMux.HandleFunc("/metrics", handler.handleMetricsRequest)
	return &mainServeMux
}

// StartServer - Start HTTP server in the background.
func StartServer(waitGroup *sync.WaitGroup, shutdown *util.ShutdownChannelDistributor, handler http.Handler) {
	shutdownChannel := make(chan bool, 1)
	if !shutdown.AddListener(shutdownChannel) {
		return
	}
	waitGroup.Add(1)

	server := &http.Server{
		Addr:              common.GlobalConfig.HTTPEndpoint,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run
	stopped := make(chan struct{})
	go func() {
		defer waitGroup.Done()
		defer close(stopped)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("HTTP server failed")
			shutdown.Shutdown()
		}
		log.Info("HTTP server stopped")
	}()

	// Shutdown
	go func() {
		select {
		case <-shutdownChannel:
		case <-stopped:
			return
		}
		shutdownContext, shutdownContextCancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer shutdownContextCancel()
		if err := server.Shutdown(shutdownContext); err != nil {
			log.WithError(err).Warn("HTTP server shutdown timed out")
		}
	}()

	log.Infof("HTTP server started: %v", common.GlobalConfig.HTTPEndpoint)
}

func (handler *handler) handleOtherRequest(response http.ResponseWriter, request *http.Request) {
	if request.URL.Path == "/" {
		fmt.Fprintf(response, "%s version %s.\n", common.AppName, common.AppVersion)
		fmt.Fprintf(response, "\nPaths:\n")
		fmt.Fprintf(response, "- Device statistics: /stats\n")
		fmt.Fprintf(response, "- Recent imports: /history\n")
		fmt.Fprintf(response, "- Metrics: /metrics\n")
	} else {
		http.Error(response, "404 - Page not found.\n", http.StatusNotFound)
	}
}

func (handler *handler) handleStatsRequest(response http.ResponseWriter, request *http.Request) {
	logRequest("stats", request)
	stats, err := handler.pipeline.DeviceStats(request.Context())
	if err != nil {
		log.WithError(err).Warn("Failed to get device stats")
		http.Error(response, "500 - Failed to get device stats.\n", http.StatusInternalServerError)
		return
	}
	if stats == nil {
		stats = []common.DeviceStats{}
	}
	writeJSON(response, stats)
}

func (handler *handler) handleHistoryRequest(response http.ResponseWriter, request *http.Request) {
	logRequest("history", request)
	entries, err := db.FetchRecentImportEntries(request.Context())
	if err != nil {
		log.WithError(err).Warn("Failed to fetch import history")
		http.Error(response, "500 - Failed to fetch import history.\n", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []common.ImportEntry{}
	}
	writeJSON(response, entries)
}

func (handler *handler) handleMetricsRequest(response http.ResponseWriter, request *http.Request) {
	logRequest("metrics", request)

	// Build per-request registry with current device data
	deviceRegistry := prometheus.NewRegistry()
	stats, err := handler.pipeline.DeviceStats(request.Context())
	if err != nil {
		log.WithError(err).Warn("Failed to get device stats")
	}
	for _, device := range stats {
		labels := prometheus.Labels{"device": device.IPAddress, "hostname": device.Hostname}
		util.NewGauge(deviceRegistry, common.PrometheusNamespace, "device", "ports", "Number of ports of the device.", labels).Set(float64(device.TotalPorts))
		util.NewGauge(deviceRegistry, common.PrometheusNamespace, "device", "vlans", "Number of VLANs on the device.", labels).Set(float64(device.TotalVlans))
		util.NewGauge(deviceRegistry, common.PrometheusNamespace, "device", "source_macs", "Sightings classified as source.", labels).Set(float64(device.SourceMacs))
		util.NewGauge(deviceRegistry, common.PrometheusNamespace, "device", "transit_macs", "Sightings classified as transit.", labels).Set(float64(device.TransitMacs))
	}

	// Delegate final handling to Prometheus
	gatherers := prometheus.Gatherers{handler.registry, deviceRegistry}
	promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{}).ServeHTTP(response, request)
}

func logRequest(endpoint string, request *http.Request) {
	log.WithFields(log.Fields{
		"endpoint": endpoint,
		"client":   request.RemoteAddr,
		"url":      request.URL,
	}).Trace("Request")
}

func writeJSON(response http.ResponseWriter, value interface{}) {
	response.Header().Set("Content-Type", "application/json")
	encoder := json.NewEncoder(response)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(value); err != nil {
		log.WithError(err).Trace("Failed to write response")
	}
}
