package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/corpustools/reddit-author-collector/internal/collector"
	"github.com/corpustools/reddit-author-collector/internal/config"
	"github.com/corpustools/reddit-author-collector/internal/notifications"
	"github.com/corpustools/reddit-author-collector/internal/output"
	"github.com/corpustools/reddit-author-collector/internal/pullpush"
	"github.com/corpustools/reddit-author-collector/internal/scheduler"
	"github.com/corpustools/reddit-author-collector/internal/storage"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting Reddit author collector")

	// Initialize the PullPush client and the collection service
	client := pullpush.NewClient(cfg.BaseURL, cfg.PageSize, cfg.MaxRetries)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	collectorService := collector.NewService(cfg, client, rng)

	// Initialize notification service
	notificationService := notifications.NewService(cfg)

	// Initialize optional dataset archiving
	var storageClient storage.StorageInterface
	if cfg.StorageAccount != "" {
		storageClient, err = storage.NewAzureStorage(cfg.StorageAccount, cfg.StorageContainer)
		if err != nil {
			logrus.Fatalf("Failed to initialize storage: %v", err)
		}
	}

	runCollection := func() {
		// The sink is opened by Run itself, after the run is admitted; opening
		// it here would truncate the file a still-active run is writing.
		report, err := collectorService.Run(context.Background(), func() (collector.RowWriter, error) {
			return output.NewCSVWriter(cfg.OutputCSV)
		})
		if err != nil {
			logrus.Errorf("Collection run failed: %v", err)
			return
		}

		if storageClient != nil {
			if err := storageClient.StoreFile(cfg.OutputCSV); err != nil {
				logrus.Errorf("Failed to archive dataset: %v", err)
			}
		}

		if err := notificationService.SendRunReport(report); err != nil {
			logrus.Errorf("Failed to send run report: %v", err)
		}
	}

	// Set up HTTP server for health checks and progress reporting
	router := mux.NewRouter()

	// Health check endpoint
	router.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// Progress metrics endpoint
	router.HandleFunc("/metrics", metricsHandler(collectorService)).Methods("GET")

	// Manual trigger endpoint (scheduled mode)
	router.HandleFunc("/trigger", triggerHandler(runCollection)).Methods("POST")

	// Archived dataset endpoints, available when archiving is configured
	if storageClient != nil {
		router.HandleFunc("/datasets", datasetsHandler(storageClient)).Methods("GET")
		router.HandleFunc("/datasets/{name}", datasetHandler(storageClient)).Methods("GET")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in a goroutine
	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Without a schedule, perform a single collection run and exit
	if cfg.CollectionSchedule == "" {
		runCollection()
		shutdownServer(server)
		return
	}

	// Scheduled mode: run collection on the configured cron expression
	schedulerService := scheduler.NewService(cfg.CollectionSchedule, runCollection)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")
	shutdownServer(server)
	logrus.Info("Server exited")
}

func shutdownServer(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

func metricsHandler(collectorService *collector.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(collectorService.GetMetrics()))
	}
}

func triggerHandler(runCollection func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		go runCollection()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"Collection run triggered"}`))
	}
}

func datasetsHandler(storageClient storage.StorageInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		datasets, err := storageClient.List("")
		if err != nil {
			logrus.Errorf("Failed to list archived datasets: %v", err)
			http.Error(w, `{"error":"failed to list datasets"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string][]string{"datasets": datasets})
	}
}

func datasetHandler(storageClient storage.StorageInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["name"]
		data, err := storageClient.Retrieve(name)
		if err != nil {
			http.Error(w, `{"error":"dataset not found"}`, http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "text/csv")
		w.Write(data)
	}
}
