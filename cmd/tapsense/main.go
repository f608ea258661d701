// Command tapsense runs the tap-test measurement service: an HTTP API over
// the measurement history plus the serial trigger coordinator.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tapsense-data/tapsense/internal/api"
	"github.com/tapsense-data/tapsense/internal/audio"
	"github.com/tapsense-data/tapsense/internal/config"
	"github.com/tapsense-data/tapsense/internal/db"
	"github.com/tapsense-data/tapsense/internal/monitoring"
	"github.com/tapsense-data/tapsense/internal/serialmux"
	"github.com/tapsense-data/tapsense/internal/timeutil"
	"github.com/tapsense-data/tapsense/internal/trigger"
	"github.com/tapsense-data/tapsense/internal/version"
)

var (
	devMode    = flag.Bool("dev", false, "Run in dev mode (fast capture replay, debug logging)")
	listen     = flag.String("listen", ":8080", "Listen address")
	dbFile     = flag.String("db", "tapsense.db", "Measurement history database path")
	serialPort = flag.String("port", "", "Trigger serial port (empty: auto-discover)")
	captureWAV = flag.String("wav", "", "WAV capture source")
	configFile = flag.String("config", "", "JSON config file (flags override)")
	once       = flag.Bool("once", false, "Run one measurement, print it, and exit")
)

func main() {
	flag.Parse()

	settings := config.DefaultSettings()
	if *configFile != "" {
		var err error
		settings, err = config.Load(*configFile)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	// Explicitly-set flags win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			settings.Listen = *listen
		case "db":
			settings.DBPath = *dbFile
		case "port":
			settings.SerialPort = *serialPort
		case "wav":
			settings.CaptureWAV = *captureWAV
		}
	})

	if settings.Listen == "" {
		log.Fatal("Listen address is required")
	}
	if settings.CaptureWAV == "" {
		log.Fatal("Capture source is required (-wav or capture_wav in config)")
	}

	if *devMode {
		monitoring.EnableDebug()
	}
	log.Printf("tapsense %s (%s)", version.Version, version.GitSHA)

	clock := timeutil.RealClock{}

	recorder := &audio.FileRecorder{
		Path:     settings.CaptureWAV,
		Clock:    clock,
		Realtime: !*devMode,
	}

	conn := trigger.NewConnection(
		serialmux.RealPortFactory{},
		settings.SerialPort,
		serialmux.PortOptions{BaudRate: settings.BaudRate},
		clock,
	)
	handshaker := trigger.NewHandshaker(conn, clock)
	handshaker.Stabilization = settings.Stabilization
	handshaker.Timeout = settings.HandshakeTimeout

	coordinator := trigger.NewCoordinator(conn, handshaker, recorder, clock)

	database, err := db.NewDB(settings.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Resolve the trigger mode once at startup so the first measurement
	// does not pay the connect cost.
	log.Printf("trigger mode: %s", coordinator.ResolveMode())

	if *once {
		if err := measureOnce(ctx, coordinator, database); err != nil {
			conn.Disconnect()
			log.Fatalf("measurement failed: %v", err)
		}
		conn.Disconnect()
		return
	}

	var wg sync.WaitGroup

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(database, coordinator).ServeMux()

		server := &http.Server{
			Addr:    settings.Listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			log.Printf("listening on %s", settings.Listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	wg.Wait()
	conn.Disconnect()
	log.Printf("Graceful shutdown complete")
}

// measureOnce runs a single measurement attempt, records it, and prints the
// stored row as JSON on stdout.
func measureOnce(ctx context.Context, coordinator *trigger.Coordinator, database *db.DB) error {
	result, err := coordinator.RunMeasurement(ctx)
	if err != nil {
		return err
	}

	row := db.NewMeasurement(result)
	if err := database.RecordMeasurement(row); err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(row)
}
