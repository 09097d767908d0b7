package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata" // Embed IANA timezone database for Windows compatibility

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"chart-terminal/internal/config"
	"chart-terminal/internal/hover"
	"chart-terminal/internal/logging"
	"chart-terminal/internal/orchestrator"
	"chart-terminal/internal/timerange"
)

func main() {
	// Optional .env for API keys and local overrides
	_ = godotenv.Load()

	settingsManager := config.NewSettingsManager("")
	settings, err := settingsManager.LoadSettings()
	if err != nil {
		// Settings fall back to defaults on load failure; log after init
		settings = nil
	}

	debug := settings != nil && settings.EnableDebug
	log, logErr := logging.Init(debug)
	if logErr != nil {
		os.Exit(1)
	}
	defer log.Sync()

	if settings == nil {
		log.Warn("failed to load settings, using defaults", zap.Error(err))
		settings = settingsManager.GetSettings()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := NewApp(ctx, settings, log)
	if err := app.Start(); err != nil {
		log.Fatal("failed to start", zap.Error(err))
	}
	defer app.Stop()

	mux := http.NewServeMux()
	registerRoutes(mux, app, log)

	server := &http.Server{
		Addr:    settings.ListenAddr,
		Handler: mux,
	}

	go func() {
		log.Info("chart terminal listening", zap.String("addr", settings.ListenAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown incomplete", zap.Error(err))
	}
	log.Info("chart terminal stopped")
}

// registerRoutes wires the JSON API the host frontend talks to.
func registerRoutes(mux *http.ServeMux, app *App, log *zap.Logger) {
	// GET /api/chart-data/{symbol}?range=1M&width=800&height=400&kind=line
	mux.HandleFunc("/api/chart-data/", func(w http.ResponseWriter, r *http.Request) {
		symbol := strings.TrimPrefix(r.URL.Path, "/api/chart-data/")
		if symbol == "" {
			http.Error(w, "symbol required", http.StatusBadRequest)
			return
		}

		q := r.URL.Query()
		rng := timerange.Range(q.Get("range"))
		if rng == "" {
			rng = timerange.RangeMonth
		}
		width := parseFloat(q.Get("width"), 800)
		height := parseFloat(q.Get("height"), 400)
		kind := hover.ChartKind(q.Get("kind"))

		var out *RenderOutput
		var err error
		if app.HasChart(symbol) {
			out, err = app.SetTimeRange(symbol, rng)
		} else {
			out, err = app.OpenChart(symbol, rng, width, height, kind)
		}
		if err != nil {
			if errors.Is(err, orchestrator.ErrStaleFetch) {
				// The view moved on; the newer request owns the chart now
				w.WriteHeader(http.StatusNoContent)
				return
			}
			log.Warn("chart data request failed", zap.String("symbol", symbol), zap.Error(err))
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, out)
	})

	// GET /api/hover/{symbol}?x=142&y=250
	mux.HandleFunc("/api/hover/", func(w http.ResponseWriter, r *http.Request) {
		symbol := strings.TrimPrefix(r.URL.Path, "/api/hover/")
		if symbol == "" {
			http.Error(w, "symbol required", http.StatusBadRequest)
			return
		}
		q := r.URL.Query()
		if q.Get("leave") == "true" {
			app.HoverLeave(symbol)
			writeJSON(w, map[string]bool{"active": false})
			return
		}
		x := parseFloat(q.Get("x"), -1)
		y := parseFloat(q.Get("y"), -1)
		info, ok := app.HoverMove(symbol, x, y)
		writeJSON(w, map[string]any{"active": ok, "info": info})
	})

	// GET /api/events/{symbol}
	mux.HandleFunc("/api/events/", func(w http.ResponseWriter, r *http.Request) {
		symbol := strings.TrimPrefix(r.URL.Path, "/api/events/")
		if symbol == "" {
			http.Error(w, "symbol required", http.StatusBadRequest)
			return
		}
		past, future := app.Events(symbol)
		writeJSON(w, map[string]any{"past": past, "future": future})
	})

	// DELETE /api/chart/{symbol}
	mux.HandleFunc("/api/chart/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		symbol := strings.TrimPrefix(r.URL.Path, "/api/chart/")
		app.CloseChart(symbol)
		w.WriteHeader(http.StatusNoContent)
	})

	// GET /api/health
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, app.Health())
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func parseFloat(s string, fallback float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return f
}
