// Command intelwatch runs one intelligence collection and synthesis pass
// for a topic and prints the report.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"intelwatch/internal/app"
	"intelwatch/internal/config"
	"intelwatch/internal/logger"
	"intelwatch/internal/metrics"
	"intelwatch/internal/ratelimit"
	"intelwatch/internal/synth"
)

func main() {
	logger.Init()

	topic := flag.String("topic", "email security", "topic to build a report for")
	focus := flag.String("focus", "", "comma-separated focus areas")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if cfg.EnableHTTPMonitoring {
		go startMonitoring(cfg.MonitoringPort)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	var agent synth.Agent
	if cfg.GeminiAPIKey != "" {
		limiter := ratelimit.New(cfg.MaxPerLensCall, cfg.MaxDailyCalls)
		gemini, err := synth.NewGeminiAgent(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, limiter)
		if err != nil {
			logger.Error("connecting to gemini", "error", err)
			os.Exit(1)
		}
		defer gemini.Close()
		agent = gemini
	}

	application, err := app.New(cfg, agent)
	if err != nil {
		logger.Error("assembling pipeline", "error", err)
		os.Exit(1)
	}

	report, err := application.BuildReport(ctx, *topic, splitFocus(*focus))
	if err != nil {
		logger.Error("pipeline failed", "topic", *topic, "error", err)
		os.Exit(1)
	}

	fmt.Println(report)
}

func splitFocus(s string) []string {
	if s == "" {
		return nil
	}
	var areas []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			areas = append(areas, part)
		}
	}
	return areas
}

func startMonitoring(port string) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		status := "ok"
		code := http.StatusOK
		if !metrics.Get().Healthy() {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	})

	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(metrics.Get().GetStats())
	})

	logger.Info("monitoring server listening", "port", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		logger.Error("monitoring server stopped", "error", err)
	}
}
