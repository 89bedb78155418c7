package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"solar_router/internal/actuator"
	"solar_router/internal/config"
	"solar_router/internal/controller"
	"solar_router/internal/rules"
	"solar_router/internal/store"
	"solar_router/internal/tank"
	"solar_router/internal/telemetry"
	"solar_router/internal/ws"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file")
	addr := flag.String("addr", ":8080", "HTTP listen address")
	broker := flag.String("broker", "", "MQTT broker URL (overrides config)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if *broker != "" {
		cfg.MQTT.Broker = *broker
	}

	client, err := connectMQTT(cfg.MQTT)
	if err != nil {
		log.Fatalf("Failed to connect to MQTT broker %s: %v", cfg.MQTT.Broker, err)
	}
	log.Printf("Connected to MQTT broker %s", cfg.MQTT.Broker)

	source, err := telemetry.NewMQTTSource(client, cfg.TelemetryTopics())
	if err != nil {
		log.Fatalf("Failed to subscribe to telemetry topics: %v", err)
	}
	heater := actuator.NewMQTTSwitch(client, cfg.MQTT.Topics.HeaterCommand)

	tankModel := tank.New(cfg.TankConfig(), cfg.TankUsageEvents())
	engine := rules.New(rules.DefaultRules(cfg.RuleThresholds()))
	fileStore := store.NewFileStore(cfg.StateFile)

	registry := prometheus.NewRegistry()
	metrics := controller.NewMetrics(registry)

	hub := ws.NewHub()
	bridge := ws.NewBridge(hub)

	ctrl := controller.New(controller.Deps{
		Tank:     tankModel,
		Rules:    engine,
		Source:   source,
		Heater:   heater,
		Store:    fileStore,
		Callback: bridge,
		Metrics:  metrics,
	}, controller.Config{
		OffpeakStart: cfg.Offpeak.Start,
		OffpeakEnd:   cfg.Offpeak.End,
	})

	if err := ctrl.RestoreFromStore(); err != nil {
		log.Printf("Restoring state: %v", err)
	}

	interval := time.Duration(cfg.CheckIntervalSeconds) * time.Second
	ctrl.Start(interval)
	log.Printf("Decision loop started (interval %s)", interval)

	handler := ws.NewHandler(hub, ctrl)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		last := ctrl.LastTick()
		if !last.IsZero() && time.Since(last) > 3*interval {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, "stale: last cycle at %s\n", last.Format(time.RFC3339))
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(ctrl.Computed()); err != nil {
			log.Printf("encoding status: %v", err)
		}
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/ws", handler)

	server := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		log.Printf("Starting server on %s", *addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Printf("Shutting down")
	ctrl.Stop()
	server.Close()
	client.Disconnect(1000)
}

func connectMQTT(cfg config.MQTT) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connect timed out")
	}
	if err := token.Error(); err != nil {
		return nil, err
	}
	return client, nil
}
