// Command flowexporterd is the exporter core: it tracks flows reported by
// one or more flowprobe processes, runs the idle/active expiry state
// machine, and emits IPFIX messages to a collector. Startup and
// graceful-shutdown sequencing are grounded on cmd/ns-engine/main.go;
// the egress/archive/API wiring generalizes cmd/ns-probe and
// cmd/ns-api's dependency construction into one process.
package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"flowexporter/internal/api"
	"flowexporter/internal/config"
	"flowexporter/internal/egress"
	"flowexporter/internal/expiry"
	"flowexporter/internal/flow"
	"flowexporter/internal/trace"
	"flowexporter/internal/transport"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to YAML configuration file.")
	flag.Parse()

	log.Println("flowexporterd: starting...")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("flowexporterd: failed to load config: %v", err)
	}
	log.Println("flowexporterd: configuration loaded successfully.")

	tmpl, err := cfg.BuildTemplate()
	if err != nil {
		log.Fatalf("flowexporterd: invalid template configuration: %v", err)
	}
	log.Printf("flowexporterd: active template:\n%s", tmpl.String())

	table := flow.NewTable(
		flow.WithTimeouts(cfg.Exporter.IdleTimeoutMs, cfg.Exporter.ActiveTimeoutMs),
	)

	collectorAddr := cfg.Exporter.CollectorIP + ":" + strconv.Itoa(cfg.Exporter.CollectorPort)
	exporterAddr := cfg.Exporter.ExporterIP + ":" + strconv.Itoa(cfg.Exporter.ExporterPort)
	sender, err := egress.NewUDPSender(exporterAddr, collectorAddr)
	if err != nil {
		log.Fatalf("flowexporterd: failed to create UDP egress sender: %v", err)
	}
	defer sender.Close()

	var archiver expiry.Archiver
	if cfg.ClickHouse != nil {
		chArchiver, err := egress.NewClickHouseArchiver(egress.ClickHouseConfig{
			Addr:     cfg.ClickHouse.Addr,
			Database: cfg.ClickHouse.Database,
			Username: cfg.ClickHouse.Username,
			Password: cfg.ClickHouse.Password,
		})
		if err != nil {
			log.Fatalf("flowexporterd: failed to initialize ClickHouse archiver: %v", err)
		}
		archiver = chArchiver
	}

	pollPeriod := time.Duration(cfg.Exporter.PollPeriodS) * time.Second
	scheduler := expiry.New(table, tmpl, sender, archiver, cfg.Exporter.ObservationID, pollPeriod, cfg.Exporter.MaxMessageBytes)
	scheduler.Start()

	sub, err := transport.NewSubscriber(cfg.NATS.URL, cfg.NATS.Subject)
	if err != nil {
		log.Fatalf("flowexporterd: failed to connect to NATS: %v", err)
	}
	defer sub.Close()

	if err := sub.Start(func(env *transport.Envelope) {
		pkt := env.Packet
		if err := table.Observe(&pkt); err != nil {
			log.Printf("flowexporterd: dropping packet, table full: %v", err)
			return
		}
		if env.Trace {
			snap := trace.Capture(table, env.IngressInterface, "expiry.Scheduler")
			log.Printf("flowexporterd: trace capture on iface %d: %d live records", snap.IngressInterface, len(snap.Records))
		}
	}); err != nil {
		log.Fatalf("flowexporterd: failed to subscribe: %v", err)
	}

	apiHandler := &api.Handler{Table: table, Scheduler: scheduler, Template: tmpl}
	apiServer := &http.Server{Addr: cfg.API.ListenAddr, Handler: api.NewRouter(apiHandler)}
	go func() {
		log.Printf("flowexporterd: introspection API listening on %s", apiServer.Addr)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("flowexporterd: API server failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("flowexporterd: shutdown signal received, flushing remaining flows...")
	scheduler.Stop()
	stats := scheduler.Stats()
	log.Printf("flowexporterd: shutdown complete, emitted=%d dropped=%d egress_errs=%d", stats.Emitted, stats.Dropped, stats.EgressErrs)
}
