// Command flowprobe is the capture-only half of the exporter, standing in
// for the host forwarding-graph node spec.md scopes out: it watches one
// interface, parses packets, and republishes them over NATS for
// flowexporterd to track. Mode dispatch and signal handling are grounded
// on cmd/ns-probe/main.go.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"flowexporter/internal/capture"
	"flowexporter/internal/config"
	"flowexporter/internal/flow"
	"flowexporter/internal/transport"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to YAML configuration file.")
	iface := flag.String("iface", "", "Interface to capture packets from (required).")
	ifaceIndex := flag.Int("iface-index", 0, "Ingress interface index reported to the exporter.")
	traceEvery := flag.Uint64("trace-every", 0, "Flag every Nth packet for a hot-path trace capture on the exporter (0 disables tracing).")
	flag.Parse()

	if *iface == "" {
		fmt.Fprintln(os.Stderr, "Error: -iface is required.")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("flowprobe: failed to load configuration: %v", err)
	}

	pub, err := transport.NewPublisher(cfg.NATS.URL, cfg.NATS.Subject)
	if err != nil {
		log.Fatalf("flowprobe: failed to connect to NATS: %v", err)
	}
	defer pub.Close()

	log.Printf("flowprobe: capturing on %s, publishing to %s", *iface, cfg.NATS.Subject)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var parseErrors atomic.Uint64
	var published atomic.Uint64

	handler := func(ifaceIdx int, pkt *flow.Packet) {
		env := &transport.Envelope{
			IngressInterface: ifaceIdx,
			CaptureTime:      pkt.Timestamp,
			Packet:           *pkt,
		}
		if *traceEvery > 0 && published.Load()%*traceEvery == 0 {
			env.Trace = true
		}
		if err := pub.Publish(env); err != nil {
			log.Printf("flowprobe: failed to publish packet: %v", err)
			return
		}
		n := published.Add(1)
		if n%1000 == 0 {
			log.Printf("flowprobe: %d packets published", n)
		}
	}

	go func() {
		if err := capture.LiveCapture(ctx, *iface, *ifaceIndex, handler, &parseErrors); err != nil && ctx.Err() == nil {
			log.Fatalf("flowprobe: capture failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("flowprobe: shutdown signal received, cleaning up...")
	cancel()
	log.Printf("flowprobe: published %d packets, %d parse errors", published.Load(), parseErrors.Load())
}
