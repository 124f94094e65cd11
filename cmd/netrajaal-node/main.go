// Command netrajaal-node runs one Netrajaal mesh relay node: it opens the
// configured UART link, starts the cooperative scheduler, serves Prometheus
// metrics, and offers an interactive command loop. The flag-based
// configuration, startup banner, and bufio.Scanner command loop follow the
// shape of the teacher's host/cmd/gopper-host/main.go, with the Klipper
// dictionary/get_uptime commands replaced by node status/send commands.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"netrajaal/config"
	"netrajaal/host/serial"
	"netrajaal/link"
	"netrajaal/node"
	"netrajaal/protocol"
)

var (
	configPath  = flag.String("config", "", "Path to node TOML configuration (required)")
	device      = flag.String("device", "", "Serial device path (overrides config)")
	metricsAddr = flag.String("metrics-addr", ":9273", "Address to serve Prometheus metrics on")
	verbose     = flag.Bool("verbose", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	log := logrus.New()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	entry := logrus.NewEntry(log)

	fmt.Println("Netrajaal Node - Mesh Relay Communication Core")
	fmt.Println("================================================")

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -config is required")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *device != "" {
		cfg.Serial.Device = *device
	}

	fmt.Printf("Opening serial link on %s at %d baud...\n", cfg.Serial.Device, cfg.Serial.Baud)
	port, err := serial.Open(&serial.Config{
		Device:      cfg.Serial.Device,
		Baud:        cfg.Serial.Baud,
		ReadTimeout: cfg.Serial.ReadTimeout,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open serial port: %v\n", err)
		os.Exit(1)
	}
	defer port.Close()

	l := link.New(port, entry)
	defer l.Close()

	n, err := node.New(cfg, l, entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to build node: %v\n", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(n.Metrics())
	go func() {
		http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		entry.WithField("addr", *metricsAddr).Info("serving metrics")
		if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
			entry.WithError(err).Warn("metrics server stopped")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	go n.Run(ctx)

	fmt.Printf("Node %c running (CC=%v). Enter commands ('help' for a list, 'quit' to exit):\n", n.Addr, n.IsCC)
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		cmd := parts[0]

		switch cmd {
		case "quit", "exit", "q":
			fmt.Println("Goodbye!")
			cancel()
			return

		case "help", "?":
			printHelp()

		case "status":
			n.LogStatus()

		case "send":
			if len(parts) < 3 {
				fmt.Println("usage: send <dest-letter> <payload>")
				continue
			}
			dest := parts[1][0]
			payload := strings.Join(parts[2:], " ")
			ok := n.Send(ctx, protocol.TypeEvent, payload, dest)
			fmt.Printf("send to %c: ok=%v\n", dest, ok)

		default:
			fmt.Printf("Unknown command: %s (type 'help' for available commands)\n", cmd)
		}
	}

	cancel()
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("\nAvailable commands:")
	fmt.Println("  status         - Log a summary of neighbors and path state")
	fmt.Println("  send <dst> <p> - Send payload p to node dst via the chunked transfer engine")
	fmt.Println("  quit/exit/q    - Exit the program")
	fmt.Println()
}
