// Command receiver runs the Acquisition Coordinator: it discovers local
// interfaces matching a prefix, fans out one Listener per (interface,
// module) pairing, and logs acquisition lifecycle events (or, when a
// metrics address is set, folds them into Prometheus counters instead).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/spf13/cobra"

	"jungfraurx/internal/coordinator"
	"jungfraurx/internal/diag"
	"jungfraurx/internal/flog"
	"jungfraurx/internal/metrics"
	"jungfraurx/internal/netdiscover"
	"jungfraurx/internal/rxconf"
	"jungfraurx/internal/sink"
)

var (
	udpPort     int
	prefix      int
	configPath  string
	metricsAddr string
	logLevel    string
)

func main() {
	root := &cobra.Command{
		Use:   "receiver",
		Short: "Run the Jungfrau UDP frame-reassembly receiver",
		RunE:  run,
	}

	root.Flags().IntVarP(&udpPort, "udp-port", "u", 0, "base UDP port; listeners take port..port+9*num_interfaces (default 30000)")
	root.Flags().IntVar(&prefix, "prefix", 0, "first-octet prefix for interface discovery (default 192)")
	root.Flags().StringVar(&configPath, "config", "", "optional YAML config file")
	root.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on (default: disabled)")
	root.Flags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default info)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	conf, err := rxconf.LoadReceiver(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	applyReceiverOverrides(conf)
	flog.SetLevel(int(parseLevel(conf.LogLevel)))

	logCPUTopology()

	ifaces, err := netdiscover.IPv4sWithPrefix(byte(conf.Prefix))
	if err != nil {
		return fmt.Errorf("interface discovery: %w", err)
	}
	if len(ifaces) == 0 {
		fmt.Fprintf(os.Stderr, "no interfaces found matching prefix %d\n", conf.Prefix)
		os.Exit(1)
	}
	flog.Infof("receiver: %d interfaces matched prefix %d", len(ifaces), conf.Prefix)

	coord := coordinator.New(ifaces, conf.UDPPort, sink.Logging{})
	flog.Infof("receiver: spawning %d listeners from base port %d", coord.ListenerCount(), conf.UDPPort)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go diag.Run(ctx)

	if conf.MetricsAddr != "" {
		m := metrics.New()
		m.Serve(ctx, conf.MetricsAddr)
		go forwardEventsToMetrics(ctx, coord, m)
	} else {
		go logEvents(ctx, coord)
	}

	return coord.Run(ctx)
}

func applyReceiverOverrides(conf *rxconf.Receiver) {
	if udpPort != 0 {
		conf.UDPPort = udpPort
	}
	if prefix != 0 {
		conf.Prefix = prefix
	}
	if metricsAddr != "" {
		conf.MetricsAddr = metricsAddr
	}
	if logLevel != "" {
		conf.LogLevel = logLevel
	}
}

func forwardEventsToMetrics(ctx context.Context, coord *coordinator.Coordinator, m *metrics.Metrics) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-coord.Events():
			m.Observe(e)
		}
	}
}

func logEvents(ctx context.Context, coord *coordinator.Coordinator) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-coord.Events():
			flog.Debugf("receiver: event %#v", e)
		}
	}
}

func logCPUTopology() {
	counts, err := cpu.Counts(true)
	if err != nil {
		flog.Warnf("receiver: gopsutil cpu.Counts: %v", err)
		return
	}
	flog.Infof("receiver: host reports %d logical CPUs", counts)
}

func parseLevel(s string) flog.Level {
	switch s {
	case "debug":
		return flog.Debug
	case "warn":
		return flog.Warn
	case "error":
		return flog.Error
	default:
		return flog.Info
	}
}
