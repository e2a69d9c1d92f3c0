// Command deluge runs the Replay Generator: a trigger-driven,
// exposure-paced UDP sender fleet that mimics the detector wire format,
// plus a "trigger" subcommand for firing a burst by hand.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"jungfraurx/internal/deluge"
	"jungfraurx/internal/flog"
	"jungfraurx/internal/netdiscover"
	"jungfraurx/internal/rxconf"
)

var (
	targetPort  int
	toFirst     int
	triggerPort int
	prefix      int
	configPath  string
	logLevel    string
)

func main() {
	root := &cobra.Command{
		Use:   "deluge [target] [target_2]",
		Short: "Run the Jungfrau replay generator",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  run,
	}
	root.Flags().IntVarP(&targetPort, "target-port", "t", 0, "first destination port (default 30000)")
	root.Flags().IntVar(&toFirst, "to-first", 0, "route the first n senders to the primary target")
	root.Flags().IntVar(&triggerPort, "trigger-port", 0, "broadcast listen port (default 9999)")
	root.Flags().IntVar(&prefix, "prefix", 0, "first-octet prefix for interface discovery (default 192)")
	root.Flags().StringVar(&configPath, "config", "", "optional YAML config file")
	root.Flags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default info)")

	root.AddCommand(triggerCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	conf, err := rxconf.LoadDeluge(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	conf.Target = args[0]
	if len(args) == 2 {
		conf.Target2 = args[1]
	}
	applyDelugeOverrides(conf)
	flog.SetLevel(int(parseLevel(conf.LogLevel)))

	ifaces, err := netdiscover.IPv4sWithPrefix(byte(conf.Prefix))
	if err != nil {
		return fmt.Errorf("interface discovery: %w", err)
	}
	if len(ifaces) == 0 {
		fmt.Fprintf(os.Stderr, "no interfaces found matching prefix %d\n", conf.Prefix)
		os.Exit(1)
	}
	flog.Infof("deluge: %d interfaces matched prefix %d", len(ifaces), conf.Prefix)

	primary := &net.UDPAddr{IP: net.ParseIP(conf.Target), Port: conf.TargetPort}
	var secondary *net.UDPAddr
	if conf.Target2 != "" {
		secondary = &net.UDPAddr{IP: net.ParseIP(conf.Target2), Port: conf.TargetPort}
	}

	d, err := deluge.New(ifaces, conf.TargetPort, primary, secondary, conf.ToFirst, conf.TriggerPort)
	if err != nil {
		return fmt.Errorf("deluge: %w", err)
	}
	flog.Infof("deluge: spawning %d senders, trigger port %d", d.SenderCount(), conf.TriggerPort)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return d.Run(ctx)
}

func applyDelugeOverrides(conf *rxconf.Deluge) {
	if targetPort != 0 {
		conf.TargetPort = targetPort
	}
	if toFirst != 0 {
		conf.ToFirst = toFirst
	}
	if triggerPort != 0 {
		conf.TriggerPort = triggerPort
	}
	if prefix != 0 {
		conf.Prefix = prefix
	}
	if logLevel != "" {
		conf.LogLevel = logLevel
	}
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

func triggerCmd() *cobra.Command {
	var frames uint64
	var exptime float32
	var broadcastAddr string
	var port int

	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Fire one trigger datagram at a Deluge trigger socket",
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := uuid.New()
			var id [12]byte
			copy(id[:], runID[:12])
			trig := deluge.Trigger{Frames: frames, Exptime: exptime, UUID: id}

			conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
			if err != nil {
				return fmt.Errorf("trigger: socket: %w", err)
			}
			defer conn.Close()

			if err := deluge.EnableBroadcast(conn); err != nil {
				flog.Warnf("trigger: enable SO_BROADCAST: %v", err)
			}

			var buf [deluge.TriggerSize]byte
			trig.Encode(buf[:])

			dst := &net.UDPAddr{IP: net.ParseIP(broadcastAddr), Port: port}
			if _, err := conn.WriteToUDP(buf[:], dst); err != nil {
				return fmt.Errorf("trigger: send: %w", err)
			}
			flog.Infof("trigger: sent frames=%d exptime=%f to %s", frames, exptime, dst)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&frames, "frames", 100, "number of images to request")
	cmd.Flags().Float32Var(&exptime, "exptime", 0.001, "per-image pacing interval, seconds")
	cmd.Flags().StringVar(&broadcastAddr, "broadcast-addr", "255.255.255.255", "broadcast address to send to")
	cmd.Flags().IntVar(&port, "port", 9999, "Deluge trigger port")
	return cmd
}
