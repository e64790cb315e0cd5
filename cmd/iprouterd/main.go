// Command iprouterd runs the IPv4 forwarding and resolution core
// against a configured set of interfaces and routes.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	router "ipv4router"
	"ipv4router/config"
	"ipv4router/transport"
)

var (
	globalConfigPath string
	globalVerbose    bool
	globalLogger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "iprouterd",
	Short: "IPv4 forwarding and ARP resolution daemon",
	Long: `iprouterd classifies and forwards IPv4 traffic across a set of
configured interfaces, resolving next-hop link-layer addresses over
ARP and queuing datagrams behind outstanding resolutions.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if globalVerbose {
			level = slog.LevelDebug
		}
		globalLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))
		if globalConfigPath == "" {
			return fmt.Errorf("--config is required")
		}
		return nil
	},
	RunE: runDaemon,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalConfigPath, "config", "", "path to TOML config file")
	rootCmd.PersistentFlags().BoolVarP(&globalVerbose, "verbose", "v", false, "enable debug logging")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(globalConfigPath)
	if err != nil {
		return err
	}

	ifaces, err := router.NewInterfaceTable(cfg.Interfaces)
	if err != nil {
		return err
	}

	routes := router.NewRouteTable()
	for _, r := range cfg.Routes {
		if err := routes.Insert(r); err != nil {
			return err
		}
	}

	cache := router.NewResolutionCache(cfg.CacheCapacity, cfg.BindingTTL, cfg.RetryInterval, cfg.MaxAttempts)

	tr := transport.NewLoopback(256)
	handler := router.NewHandler(ifaces, routes, cache, tr, globalLogger)
	scheduler := router.NewScheduler(ifaces, cache, tr, globalLogger, time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go scheduler.Run(ctx)

	globalLogger.Info("iprouterd started", "interfaces", len(cfg.Interfaces), "routes", len(cfg.Routes))
	for {
		frame, err := tr.Receive(ctx)
		if err != nil {
			globalLogger.Info("shutting down", "err", err)
			return nil
		}
		handler.Handle(frame.Iface, frame.Bytes)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
