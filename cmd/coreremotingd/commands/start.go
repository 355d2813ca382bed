package commands

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"reflect"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/coreremoting/coreremoting/authprovider"
	"github.com/coreremoting/coreremoting/corecrypto"
	"github.com/coreremoting/coreremoting/internal/logger"
	"github.com/coreremoting/coreremoting/internal/telemetry"
	"github.com/coreremoting/coreremoting/pkg/config"
	"github.com/coreremoting/coreremoting/pkg/metrics"
	"github.com/coreremoting/coreremoting/protocol/xdrcodec"
	"github.com/coreremoting/coreremoting/registry"
	coreServer "github.com/coreremoting/coreremoting/server"
	"github.com/coreremoting/coreremoting/transport"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the CoreRemoting server",
	Long: `Start the CoreRemoting server with the specified configuration.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/coreremoting/config.yaml.`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryCfg := telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "coreremotingd",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	}
	telemetryShutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("Telemetry disabled")
	}

	metrics.InitRegistry(cfg.Metrics.Enabled)
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsServer = &http.Server{Addr: cfg.Metrics.ListenAddr, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server error", "error", err)
			}
		}()
		logger.Info("Metrics enabled", "listen_addr", cfg.Metrics.ListenAddr)
	} else {
		logger.Info("Metrics collection disabled")
	}

	var serverKey *rsa.PrivateKey
	if cfg.Crypto.MessageEncryption {
		serverKey, err = corecrypto.GenerateKeyPair(cfg.Crypto.RSAKeySizeBits)
		if err != nil {
			return fmt.Errorf("failed to generate server key pair: %w", err)
		}
		logger.Info("Message encryption enabled", "rsa_key_size", cfg.Crypto.RSAKeySizeBits)
	}

	reg, err := buildRegistry()
	if err != nil {
		return fmt.Errorf("failed to build registry: %w", err)
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on %s:%d: %w", cfg.Server.Host, cfg.Server.Port, err)
	}
	listener := transport.NewStreamListener(ln, uint32(cfg.Server.MaxFrameBytes))

	srvCfg := coreServer.Config{
		ServerKey:         serverKey,
		RequireEncryption: cfg.Crypto.MessageEncryption,
		AuthProvider:      authprovider.AllowAll{},
		Serializer:        xdrcodec.New(),
		Workers:           cfg.Server.Workers,
		AuthTimeout:       time.Duration(cfg.Server.AuthTimeoutSeconds) * time.Second,
		SweepInterval:     time.Duration(cfg.Session.InactiveSessionSweepIntervalSeconds) * time.Second,
		MaxInactiveAge:    time.Duration(cfg.Session.MaxInactiveSessionAgeSeconds) * time.Second,
		CallMetrics:       metrics.NewCallMetrics(),
		SessionMetrics:    metrics.NewSessionMetrics(),
		DelegateMetrics:   metrics.NewDelegateMetrics(),
	}
	srv := coreServer.New(listener, reg, srvCfg)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Serve(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("server: listening on channel", "channel", cfg.Server.ChannelName, "address", listener.Addr())
	logger.Info("Server is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()
		srv.Stop()

		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error", "error", err)
			return err
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("Server error", "error", err)
			return err
		}
		logger.Info("Server stopped")
	}

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}

	return nil
}

// buildRegistry constructs the service registry the daemon dispatches
// into, registering the Echo reference service (spec §1's runnable
// reference implementation) as a singleton.
func buildRegistry() (*registry.Registry, error) {
	reg := registry.New()

	echoType := reflect.TypeOf((*Echo)(nil)).Elem()
	descriptor, err := registry.NewInterfaceDescriptor("Echo", echoType, nil)
	if err != nil {
		return nil, err
	}
	if err := reg.Register("Echo", descriptor, func() (any, error) { return echoImpl{}, nil }, registry.Singleton); err != nil {
		return nil, err
	}

	return reg, nil
}
