// Package main is the entry point for the swap router.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/fd1az/swap-router/business/advisory"
	"github.com/fd1az/swap-router/business/alerting"
	alertingDI "github.com/fd1az/swap-router/business/alerting/di"
	"github.com/fd1az/swap-router/business/alerting/infra/binance"
	"github.com/fd1az/swap-router/business/chain"
	chainDI "github.com/fd1az/swap-router/business/chain/di"
	"github.com/fd1az/swap-router/business/liquidity"
	"github.com/fd1az/swap-router/business/monitor"
	"github.com/fd1az/swap-router/business/routing"
	"github.com/fd1az/swap-router/business/swap"
	"github.com/fd1az/swap-router/business/trading"
	tradingDI "github.com/fd1az/swap-router/business/trading/di"
	"github.com/fd1az/swap-router/internal/apm"
	"github.com/fd1az/swap-router/internal/config"
	"github.com/fd1az/swap-router/internal/di"
	"github.com/fd1az/swap-router/internal/eventstream"
	"github.com/fd1az/swap-router/internal/events"
	"github.com/fd1az/swap-router/internal/health"
	"github.com/fd1az/swap-router/internal/logger"
	"github.com/fd1az/swap-router/internal/metrics"
	"github.com/fd1az/swap-router/internal/monolith"
	"github.com/fd1az/swap-router/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// options are the command line choices that shape a run.
type options struct {
	configPath string
	tuiMode    bool
	quote      string // IN:OUT:AMOUNT
	execute    bool
	portfolio  string
}

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	cliMode := flag.Bool("cli", false, "Run in CLI mode with logs (no TUI)")
	flag.StringVar(&opts.quote, "quote", "", "Quote a swap and exit, e.g. ETH:USDC:1.5")
	flag.BoolVar(&opts.execute, "execute", false, "With -quote, submit the swap from the configured account")
	flag.StringVar(&opts.portfolio, "portfolio", "", "Print balances and advice for an address and exit")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("swap-router %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// One-shot commands print JSON and never start the dashboard.
	opts.tuiMode = !*cliMode && opts.quote == "" && opts.portfolio == ""

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		if !opts.tuiMode {
			fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		}
		cancel()
	}()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cfg.App.TUIMode = opts.tuiMode
	oneShot := opts.quote != "" || opts.portfolio != ""
	if oneShot {
		// A single command has no use for the price feed or the event stream.
		cfg.Binance.Enabled = false
		cfg.EventStream.Enabled = false
	}

	logLevel := logger.LevelInfo
	switch cfg.App.LogLevel {
	case "debug":
		logLevel = logger.LevelDebug
	case "warn":
		logLevel = logger.LevelWarn
	case "error":
		logLevel = logger.LevelError
	}

	var log *logger.Logger
	if opts.tuiMode {
		// In TUI mode, suppress logs (discard output)
		log = logger.New(io.Discard, logLevel, cfg.App.Name, nil)
	} else {
		log = logger.New(os.Stderr, logLevel, cfg.App.Name, nil)
		log.Info(ctx, "starting swap router",
			"version", version,
			"environment", cfg.App.Environment,
			"chain_id", cfg.Chain.ChainID,
		)
	}

	shutdownTelemetry := setupTelemetry(ctx, cfg, log)
	defer shutdownTelemetry()

	mono, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	// Dependency order: every module only resolves services of the ones above it.
	modules := []monolith.Module{
		&chain.Module{},
		&liquidity.Module{},
		&routing.Module{},
		&swap.Module{},
		&monitor.Module{},
		&alerting.Module{},
		&advisory.Module{},
		&trading.Module{},
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	if oneShot {
		if err := mono.StartModules(ctx, modules...); err != nil {
			return fmt.Errorf("failed to start modules: %w", err)
		}
		return runCommand(ctx, mono.Services(), opts, os.Stdout)
	}

	healthServer := health.NewServer(cfg.Health.Port, version, log)
	registerHealthChecks(healthServer, mono.Services(), cfg)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", cfg.Health.Port)
	}
	defer func() {
		stopCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		_ = healthServer.Stop(stopCtx)
	}()

	if cfg.EventStream.Enabled {
		stream, err := eventstream.New(mono.Events(), log, cfg.EventStream.Port)
		if err != nil {
			return fmt.Errorf("failed to create event stream: %w", err)
		}
		if err := stream.Start(ctx); err != nil {
			log.Warn(ctx, "failed to start event stream", "error", err)
		} else {
			defer func() {
				stopCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
				defer stop()
				_ = stream.Stop(stopCtx)
			}()
		}
	}

	if opts.tuiMode {
		unbridge := ui.Bridge(mono.Events(), mono.AssetRegistry())
		defer unbridge()

		startFunc := func() error {
			ui.Send(ui.StartupMsg{Step: "config", Status: "done"})
			if cfg.Binance.Enabled {
				ui.Send(ui.StartupMsg{Step: "binance", Status: "connecting"})
			} else {
				ui.Send(ui.StartupMsg{Step: "binance", Status: "done"})
			}
			ui.Send(ui.StartupMsg{Step: "modules", Status: "connecting"})
			if err := mono.StartModules(ctx, modules...); err != nil {
				ui.Send(ui.StartupMsg{Step: "modules", Status: "failed"})
				return fmt.Errorf("failed to start modules: %w", err)
			}
			ui.Send(ui.StartupMsg{Step: "modules", Status: "done"})
			go watchStatus(ctx, mono.Services(), cfg)
			return nil
		}
		return runTUI(ctx, startFunc)
	}

	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}
	return runCLI(ctx, mono.Events(), log)
}

// setupTelemetry installs the trace and meter providers and returns their
// shutdown.
func setupTelemetry(ctx context.Context, cfg *config.Config, log *logger.Logger) func() {
	if !cfg.Telemetry.Enabled {
		return func() {}
	}

	traceProvider := apm.NewTraceProvider(log, apm.WithProvider(
		apm.ParseProvider(cfg.Telemetry.TraceProvider),
		apm.Settings{
			ServiceName: cfg.Telemetry.ServiceName,
			Endpoint:    cfg.Telemetry.OTLPEndpoint,
			Headers:     cfg.Telemetry.OTLPHeaders,
		},
		log,
	))
	log.Info(ctx, "tracing initialized", "provider", cfg.Telemetry.TraceProvider)

	exporter := metrics.Prometheus()
	if metrics.ParseExporter(cfg.Telemetry.MetricsProvider) == metrics.ExporterOTLP {
		exporter = metrics.OTLP(cfg.Telemetry.OTLPEndpoint, headerMap(cfg.Telemetry.OTLPHeaders), false)
	}
	meterProvider, err := metrics.NewMetricProvider(ctx,
		metrics.WithService(cfg.Telemetry.ServiceName, version),
		metrics.WithExporter(exporter),
	)
	if err != nil {
		log.Warn(ctx, "metrics unavailable", "error", err)
	}

	var promServer interface{ Shutdown(context.Context) error }
	if exporter.Exporter == metrics.ExporterPrometheus && err == nil {
		promServer = metrics.ServePrometheusMetrics(log, metrics.WithPort(cfg.Telemetry.PrometheusPort))
	}

	return func() {
		stopCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if promServer != nil {
			_ = promServer.Shutdown(stopCtx)
		}
		if meterProvider != nil {
			_ = meterProvider.Shutdown(stopCtx)
		}
		_ = traceProvider.Stop()
	}
}

func headerMap(raw string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if ok && k != "" {
			out[k] = v
		}
	}
	return out
}

func registerHealthChecks(s *health.Server, sr di.ServiceRegistry, cfg *config.Config) {
	s.RegisterCheck("chain", true, func(ctx context.Context) (string, error) {
		latency, err := chainDI.GetLivenessProbe(sr).Ping(ctx)
		if err != nil {
			return "", err
		}
		return "latency " + latency.Round(time.Millisecond).String(), nil
	})
	if cfg.Binance.Enabled {
		s.RegisterCheck("binance", false, func(context.Context) (string, error) {
			if !alertingDI.GetPriceFeed(sr).IsConnected() {
				return "", errors.New("disconnected")
			}
			return "connected", nil
		})
	}
}

// runCommand serves -quote and -portfolio.
func runCommand(ctx context.Context, sr di.ServiceRegistry, opts options, out io.Writer) error {
	trader := tradingDI.GetTrader(sr)
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	if opts.portfolio != "" {
		if !common.IsHexAddress(opts.portfolio) {
			return fmt.Errorf("invalid portfolio address %q", opts.portfolio)
		}
		p, err := trader.Portfolio(ctx, common.HexToAddress(opts.portfolio))
		if err != nil {
			return err
		}
		return enc.Encode(p)
	}

	in, outSym, amount, err := parseQuote(opts.quote)
	if err != nil {
		return err
	}

	if !opts.execute {
		q, err := trader.Quote(ctx, in, outSym, amount)
		if err != nil {
			return err
		}
		return enc.Encode(q)
	}

	account := chainDI.GetClient(sr).Account()
	res, err := trader.QuickSwap(ctx, account, in, outSym, amount)
	if err != nil {
		return err
	}
	return enc.Encode(res)
}

func parseQuote(s string) (in, out, amount string, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", fmt.Errorf("quote must be IN:OUT:AMOUNT, got %q", s)
	}
	return parts[0], parts[1], parts[2], nil
}

func runCLI(ctx context.Context, hub *events.Registry, log *logger.Logger) error {
	log.Info(ctx, "all modules started")

	unsubscribe := hub.OnAny(func(ev events.Event) {
		switch ev.Name {
		case events.CacheHit, events.CacheMiss:
			return
		case events.SwapFailed, events.TransactionFailed, events.TransactionTimeout, events.CacheError:
			log.Warn(ctx, "event", "name", ev.Name, "source", ev.Source, "payload", ev.Payload)
		default:
			log.Info(ctx, "event", "name", ev.Name, "source", ev.Source, "payload", ev.Payload)
		}
	})
	defer unsubscribe()

	<-ctx.Done()

	log.Info(ctx, "shutting down")
	return nil
}

// watchStatus reports connection health and the latest reference prices to
// the dashboard until ctx ends.
func watchStatus(ctx context.Context, sr di.ServiceRegistry, cfg *config.Config) {
	const grace = 10 * time.Second

	probe := chainDI.GetLivenessProbe(sr)
	svc := alertingDI.GetService(sr)

	bases := make([]string, 0, len(cfg.Binance.Symbols))
	for _, sym := range cfg.Binance.Symbols {
		bases = append(bases, binance.BaseAsset(sym, binance.DefaultQuoteAssets))
	}

	deadline := time.Now().Add(grace)
	reported := map[string]bool{"binance": !cfg.Binance.Enabled}
	seen := make(map[string]time.Time)

	report := func(step string, connected bool) {
		if reported[step] || (!connected && time.Now().Before(deadline)) {
			return
		}
		reported[step] = true
		status := "connected"
		if !connected {
			status = "failed"
		}
		ui.Send(ui.StartupMsg{Step: step, Status: status})
	}

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		latency, err := probe.Ping(pingCtx)
		cancel()
		ui.Send(ui.ConnectionStatusMsg{Name: "Ethereum", Connected: err == nil, Latency: latency})
		report("ethereum", err == nil)

		if cfg.Binance.Enabled {
			connected := alertingDI.GetPriceFeed(sr).IsConnected()
			ui.Send(ui.ConnectionStatusMsg{Name: "Binance", Connected: connected})
			report("binance", connected)
		}

		for _, base := range bases {
			obs, ok := svc.LatestPrice(base)
			if !ok || !obs.Timestamp.After(seen[base]) {
				continue
			}
			seen[base] = obs.Timestamp
			ui.Send(ui.PriceUpdateMsg{Token: obs.Token, Price: obs.Price, Source: obs.Source, Timestamp: obs.Timestamp})
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func runTUI(ctx context.Context, startFunc func() error) error {
	startSignal := make(chan struct{}, 1)
	ui.OnStartModules = func() {
		select {
		case startSignal <- struct{}{}:
		default:
		}
	}

	// The program shows the welcome screen before any module starts.
	p := tea.NewProgram(ui.New(), tea.WithAltScreen())
	ui.Program = p

	errCh := make(chan error, 1)
	go func() {
		select {
		case <-startSignal:
		case <-ctx.Done():
			errCh <- nil
			return
		}

		if err := startFunc(); err != nil {
			ui.Send(ui.ErrorMsg{Error: err})
			errCh <- err
			return
		}

		<-ctx.Done()
		p.Quit()
		errCh <- nil
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}
