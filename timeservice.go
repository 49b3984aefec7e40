// Server time service

package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"example.com/server-time/benchmark"

	"example.com/server-time/core/client"
	"example.com/server-time/core/clocksync"
	"example.com/server-time/core/config"
	"example.com/server-time/core/offset"
	"example.com/server-time/core/server"
	"example.com/server-time/core/serverdate"

	"example.com/server-time/driver/clock"
)

const (
	defaultMetricsAddr = "127.0.0.1:8080"

	defaultBenchmarkClients  = 1
	defaultBenchmarkRequests = 1000
)

type svcConfig struct {
	LocalAddr         string           `toml:"local_address,omitempty"`
	NTPAddr           string           `toml:"ntp_address,omitempty"`
	RemoteAddr        string           `toml:"remote_address,omitempty"`
	Transport         string           `toml:"transport,omitempty"`
	MetricsAddr       string           `toml:"metrics_address,omitempty"`
	BenchmarkClients  int              `toml:"benchmark_clients,omitempty"`
	BenchmarkRequests int              `toml:"benchmark_requests,omitempty"`
	Sync              config.Overrides `toml:"sync,omitempty"`
}

var (
	log *zap.Logger
)

func initLogger(verbose bool) {
	c := zap.NewDevelopmentConfig()
	c.DisableStacktrace = true
	c.EncoderConfig.EncodeCaller = func(
		caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		p := caller.TrimmedPath()
		if len(p) > 30 {
			p = "..." + p[len(p)-27:]
		}
		enc.AppendString(fmt.Sprintf("%30s", p))
	}
	if !verbose {
		c.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	var err error
	log, err = c.Build()
	if err != nil {
		panic(err)
	}
}

func runMonitor(log *zap.Logger, addr string) {
	if addr == "" {
		addr = defaultMetricsAddr
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	err := http.ListenAndServe(addr, mux)
	log.Fatal("failed to serve metrics", zap.Error(err))
}

func decodeConfig(raw []byte) (svcConfig, error) {
	var cfg svcConfig
	err := toml.NewDecoder(bytes.NewReader(raw)).DisallowUnknownFields().Decode(&cfg)
	if err != nil {
		return svcConfig{}, err
	}
	if cfg.Transport == "" {
		cfg.Transport = client.TransportHTTP
	}
	return cfg, nil
}

func loadConfig(configFile string) svcConfig {
	raw, err := os.ReadFile(configFile)
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}
	cfg, err := decodeConfig(raw)
	if err != nil {
		log.Fatal("failed to decode configuration", zap.Error(err))
	}
	return cfg
}

func syncConfig(cfg svcConfig) (config.Config, error) {
	c, _, err := config.Default().Apply(cfg.Sync)
	return c, err
}

func newClock(cfg svcConfig, lclk *clock.SystemClock) *serverdate.Clock {
	if cfg.RemoteAddr == "" {
		log.Fatal("remote_address not specified in config")
	}
	sc, err := syncConfig(cfg)
	if err != nil {
		log.Fatal("invalid sync configuration", zap.Error(err))
	}
	t, err := client.NewTransport(cfg.Transport, cfg.RemoteAddr, lclk.Now)
	if err != nil {
		log.Fatal("failed to create transport", zap.Error(err))
	}
	seed := serverdate.Seed(context.Background(), log, t, sc.SynchronizationTimeout)
	c, err := serverdate.New(log, lclk, t, sc, seed)
	if err != nil {
		log.Fatal("failed to create clock", zap.Error(err))
	}
	return c
}

func logSyncCompletion(c *serverdate.Clock) clocksync.Listener {
	return func(success bool, newTarget, oldTarget offset.Offset) {
		if !success {
			log.Info("synchronization failed", zap.Object("target", oldTarget))
			return
		}
		p, _ := c.Precision()
		log.Info("synchronization completed",
			zap.Object("target", newTarget),
			zap.Duration("change", newTarget.Sub(oldTarget)),
			zap.Time("now", c.Now()),
			zap.Duration("precision", p),
		)
	}
}

func runServer(configFile string) {
	ctx := context.Background()

	cfg := loadConfig(configFile)
	if cfg.LocalAddr == "" && cfg.NTPAddr == "" {
		log.Fatal("neither local_address nor ntp_address specified in config")
	}

	lclk := &clock.SystemClock{Log: log}
	var src server.TimeSource = lclk
	stratum := uint8(server.LocalStratum)
	if cfg.RemoteAddr != "" {
		c := newClock(cfg, lclk)
		c.OnSyncComplete(logSyncCompletion(c))
		go c.Run(ctx)
		go handleResume(ctx, c)
		src = c
		stratum = server.RelayStratum
	}

	if cfg.LocalAddr != "" {
		server.StartHTTPServer(ctx, log, src, cfg.LocalAddr)
	}
	if cfg.NTPAddr != "" {
		ntpAddr, err := net.ResolveUDPAddr("udp", cfg.NTPAddr)
		if err != nil {
			log.Fatal("failed to parse NTP address", zap.Error(err))
		}
		server.StartIPServer(ctx, log, src, stratum, ntpAddr)
	}

	runMonitor(log, cfg.MetricsAddr)
}

func runClient(configFile string) {
	ctx := context.Background()

	cfg := loadConfig(configFile)
	lclk := &clock.SystemClock{Log: log}
	c := newClock(cfg, lclk)
	c.OnSyncComplete(logSyncCompletion(c))
	go c.Run(ctx)
	go handleResume(ctx, c)

	runMonitor(log, cfg.MetricsAddr)
}

func runTool(remoteAddr, transport string, samples int, timeout time.Duration) {
	lclk := &clock.SystemClock{Log: log}
	t, err := client.NewTransport(transport, remoteAddr, lclk.Now)
	if err != nil {
		log.Fatal("failed to create transport", zap.Error(err))
	}
	seed := serverdate.Seed(context.Background(), log, t, timeout)
	c, err := serverdate.New(log, lclk, t, config.Default(), seed)
	if err != nil {
		log.Fatal("failed to create clock", zap.Error(err))
	}

	var ok bool
	started := c.Synchronize(clocksync.SyncOptions{
		SampleCount: clocksync.Samples(samples),
		Timeout:     timeout,
		Callback: func(success bool, _, _ offset.Offset) {
			ok = success
		},
	})
	if !started {
		log.Fatal("failed to start synchronization", zap.Int("samples", samples))
	}
	c.Wait()
	if !ok {
		log.Fatal("failed to measure clock offset", zap.String("to", remoteAddr))
	}
	d := c.Date()
	p, _ := c.Precision()
	fmt.Printf("offset: %v\nprecision: %v\nnow: %s\n", c.Target(), p, d.ISOString())
}

func runBenchmark(configFile string) {
	cfg := loadConfig(configFile)
	if cfg.RemoteAddr == "" {
		log.Fatal("remote_address not specified in config")
	}
	bc := benchmark.Config{
		Transport: cfg.Transport,
		Remote:    cfg.RemoteAddr,
		Clients:   cfg.BenchmarkClients,
		Requests:  cfg.BenchmarkRequests,
	}
	if bc.Clients == 0 {
		bc.Clients = defaultBenchmarkClients
	}
	if bc.Requests == 0 {
		bc.Requests = defaultBenchmarkRequests
	}
	err := benchmark.Run(context.Background(), log, bc, os.Stdout)
	if err != nil {
		log.Fatal("benchmark failed", zap.Error(err))
	}
}

func exitWithUsage() {
	fmt.Println("usage: timeservice server|client|benchmark -config <file> [-verbose]")
	fmt.Println("       timeservice tool -remote <addr> [-transport http|ntp|nts] [-samples n] [-timeout d] [-verbose]")
	os.Exit(1)
}

func main() {
	var (
		verbose    bool
		configFile string
		remoteAddr string
		transport  string
		samples    int
		timeout    time.Duration
	)

	serverFlags := flag.NewFlagSet("server", flag.ExitOnError)
	clientFlags := flag.NewFlagSet("client", flag.ExitOnError)
	toolFlags := flag.NewFlagSet("tool", flag.ExitOnError)
	benchmarkFlags := flag.NewFlagSet("benchmark", flag.ExitOnError)

	serverFlags.BoolVar(&verbose, "verbose", false, "Verbose logging")
	serverFlags.StringVar(&configFile, "config", "", "Config file")

	clientFlags.BoolVar(&verbose, "verbose", false, "Verbose logging")
	clientFlags.StringVar(&configFile, "config", "", "Config file")

	toolFlags.BoolVar(&verbose, "verbose", false, "Verbose logging")
	toolFlags.StringVar(&remoteAddr, "remote", "", "Remote address")
	toolFlags.StringVar(&transport, "transport", client.TransportHTTP, "Transport (http, ntp or nts)")
	toolFlags.IntVar(&samples, "samples", config.DefaultSynchronizationRequestSamples, "Number of samples")
	toolFlags.DurationVar(&timeout, "timeout", config.DefaultSynchronizationTimeout, "Synchronization timeout")

	benchmarkFlags.BoolVar(&verbose, "verbose", false, "Verbose logging")
	benchmarkFlags.StringVar(&configFile, "config", "", "Config file")

	if len(os.Args) < 2 {
		exitWithUsage()
	}

	switch os.Args[1] {
	case serverFlags.Name():
		err := serverFlags.Parse(os.Args[2:])
		if err != nil || serverFlags.NArg() != 0 {
			exitWithUsage()
		}
		if configFile == "" {
			exitWithUsage()
		}
		initLogger(verbose)
		runServer(configFile)
	case clientFlags.Name():
		err := clientFlags.Parse(os.Args[2:])
		if err != nil || clientFlags.NArg() != 0 {
			exitWithUsage()
		}
		if configFile == "" {
			exitWithUsage()
		}
		initLogger(verbose)
		runClient(configFile)
	case toolFlags.Name():
		err := toolFlags.Parse(os.Args[2:])
		if err != nil || toolFlags.NArg() != 0 {
			exitWithUsage()
		}
		if remoteAddr == "" || samples <= 0 {
			exitWithUsage()
		}
		initLogger(verbose)
		runTool(remoteAddr, transport, samples, timeout)
	case benchmarkFlags.Name():
		err := benchmarkFlags.Parse(os.Args[2:])
		if err != nil || benchmarkFlags.NArg() != 0 {
			exitWithUsage()
		}
		if configFile == "" {
			exitWithUsage()
		}
		initLogger(verbose)
		runBenchmark(configFile)
	default:
		exitWithUsage()
	}
}
