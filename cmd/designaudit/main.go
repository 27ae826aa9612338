// Command designaudit audits the visual design of web pages.
//
// Usage:
//
//	designaudit -serve -config designaudit.yaml   # HTTP API
//	designaudit -url https://example.com          # one audit, JSON on stdout
//	designaudit -input capture.json               # offline audit of recorded elements
//	designaudit -mcp                              # MCP tools over stdio
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hazyhaar/designaudit/auditor"
	"github.com/hazyhaar/designaudit/capture"
	"github.com/hazyhaar/designaudit/classify"
	"github.com/hazyhaar/designaudit/design"
	"github.com/hazyhaar/designaudit/server"
	"github.com/hazyhaar/designaudit/store"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "", "path to designaudit.yaml")
	serve := flag.Bool("serve", false, "run the HTTP API")
	singleURL := flag.String("url", "", "audit one URL and print the report")
	inputPath := flag.String("input", "", "audit a JSON file of {elements, classifierResults}")
	mcpStdio := flag.Bool("mcp", false, "serve MCP tools over stdio")
	mode := flag.String("mode", "", "capture mode override: browser or static")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if *inputPath == "" && !*serve && *singleURL == "" && !*mcpStdio {
		fmt.Fprintln(os.Stderr, "usage: designaudit -serve [-config file] | -url <url> | -input <file> | -mcp")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, logger, *configPath, *mode, *singleURL, *inputPath, *mcpStdio)
	stop()
	if err != nil {
		logger.Error("designaudit: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, mode, singleURL, inputPath string, mcpStdio bool) error {
	if inputPath != "" {
		return runInput(inputPath)
	}

	cfg, err := server.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if mode != "" {
		cfg.Capture.Mode = mode
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if singleURL != "" {
		// One-shot runs never touch history.
		cfg.DBPath = ""
	}

	app, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.close()

	switch {
	case singleURL != "":
		return runSingle(ctx, app.auditor, singleURL)
	case mcpStdio:
		return app.mcp.Run(ctx, &mcp.StdioTransport{})
	default:
		return runServer(ctx, logger, cfg, app)
	}
}

type app struct {
	logger   *slog.Logger
	auditor  *auditor.Auditor
	registry *prometheus.Registry
	mcp      *mcp.Server
	closers  []func() error
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("designaudit: close", "error", err)
		}
	}
}

func build(ctx context.Context, cfg *server.Config, logger *slog.Logger) (*app, error) {
	a := &app{logger: logger, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var capt auditor.Capturer
	switch cfg.Capture.Mode {
	case server.ModeStatic:
		capt = capture.NewStatic(capture.StaticConfig{Logger: logger})
	default:
		b := capture.NewBrowser(capture.BrowserConfig{
			RemoteURL:         cfg.Capture.RemoteURL,
			ViewportWidth:     cfg.Capture.ViewportWidth,
			ViewportHeight:    cfg.Capture.ViewportHeight,
			NavigationTimeout: cfg.Capture.NavigationTimeout,
			SettleDelay:       cfg.Capture.SettleDelay,
			BlockedResources:  cfg.Capture.BlockedResources,
			MemoryLimit:       int64(cfg.Capture.MemoryLimitMB) << 20,
			RecycleInterval:   cfg.Capture.RecycleInterval,
			Annotate:          cfg.Capture.Annotate,
			Logger:            logger,
		})
		if err := b.Start(ctx); err != nil {
			return nil, fmt.Errorf("start browser: %w", err)
		}
		a.closers = append(a.closers, b.Close)
		capt = b
	}

	cls := classify.New(classify.Config{
		Endpoint:  cfg.Classifier.Endpoint,
		Token:     cfg.Classifier.Token,
		InputSize: cfg.Classifier.InputSize,
		Timeout:   cfg.Classifier.Timeout,
		Logger:    logger,
	})

	var rec auditor.Recorder
	if cfg.DBPath != "" {
		st, err := store.Open(cfg.DBPath, store.WithLogger(logger))
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, st.Close)
		rec = st
	}

	a.auditor = auditor.New(auditor.Config{
		Capturer:   capt,
		Classifier: cls,
		Recorder:   rec,
		Metrics:    auditor.NewMetrics(a.registry),
		Timeout:    cfg.AuditTimeout,
		Logger:     logger,
	})

	a.mcp = mcp.NewServer(&mcp.Implementation{Name: "designaudit", Version: version}, nil)
	auditor.RegisterMCP(a.mcp, a.auditor)

	logger.Info("designaudit: ready",
		"capture", cfg.Capture.Mode,
		"classifier", cls.Name(),
		"history", cfg.DBPath != "")
	return a, nil
}

func runServer(ctx context.Context, logger *slog.Logger, cfg *server.Config, a *app) error {
	var limiter *server.RateLimiter
	if cfg.RateLimit.PerSecond > 0 {
		limiter = server.NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst).TrustProxy(cfg.RateLimit.TrustProxy)
		limiter.StartGC(ctx.Done(), 5*time.Minute)
	}

	opts := server.Options{
		Auditor:     a.auditor,
		Gatherer:    a.registry,
		RateLimiter: limiter,
		Logger:      logger,
	}
	if cfg.MCP {
		opts.MCPServer = a.mcp
	}

	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.New(opts).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("designaudit: listening", "addr", cfg.Listen)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("designaudit: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func runSingle(ctx context.Context, a *auditor.Auditor, url string) error {
	res, err := a.Run(ctx, url)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{
		"url":       res.URL,
		"elements":  res.Elements,
		"issues":    res.Report.Issues,
		"scorecard": res.Report.Scorecard,
		"clusters":  res.Report.Clusters,
		"summary":   res.Report.Summary,
	})
}

func runInput(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	var in struct {
		Elements          []design.ElementRecord        `json:"elements"`
		ClassifierResults []design.ClassificationResult `json:"classifierResults"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("parse input %s: %w", path, err)
	}
	return printJSON(design.Audit(in.Elements, in.ClassifierResults))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
