package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/harborline/docflow/ai"
	"github.com/harborline/docflow/ai/azure"
	"github.com/harborline/docflow/ai/mock"
	"github.com/harborline/docflow/ai/openai"
	"github.com/harborline/docflow/config"
	"github.com/harborline/docflow/engine"
	"github.com/harborline/docflow/gateway"
	"github.com/harborline/docflow/schema"
	"github.com/harborline/docflow/storage"
	badgerstore "github.com/harborline/docflow/storage/badger"
	memorystore "github.com/harborline/docflow/storage/memory"
	s3store "github.com/harborline/docflow/storage/s3"
	"github.com/harborline/docflow/workflowsync"
)

func main() {
	app := &cli.App{
		Name:  "docflowd",
		Usage: "Document processing orchestration daemon",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to TOML configuration file",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Action: serveCommand,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func serveCommand(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if !c.IsSet("log-level") {
		if err := applyLogLevel(cfg.Logging.Level); err != nil {
			return err
		}
	}

	store, backend, err := openRecordStore(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	objects, err := openObjectStore(cfg)
	if err != nil {
		return err
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	provider, err := buildProvider(cfg, registry)
	if err != nil {
		return err
	}
	defer provider.Close()

	driver, err := engine.NewDriver(store, objects, provider, registry, engine.DriverConfig{
		SchemaName:     cfg.Pipeline.SchemaName,
		StageAttempts:  cfg.Pipeline.StageAttempts,
		RetryBaseDelay: cfg.Pipeline.RetryBaseDelay(),
		StageTimeout:   cfg.Pipeline.StageTimeout(),
		PageRangeSize:  cfg.Pipeline.PageRangeSize,
		RangeWorkers:   cfg.Pipeline.RangeWorkers,
	})
	if err != nil {
		return err
	}

	eng, err := engine.NewEngine(store, driver,
		engine.WithMaxConcurrency(cfg.Pipeline.MaxConcurrency))
	if err != nil {
		return err
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	recovered, err := eng.RecoverStale(startupCtx, cfg.Pipeline.StaleAfter())
	cancel()
	if err != nil {
		return fmt.Errorf("recovering stale runs: %w", err)
	}
	if recovered > 0 {
		slog.Info("recovered stale runs", "count", recovered)
	}

	var serverOpts []gateway.Option
	if cfg.WorkflowSyncEnabled() {
		syncer, err := buildSynchronizer(cfg)
		if err != nil {
			return err
		}
		mirrorCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := syncer.SetExternalConcurrency(mirrorCtx, cfg.Pipeline.MaxConcurrency); err != nil {
			slog.Warn("initial concurrency mirror failed", "error", err)
		}
		cancel()
		serverOpts = append(serverOpts, gateway.WithConcurrencySync(syncer))
	}

	server := gateway.NewServer(eng, store, objects, serverOpts...)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe(cfg.Server.Bind)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("gateway shutdown", "error", err)
	}
	if err := eng.Shutdown(shutdownCtx); err != nil {
		slog.Error("engine shutdown", "error", err)
	}
	return nil
}

func openRecordStore(cfg *config.Config) (storage.RecordStore, *badgerstore.Backend, error) {
	backend, err := badgerstore.OpenBackend(cfg.Storage.Path, cfg.Storage.InMemory)
	if err != nil {
		return nil, nil, fmt.Errorf("opening record store: %w", err)
	}
	store, err := badgerstore.NewRecordStore(backend)
	if err != nil {
		backend.Close()
		return nil, nil, err
	}
	return store, backend, nil
}

func openObjectStore(cfg *config.Config) (storage.ObjectStore, error) {
	if cfg.ObjectStore.Endpoint == "" {
		slog.Warn("no object store endpoint configured, using in-memory store")
		return memorystore.NewObjectStore(), nil
	}
	return s3store.NewObjectStore(s3store.Config{
		Endpoint:  cfg.ObjectStore.Endpoint,
		AccessKey: cfg.ObjectStore.AccessKey,
		SecretKey: cfg.ObjectStore.SecretKey,
		UseSSL:    cfg.ObjectStore.UseSSL,
	})
}

func buildRegistry(cfg *config.Config) (*schema.Registry, error) {
	registry := schema.NewRegistry()
	if cfg.Pipeline.SchemaDir != "" {
		if err := registry.LoadDir(cfg.Pipeline.SchemaDir); err != nil {
			return nil, fmt.Errorf("loading schemas from %s: %w", cfg.Pipeline.SchemaDir, err)
		}
	}
	if _, ok := registry.SchemaJSON(cfg.Pipeline.SchemaName); !ok {
		if cfg.Pipeline.SchemaName != schema.DefaultName {
			return nil, fmt.Errorf("schema %q not found in %s", cfg.Pipeline.SchemaName, cfg.Pipeline.SchemaDir)
		}
		if err := registry.Register(schema.DefaultName, schema.DefaultInvoiceSchema); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func buildProvider(cfg *config.Config, registry *schema.Registry) (ai.Provider, error) {
	if cfg.AI.Mock {
		slog.Warn("AI executors are mocked; results are deterministic placeholders")
		return mock.NewMockProvider(), nil
	}

	layout := azure.NewLayoutClient(cfg.AI.OCREndpoint, cfg.AI.OCRKey, cfg.Pipeline.StageTimeout())
	aiCfg := ai.NewConfig(
		ai.WithHost(cfg.AI.Host),
		ai.WithExtractionModel(cfg.AI.ExtractionModel),
		ai.WithEvaluationModel(cfg.AI.EvaluationModel),
		ai.WithSummaryModel(cfg.AI.SummaryModel),
		ai.WithOCREndpoint(cfg.AI.OCREndpoint),
		ai.WithOCRKey(cfg.AI.OCRKey),
	)
	return openai.NewProvider(aiCfg, registry, layout)
}

func buildSynchronizer(cfg *config.Config) (*workflowsync.Synchronizer, error) {
	client := workflowsync.NewHTTPClient(cfg.Workflow.BaseURL, cfg.Workflow.APIKey)
	return workflowsync.NewSynchronizer(client, cfg.Workflow.WorkflowID, cfg.Workflow.ActionName)
}

func setupLogger(c *cli.Context) error {
	return applyLogLevel(c.String("log-level"))
}

func applyLogLevel(levelStr string) error {
	var level slog.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return nil
}
