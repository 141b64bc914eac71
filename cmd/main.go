package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"taskloom/internal/api"
	v1 "taskloom/internal/api/v1"
	"taskloom/internal/config"
	"taskloom/internal/db"
	"taskloom/internal/db/repositories"
	"taskloom/internal/llmclient"
	"taskloom/internal/logging"
	"taskloom/internal/notifications"
	"taskloom/internal/promptexec"
	"taskloom/internal/promptstore"
	"taskloom/internal/runtime"
	"taskloom/internal/scheduler"
	"taskloom/internal/workflows"
	"taskloom/internal/workflows/operations"
)

func main() {
	root := &cobra.Command{
		Use:   "taskloom",
		Short: "taskloom runs and serves template-driven workflows",
	}

	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "run pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			logging.Initialize(cfg.Debug)

			database, err := db.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer database.Close()

			if err := database.Migrate(); err != nil {
				return fmt.Errorf("running migrations: %w", err)
			}
			logging.Info("migrate: database is up to date")
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the API server, dispatcher and task worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func serve() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logging.Initialize(cfg.Debug)

	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	repos := repositories.New(database.Conn())

	engine, err := runtime.NewEngine(runtime.Options{
		URL:      cfg.NATS.URL,
		StoreDir: cfg.NATS.StoreDir,
	})
	if err != nil {
		return fmt.Errorf("starting task engine: %w", err)
	}
	defer engine.Close()

	tracer, shutdownTracing, err := runtime.InitTracing("taskloom")
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer shutdownTracing(context.Background())

	var llmClient llmclient.Client
	switch cfg.LLM.Provider {
	case "openai":
		llmClient = llmclient.NewOpenAIClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model)
	default:
		llmClient = llmclient.NewAnthropicClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model)
	}
	promptStore := promptstore.NewFilesystemStore(cfg.PromptsDir)
	executor := promptexec.New(promptStore, llmClient)

	registry := workflows.NewRegistry()
	operations.RegisterBuiltins(registry)

	audit := notifications.NewAuditService(repos.WebhookDeliveries)
	notifier := notifications.NewNotifier(cfg, audit)

	worker := runtime.NewWorker(engine, registry, executor, notifier, repos.TaskRecords)
	worker.Tracer = tracer

	consumer := runtime.NewConsumer(engine, worker, []string{"default_queue", "io_queue"})
	if err := consumer.Start(ctx); err != nil {
		return fmt.Errorf("starting task consumer: %w", err)
	}

	dispatcher := runtime.NewDispatcher(engine, repos.TaskRecords)
	loader := workflows.NewLoader(cfg.TemplatesDir)

	handlers := v1.NewHandlers(loader, dispatcher, repos.TaskRecords, repos.ChatHistory)
	apiServer := api.New(cfg, handlers)

	triggers, err := scheduler.LoadTriggers(cfg.ScheduleFile)
	if err != nil {
		return fmt.Errorf("loading schedule file: %w", err)
	}
	sched := scheduler.New(loader, dispatcher)
	for _, trigger := range triggers {
		if err := sched.Register(trigger); err != nil {
			return fmt.Errorf("registering trigger %s: %w", trigger.Name, err)
		}
	}
	sched.Start(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := apiServer.Start(ctx); err != nil {
			logging.Error("api server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	logging.Info("serve: received shutdown signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("serve: stopped gracefully")
	case <-shutdownCtx.Done():
		logging.Info("serve: shutdown timeout exceeded, forcing exit")
	}
	return nil
}
