// Synergy is a career-assistant backend: it composes LLM agents into
// workflows for daily planning, interview preparation, quizzes, job search,
// resume analysis, and interactive mock interviews.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"synergy/pkg/agent"
	"synergy/pkg/config"
	"synergy/pkg/interview"
	"synergy/pkg/logx"
	"synergy/pkg/session"
	"synergy/pkg/tokens"
	"synergy/pkg/tracelog"
	"synergy/pkg/webui"
	"synergy/pkg/workflow"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var listenAddr string
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&listenAddr, "listen", "", "Listen address (overrides config)")
	flag.Parse()

	logger := logx.NewLogger("main")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}

	sessions, err := session.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open session registry: %w", err)
	}
	defer func() {
		if err := sessions.Close(); err != nil {
			logger.Warn("failed to close session registry: %v", err)
		}
	}()

	client, err := agent.NewClient(&cfg)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}

	counter, err := tokens.NewCounter()
	if err != nil {
		return fmt.Errorf("failed to create token counter: %w", err)
	}

	executor := agent.NewLLMExecutor(client, sessions, counter, cfg.MaxContextTokens)
	traces := tracelog.New(cfg.TracePath)
	catalog := workflow.NewCatalog()
	runner := workflow.NewRunner(sessions, executor, traces, catalog, cfg.RequestTimeout)
	interviews := interview.NewMachine(sessions, executor, catalog, cfg.RequestTimeout)

	mux := http.NewServeMux()
	server := webui.NewServer(runner, interviews, traces, cfg)
	server.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("%s listening on %s (provider %s, model %s)",
			cfg.ProjectName, cfg.ListenAddr, cfg.Provider, client.ModelName())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-sigCh:
		logger.Info("received signal %v, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}
