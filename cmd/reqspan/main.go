// Command reqspan segments requirement documents into positioned function
// modules.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/quarrylabs/reqspan/internal/adapters/driven/config/file"
	"github.com/quarrylabs/reqspan/internal/adapters/driven/llm/openai"
	"github.com/quarrylabs/reqspan/internal/adapters/driven/storage/memory"
	"github.com/quarrylabs/reqspan/internal/adapters/driven/storage/sqlite"
	"github.com/quarrylabs/reqspan/internal/adapters/driving/cli"
	"github.com/quarrylabs/reqspan/internal/core/ports/driven"
	"github.com/quarrylabs/reqspan/internal/core/services"
	"github.com/quarrylabs/reqspan/internal/logger"
)

// version is set via -ldflags at release builds.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := file.NewConfigStore(os.Getenv("REQSPAN_CONFIG_DIR"))
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	prompts, err := file.NewPromptStore("")
	if err != nil {
		return fmt.Errorf("initialising prompt store: %w", err)
	}

	llm, err := buildLLM(cfg)
	if err != nil {
		return err
	}
	if llm != nil {
		defer llm.Close() //nolint:errcheck
	} else {
		logger.Warn("no LLM API key configured, falling back to heuristic extraction")
	}

	docStore, closeStore, err := buildDocumentStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	opts := services.DefaultExtractionOptions()
	if aliases := cfg.GetStringMapSlice("aliases"); aliases != nil {
		opts.Aliases = aliases
	}
	if workers := cfg.GetInt("extraction.workers"); workers > 0 {
		opts.Workers = workers
	}

	cli.SetVersion(version)
	cli.SetServices(&cli.Services{
		Extraction: services.NewExtractionService(llm, prompts, opts),
		Document:   services.NewDocumentService(docStore),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cli.ExecuteContext(ctx)
}

// buildLLM constructs the LLM adapter from configuration. Returns nil
// without error when no API key is configured.
func buildLLM(cfg driven.ConfigStore) (driven.LLMService, error) {
	apiKey := cfg.GetString("llm.api_key")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, nil
	}

	llm, err := openai.NewLLMService(openai.LLMConfig{
		APIKey:            apiKey,
		BaseURL:           cfg.GetString("llm.base_url"),
		Model:             cfg.GetString("llm.model"),
		RequestsPerMinute: cfg.GetInt("llm.requests_per_minute"),
	})
	if err != nil {
		return nil, fmt.Errorf("configuring LLM: %w", err)
	}
	return llm, nil
}

// buildDocumentStore constructs the document store. SQLite by default,
// in-memory when storage.memory is set.
func buildDocumentStore(cfg driven.ConfigStore) (driven.DocumentStore, func(), error) {
	if cfg.GetBool("storage.memory") {
		return memory.NewDocumentStore(), func() {}, nil
	}

	store, err := sqlite.NewStore(cfg.GetString("storage.data_dir"))
	if err != nil {
		return nil, nil, fmt.Errorf("opening document store: %w", err)
	}
	return store.DocumentStore(), func() { _ = store.Close() }, nil
}
