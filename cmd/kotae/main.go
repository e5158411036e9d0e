// Package main is the Kotae CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/answer"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/reasoning"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/store"
	"github.com/hyperjump/kotae/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so that "kotae server" from the project dir uses the project's
// config. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	_ = godotenv.Load()
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); statErr != nil {
			// No config file anywhere: environment variables only.
			cfg, loadErr := config.Load("")
			if loadErr != nil {
				return nil, "", loadErr
			}
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "ask":
		runAsk()
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (chunking, retrieval, upstream calls)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(context.Background(), cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv := server.NewServer(
		components.Pipeline,
		components.Fetcher,
		components.Answers,
		components.Store,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae ingest [flags] <file-or-url>")
		os.Exit(1)
	}
	target := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	input, err := resolveInput(ctx, components.Fetcher, target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		os.Exit(1)
	}
	result, err := components.Pipeline.Ingest(ctx, input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Document ingested: %s (%d chunks)\n", result.DocID, result.Chunks)
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	docID := fs.String("doc", "", "document id to ask against")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae ask [--doc <document-id>] <question> [question...]")
		os.Exit(1)
	}
	questions := fs.Args()

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	var answers []string
	if *docID == "" {
		// Without a document the model answers from its own knowledge.
		answers = make([]string, len(questions))
		for i, q := range questions {
			text, askErr := components.Reasoner.Answer(ctx, q, nil)
			if askErr != nil {
				fmt.Fprintf(os.Stderr, "Ask failed: %v\n", askErr)
				os.Exit(1)
			}
			answers[i] = text
		}
	} else {
		answers, err = components.Answers.AnswerAll(ctx, *docID, questions)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
	}
	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]interface{}{"doc_id": *docID, "answers": answers}); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		for i, a := range answers {
			fmt.Printf("Q: %s\nA: %s\n", questions[i], a)
			if i < len(answers)-1 {
				fmt.Println()
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

// resolveInput turns a CLI target into pipeline input: http(s) targets are
// fetched, everything else is read as a local file.
func resolveInput(ctx context.Context, fetcher *ingest.Fetcher, target string) (*ingest.Input, error) {
	if isURL(target) {
		return fetcher.Fetch(ctx, target)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return &ingest.Input{Filename: filepath.Base(target), Data: data}, nil
}

func isURL(target string) bool {
	return strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")
}

// Components holds initialized services.
type Components struct {
	Store    store.VectorStore
	Embedder embedding.Embedder
	Reasoner reasoning.Reasoner
	Pipeline *ingest.Pipeline
	Fetcher  *ingest.Fetcher
	Answers  *answer.Service
}

func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	timeout := time.Duration(cfg.Gemini.TimeoutSeconds) * time.Second

	vectorStore, err := store.NewPostgresStore(ctx, cfg.Database.URL, cfg.Embedding.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	embedder, err := embedding.NewGeminiEmbedder(embedding.GeminiConfig{
		APIKey:      cfg.Gemini.APIKey,
		BaseURL:     cfg.Gemini.BaseURL,
		Model:       cfg.Gemini.EmbeddingModel,
		Dimensions:  cfg.Embedding.Dimensions,
		Concurrency: cfg.Embedding.Concurrency,
		Timeout:     timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	reasoner, err := reasoning.NewGeminiReasoner(reasoning.GeminiConfig{
		APIKey:  cfg.Gemini.APIKey,
		BaseURL: cfg.Gemini.BaseURL,
		Model:   cfg.Gemini.GenerationModel,
		Timeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize reasoner: %w", err)
	}

	pipelineOpts := []ingest.PipelineOption{}
	if debug && logger != nil {
		pipelineOpts = append(pipelineOpts, ingest.WithLogger(logger))
	}
	pipeline := ingest.NewPipeline(embedder, vectorStore, cfg.Ingest.ChunkSize, pipelineOpts...)

	answerOpts := []answer.ServiceOption{}
	if debug && logger != nil {
		answerOpts = append(answerOpts, answer.WithLogger(logger))
	}
	answers, err := answer.NewService(embedder, vectorStore, reasoner, cfg.Query.TopK, answerOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize answer service: %w", err)
	}

	return &Components{
		Store:    vectorStore,
		Embedder: embedder,
		Reasoner: reasoner,
		Pipeline: pipeline,
		Fetcher:  ingest.NewFetcher(timeout),
		Answers:  answers,
	}, nil
}

func printUsage() {
	fmt.Println(`kotae - Document question answering service

Usage:
  kotae server [flags]                     Start the HTTP server
  kotae ingest [flags] <file-or-url>       Ingest a document
  kotae ask [flags] [--doc <id>] <question>  Ask questions (against a document when --doc is set)
  kotae version                            Show version
  kotae help                               Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kotae/config.yaml)
  --debug            Enable debug logging (chunking, retrieval, upstream calls)

Ingest Flags:
  --config string    Config file path

Ask Flags:
  --config string    Config file path
  --doc string       Document id returned by ingest (omit to ask without document context)
  --output string    Output format: text or json (default: text)

Examples:
  kotae server
  kotae ingest ./policy.pdf
  kotae ingest https://example.com/policy.pdf
  kotae ask --doc url:8f4e... "What is the grace period for premium payment?"
  kotae ask --doc url:8f4e... --output json "First question?" "Second question?"`)
}
