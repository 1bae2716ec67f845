package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pandiarajan-src/ai-code-reviewer/internal/bitbucket"
	"github.com/pandiarajan-src/ai-code-reviewer/internal/config"
	"github.com/pandiarajan-src/ai-code-reviewer/internal/engine"
	"github.com/pandiarajan-src/ai-code-reviewer/internal/guidelines"
	"github.com/pandiarajan-src/ai-code-reviewer/internal/llm"
	"github.com/pandiarajan-src/ai-code-reviewer/internal/mail"
	"github.com/pandiarajan-src/ai-code-reviewer/internal/server"
	"github.com/pandiarajan-src/ai-code-reviewer/internal/storage"
	"github.com/pandiarajan-src/ai-code-reviewer/internal/version"
)

func main() {
	// Handle version command before anything else (for CI testing)
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("reviewd %s\n", version.Version)
		return
	}

	var (
		configPath = flag.String("config", config.DefaultConfigPath(), "path to config file")
		dbPath     = flag.String("db", "", "path to sqlite database (overrides config)")
		addr       = flag.String("addr", "", "server address (overrides config)")
	)
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("Starting reviewd...")

	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		log.Printf("Warning: failed to load config from %s: %v", *configPath, err)
		cfg = config.DefaultConfig()
	}

	// Apply flag overrides
	if *addr != "" {
		cfg.ServerAddr = *addr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	log.Printf("Database: %s", cfg.DBPath)

	bbClient := bitbucket.NewClient(cfg.BitbucketURL, cfg.BitbucketToken,
		time.Duration(cfg.BitbucketTimeout)*time.Second)

	var guides *guidelines.Loader
	if cfg.GuidelinesEnabled {
		guides = guidelines.NewLoader(cfg.GuidelinesFile)
		log.Printf("Guidelines: %s", cfg.GuidelinesFile)
	}

	llmClient, err := llm.NewClient(llm.Options{
		Provider:   cfg.LLMProvider,
		APIKey:     cfg.LLMAPIKey,
		Endpoint:   cfg.LLMEndpoint,
		Model:      cfg.LLMModel,
		OllamaHost: cfg.OllamaHost,
		Timeout:    time.Duration(cfg.LLMTimeout) * time.Second,
		Guidelines: guides,
	})
	if err != nil {
		log.Fatalf("Failed to create LLM client: %v", err)
	}
	log.Printf("LLM: %s (%s)", cfg.LLMProvider, cfg.LLMModel)

	mailer := mail.NewSender(mail.SenderOptions{
		WebhookURL: cfg.EmailWebhookURL,
		From:       cfg.EmailFrom,
		OptOut:     cfg.EmailOptOut,
		Timeout:    time.Duration(cfg.EmailTimeout) * time.Second,
	})
	if cfg.EmailOptOut {
		log.Println("Email notifications: opted out")
	}

	eng := engine.New(bbClient, llmClient, mailer, db)
	srv := server.NewServer(db, eng, cfg, bbClient, llmClient)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down...", sig)
		if err := srv.Stop(); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
		os.Exit(0)
	}()

	// Start server (blocks until shutdown)
	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
