package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mgalkin/filechat/internal/chat"
	"github.com/mgalkin/filechat/internal/config"
	"github.com/mgalkin/filechat/internal/docstore"
	"github.com/mgalkin/filechat/internal/ingest"
	"github.com/mgalkin/filechat/internal/logging"
	"github.com/mgalkin/filechat/internal/session"
	"github.com/mgalkin/filechat/internal/tui"
)

func main() {
	configPath := flag.String("config", "", "path to a filechat config file")
	noAltScreen := flag.Bool("no-alt-screen", false, "disable the alternate screen buffer")
	model := flag.String("model", "", "override the configured model")
	baseURL := flag.String("base-url", "", "override the document store endpoint")
	uploadsDir := flag.String("uploads", "uploads", "directory scanned by /upload")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Println("failed to load config:", err)
		os.Exit(1)
	}
	if *model != "" {
		cfg.Gateway.Model = *model
	}
	if *baseURL != "" {
		cfg.Gateway.BaseURL = *baseURL
	}

	logger := logging.New(cfg.Logging.Path, cfg.Logging.Level)
	defer logger.Sync()

	absUploads, err := filepath.Abs(*uploadsDir)
	if err != nil {
		fmt.Println("failed to resolve uploads directory:", err)
		os.Exit(1)
	}

	apiKey := cfg.Gateway.APIKey()
	if apiKey == "" {
		fmt.Printf("no API key found; set %s before starting\n", cfg.Gateway.APIKeyEnv)
		os.Exit(1)
	}

	store := docstore.New(docstore.Config{
		BaseURL:    cfg.Gateway.BaseURL,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: cfg.Gateway.Timeout()},
		Poll: docstore.PollConfig{
			Initial:     cfg.Indexing.PollInitial(),
			MaxInterval: cfg.Indexing.PollMaxInterval(),
			Budget:      cfg.Indexing.PollBudget(),
		},
	})

	sess := session.New()
	pipeline := ingest.New(store, sess.Registry, logger, cfg.Indexing.ParallelUploads)
	service := chat.NewService(store, logger)

	logger.Info("filechat starting",
		zap.String("base_url", cfg.Gateway.BaseURL),
		zap.String("model", cfg.Gateway.Model),
		zap.String("uploads", absUploads),
		zap.Bool("streaming", cfg.Gateway.Streaming))

	opts := []tea.ProgramOption{}
	if !*noAltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	program := tea.NewProgram(
		tui.New(tui.Config{
			Store:      store,
			Chat:       service,
			Ingest:     pipeline,
			Session:    sess,
			UploadsDir: absUploads,
			Model:      cfg.Gateway.Model,
			MaxResults: cfg.Gateway.MaxResults,
			Streaming:  cfg.Gateway.Streaming,
			Log:        logger,
		}),
		opts...,
	)

	if _, err := program.Run(); err != nil {
		fmt.Println("program error:", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.AppConfig, error) {
	if path != "" {
		return config.Load(path)
	}
	cfg, _, err := config.LoadDefault()
	return cfg, err
}
