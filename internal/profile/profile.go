package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the runtime configuration for the assistant.
type Profile struct {
	// Mode can be "prod" or "dev".
	Mode string
	// Addr is the binding address for the HTTP server.
	Addr string
	// Port is the binding port for the HTTP server.
	Port int
	// Data is the data directory holding the conversation database.
	Data string
	// DSN points to the SQLite database file.
	DSN string
	// Driver is the database driver. Only "sqlite" is supported.
	Driver string
	// AccessToken, when set, is required as a bearer token on every API call.
	AccessToken string

	// Model configuration.
	ModelProvider string   // NYX_MODEL_PROVIDER (openai-compatible endpoints)
	ModelAPIKey   string   // NYX_MODEL_API_KEY
	ModelBaseURL  string   // NYX_MODEL_BASE_URL
	Models        []string // NYX_MODELS, ordered fallback candidates
	SystemPrompt  string   // NYX_SYSTEM_PROMPT

	// Tool credentials.
	SearchAPIKey    string // NYX_SEARCH_API_KEY (Google Custom Search)
	SearchCXID      string // NYX_SEARCH_CX_ID
	WeatherAPIKey   string // NYX_WEATHER_API_KEY (OpenWeatherMap)
	IPInfoToken     string // NYX_IPINFO_TOKEN
	SentimentAPIURL string // NYX_SENTIMENT_API_URL
	SentimentToken  string // NYX_SENTIMENT_TOKEN
	VideoAPIKey     string // NYX_VIDEO_API_KEY (YouTube Data API)
}

// DefaultSystemPrompt mirrors the assistant's persona when none is configured.
const DefaultSystemPrompt = "Você é um assistente prestativo e amigável. Responda a todas as perguntas de forma clara e concisa."

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

func checkDataDir(dataDir string) (string, error) {
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

// Validate normalizes the profile and derives defaults.
func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}
	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Data == "" {
		p.Data = "."
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("nyx_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	if len(p.Models) == 0 {
		return errors.New("at least one model candidate is required")
	}
	if p.SystemPrompt == "" {
		p.SystemPrompt = DefaultSystemPrompt
	}
	return nil
}
