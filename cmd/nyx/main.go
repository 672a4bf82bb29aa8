package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nyxhq/nyx/internal/profile"
	"github.com/nyxhq/nyx/internal/version"
	"github.com/nyxhq/nyx/plugin/ai"
	"github.com/nyxhq/nyx/plugin/ai/agent"
	"github.com/nyxhq/nyx/plugin/ai/agent/tools"
	"github.com/nyxhq/nyx/server"
	"github.com/nyxhq/nyx/store"
	"github.com/nyxhq/nyx/store/db"
)

const envPrefix = "nyx"

var rootCmd = &cobra.Command{
	Use:   "nyx",
	Short: "Nyx is a conversational assistant with tool calling and persistent memory",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		prof, err := loadProfile()
		if err != nil {
			return err
		}

		dbDriver, err := db.NewDBDriver(prof)
		if err != nil {
			return fmt.Errorf("failed to create db driver: %w", err)
		}
		defer dbDriver.Close()

		if err := dbDriver.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		storeInstance := store.New(dbDriver, prof)

		model, err := ai.NewModelClient(ai.LLMConfig{
			APIKey:       prof.ModelAPIKey,
			BaseURL:      prof.ModelBaseURL,
			Models:       prof.Models,
			SystemPrompt: prof.SystemPrompt,
		})
		if err != nil {
			return fmt.Errorf("failed to create model client: %w", err)
		}

		registry := agent.NewRegistry(
			tools.NewGoogleSearchTool(prof.SearchAPIKey, prof.SearchCXID),
			tools.NewBrowseURLTool(),
			tools.NewIPInfoTool(prof.IPInfoToken),
			tools.NewWeatherTool(prof.WeatherAPIKey),
			tools.NewSentimentTool(prof.SentimentToken, prof.SentimentAPIURL),
			tools.NewVideoSearchTool(prof.VideoAPIKey),
		)
		engine := agent.NewEngine(storeInstance, model, registry)

		srv := server.NewServer(prof, storeInstance, engine)
		slog.Info("assistant server starting",
			slog.String("version", version.GetCurrentVersion(prof.Mode)),
			slog.String("addr", prof.Addr),
			slog.Int("port", prof.Port))
		return srv.Start(ctx)
	},
}

func loadProfile() (*profile.Profile, error) {
	prof := &profile.Profile{
		Mode:            viper.GetString("mode"),
		Addr:            viper.GetString("addr"),
		Port:            viper.GetInt("port"),
		Data:            viper.GetString("data"),
		DSN:             viper.GetString("dsn"),
		Driver:          viper.GetString("driver"),
		AccessToken:     viper.GetString("access-token"),
		ModelProvider:   viper.GetString("model-provider"),
		ModelAPIKey:     viper.GetString("model-api-key"),
		ModelBaseURL:    viper.GetString("model-base-url"),
		Models:          viper.GetStringSlice("models"),
		SystemPrompt:    viper.GetString("system-prompt"),
		SearchAPIKey:    viper.GetString("search-api-key"),
		SearchCXID:      viper.GetString("search-cx-id"),
		WeatherAPIKey:   viper.GetString("weather-api-key"),
		IPInfoToken:     viper.GetString("ipinfo-token"),
		SentimentAPIURL: viper.GetString("sentiment-api-url"),
		SentimentToken:  viper.GetString("sentiment-token"),
		VideoAPIKey:     viper.GetString("video-api-key"),
	}
	if err := prof.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return prof, nil
}

func init() {
	rootCmd.PersistentFlags().String("mode", "dev", `mode of the server, can be "prod" or "dev"`)
	rootCmd.PersistentFlags().String("addr", "", "binding address for the server")
	rootCmd.PersistentFlags().Int("port", 8230, "binding port for the server")
	rootCmd.PersistentFlags().String("data", "", "data directory for the conversation database")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver")
	rootCmd.PersistentFlags().String("dsn", "", "database source name, derived from data directory when empty")
	rootCmd.PersistentFlags().StringSlice("models", nil, "ordered model fallback candidates")

	for _, name := range []string{"mode", "addr", "port", "data", "driver", "dsn", "models"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("failed to run server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
