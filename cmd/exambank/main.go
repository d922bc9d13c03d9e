package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/exambank/internal/llm"
	"github.com/pavelanni/exambank/internal/llm/prompts"
	"github.com/pavelanni/exambank/internal/model"
	"github.com/pavelanni/exambank/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: cannot load .env:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "exambank",
		Short: "Question bank, quizzes and performance reports",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd(), reportCmd(), importCmd(), generateCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `exambank --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addCommonFlags(f *pflag.FlagSet) {
	f.String("db", "exambank.db", "SQLite database path")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func addLLMFlags(f *pflag.FlagSet) {
	def := llm.DefaultConfig()
	f.String("llm-provider", def.Provider, "Question generator backend (openai, gemini, anthropic, none)")
	f.String("llm-url", def.OpenAI.BaseURL, "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for the OpenAI-compatible endpoint")
	f.String("llm-model", def.OpenAI.Model, "Model name for the OpenAI-compatible endpoint")
	f.Bool("llm-strict", false, "Use strict JSON schema mode (OpenAI API only)")
	f.String("gemini-key", "", "Gemini API key")
	f.String("gemini-model", def.Gemini.Model, "Gemini model")
	f.String("anthropic-key", "", "Anthropic API key")
	f.String("anthropic-model", def.Anthropic.Model, "Anthropic model")
	f.Duration("llm-timeout", def.Timeout, "Timeout for one generation request")
	f.Int("llm-max-tokens", 8192, "Maximum tokens per generation response")
	f.String("level", prompts.DefaultLevel, "Learner level written into generation prompts")
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("EXAMBANK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("exambank")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/exambank")
	v.AddConfigPath("/etc/exambank")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// llmConfig assembles the generator backend settings. A provider of "none"
// or "" disables generation.
func llmConfig(v *viper.Viper) (llm.Config, bool) {
	cfg := llm.DefaultConfig()
	cfg.Provider = strings.ToLower(strings.TrimSpace(v.GetString("llm-provider")))
	if cfg.Provider == "" || cfg.Provider == "none" {
		return cfg, false
	}
	cfg.OpenAI = llm.OpenAIConfig{
		APIKey:       v.GetString("llm-key"),
		Model:        v.GetString("llm-model"),
		BaseURL:      v.GetString("llm-url"),
		StrictSchema: v.GetBool("llm-strict"),
	}
	cfg.Gemini = llm.GeminiConfig{APIKey: v.GetString("gemini-key"), Model: v.GetString("gemini-model")}
	cfg.Anthropic = llm.AnthropicConfig{APIKey: v.GetString("anthropic-key"), Model: v.GetString("anthropic-model")}
	cfg.Timeout = v.GetDuration("llm-timeout")
	return cfg, true
}

// newGenerator builds the question generator. An unreachable backend is
// logged and tolerated: the rest of the app does not depend on it.
func newGenerator(ctx context.Context, v *viper.Viper) (*llm.Generator, error) {
	cfg, enabled := llmConfig(v)
	if !enabled {
		slog.Info("question generation disabled")
		return nil, nil
	}
	provider, err := llm.NewProvider(ctx, cfg, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}
	if err := llm.Ping(ctx, provider); err != nil {
		slog.Warn("LLM health check failed", "provider", cfg.Provider, "error", err)
	} else {
		slog.Info("LLM endpoint OK", "provider", cfg.Provider, "model", provider.ModelID())
	}
	return llm.NewGenerator(provider, llm.GeneratorConfig{
		Timeout:   cfg.Timeout,
		MaxTokens: v.GetInt("llm-max-tokens"),
		Level:     v.GetString("level"),
	})
}

func seedAdmin(db *store.Store, password string) error {
	count, err := db.UserCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		return fmt.Errorf("admin password is required: set --admin-password flag or EXAMBANK_ADMIN_PASSWORD env var")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = db.CreateUser(model.User{
		Username:     "admin",
		DisplayName:  "Administrator",
		PasswordHash: string(hash),
		Role:         model.UserRoleAdmin,
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("seeded default admin user", "username", "admin")
	return nil
}
