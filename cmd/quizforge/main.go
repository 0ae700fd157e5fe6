package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/quizforge/quizforge/internal/analysis"
	"github.com/quizforge/quizforge/internal/handler"
	appI18n "github.com/quizforge/quizforge/internal/i18n"
	"github.com/quizforge/quizforge/internal/llm"
	"github.com/quizforge/quizforge/internal/model"
	"github.com/quizforge/quizforge/internal/quiz"
	"github.com/quizforge/quizforge/internal/retry"
	"github.com/quizforge/quizforge/internal/store"
)

// schemaExample anchors the generation prompt to the exact JSON shape the
// recovery pass expects. Validated on startup so prompt and parser cannot
// drift apart.
const schemaExample = `{
  "pages": [
    {
      "elements": [
        {
          "type": "radiogroup",
          "name": "q1",
          "title": "Which organelle produces most of a cell's ATP?",
          "choices": ["Nucleus", "Mitochondrion", "Ribosome", "Golgi apparatus"],
          "correctAnswer": "Mitochondrion"
        },
        {
          "type": "text",
          "name": "q2",
          "title": "The process plants use to convert light into chemical energy is called ____.",
          "correctAnswer": "photosynthesis"
        }
      ]
    }
  ]
}`

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "quizforge",
		Short: "Quiz synthesis and grading server powered by LLMs",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `quizforge --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP quiz server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "quizforge.db", "SQLite database path")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.StringP("lang", "l", "en", "Response language (en, zh)")
	f.Int("retry-attempts", 3, "Model call attempts before giving up")
	f.Duration("retry-delay", 500*time.Millisecond, "Initial delay between model call attempts")
	f.Duration("request-timeout", 60*time.Second, "Per-request budget for model calls (0 = none)")
	f.Int("max-source-chars", 3000, "Source text budget embedded into generation prompts")
	f.String("schema-example", "", "Path to a custom schema example JSON (empty uses the built-in)")
	f.Int64("max-upload-mb", 32, "Maximum upload size in megabytes")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.StringSlice("cors-origins", nil, "Allowed CORS origins (empty disables CORS)")
	f.String("admin-password", "", "Initial admin password (or set QUIZFORGE_ADMIN_PASSWORD)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export course results as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "quizforge.db", "SQLite database path")
	f.Int64("course-id", 0, "Course to export (required)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("course-id")

	return cmd
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

	v.SetEnvPrefix("QUIZFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("quizforge")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/quizforge")
	v.AddConfigPath("/etc/quizforge")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	// The schema example must itself be a valid document, so the prompt and
	// the recovery pass cannot drift apart.
	example := schemaExample
	if path := v.GetString("schema-example"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read schema example: %w", err)
		}
		example = string(data)
	}
	var exampleDoc quiz.Document
	if err := json.Unmarshal([]byte(example), &exampleDoc); err != nil {
		return fmt.Errorf("parse schema example: %w", err)
	}
	if err := exampleDoc.Validate(); err != nil {
		return fmt.Errorf("validate schema example: %w", err)
	}

	// Open database.
	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Seed default admin user if no users exist.
	if err := seedAdmin(db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	// Initialize i18n.
	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	// Create LLM client and verify the endpoint.
	llmClient := llm.New(
		v.GetString("llm-url"),
		v.GetString("llm-key"),
		v.GetString("llm-model"),
	)
	if err := llmClient.Ping(context.Background()); err != nil {
		return fmt.Errorf("LLM health check: %w", err)
	}
	slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))

	policy := retry.Policy{
		MaxAttempts: v.GetInt("retry-attempts"),
		BaseDelay:   v.GetDuration("retry-delay"),
		Retryable:   llm.Transient,
	}

	cfg := model.ServerConfig{
		Addr:           v.GetString("addr"),
		DBPath:         v.GetString("db"),
		Lang:           lang,
		SecureCookies:  v.GetBool("secure-cookies"),
		MaxUploadMB:    v.GetInt64("max-upload-mb"),
		RequestTimeout: v.GetDuration("request-timeout"),
		MaxSourceRunes: v.GetInt("max-source-chars"),
	}

	composer := analysis.New(llmClient, policy)
	h := handler.New(db, llmClient, composer, policy, example, cfg)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if origins := v.GetStringSlice("cors-origins"); len(origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
		}))
	}
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	slog.Info("starting server",
		"addr", cfg.Addr,
		"model", v.GetString("llm-model"),
		"llm_url", v.GetString("llm-url"),
		"lang", lang,
		"retry_attempts", policy.MaxAttempts,
	)
	return http.ListenAndServe(cfg.Addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	export, err := db.ExportCourse(v.GetInt64("course-id"))
	if err != nil {
		return fmt.Errorf("export course: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
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
		return fmt.Errorf("admin password is required: set --admin-password flag or QUIZFORGE_ADMIN_PASSWORD env var")
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
