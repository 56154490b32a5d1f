package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/avvvet/krishiseva/internal/app"
	"github.com/avvvet/krishiseva/internal/config"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"provider":     "LLM_PROVIDER",
	"model":        "LLM_MODEL",
	"redis":        "REDIS_URL",
	"backend":      "VECTOR_BACKEND",
	"dsn":          "VECTOR_DSN",
	"log-level":    "LOG_LEVEL",
	"top-k":        "RETRIEVAL_TOP_K",
	"session-ttl":  "SESSION_TTL",
	"no-match":     "INTENT_NO_MATCH_CONFIDENCE",
	"max-tips":     "COMPOSER_MAX_TIPS",
	"max-message":  "MAX_MESSAGE_CHARS",
	"llm-timeout":  "LLM_TIMEOUT",
	"embed-model":  "EMBEDDING_MODEL",
	"embed-dims":   "EMBEDDING_DIMENSIONS",
	"history-size": "HISTORY_CAPACITY",
}

type cli struct {
	v      *viper.Viper
	logger *log.Logger
	out    io.Writer
	root   *cobra.Command
}

func newCLI(out io.Writer, logger *log.Logger) *cli {
	c := &cli{v: viper.New(), logger: logger, out: out}

	root := &cobra.Command{
		Use:           "krishiseva",
		Short:         "Multilingual farming assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("provider", "", "LLM provider (anthropic or openai)")
	pf.String("model", "", "LLM model name")
	pf.String("redis", "", "Redis URL for session memory")
	pf.String("backend", "", "vector backend (postgres, sqlite or none)")
	pf.String("dsn", "", "vector index DSN")
	pf.String("log-level", "", "log level")
	pf.Int("top-k", 0, "knowledge documents per answer")
	pf.Duration("session-ttl", 0, "session lifetime")
	pf.Float64("no-match", 0, "confidence when no intent keyword matches")
	pf.Int("max-tips", 0, "action tips appended to an answer")
	pf.Int("max-message", 0, "longest accepted message in characters")
	pf.Duration("llm-timeout", 0, "LLM call timeout")
	pf.String("embed-model", "", "embedding model name")
	pf.Int("embed-dims", 0, "embedding dimensions")
	pf.Int("history-size", 0, "history entries kept per user")
	for name, key := range flagKeys {
		if err := c.v.BindPFlag(key, pf.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}

	root.AddCommand(c.askCmd(), c.seedCmd(), c.historyCmd())
	c.root = root
	return c
}

// config resolves configuration with changed flags taking precedence over
// the environment.
func (c *cli) config() (*config.Config, error) {
	cfg, err := config.LoadFrom(c.v)
	if err != nil {
		return nil, err
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		c.logger.SetLevel(level)
	}
	return cfg, nil
}

func (c *cli) open(ctx context.Context) (*app.App, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, c.logger)
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
