package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"localrag/internal/chunker"
	"localrag/internal/config"
	"localrag/internal/embedding"
	"localrag/internal/embedding/features"
	"localrag/internal/embedding/openai"
	"localrag/internal/expander"
	"localrag/internal/llm"
	"localrag/internal/logger"
	"localrag/internal/service"
	"localrag/internal/vectorstore/memory"
)

// app is the assembled set of components a command works with.
type app struct {
	cfg *config.AppConfig
	log *slog.Logger
}

func loadApp(cmd *cobra.Command, opts *globalOptions) (*app, error) {
	var (
		cfg *config.AppConfig
		err error
	)
	if opts.cfgFile == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(opts.cfgFile)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Debug:  cfg.Log.Debug || opts.verbose,
		Writer: cmd.ErrOrStderr(),
	})
	return &app{cfg: cfg, log: log}, nil
}

func (a *app) embedder() (embedding.Embedder, error) {
	switch a.cfg.Embedder.Type {
	case "features", "":
		return features.NewEmbedder(), nil
	case "openai":
		oc := a.cfg.Embedder.OpenAI
		if oc == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:   oc.BaseURL,
			APIKeyEnv: oc.APIKeyEnv,
			Model:     oc.Model,
			Timeout:   time.Duration(oc.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", a.cfg.Embedder.Type)
	}
}

func (a *app) runner() llm.Runner {
	ec := a.cfg.Expander
	if ec.Runner == "chat" {
		key := ""
		if ec.APIKeyEnv != "" {
			key = os.Getenv(ec.APIKeyEnv)
		}
		return llm.NewChatRunner(ec.ServiceURL, key)
	}
	return llm.NewExecRunner(ec.Binary)
}

func (a *app) expander() *expander.Expander {
	ec := a.cfg.Expander
	return expander.New(expander.Config{
		Model:         ec.Model,
		ServiceURL:    ec.ServiceURL,
		NumVariations: ec.NumVariations,
		Timeout:       ec.Timeout(),
	}, a.runner(), a.log)
}

func (a *app) service() (*service.RAGService, error) {
	emb, err := a.embedder()
	if err != nil {
		return nil, err
	}
	ch := chunker.NewSentenceChunker(a.cfg.Chunker.SentencesPerChunk, a.cfg.Chunker.OverlapSentences)
	return service.NewRAGService(ch, emb, memory.NewStorage(), service.Options{
		Expander: a.expander(),
		Workers:  a.cfg.Search.Workers,
		Logger:   a.log,
	}), nil
}
