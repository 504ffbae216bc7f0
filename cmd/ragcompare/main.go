package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ragcompare/internal/config"
	"ragcompare/internal/domain"
	"ragcompare/internal/embedding"
	"ragcompare/internal/generate"
	"ragcompare/internal/loader"
	"ragcompare/internal/pipeline"
	"ragcompare/internal/rerank"
	"ragcompare/internal/splitter"
	"ragcompare/internal/summarizer"
	"ragcompare/internal/tui"
	"ragcompare/internal/vectorindex/memory"
	"ragcompare/internal/vectorindex/qdrant"
)

func main() {
	_ = godotenv.Load()

	var (
		cfgPath    string
		dataDir    string
		rebuild    bool
		dropOnExit bool
		logPath    string
	)
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/ragcompare/config.yaml if not provided)")
	flag.StringVar(&dataDir, "data", "", "Directory of .txt documents (overrides data_dir from config)")
	flag.BoolVar(&rebuild, "rebuild", false, "Drop and rebuild both indexes before starting")
	flag.BoolVar(&dropOnExit, "drop", false, "Drop both collections on exit instead of keeping them for the next run")
	flag.StringVar(&logPath, "log", "ragcompare.log", "Log file path (the terminal belongs to the UI)")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := newFileLogger(logPath)
	if err != nil {
		log.Fatalf("failed to open log file: %v", err)
	}
	defer logger.Sync()

	reg, err := buildRegistry(cfg, logger)
	if err != nil {
		log.Fatalf("failed to assemble pipelines: %v", err)
	}

	docs, err := loader.NewDirLoader(logger).Load(cfg.DataDir)
	if err != nil {
		log.Fatalf("failed to load documents: %v", err)
	}
	if len(docs) == 0 {
		log.Fatalf("no .txt documents found in %s", cfg.DataDir)
	}

	ctx := context.Background()
	if err := reg.BuildAll(ctx, docs, rebuild); err != nil {
		log.Fatalf("failed to build indexes: %v", err)
	}

	summary := corpusSummary(cfg, docs)
	m := tui.New(reg.Naive, reg.Advanced, summary)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		log.Fatal(err)
	}

	if dropOnExit {
		if err := reg.Drop(ctx); err != nil {
			logger.Warn("failed to drop collections on exit", zap.Error(err))
		}
	}
	reg.Close()
}

// buildRegistry wires both strategies from the config. The generator is
// shared; embedders and indexes are per strategy because the TF-IDF
// embedder carries corpus state and each strategy indexes different
// unit texts.
func buildRegistry(cfg *config.AppConfig, logger *zap.Logger) (*pipeline.Registry, error) {
	gen, err := generate.NewOpenAIClient(generate.Config{
		APIKey:  os.Getenv(cfg.Generator.APIKeyEnv),
		BaseURL: cfg.Generator.BaseURL,
		Model:   cfg.Generator.Model,
		Timeout: time.Duration(cfg.Generator.TimeoutSecs) * time.Second,
	}, logger)
	if err != nil {
		return nil, err
	}

	var reranker domain.Reranker
	if cfg.RerankerEnabled() {
		reranker, err = rerank.NewCohereClient(rerank.Config{
			APIKey:  os.Getenv(cfg.Reranker.APIKeyEnv),
			BaseURL: cfg.Reranker.BaseURL,
			Model:   cfg.Reranker.Model,
			Timeout: time.Duration(cfg.Reranker.TimeoutSecs) * time.Second,
		}, logger)
		if err != nil {
			return nil, err
		}
	} else {
		logger.Warn("reranker credential not set, advanced strategy will keep vector order",
			zap.String("env", cfg.Reranker.APIKeyEnv))
	}

	observer := pipeline.NewLogObserver(logger)

	naiveEmb, err := newEmbedder(cfg, logger)
	if err != nil {
		return nil, err
	}
	naiveIdx, err := newIndex(cfg, cfg.Naive.Collection, logger)
	if err != nil {
		return nil, err
	}
	naive, err := pipeline.New(pipeline.Options{
		Name:         "naive",
		TopK:         cfg.Naive.TopK,
		Temperature:  cfg.Generator.Temperature,
		SystemPrompt: cfg.Naive.SystemPrompt,
	}, pipeline.Deps{
		Splitter:  splitter.NewChunkSplitter(cfg.Naive.ChunkSize, cfg.Naive.ChunkOverlap),
		Embedder:  naiveEmb,
		Index:     naiveIdx,
		Generator: gen,
		Observer:  observer,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	advEmb, err := newEmbedder(cfg, logger)
	if err != nil {
		return nil, err
	}
	advIdx, err := newIndex(cfg, cfg.Advanced.Collection, logger)
	if err != nil {
		return nil, err
	}
	segmenter := splitter.NewPunctSegmenter(cfg.Advanced.MinSentenceLen)
	advanced, err := pipeline.New(pipeline.Options{
		Name:         "advanced",
		TopK:         cfg.Advanced.TopK,
		RerankTopN:   cfg.Advanced.RerankTopN,
		Temperature:  cfg.Generator.Temperature,
		SystemPrompt: cfg.Advanced.SystemPrompt,
	}, pipeline.Deps{
		Splitter:  splitter.NewSentenceWindower(segmenter, cfg.Advanced.WindowSize),
		Embedder:  advEmb,
		Index:     advIdx,
		Reranker:  reranker,
		Generator: gen,
		Observer:  observer,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	return pipeline.NewRegistry(naive, advanced, logger)
}

func newEmbedder(cfg *config.AppConfig, logger *zap.Logger) (domain.Embedder, error) {
	switch cfg.Embedder.Type {
	case "tfidf":
		return embedding.NewTFIDF(), nil
	case "openai":
		return embedding.NewOpenAIClient(embedding.OpenAIConfig{
			APIKey:    os.Getenv(cfg.Embedder.APIKeyEnv),
			BaseURL:   cfg.Embedder.BaseURL,
			Model:     cfg.Embedder.Model,
			Timeout:   time.Duration(cfg.Embedder.TimeoutSecs) * time.Second,
			BatchSize: cfg.Embedder.BatchSize,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}
}

func newIndex(cfg *config.AppConfig, collection string, logger *zap.Logger) (domain.VectorIndex, error) {
	switch cfg.VectorIndex.Type {
	case "memory":
		return memory.NewIndex(logger), nil
	case "qdrant":
		return qdrant.NewIndex(qdrant.Config{
			URL:        cfg.VectorIndex.Qdrant.URL,
			APIKey:     cfg.VectorIndex.Qdrant.APIKey,
			Collection: collection,
			Timeout:    time.Duration(cfg.VectorIndex.Qdrant.TimeoutSecs) * time.Second,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown vector index: %s", cfg.VectorIndex.Type)
	}
}

func corpusSummary(cfg *config.AppConfig, docs []domain.Document) string {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	sum := summarizer.NewFrequencySummarizer(splitter.NewPunctSegmenter(cfg.Advanced.MinSentenceLen))
	s, err := sum.Summarize(strings.Join(texts, " "), cfg.Summarizer.MaxSentences)
	if err != nil || s == "" {
		return fmt.Sprintf("%d documents loaded from %s", len(docs), cfg.DataDir)
	}
	return fmt.Sprintf("%d documents | %s", len(docs), s)
}

func newFileLogger(path string) (*zap.Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(f), zapcore.DebugLevel)
	return zap.New(core), nil
}
