package pipeline

import "go.uber.org/zap"

// Observer receives a callback after each pipeline stage. Stages are
// "index", "retrieve", "rerank" and "generate".
type Observer interface {
	OnStage(strategy, stage string, meta map[string]any)
}

// NopObserver discards all stage events.
type NopObserver struct{}

func (NopObserver) OnStage(string, string, map[string]any) {}

// LogObserver writes stage events to a zap logger at debug level.
type LogObserver struct {
	logger *zap.Logger
}

func NewLogObserver(logger *zap.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (o *LogObserver) OnStage(strategy, stage string, meta map[string]any) {
	fields := make([]zap.Field, 0, len(meta)+2)
	fields = append(fields, zap.String("strategy", strategy), zap.String("stage", stage))
	for k, v := range meta {
		fields = append(fields, zap.Any(k, v))
	}
	o.logger.Debug("pipeline stage", fields...)
}
