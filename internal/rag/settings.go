package rag

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cnss-digital/rag-service/internal/config"
)

// Params are the runtime-tunable retrieval and generation parameters.
// A Params value is immutable once published; readers always see a
// complete, validated set.
type Params struct {
	ModelName           string  `json:"model_name"`
	ChunkSize           int     `json:"chunk_size"`
	ChunkOverlap        int     `json:"chunk_overlap"`
	TopK                int     `json:"top_k"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
}

// ParamsUpdate is a partial update. Nil fields keep their current value.
type ParamsUpdate struct {
	ModelName           *string  `json:"model_name"`
	ChunkSize           *int     `json:"chunk_size"`
	ChunkOverlap        *int     `json:"chunk_overlap"`
	TopK                *int     `json:"top_k"`
	SimilarityThreshold *float64 `json:"similarity_threshold"`
}

// Settings holds the live parameters. Reads are lock-free; writers
// serialize through a mutex, validate the merged result, then publish
// the whole struct atomically so concurrent readers never observe a
// half-applied update.
type Settings struct {
	current atomic.Pointer[Params]

	mu          sync.Mutex
	subscribers []func(Params)
}

// NewSettings seeds the live parameters from static configuration.
func NewSettings(cfg *config.Config) *Settings {
	s := &Settings{}
	s.current.Store(&Params{
		ModelName:           cfg.ModelName,
		ChunkSize:           cfg.ChunkSize,
		ChunkOverlap:        cfg.ChunkOverlap,
		TopK:                cfg.TopK,
		SimilarityThreshold: cfg.SimilarityThreshold,
	})
	return s
}

// Current returns the active parameter set.
func (s *Settings) Current() Params {
	return *s.current.Load()
}

// Update merges the partial update onto the current parameters,
// validates the result, and publishes it. On validation failure nothing
// changes. Subscribers run synchronously under the writer lock, so a
// caller sees the world consistent when Update returns.
func (s *Settings) Update(update ParamsUpdate) (Params, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := *s.current.Load()
	if update.ModelName != nil {
		merged.ModelName = *update.ModelName
	}
	if update.ChunkSize != nil {
		merged.ChunkSize = *update.ChunkSize
	}
	if update.ChunkOverlap != nil {
		merged.ChunkOverlap = *update.ChunkOverlap
	}
	if update.TopK != nil {
		merged.TopK = *update.TopK
	}
	if update.SimilarityThreshold != nil {
		merged.SimilarityThreshold = *update.SimilarityThreshold
	}

	if err := validateParams(merged); err != nil {
		return Params{}, err
	}

	s.current.Store(&merged)
	for _, fn := range s.subscribers {
		fn(merged)
	}
	return merged, nil
}

// Subscribe registers a callback invoked after every successful update.
// Intended for wiring at startup, before updates begin flowing.
func (s *Settings) Subscribe(fn func(Params)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func validateParams(p Params) error {
	if p.ModelName == "" {
		return fmt.Errorf("%w: model name cannot be empty", ErrConfig)
	}
	if err := config.ValidateChunking(p.ChunkSize, p.ChunkOverlap); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if err := config.ValidateTopK(p.TopK); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if err := config.ValidateThreshold(p.SimilarityThreshold); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return nil
}
