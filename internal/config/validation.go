package config

import (
	"fmt"
	"strings"
)

// validSSLModes contains the PostgreSQL SSL modes accepted by pgx.
var validSSLModes = map[string]bool{
	"disable":     true,
	"allow":       true,
	"prefer":      true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// Validate checks that the configuration is coherent. It is called by
// Load after defaults, file, and environment have been merged.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI, ProviderGoogleAI:
	default:
		return fmt.Errorf("%w: %q (expected %q or %q)",
			ErrInvalidProvider, c.Provider, ProviderOpenAI, ProviderGoogleAI)
	}

	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model name cannot be empty", ErrInvalidModelName)
	}
	if strings.TrimSpace(c.EmbedderModel) == "" {
		return fmt.Errorf("%w: embedder model cannot be empty", ErrInvalidEmbedderModel)
	}

	if err := ValidateChunking(c.ChunkSize, c.ChunkOverlap); err != nil {
		return err
	}
	if err := ValidateTopK(c.TopK); err != nil {
		return err
	}
	if err := ValidateThreshold(c.SimilarityThreshold); err != nil {
		return err
	}

	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d (expected 1-65535)", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}
	if !validSSLModes[c.PostgresSSLMode] {
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}

	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("%w: %d (must be positive)", ErrInvalidUploadLimit, c.MaxUploadBytes)
	}

	return nil
}

// ValidateChunking checks chunk size and overlap bounds. The overlap must
// leave forward progress, so it has to be strictly smaller than the size.
// Shared with the runtime config update path.
func ValidateChunking(size, overlap int) error {
	if size < 1 {
		return fmt.Errorf("%w: chunk_size %d (must be >= 1)", ErrInvalidChunking, size)
	}
	if overlap < 0 {
		return fmt.Errorf("%w: chunk_overlap %d (must be >= 0)", ErrInvalidChunking, overlap)
	}
	if overlap >= size {
		return fmt.Errorf("%w: chunk_overlap %d must be smaller than chunk_size %d",
			ErrInvalidChunking, overlap, size)
	}
	return nil
}

// ValidateTopK checks the retrieval fan-out bound.
func ValidateTopK(k int) error {
	if k < 1 || k > 100 {
		return fmt.Errorf("%w: %d (expected 1-100)", ErrInvalidTopK, k)
	}
	return nil
}

// ValidateThreshold checks the similarity threshold range.
func ValidateThreshold(t float64) error {
	if t < 0 || t > 1 {
		return fmt.Errorf("%w: %g (expected 0.0-1.0)", ErrInvalidThreshold, t)
	}
	return nil
}
