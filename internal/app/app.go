// Package app provides application initialization and dependency
// wiring: database pool, Genkit provider, embedding client, and the
// answering pipeline.
package app

import (
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cnss-digital/rag-service/internal/config"
	"github.com/cnss-digital/rag-service/internal/log"
	"github.com/cnss-digital/rag-service/internal/rag"
)

// App is the application container.
type App struct {
	Config   *config.Config
	Logger   log.Logger
	Genkit   *genkit.Genkit
	DBPool   *pgxpool.Pool
	Service  *rag.Service
	Settings *rag.Settings

	otelCleanup func()
}

// Close releases all resources in reverse initialization order.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.DBPool != nil {
		a.DBPool.Close()
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return nil
}
