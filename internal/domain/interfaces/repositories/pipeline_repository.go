// Package repositories defines persistence contracts for the domain layer.
package repositories

import (
	"context"

	"github.com/cascadeci/cascade/internal/domain/entities"
)

// PipelineRepository provides access to pipeline definitions
type PipelineRepository interface {
	// GetPipeline loads a pipeline definition by name
	GetPipeline(ctx context.Context, name string) (*entities.Pipeline, error)

	// ListPipelines returns all available pipeline definitions
	ListPipelines(ctx context.Context) ([]*entities.Pipeline, error)
}
