package yaml

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cascadeci/cascade/internal/domain/entities"
)

// PipelineRepository implements repositories.PipelineRepository using YAML
// files in a directory
type PipelineRepository struct {
	pipelinesDir string
	parser       *PipelineParser
}

// NewPipelineRepository creates a new YAML-based pipeline repository
func NewPipelineRepository(pipelinesDir string) *PipelineRepository {
	return &PipelineRepository{
		pipelinesDir: pipelinesDir,
		parser:       NewPipelineParser(),
	}
}

// GetPipeline retrieves a pipeline definition by name
func (r *PipelineRepository) GetPipeline(_ context.Context, name string) (*entities.Pipeline, error) {
	filePath := filepath.Join(r.pipelinesDir, name+".yml")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("pipeline not found: %s", name)
	}

	return r.parser.ParseFile(filePath)
}

// ListPipelines returns all available pipeline definitions
func (r *PipelineRepository) ListPipelines(_ context.Context) ([]*entities.Pipeline, error) {
	entries, err := os.ReadDir(r.pipelinesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipelines directory: %w", err)
	}

	pipelines := make([]*entities.Pipeline, 0)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yml") {
			continue
		}

		filePath := filepath.Join(r.pipelinesDir, entry.Name())
		def, err := r.parser.ParseFile(filePath)
		if err != nil {
			// Log warning but continue processing other files
			fmt.Fprintf(os.Stderr, "Warning: failed to parse %s: %v\n", entry.Name(), err)
			continue
		}

		pipelines = append(pipelines, def)
	}

	return pipelines, nil
}
