// Package yaml provides YAML-based pipeline parsing and repository
// implementations.
package yaml

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cascadeci/cascade/internal/domain/entities"
)

// yamlPipeline represents the raw YAML structure
type yamlPipeline struct {
	Name    string            `yaml:"name"`
	Trigger yamlTrigger       `yaml:"trigger"`
	Env     map[string]string `yaml:"env"`
	Scripts yamlScripts       `yaml:"scripts"`
	Jobs    []yamlJob         `yaml:"jobs"`
}

type yamlTrigger struct {
	Branches       []string `yaml:"branches"`
	ManualDispatch bool     `yaml:"manual_dispatch"`
}

type yamlScripts struct {
	RepoURL string `yaml:"repo_url"`
	Ref     string `yaml:"ref"`
	Dir     string `yaml:"dir"`
}

type yamlJob struct {
	Name           string            `yaml:"name"`
	Needs          []string          `yaml:"needs"`
	Always         bool              `yaml:"always"`
	Image          string            `yaml:"image"`
	RunsAs         string            `yaml:"runs_as"`
	Env            map[string]string `yaml:"env"`
	TimeoutMinutes int               `yaml:"timeout_minutes"`
	Matrix         []yamlVariant     `yaml:"matrix"`
	Steps          []yamlStep        `yaml:"steps"`
	Uploads        []yamlUpload      `yaml:"uploads"`
	Downloads      []yamlDownload    `yaml:"downloads"`
	VerifyBinaries []string          `yaml:"verify_binaries"`
}

type yamlVariant struct {
	Name   string            `yaml:"name"`
	Params map[string]string `yaml:"params"`
}

type yamlStep struct {
	Name           string            `yaml:"name"`
	Script         string            `yaml:"script"`
	ScriptFile     string            `yaml:"script_file"`
	Env            map[string]string `yaml:"env"`
	TimeoutMinutes int               `yaml:"timeout_minutes"`
	SoftExitCodes  []int             `yaml:"soft_exit_codes"`
}

type yamlUpload struct {
	Name          string   `yaml:"name"`
	Paths         []string `yaml:"paths"`
	RetentionDays int      `yaml:"retention_days"`
}

type yamlDownload struct {
	Name string `yaml:"name"`
	Dest string `yaml:"dest"`
}

// PipelineParser parses YAML pipeline files
type PipelineParser struct{}

// NewPipelineParser creates a new YAML parser
func NewPipelineParser() *PipelineParser {
	return &PipelineParser{}
}

// ParseFile parses a YAML pipeline file into a Pipeline entity
func (p *PipelineParser) ParseFile(filePath string) (*entities.Pipeline, error) {
	//nolint:gosec // G304: filePath is a pipeline definition path from repository
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	return p.Parse(data)
}

// Parse parses YAML bytes into a Pipeline entity
func (p *PipelineParser) Parse(data []byte) (*entities.Pipeline, error) {
	var yp yamlPipeline
	if err := yaml.Unmarshal(data, &yp); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if yp.Name == "" {
		return nil, fmt.Errorf("pipeline must have a name")
	}
	if len(yp.Jobs) == 0 {
		return nil, fmt.Errorf("pipeline %q has no jobs", yp.Name)
	}

	def := &entities.Pipeline{
		Name: yp.Name,
		Trigger: entities.Trigger{
			Branches:       yp.Trigger.Branches,
			ManualDispatch: yp.Trigger.ManualDispatch,
		},
		Env: yp.Env,
		Scripts: entities.ScriptSource{
			RepoURL: yp.Scripts.RepoURL,
			Ref:     yp.Scripts.Ref,
			Dir:     yp.Scripts.Dir,
		},
	}

	for _, yj := range yp.Jobs {
		job, err := convertJob(yj)
		if err != nil {
			return nil, fmt.Errorf("pipeline %q: %w", yp.Name, err)
		}
		def.Jobs = append(def.Jobs, job)
	}

	return def, nil
}

func convertJob(yj yamlJob) (entities.Job, error) {
	if yj.Name == "" {
		return entities.Job{}, fmt.Errorf("job must have a name")
	}

	job := entities.Job{
		Name:           yj.Name,
		Needs:          yj.Needs,
		Always:         yj.Always,
		Image:          yj.Image,
		RunsAs:         yj.RunsAs,
		Env:            yj.Env,
		Timeout:        time.Duration(yj.TimeoutMinutes) * time.Minute,
		VerifyBinaries: yj.VerifyBinaries,
	}

	for _, yv := range yj.Matrix {
		job.Matrix = append(job.Matrix, entities.MatrixVariant{
			Name:   yv.Name,
			Params: yv.Params,
		})
	}

	for _, ys := range yj.Steps {
		if ys.Script != "" && ys.ScriptFile != "" {
			return entities.Job{}, fmt.Errorf(
				"job %q step %q declares both script and script_file", yj.Name, ys.Name)
		}
		job.Steps = append(job.Steps, entities.Step{
			Name:          ys.Name,
			Script:        ys.Script,
			ScriptFile:    ys.ScriptFile,
			Env:           ys.Env,
			Timeout:       time.Duration(ys.TimeoutMinutes) * time.Minute,
			SoftExitCodes: ys.SoftExitCodes,
		})
	}

	for _, yu := range yj.Uploads {
		if yu.Name == "" {
			return entities.Job{}, fmt.Errorf("job %q has an unnamed upload", yj.Name)
		}
		job.Uploads = append(job.Uploads, entities.ArtifactDecl{
			Name:          yu.Name,
			Paths:         yu.Paths,
			RetentionDays: yu.RetentionDays,
		})
	}

	for _, yd := range yj.Downloads {
		if yd.Name == "" {
			return entities.Job{}, fmt.Errorf("job %q has an unnamed download", yj.Name)
		}
		job.Downloads = append(job.Downloads, entities.ArtifactRef{
			Name: yd.Name,
			Dest: yd.Dest,
		})
	}

	return job, nil
}
