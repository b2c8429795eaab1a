// Package gateways implements adapters around external collaborators: the
// shell, the artifact store, and the script repository.
package gateways

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/cascadeci/cascade/internal/domain/entities"
)

// ScriptExecutor handles execution of pipeline step scripts
type ScriptExecutor struct {
	defaultTimeout time.Duration
}

// NewScriptExecutor creates a new script executor
func NewScriptExecutor() *ScriptExecutor {
	return &ScriptExecutor{
		defaultTimeout: 30 * time.Minute,
	}
}

// ExecuteScriptConfig contains configuration for executing a shell script.
type ExecuteScriptConfig struct {
	Script        string
	WorkingDir    string
	Env           map[string]string
	Timeout       time.Duration
	Description   string
	SoftExitCodes []int  // exit codes tolerated as soft failure
	OutputFile    string // step writes key=value outputs here ($CASCADE_OUTPUT)
}

// ExecuteResult contains the result of script execution
type ExecuteResult struct {
	Success    bool
	SoftFailed bool
	ExitCode   int
	Stdout     string
	Stderr     string
	Outputs    map[string]string
	Duration   time.Duration
	Error      error
}

// ExecuteScript runs a shell script with the given configuration.
//
// A non-zero exit listed in SoftExitCodes yields Success=true with
// SoftFailed=true; the enclosing job records the failure without aborting.
// Any other non-zero exit is a hard failure.
func (se *ScriptExecutor) ExecuteScript(ctx context.Context, config ExecuteScriptConfig) *ExecuteResult {
	startTime := time.Now()
	result := &ExecuteResult{}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = se.defaultTimeout
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Use /bin/sh for maximum compatibility
	//nolint:gosec // G204: Script execution is intentional and controlled by pipeline configuration
	cmd := exec.CommandContext(execCtx, "/bin/sh", "-c", config.Script)

	if config.WorkingDir != "" {
		cmd.Dir = config.WorkingDir
	}

	env := os.Environ()
	for key, value := range config.Env {
		env = append(env, fmt.Sprintf("%s=%s", key, value))
	}
	if config.OutputFile != "" {
		env = append(env, fmt.Sprintf("CASCADE_OUTPUT=%s", config.OutputFile))
	}
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result.Duration = time.Since(startTime)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if err != nil {
		result.Error = err
		var exitErr *exec.ExitError
		switch {
		case errors.As(err, &exitErr):
			result.ExitCode = exitErr.ExitCode()
		case execCtx.Err() == context.DeadlineExceeded:
			result.Error = fmt.Errorf("script execution timeout after %v", timeout)
			result.ExitCode = -1
			return result
		default:
			result.ExitCode = -1
			return result
		}

		for _, code := range config.SoftExitCodes {
			if result.ExitCode == code {
				result.Success = true
				result.SoftFailed = true
				result.Error = nil
			}
		}
		if !result.Success {
			return result
		}
	} else {
		result.Success = true
		result.ExitCode = 0
	}

	if config.OutputFile != "" {
		outputs, err := ParseOutputsFile(config.OutputFile)
		if err != nil {
			result.Success = false
			result.Error = fmt.Errorf("reading step outputs: %w", err)
			return result
		}
		result.Outputs = outputs
	}

	return result
}

// ExecuteStep runs a pipeline step: inline script or a file from the fetched
// script checkout, with the merged environment.
func (se *ScriptExecutor) ExecuteStep(
	ctx context.Context,
	step entities.Step,
	scriptDir, workDir string,
	env map[string]string,
	outputFile string,
) (*ExecuteResult, error) {
	script := step.Script
	if script == "" && step.ScriptFile != "" {
		path := filepath.Join(scriptDir, step.ScriptFile)
		data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the pipeline definition
		if err != nil {
			return nil, fmt.Errorf("step %q: reading script %s: %w", step.Name, path, err)
		}
		script = string(data)
	}
	if strings.TrimSpace(script) == "" {
		return nil, fmt.Errorf("step %q has no script", step.Name)
	}

	merged := make(map[string]string, len(env)+len(step.Env))
	for k, v := range env {
		merged[k] = v
	}
	for k, v := range step.Env {
		merged[k] = v
	}

	return se.ExecuteScript(ctx, ExecuteScriptConfig{
		Script:        script,
		WorkingDir:    workDir,
		Env:           merged,
		Timeout:       step.Timeout,
		Description:   step.Name,
		SoftExitCodes: step.SoftExitCodes,
		OutputFile:    outputFile,
	}), nil
}

// ParseOutputsFile parses key=value lines written by a step.
//
// Blank lines and lines starting with # are ignored. A line without = is a
// hard error: outputs feed later jobs verbatim, so a malformed file means the
// producing script misbehaved.
func ParseOutputsFile(path string) (map[string]string, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path is runner-generated
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	defer f.Close()

	outputs := make(map[string]string)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("malformed output line %d: %q", lineNo, line)
		}
		outputs[strings.TrimSpace(key)] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return outputs, nil
}

// RunStep executes a step and maps the result onto domain types.
//
// The returned error covers infrastructure failures only (missing script,
// unreadable outputs); a script's own non-zero exit is reported through
// StepResult.Error.
func (se *ScriptExecutor) RunStep(
	ctx context.Context,
	step entities.Step,
	scriptDir, workDir string,
	env map[string]string,
	outputFile string,
) (entities.StepResult, map[string]string, error) {
	result, err := se.ExecuteStep(ctx, step, scriptDir, workDir, env, outputFile)
	if err != nil {
		return entities.StepResult{Name: step.Name, ExitCode: -1, Error: err}, nil, err
	}

	sr := entities.StepResult{
		Name:       step.Name,
		ExitCode:   result.ExitCode,
		SoftFailed: result.SoftFailed,
		Stdout:     result.Stdout,
		Stderr:     result.Stderr,
		Duration:   result.Duration,
	}
	if !result.Success {
		sr.Error = result.Error
		if sr.Error == nil {
			sr.Error = fmt.Errorf("step %q exited with code %d", step.Name, result.ExitCode)
		}
	}
	return sr, result.Outputs, nil
}
