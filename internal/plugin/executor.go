package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds a single plugin run.
const DefaultTimeout = 5 * time.Second

// maxConcurrent bounds how many plugins Dispatch runs at once.
const maxConcurrent = 4

// Executor handles the execution of plugins with timeout support.
type Executor struct {
	timeout time.Duration
}

// NewExecutor creates a new Executor with the specified timeout.
func NewExecutor(timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{
		timeout: timeout,
	}
}

// Execute runs a plugin with the given request and returns the response.
// The request is sent as JSON on stdin and stdout is parsed as a Response.
// The plugin's manifest config is attached when the request has none.
func (e *Executor) Execute(ctx context.Context, plugin *Plugin, req *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, plugin.Executable)
	cmd.Dir = plugin.Path
	cmd.WaitDelay = time.Second

	payload := *req
	if payload.Config == nil {
		payload.Config = plugin.Manifest.Config
	}
	reqJSON, err := json.Marshal(&payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	cmd.Stdin = bytes.NewReader(reqJSON)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("plugin execution timeout after %s", e.timeout)
	}

	if err != nil {
		stderrStr := stderr.String()
		if stderrStr != "" {
			return nil, fmt.Errorf("plugin execution failed: %w, stderr: %s", err, stderrStr)
		}
		return nil, fmt.Errorf("plugin execution failed: %w", err)
	}

	var response Response
	if err := json.Unmarshal(stdout.Bytes(), &response); err != nil {
		return nil, fmt.Errorf("failed to parse plugin response: %w, stdout: %s", err, stdout.String())
	}

	return &response, nil
}

// Result is the outcome of one plugin run during Dispatch.
type Result struct {
	Plugin   string
	Response *Response
	Err      error
}

// Dispatch runs req against every plugin concurrently and returns one
// Result per plugin in input order. A failing plugin does not stop the
// others.
func (e *Executor) Dispatch(ctx context.Context, plugins []*Plugin, req *Request) []Result {
	results := make([]Result, len(plugins))

	var g errgroup.Group
	g.SetLimit(maxConcurrent)
	for i, p := range plugins {
		i, p := i, p
		g.Go(func() error {
			resp, err := e.Execute(ctx, p, req)
			if err == nil && !resp.Success {
				err = fmt.Errorf("plugin reported failure: %s", resp.Error)
			}
			results[i] = Result{Plugin: p.Manifest.Name, Response: resp, Err: err}
			return nil
		})
	}
	g.Wait()

	return results
}
