package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"truthx/internal/config"
	"truthx/internal/deps"
	"truthx/internal/search"
	"truthx/internal/services/llm"
)

// CheckLLM verifies that the LLM API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt (no retries).
func CheckLLM(ctx context.Context, name string, cfg config.LLM) Result {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Referer: cfg.Referer,
		Title:   cfg.Title,
	}, llm.WithRetry(1, 0, 0))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckInference verifies that the frame inference service answers HTTP.
// Any response below 500 counts as reachable: the endpoint only accepts
// multipart POSTs, so a GET is expected to be rejected.
func CheckInference(ctx context.Context, endpoint string) Result {
	const name = "Frame inference"

	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("invalid url (%v)", err)}
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unreachable (%v)", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{Name: name, Detail: fmt.Sprintf("server error (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CheckArticles verifies the fact-check corpus loads and validates.
func CheckArticles(path string) Result {
	const name = "Article corpus"

	articles, err := search.LoadArticles(path)
	if errors.Is(err, os.ErrNotExist) {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
	}
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d articles)", path, len(articles))}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the probing tools for the given config. Both the
// server health endpoint and the CLI status command use this.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.ProbeRequirements(cfg.Probe.FFprobeBinary, cfg.Probe.FFmpegBinary))
}

// summarizeLLMError produces a human-readable summary for LLM health check failures.
func summarizeLLMError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (LLM API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (LLM API unreachable)"
	}
	return err.Error()
}
