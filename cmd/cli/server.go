package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

const (
	serverBinary       = "mediafetch-server"
	serverStartTimeout = 10 * time.Second
	serverPollInterval = 200 * time.Millisecond
)

var healthClient = &http.Client{Timeout: time.Second}

// isServerRunning checks if the server is responding to health checks
func isServerRunning() bool {
	resp, err := healthClient.Get(serverURL + "/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// serverCandidates lists the places a server binary is looked for, in order
func serverCandidates() []string {
	var candidates []string
	if execPath, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(execPath), serverBinary))
	}
	if p, err := exec.LookPath(serverBinary); err == nil {
		candidates = append(candidates, p)
	}
	candidates = append(candidates, filepath.Join("/usr/local/bin", serverBinary))
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, "go", "bin", serverBinary),
			filepath.Join(home, ".local", "bin", serverBinary))
	}
	return candidates
}

// findServerBinary returns the first existing server binary
func findServerBinary() (string, error) {
	for _, p := range serverCandidates() {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%s binary not found", serverBinary)
}

// serverEnv maps the --server URL onto the server's host and port settings
func serverEnv(rawURL string) []string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return nil
	}
	env := []string{"MEDIAFETCH_SERVER_HOST=" + u.Hostname()}
	if port := u.Port(); port != "" {
		env = append(env, "MEDIAFETCH_SERVER_PORT="+port)
	}
	return env
}

// startServerBackground launches a detached server listening on --server
func startServerBackground() error {
	serverPath, err := findServerBinary()
	if err != nil {
		return err
	}

	cmd := exec.Command(serverPath)
	cmd.Env = append(os.Environ(), serverEnv(serverURL)...)
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	// The server keeps running after the CLI exits
	return cmd.Process.Release()
}

// waitForServerReady polls /health until it answers or ctx expires
func waitForServerReady(ctx context.Context) error {
	ticker := time.NewTicker(serverPollInterval)
	defer ticker.Stop()

	for {
		if isServerRunning() {
			return nil
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("server did not start within %v", serverStartTimeout)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ensureServerRunning checks if server is running, starts it if not
func ensureServerRunning() error {
	if isServerRunning() {
		return nil
	}

	fmt.Fprintln(os.Stderr, "Server not running, starting...")

	if err := startServerBackground(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), serverStartTimeout)
	defer cancel()
	if err := waitForServerReady(ctx); err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, "Server started successfully")
	return nil
}
