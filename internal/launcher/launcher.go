// Package launcher spawns one headless-browser subprocess per session,
// waits for it to confirm its DevTools endpoint is ready, and discovers a
// page-level CDP WebSocket endpoint to hand to internal/cdp.
package launcher

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/html2pdf/pool/internal/metrics"
	"github.com/html2pdf/pool/internal/pdferr"
	"github.com/html2pdf/pool/internal/pdflog"
)

// maxStartupLines bounds how many lines of the browser's combined
// stdout/stderr we scan for the DevTools listening line before giving up.
const maxStartupLines = 100

// startupGraceDelay is the pause observed after the DevTools listening line
// appears, before hitting the HTTP discovery endpoint (it may not be ready
// the instant the log line is printed).
const startupGraceDelay = 1 * time.Second

// shutdownGrace is how long Close waits for graceful termination before
// force-killing the process.
const shutdownGrace = 5 * time.Second

var devtoolsListeningRE = regexp.MustCompile(`DevTools listening on (ws://\S+)`)

const bindErrorMarker = "bind() returned an error"

// Process is a running headless-browser subprocess plus the debugging port
// it was launched on.
type Process struct {
	cmd  *exec.Cmd
	port int
}

// Port returns the debugging port this process was launched on.
func (p *Process) Port() int { return p.port }

// Close requests graceful termination, waits up to shutdownGrace, then
// force-kills the process. Close is safe to call more than once.
func (p *Process) Close() error {
	if p.cmd.Process == nil {
		return nil
	}
	done := make(chan error, 1)
	go func() { done <- p.cmd.Wait() }()

	_ = p.cmd.Process.Signal(terminateSignal())

	select {
	case <-done:
		return nil
	case <-time.After(shutdownGrace):
		_ = p.cmd.Process.Kill()
		<-done
		return nil
	}
}

// tabInfo is the subset of a /json/list or /json/new entry this package
// reads.
type tabInfo struct {
	Type                 string `json:"type"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// Launch spawns the browser at path with remote debugging on requestedPort
// (falling back to a nearby free port per allocatePort), waits for it to
// announce its DevTools endpoint, and returns the running process plus a
// page-level CDP WebSocket URL.
func Launch(ctx context.Context, path string, requestedPort int, logger arbor.ILogger, reg *metrics.Registry) (*Process, string, error) {
	logger = pdflog.OrDefault(logger)

	port, err := allocatePort(requestedPort)
	if err != nil {
		reg.IncLaunch("port_unavailable")
		return nil, "", err
	}

	args := buildArgs(port)
	cmd := exec.Command(path, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		reg.IncLaunch("launch_unconfirmed")
		return nil, "", fmt.Errorf("launcher: stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	logger.Debug().Str("path", path).Int("port", port).Msg("starting browser process")
	if err := cmd.Start(); err != nil {
		reg.IncLaunch("launch_unconfirmed")
		return nil, "", fmt.Errorf("launcher: start %s: %w", path, err)
	}
	logger.Info().Int("pid", cmd.Process.Pid).Int("port", port).Msg("browser process started")

	// ctx bounds the launch only: once Launch returns, the process runs
	// until Close.
	stopKill := context.AfterFunc(ctx, func() { _ = cmd.Process.Kill() })
	defer stopKill()

	if err := waitForDevtoolsLine(stdout); err != nil {
		_ = cmd.Process.Kill()
		if strings.Contains(err.Error(), bindErrorMarker) {
			reg.IncLaunch("port_conflict")
			return nil, "", fmt.Errorf("launcher: port %d: %w", port, pdferr.ErrPortConflict)
		}
		reg.IncLaunch("launch_unconfirmed")
		return nil, "", fmt.Errorf("launcher: %w", pdferr.ErrLaunchUnconfirmed)
	}

	time.Sleep(startupGraceDelay)

	wsURL, err := discoverPageEndpoint(ctx, port)
	if err != nil {
		_ = cmd.Process.Kill()
		reg.IncLaunch("launch_unconfirmed")
		return nil, "", fmt.Errorf("launcher: discover page endpoint: %w", err)
	}

	reg.IncLaunch("success")
	logger.Info().Str("endpoint", wsURL).Msg("discovered page CDP endpoint")
	return &Process{cmd: cmd, port: port}, wsURL, nil
}

// waitForDevtoolsLine reads up to maxStartupLines lines from the browser's
// combined stdout/stderr, looking for the "DevTools listening on" marker.
// A bind-error marker is returned verbatim in the error so the caller can
// translate it to ErrPortConflict; any other outcome (EOF, line budget
// exhausted) becomes ErrLaunchUnconfirmed in the caller.
func waitForDevtoolsLine(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for i := 0; i < maxStartupLines && scanner.Scan(); i++ {
		line := scanner.Text()
		if strings.Contains(line, bindErrorMarker) {
			return fmt.Errorf("%s", line)
		}
		if devtoolsListeningRE.MatchString(line) {
			return nil
		}
	}
	return fmt.Errorf("devtools listening line not observed within %d lines", maxStartupLines)
}

func discoverPageEndpoint(ctx context.Context, port int) (string, error) {
	client := &http.Client{Timeout: 5 * time.Second}

	if url, ok, err := listFirstPage(ctx, client, port); err != nil {
		return "", err
	} else if ok {
		return url, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://localhost:%d/json/new", port), nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("json/new: %w", err)
	}
	defer resp.Body.Close()

	var tab tabInfo
	if err := json.NewDecoder(resp.Body).Decode(&tab); err != nil {
		return "", fmt.Errorf("json/new: decode: %w", err)
	}
	if tab.WebSocketDebuggerURL == "" {
		return "", fmt.Errorf("json/new: no websocket debugger url")
	}
	return tab.WebSocketDebuggerURL, nil
}

func listFirstPage(ctx context.Context, client *http.Client, port int) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://localhost:%d/json/list", port), nil)
	if err != nil {
		return "", false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("json/list: %w", err)
	}
	defer resp.Body.Close()

	var tabs []tabInfo
	if err := json.NewDecoder(resp.Body).Decode(&tabs); err != nil {
		return "", false, fmt.Errorf("json/list: decode: %w", err)
	}
	for _, t := range tabs {
		if t.Type == "page" && t.WebSocketDebuggerURL != "" {
			return t.WebSocketDebuggerURL, true, nil
		}
	}
	return "", false, nil
}
