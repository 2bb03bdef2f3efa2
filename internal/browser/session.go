// Package browser drives a real Chrome through the DevTools protocol:
// launch with a persistent profile, navigate, click at coordinates,
// tear down. It is the only part of the bot with side effects on the
// game, and it offers no read-back of what a click achieved.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// launchWait bounds how long Chrome gets to expose its debug endpoint.
	launchWait = 30 * time.Second
	// navigateWait bounds how long a page gets to reach domcontentloaded.
	navigateWait = 30 * time.Second
	// closeGrace is how long Chrome gets to exit before being killed.
	closeGrace = 5 * time.Second

	// windowSize matches the viewport the click coordinates are
	// calibrated against.
	windowSize = "1280,720"
)

// The profile directory holds the browser's cookie jar and lock file;
// it is single-owner. The registry refuses a second session on the
// same directory within this process.
var (
	profilesMu     sync.Mutex
	activeProfiles = map[string]struct{}{}
)

func acquireProfile(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	profilesMu.Lock()
	defer profilesMu.Unlock()
	if _, held := activeProfiles[abs]; held {
		return "", fmt.Errorf("profile dir %s already attached", abs)
	}
	activeProfiles[abs] = struct{}{}
	return abs, nil
}

func releaseProfile(abs string) {
	profilesMu.Lock()
	delete(activeProfiles, abs)
	profilesMu.Unlock()
}

// Session is one persistent Chrome session. Zero value is unusable;
// construct with NewSession and call Open before anything else.
type Session struct {
	Logger     *log.Logger
	DebugPort  int
	ChromePath string // optional explicit binary; detected when empty

	httpClient *http.Client

	cmd     *exec.Cmd
	conn    *cdpConn
	profile string
}

func NewSession(debugPort int, chromePath string, logger *log.Logger) *Session {
	return &Session{
		Logger:     logger,
		DebugPort:  debugPort,
		ChromePath: chromePath,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Open launches Chrome against the given profile directory and
// attaches to a fresh page target. The profile stays exclusively
// owned until Close.
func (s *Session) Open(ctx context.Context, profileDir string) error {
	if s.conn != nil {
		return fmt.Errorf("session already open")
	}

	abs, err := acquireProfile(profileDir)
	if err != nil {
		return err
	}

	bin := s.ChromePath
	if bin == "" {
		bin, err = detectChrome()
		if err != nil {
			releaseProfile(abs)
			return err
		}
	}

	args := []string{
		fmt.Sprintf("--remote-debugging-port=%d", s.DebugPort),
		"--user-data-dir=" + abs,
		"--window-size=" + windowSize,
		"--no-first-run",
		"--no-default-browser-check",
		"about:blank",
	}
	cmd := exec.Command(bin, args...)
	if err := cmd.Start(); err != nil {
		releaseProfile(abs)
		return fmt.Errorf("launch %s: %w", bin, err)
	}

	s.logf("[SESSION] chrome pid=%d profile=%s port=%d", cmd.Process.Pid, abs, s.DebugPort)

	wsURL, err := s.attachPage(ctx)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		releaseProfile(abs)
		return err
	}

	wsConn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		releaseProfile(abs)
		return fmt.Errorf("dial page socket: %w", err)
	}

	s.cmd = cmd
	s.conn = newCDPConn(wsConn, s.Logger)
	s.profile = abs

	if _, err := s.conn.call(ctx, "Page.enable", nil); err != nil {
		cerr := s.Close()
		_ = cerr
		return fmt.Errorf("enable page events: %w", err)
	}
	return nil
}

// attachPage waits for the debug endpoint to answer, then asks it for
// a fresh page target and returns that target's websocket URL.
func (s *Session) attachPage(ctx context.Context) (string, error) {
	endpoint := fmt.Sprintf("http://127.0.0.1:%d", s.DebugPort)

	deadline := time.Now().Add(launchWait)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		resp, err := s.httpClient.Get(endpoint + "/json/version")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("debug endpoint %s not answering after %s", endpoint, launchWait)
		}
		time.Sleep(250 * time.Millisecond)
	}

	// Chrome 111+ wants PUT for target creation; older builds only
	// accept GET. Try both.
	newURL := endpoint + "/json/new?" + url.Values{"url": {"about:blank"}}.Encode()
	var target struct {
		ID                   string `json:"id"`
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	for _, method := range []string{http.MethodPut, http.MethodGet} {
		req, err := http.NewRequestWithContext(ctx, method, newURL, nil)
		if err != nil {
			return "", err
		}
		resp, err := s.httpClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("create page target: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			continue
		}
		err = json.NewDecoder(resp.Body).Decode(&target)
		resp.Body.Close()
		if err != nil {
			return "", fmt.Errorf("decode page target: %w", err)
		}
		break
	}
	if target.WebSocketDebuggerURL == "" {
		return "", fmt.Errorf("debug endpoint gave no page target")
	}
	return target.WebSocketDebuggerURL, nil
}

// Navigate loads the URL and blocks until domcontentloaded fires.
func (s *Session) Navigate(ctx context.Context, pageURL string) error {
	if s.conn == nil {
		return fmt.Errorf("session not open")
	}

	loaded := s.conn.expectEvent("Page.domContentEventFired")

	result, err := s.conn.call(ctx, "Page.navigate", map[string]any{"url": pageURL})
	if err != nil {
		return err
	}
	var nav struct {
		ErrorText string `json:"errorText"`
	}
	if err := json.Unmarshal(result, &nav); err == nil && nav.ErrorText != "" {
		return fmt.Errorf("navigate %s: %s", pageURL, nav.ErrorText)
	}

	select {
	case <-loaded:
		s.logf("[SESSION] loaded %s", pageURL)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(navigateWait):
		return fmt.Errorf("navigate %s: no domcontentloaded after %s", pageURL, navigateWait)
	}
}

// Click dispatches one left click at the viewport coordinate: a press
// and a release, each its own protocol command.
func (s *Session) Click(ctx context.Context, x, y int) error {
	if s.conn == nil {
		return fmt.Errorf("session not open")
	}
	for _, kind := range []string{"mousePressed", "mouseReleased"} {
		params := map[string]any{
			"type":       kind,
			"x":          float64(x),
			"y":          float64(y),
			"button":     "left",
			"clickCount": 1,
		}
		if _, err := s.conn.call(ctx, "Input.dispatchMouseEvent", params); err != nil {
			return fmt.Errorf("click (%d,%d): %w", x, y, err)
		}
	}
	return nil
}

// Close tears the session down on every path: socket first, then the
// browser process (interrupt, then kill after a grace period), then
// the profile lock. Safe to call once per Open.
func (s *Session) Close() error {
	if s.conn != nil {
		s.conn.close()
		s.conn = nil
	}

	var err error
	if s.cmd != nil {
		err = stopProcess(s.cmd)
		s.cmd = nil
	}

	if s.profile != "" {
		releaseProfile(s.profile)
		s.profile = ""
	}
	return err
}

func stopProcess(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	_ = interrupt(cmd)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case <-done:
		return nil
	case <-time.After(closeGrace):
		_ = cmd.Process.Kill()
		<-done
		return nil
	}
}

// interrupt is best effort; Windows has no Interrupt, so kill there.
func interrupt(cmd *exec.Cmd) error {
	if runtime.GOOS == "windows" {
		return cmd.Process.Kill()
	}
	return cmd.Process.Signal(os.Interrupt)
}

// detectChrome probes the usual install locations per OS, then PATH.
func detectChrome() (string, error) {
	var paths []string
	switch runtime.GOOS {
	case "windows":
		paths = []string{
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		}
	case "darwin":
		paths = []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}
	case "linux":
		paths = []string{
			"/usr/bin/google-chrome",
			"/usr/bin/google-chrome-stable",
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
		}
	}
	for _, p := range paths {
		if _, err := exec.LookPath(p); err == nil {
			return p, nil
		}
	}
	for _, name := range []string{"google-chrome", "chromium", "chrome"} {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no chrome binary found; set browser.chrome_path in config")
}

func (s *Session) logf(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
	}
}
