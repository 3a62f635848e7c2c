package service

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/creack/pty"

	"github.com/Mufi-Lang/mufi-lang.org/src/internal/domain"
)

// syncBuffer is written by the server goroutines while the test reads it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var servingAt = regexp.MustCompile(`Serving at http://localhost:(\d+)`)

// waitForBanner returns the port announced in the banner.
func waitForBanner(t *testing.T, out *syncBuffer) string {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		s := out.String()
		if strings.Contains(s, "Press Ctrl+C to stop") {
			m := servingAt.FindStringSubmatch(s)
			if m == nil {
				t.Fatalf("banner without address: %q", s)
			}
			return m[1]
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("banner not printed: %q", out.String())
	return ""
}

func startOrchestrator(t *testing.T, cfg domain.Config) (context.CancelFunc, <-chan error, *syncBuffer) {
	t.Helper()
	out := &syncBuffer{}
	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() {
		errChan <- CreateOrchestrator(domain.NewContext(cfg, out)).Run(ctx)
	}()
	return cancel, errChan, out
}

func waitForExit(t *testing.T, errChan <-chan error) error {
	t.Helper()
	select {
	case err := <-errChan:
		return err
	case <-time.After(5 * time.Second):
		t.Fatalf("orchestrator did not stop")
		return nil
	}
}

func TestRunServesUntilCancelled(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "guide.css"), []byte("h1{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cancel, errChan, out := startOrchestrator(t, domain.Config{Version: "1.2.3", Host: "127.0.0.1", Root: root})
	defer cancel()
	port := waitForBanner(t, out)

	resp, err := http.Get("http://127.0.0.1:" + port + "/guide.css")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "h1{}" {
		t.Fatalf("status=%d body=%q", resp.StatusCode, body)
	}
	if got := resp.Header.Get("Content-Type"); got != "text/css; charset=utf-8" {
		t.Fatalf("Content-Type=%q", got)
	}

	cancel()
	if err := waitForExit(t, errChan); err != nil {
		t.Fatalf("Run: %v", err)
	}

	s := out.String()
	for _, want := range []string{
		"Serving from: " + root,
		"MufiZ Documentation Server v1.2.3",
		"Directory: " + root,
		"Open: http://localhost:" + port,
		strings.Repeat("-", 50),
		domain.LogPrefix + `"GET /guide.css HTTP/1.1" 200 4`,
		"Server stopped by user",
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("output missing %q:\n%s", want, s)
		}
	}
}

func TestRunReportsBindError(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer busy.Close()

	cfg := domain.Config{Host: "127.0.0.1", Port: busy.Addr().(*net.TCPAddr).Port, Root: t.TempDir()}
	cancel, errChan, out := startOrchestrator(t, cfg)
	defer cancel()

	if err := waitForExit(t, errChan); err == nil {
		t.Fatalf("expected bind error")
	}
	if strings.Contains(out.String(), "Press Ctrl+C") {
		t.Fatalf("banner printed despite bind failure:\n%s", out.String())
	}
}

func TestRunWatchReportsChanges(t *testing.T) {
	root := t.TempDir()
	cancel, errChan, out := startOrchestrator(t, domain.Config{Host: "127.0.0.1", Root: root, Watch: true})
	defer cancel()
	waitForBanner(t, out)

	if !strings.Contains(out.String(), "/__livereload.js") {
		t.Fatalf("banner should mention the live reload script:\n%s", out.String())
	}

	if err := os.WriteFile(filepath.Join(root, "index.html"), []byte("v2"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(out.String(), "reload sent to 0 client(s)") {
		if time.Now().After(deadline) {
			t.Fatalf("no reload logged:\n%s", out.String())
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	if err := waitForExit(t, errChan); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRunBuildOutputDoesNotRetrigger(t *testing.T) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	ptmx.Close()
	tty.Close()

	root := t.TempDir()
	cfg := domain.Config{Host: "127.0.0.1", Root: root, Watch: true, BuildCmd: "echo x > out.html"}
	cancel, errChan, out := startOrchestrator(t, cfg)
	defer cancel()
	waitForBanner(t, out)

	builds := func() int { return strings.Count(out.String(), "reload sent to 0 client(s)") }
	waitForBuilds := func(n int) {
		t.Helper()
		deadline := time.Now().Add(5 * time.Second)
		for builds() < n {
			if time.Now().After(deadline) {
				t.Fatalf("builds=%d want=%d:\n%s", builds(), n, out.String())
			}
			time.Sleep(20 * time.Millisecond)
		}
	}

	waitForBuilds(1)
	time.Sleep(1500 * time.Millisecond)
	if got := builds(); got != 1 {
		t.Fatalf("idle server ran %d builds, want 1:\n%s", got, out.String())
	}

	if err := os.WriteFile(filepath.Join(root, "index.md"), []byte("edit"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitForBuilds(2)
	time.Sleep(1500 * time.Millisecond)
	if got := builds(); got != 2 {
		t.Fatalf("one edit ran %d builds, want 2:\n%s", got, out.String())
	}

	cancel()
	if err := waitForExit(t, errChan); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
