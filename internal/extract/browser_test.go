package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

func TestBrowserRelease_WaitsForOtherPages(t *testing.T) {
	b := NewBrowser(BrowserConfig{MaxPages: 2})
	b.inUse = 2

	if b.release(true) {
		t.Fatal("release() reset while another page was still open")
	}
	if !b.broken {
		t.Fatal("broken flag not kept after a dead connection")
	}
	if !b.release(false) {
		t.Fatal("release() of the last page did not reset the dead connection")
	}
	if b.broken || b.inUse != 0 {
		t.Errorf("after reset broken=%v inUse=%d, want false and 0", b.broken, b.inUse)
	}
}

func TestBrowserRelease_LiveConnectionKept(t *testing.T) {
	b := NewBrowser(BrowserConfig{MaxPages: 2})
	b.inUse = 1

	if b.release(false) {
		t.Error("release() reset a live connection")
	}
}

const renderedProfilePage = `<!DOCTYPE html>
<html><head><title>Bio</title></head><body>
<img alt="avatar">
<section><div role="presentation">Hello there</div></section>
</body></html>`

const headlessProfilePage = `<!DOCTYPE html>
<html><head>
<meta name="description" content="Hello there - 100 Followers, 3 Following">
</head><body></body></html>`

// newTestBrowser returns a browser for integration tests, skipping when none
// can be reached.
func newTestBrowser(t *testing.T) *Browser {
	t.Helper()
	controlURL := os.Getenv("BROWSER_CONTROL_URL")
	bin := ""
	if controlURL == "" {
		path, ok := launcher.LookPath()
		if !ok {
			t.Skip("no browser found and BROWSER_CONTROL_URL not set")
		}
		bin = path
	}
	b := NewBrowser(BrowserConfig{ControlURL: controlURL, Bin: bin, MaxPages: 2})
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBrowserCollectors(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	b := newTestBrowser(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch r.URL.Path {
		case "/rendered/":
			_, _ = w.Write([]byte(renderedProfilePage))
		case "/headless/":
			_, _ = w.Write([]byte(headlessProfilePage))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	profileURL := func(username string) string { return srv.URL + "/" + username + "/" }

	tests := []struct {
		name      string
		collector Collector
		username  string
	}{
		{"rendered", NewRenderedCollector(b, profileURL), "rendered"},
		{"headless", NewHeadlessCollector(b, profileURL), "headless"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
			defer cancel()

			got, err := tt.collector.Collect(ctx, tt.username)
			if err != nil {
				t.Fatalf("Collect() error = %v", err)
			}
			if got.BioLength != len("Hello there") {
				t.Errorf("BioLength = %d, want %d", got.BioLength, len("Hello there"))
			}
		})
	}
}

func TestBrowserWithPage_CancelledMidPage(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	b := newTestBrowser(t)

	ctx, cancel := context.WithCancel(context.Background())
	err := b.WithPage(ctx, "about:blank", func(p *rod.Page) error {
		cancel()
		_, err := p.Element("#never-there")
		return err
	})
	if err == nil {
		t.Fatal("WithPage() after cancel returned nil")
	}
	if b.inUse != 0 {
		t.Errorf("inUse = %d after WithPage returned, want 0", b.inUse)
	}

	// The shared browser survives a caller giving up.
	ctx2, cancel2 := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel2()
	if err := b.WithPage(ctx2, "about:blank", func(*rod.Page) error { return nil }); err != nil {
		t.Fatalf("WithPage() after a cancelled caller: %v", err)
	}
}
