package ws

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hyper-ai-inc/terminal-backend/internal/config"
	"github.com/hyper-ai-inc/terminal-backend/internal/terminal"
)

func setupTestServer(t *testing.T, origins ...string) (*httptest.Server, *terminal.Supervisor, string) {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}

	scratch := t.TempDir()
	sup := terminal.NewSupervisor(config.TerminalConfig{
		Shell:          "/bin/sh",
		ScratchRoot:    scratch,
		SandboxPrefix:  "ws_test_",
		Term:           "xterm-256color",
		GracePeriod:    time.Second,
		PollInterval:   5 * time.Millisecond,
		ReadBufferSize: 4096,
	}, nil, nil, nil)
	router := NewRouter(sup, origins, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /terminal", router.HandleTerminal)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, sup, scratch
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/terminal"
}

// readUntil collects text frames until the accumulated output contains want
func readUntil(t *testing.T, conn *websocket.Conn, want string) string {
	t.Helper()
	var out strings.Builder
	deadline := time.Now().Add(10 * time.Second)
	for !strings.Contains(out.String(), want) {
		conn.SetReadDeadline(deadline)
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %q: %v (got %q)", want, err, out.String())
		}
		if messageType != websocket.TextMessage {
			t.Fatalf("expected text frame, got type %d", messageType)
		}
		out.Write(data)
	}
	return out.String()
}

func waitForCount(t *testing.T, sup *terminal.Supervisor, want int) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if sup.Registry().Count() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d live sessions, got %d", want, sup.Registry().Count())
}

func TestTerminalRoundTrip(t *testing.T) {
	server, sup, scratch := setupTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte("resize:100:40")); err != nil {
		t.Fatalf("write resize: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte("stty size\n")); err != nil {
		t.Fatalf("write command: %v", err)
	}
	readUntil(t, conn, "40 100")

	if err := conn.WriteMessage(websocket.TextMessage, []byte("exit\n")); err != nil {
		t.Fatalf("write exit: %v", err)
	}

	// The server closes the channel once the shell exits
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				t.Errorf("expected normal closure, got %v", err)
			}
			break
		}
	}

	waitForCount(t, sup, 0)
	entries, err := os.ReadDir(scratch)
	if err != nil {
		t.Fatalf("read scratch root: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected sandbox to be removed, found %d entries", len(entries))
	}
}

func TestTerminalClientDisconnect(t *testing.T) {
	server, sup, _ := setupTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	waitForCount(t, sup, 1)

	conn.Close()
	waitForCount(t, sup, 0)
}

func TestTerminalRejectsForeignOrigin(t *testing.T) {
	server, sup, _ := setupTestServer(t, "http://localhost:*")

	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(server), header)
	if err == nil {
		t.Fatal("expected connection to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %v", resp)
	}
	if n := sup.Registry().Count(); n != 0 {
		t.Errorf("expected no sessions, got %d", n)
	}
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		origin  string
		allowed []string
		want    bool
	}{
		{"no origin header", "", nil, true},
		{"nothing configured", "http://localhost:3000", nil, false},
		{"exact match", "https://app.example.com", []string{"https://app.example.com"}, true},
		{"wildcard", "https://anything.example", []string{"*"}, true},
		{"port wildcard", "http://localhost:5173", []string{"http://localhost:*"}, true},
		{"port wildcard without port", "http://localhost:", []string{"http://localhost:*"}, false},
		{"port wildcard with path", "http://localhost:5173/x", []string{"http://localhost:*"}, false},
		{"port wildcard other host", "http://localhost.evil:80", []string{"http://localhost:*"}, false},
		{"no match", "https://evil.example", []string{"https://app.example.com"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/terminal", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := checkOrigin(req, tt.allowed); got != tt.want {
				t.Errorf("checkOrigin(%q, %v) = %v, want %v", tt.origin, tt.allowed, got, tt.want)
			}
		})
	}
}
