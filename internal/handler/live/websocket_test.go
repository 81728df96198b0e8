package live

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/pitchlive-ai/pitchlive/backend/internal/service/engine"
)

func newWSTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	eng := engine.New(engine.Config{SnapshotDir: t.TempDir()}, stubTranscriber{text: "hello investors"}, stubScorer{}, stubResponder{})

	r := chi.NewRouter()
	NewWebSocketHandler(eng).RegisterWebSocketRoutes(r)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server, path string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial err: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var env envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read envelope: %v", err)
	}
	return env
}

func TestWebSocketSessionFlow(t *testing.T) {
	server := newWSTestServer(t)
	conn := dial(t, server, "/live/ws/ws-session?userId=42")

	env := readEnvelope(t, conn)
	if env.Event != "session_started" {
		t.Fatalf("first event: %s, want session_started", env.Event)
	}
	if env.Timestamp == "" {
		t.Fatal("envelope must carry a timestamp")
	}

	// Binary frame carries a raw audio chunk and yields live metrics.
	if err := conn.WriteMessage(websocket.BinaryMessage, toneChunk(0.5)); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	env = readEnvelope(t, conn)
	if env.Event != "live_metrics" {
		t.Fatalf("event after audio: %s, want live_metrics", env.Event)
	}

	// Explicit end returns the summary and closes the session.
	if err := conn.WriteJSON(map[string]any{"type": "end"}); err != nil {
		t.Fatalf("write end: %v", err)
	}
	env = readEnvelope(t, conn)
	if env.Event != "session_summary" {
		t.Fatalf("event after end: %s, want session_summary", env.Event)
	}

	payload, _ := json.Marshal(env.Data)
	var summary struct {
		SessionID   string `json:"sessionId"`
		TotalChunks int    `json:"totalChunks"`
	}
	if err := json.Unmarshal(payload, &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.SessionID != "ws-session" || summary.TotalChunks != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestWebSocketAnalysisOnLongVoicedAudio(t *testing.T) {
	server := newWSTestServer(t)
	conn := dial(t, server, "/live/ws/ws-analysis")

	if env := readEnvelope(t, conn); env.Event != "session_started" {
		t.Fatalf("first event: %s", env.Event)
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, toneChunk(3.5)); err != nil {
		t.Fatalf("write audio: %v", err)
	}

	if env := readEnvelope(t, conn); env.Event != "live_metrics" {
		t.Fatalf("event: %s, want live_metrics", env.Event)
	}
	if env := readEnvelope(t, conn); env.Event != "analysis_update" {
		t.Fatalf("event: %s, want analysis_update", env.Event)
	}
}

func TestWebSocketResponseRequest(t *testing.T) {
	server := newWSTestServer(t)
	conn := dial(t, server, "/live/ws/ws-response")

	if env := readEnvelope(t, conn); env.Event != "session_started" {
		t.Fatalf("first event: %s", env.Event)
	}

	if err := conn.WriteJSON(map[string]any{"type": "response_request"}); err != nil {
		t.Fatalf("write request: %v", err)
	}

	env := readEnvelope(t, conn)
	if env.Event != "investor_response" {
		t.Fatalf("event: %s, want investor_response", env.Event)
	}
}

func TestWebSocketRejectsUnknownMessageType(t *testing.T) {
	server := newWSTestServer(t)
	conn := dial(t, server, "/live/ws/ws-unknown")

	if env := readEnvelope(t, conn); env.Event != "session_started" {
		t.Fatalf("first event: %s", env.Event)
	}

	if err := conn.WriteJSON(map[string]any{"type": "bogus"}); err != nil {
		t.Fatalf("write bogus: %v", err)
	}

	env := readEnvelope(t, conn)
	if env.Event != "error" {
		t.Fatalf("event: %s, want error", env.Event)
	}
}
