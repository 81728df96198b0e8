package live

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/pitchlive-ai/pitchlive/backend/internal/model/pitch"
	"github.com/pitchlive-ai/pitchlive/backend/internal/service/engine"
)

type stubTranscriber struct{ text string }

func (s stubTranscriber) Transcribe(_ context.Context, _ []float32, _ int) (string, error) {
	return s.text, nil
}

type stubScorer struct{}

func (stubScorer) Score(_ context.Context, _ string, _ float64) (pitch.ScoreResult, error) {
	return pitch.ScoreResult{ConfidenceScore: 75, DominantEmotion: "confident", WordsPerMinute: 140, Pacing: "balanced"}, nil
}

type stubResponder struct{}

func (stubResponder) Respond(_ context.Context, _ string, _ *pitch.ChunkAnalysisResult) (pitch.InvestorResponse, error) {
	return pitch.InvestorResponse{Type: "investor_response", InvestorType: "curious", Message: "Tell me more."}, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	eng := engine.New(engine.Config{SnapshotDir: t.TempDir()}, stubTranscriber{text: "hello investors"}, stubScorer{}, stubResponder{})

	r := chi.NewRouter()
	handler := New(eng)
	r.Route("/api", func(api chi.Router) {
		handler.RegisterRoutes(api)
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func toneChunk(seconds float64) []byte {
	n := int(seconds * 16000)
	buf := make([]byte, n*2)
	for i := 0; i < n; i++ {
		sample := 0.3 * math.Sin(2*math.Pi*200*float64(i)/16000)
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(sample*32767)))
	}
	return buf
}

func startSession(t *testing.T, server *httptest.Server, sessionID string) {
	t.Helper()

	body := strings.NewReader(`{"sessionId":"` + sessionID + `","userId":7}`)
	resp, err := http.Post(server.URL+"/api/live/sessions", "application/json", body)
	if err != nil {
		t.Fatalf("start session err: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start session status: %d", resp.StatusCode)
	}
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	server := newTestServer(t)
	startSession(t, server, "s1")

	// Duplicate start must conflict.
	resp, err := http.Post(server.URL+"/api/live/sessions", "application/json", strings.NewReader(`{"sessionId":"s1"}`))
	if err != nil {
		t.Fatalf("duplicate start err: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate start status: %d, want 409", resp.StatusCode)
	}

	// Push enough tone to trigger one analysis pass.
	resp, err = http.Post(server.URL+"/api/live/sessions/s1/chunks", "application/octet-stream", bytes.NewReader(toneChunk(3.5)))
	if err != nil {
		t.Fatalf("chunk err: %v", err)
	}
	var result pitch.ChunkResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode chunk result: %v", err)
	}
	resp.Body.Close()
	if !result.ChunkProcessed {
		t.Fatal("chunk must be processed")
	}
	if result.Analysis == nil {
		t.Fatal("expected an analysis result for a long voiced chunk")
	}
	if result.Analysis.Analysis.Status != pitch.AnalysisScored {
		t.Fatalf("analysis status: %s", result.Analysis.Analysis.Status)
	}

	// Metrics must reflect the scored pass.
	resp, err = http.Get(server.URL + "/api/live/sessions/s1/metrics")
	if err != nil {
		t.Fatalf("metrics err: %v", err)
	}
	var metrics pitch.LiveMetrics
	if err := json.NewDecoder(resp.Body).Decode(&metrics); err != nil {
		t.Fatalf("decode metrics: %v", err)
	}
	resp.Body.Close()
	if len(metrics.ConfidenceTrend) != 1 || metrics.ConfidenceTrend[0] != 75 {
		t.Fatalf("unexpected confidence trend: %v", metrics.ConfidenceTrend)
	}

	// Live investor response.
	resp, err = http.Post(server.URL+"/api/live/sessions/s1/response", "application/json", nil)
	if err != nil {
		t.Fatalf("response err: %v", err)
	}
	var investor pitch.InvestorResponse
	if err := json.NewDecoder(resp.Body).Decode(&investor); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	resp.Body.Close()
	if investor.Message != "Tell me more." {
		t.Fatalf("unexpected investor message: %q", investor.Message)
	}
	if investor.Context == nil {
		t.Fatal("expected session context on response")
	}

	// End session returns the summary, second delete is a 404.
	req, _ := http.NewRequest(http.MethodDelete, server.URL+"/api/live/sessions/s1", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("end err: %v", err)
	}
	var summary pitch.SessionSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	resp.Body.Close()
	if summary.SessionID != "s1" || summary.AnalysisCount != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("second end err: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second end status: %d, want 404", resp.StatusCode)
	}
}

func TestUnknownSessionReturns404(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Post(server.URL+"/api/live/sessions/ghost/chunks", "application/octet-stream", bytes.NewReader(toneChunk(0.5)))
	if err != nil {
		t.Fatalf("chunk err: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("chunk status: %d, want 404", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/api/live/sessions/ghost/metrics")
	if err != nil {
		t.Fatalf("metrics err: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("metrics status: %d, want 404", resp.StatusCode)
	}
}

func TestStartSessionGeneratesID(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Post(server.URL+"/api/live/sessions", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("start err: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start status: %d", resp.StatusCode)
	}

	var session pitch.Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if session.ID == "" {
		t.Fatal("expected a generated session id")
	}
}
