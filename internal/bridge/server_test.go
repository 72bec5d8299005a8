package bridge

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Erriccc/claude-code-voice/internal/assistant"
)

func newServerFixture(t *testing.T) (*bridgeFixture, *httptest.Server) {
	t.Helper()
	f := newFixture(t)
	srv := NewServer(testConfig(), f.store, f.bridge, zerolog.Nop())
	mux := http.NewServeMux()
	srv.Register(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return f, ts
}

func postJSON(t *testing.T, url, token string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestServer_ConnectUnknownCode(t *testing.T) {
	_, ts := newServerFixture(t)

	resp := postJSON(t, ts.URL+"/connect", "", map[string]string{"sessionCode": "ZZZZZZ"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown code, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestServer_ConnectExpiredCode(t *testing.T) {
	f := newFixture(t)
	cfg := testConfig()
	cfg.PairingWindow = 10 * time.Millisecond
	store := NewSessionStore(cfg.PairingWindow, cfg.InactivityWindow, zerolog.Nop())
	srv := NewServer(cfg, store, f.bridge, zerolog.Nop())
	mux := http.NewServeMux()
	srv.Register(mux)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	session, _ := store.Create()
	time.Sleep(20 * time.Millisecond)

	resp := postJSON(t, ts.URL+"/connect", "", map[string]string{"sessionCode": session.Code})
	if resp.StatusCode != http.StatusGone {
		t.Errorf("Expected 410 for expired code, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestServer_ConnectSuccess(t *testing.T) {
	f, ts := newServerFixture(t)

	session, _ := f.store.Create()
	resp := postJSON(t, ts.URL+"/connect", "", map[string]string{"sessionCode": session.Code})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["success"] != true {
		t.Error("Expected success true")
	}
	if body["token"] != session.Token {
		t.Error("Expected the session token in the response")
	}
}

func TestServer_ConnectMalformedBody(t *testing.T) {
	_, ts := newServerFixture(t)

	resp, err := http.Post(ts.URL+"/connect", "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed body, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestServer_AudioRequiresToken(t *testing.T) {
	_, ts := newServerFixture(t)

	resp := postJSON(t, ts.URL+"/audio", "", map[string]string{"audio": "AAAA"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, ts.URL+"/audio", "bogus-token", map[string]string{"audio": "AAAA"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 with invalid token, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestServer_AudioReturnsTranscript(t *testing.T) {
	f, ts := newServerFixture(t)

	session, _ := f.store.Create()
	token, _ := f.store.Connect(session.Code)

	payload := map[string]string{
		"audio":    base64.StdEncoding.EncodeToString([]byte{1, 2, 3, 4}),
		"mimeType": "audio/webm",
	}
	resp := postJSON(t, ts.URL+"/audio", token, payload)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["transcript"] != "hello there" {
		t.Errorf("Expected transcript from STT, got %v", body["transcript"])
	}
}

func TestServer_AudioRejectsBadBase64(t *testing.T) {
	f, ts := newServerFixture(t)

	session, _ := f.store.Create()
	token, _ := f.store.Connect(session.Code)

	resp := postJSON(t, ts.URL+"/audio", token, map[string]string{"audio": "!!not-base64!!"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid base64, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestServer_PermissionResolution(t *testing.T) {
	f, ts := newServerFixture(t)

	session, _ := f.store.Create()
	token, _ := f.store.Connect(session.Code)

	f.bridge.handlePermissionRequest(&assistant.PermissionRequest{ID: "p1", Tool: "Bash", Prompt: "Run?"})

	resp := postJSON(t, ts.URL+"/permission", token, map[string]any{
		"requestId": "p1", "approved": true, "alwaysAllow": false,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resolutions := f.asst.Resolutions()
	if len(resolutions) != 1 || !resolutions[0].Approved {
		t.Errorf("Expected p1 approved, got %+v", resolutions)
	}
}

func TestServer_PermissionUnknownID(t *testing.T) {
	f, ts := newServerFixture(t)

	session, _ := f.store.Create()
	token, _ := f.store.Connect(session.Code)

	resp := postJSON(t, ts.URL+"/permission", token, map[string]any{"requestId": "zzz", "approved": true})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown permission, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestServer_Status(t *testing.T) {
	f, ts := newServerFixture(t)

	session, _ := f.store.Create()
	f.store.Connect(session.Code)

	resp, err := http.Get(ts.URL + "/status")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body := decodeBody(t, resp)
	if body["sessions"] != float64(1) {
		t.Errorf("Expected 1 session, got %v", body["sessions"])
	}
	if body["currentSession"] != session.Code {
		t.Errorf("Expected current session %s, got %v", session.Code, body["currentSession"])
	}
}
