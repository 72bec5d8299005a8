package assistant

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Erriccc/claude-code-voice/internal/resilience"
)

// writeScript drops a shell script into a temp dir and returns the command
// line that runs it.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "assistant.sh")
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("Failed to write script: %v", err)
	}
	return "sh " + path
}

func nextEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case event, ok := <-events:
		if !ok {
			t.Fatal("Expected an event, channel closed")
		}
		return event
	case <-time.After(5 * time.Second):
		t.Fatal("Expected an event, timed out")
	}
	return Event{}
}

func TestExecClient_ParsesEventStream(t *testing.T) {
	// One valid response, one valid permission request, a malformed line, and
	// an unknown type; then block until stdin closes.
	command := writeScript(t, `
printf '%s\n' '{"type":"response","text":"done building"}'
printf '%s\n' '{"type":"permission_request","permission":{"id":"p1","tool":"Bash","prompt":"Run tests?"}}'
printf '%s\n' 'this is not json'
printf '%s\n' '{"type":"thinking","text":"hmm"}'
cat >/dev/null
`)

	client, err := NewExecClient(command, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewExecClient failed: %v", err)
	}
	defer client.Close()

	first := nextEvent(t, client.Events())
	if first.Type != EventResponse || first.Text != "done building" {
		t.Errorf("Expected response event, got %+v", first)
	}

	second := nextEvent(t, client.Events())
	if second.Type != EventPermissionRequest {
		t.Fatalf("Expected permission request event, got %+v", second)
	}
	if second.Permission == nil || second.Permission.ID != "p1" || second.Permission.Tool != "Bash" {
		t.Errorf("Expected permission p1 for Bash, got %+v", second.Permission)
	}

	// The malformed and unknown lines must not surface as events.
	select {
	case event, ok := <-client.Events():
		if ok {
			t.Errorf("Expected no further events, got %+v", event)
		}
	case <-time.After(100 * time.Millisecond):
	}
}

func TestExecClient_WritesJSONLines(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "stdin.log")
	command := writeScript(t, "cat > "+outPath+"\n")

	client, err := NewExecClient(command, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewExecClient failed: %v", err)
	}

	ctx := context.Background()
	if err := client.SendText(ctx, "fix the flaky test"); err != nil {
		t.Fatalf("SendText failed: %v", err)
	}
	if err := client.ResolvePermission(ctx, "p7", true, false); err != nil {
		t.Fatalf("ResolvePermission failed: %v", err)
	}

	// Close delivers EOF so the subprocess flushes and exits.
	if err := client.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	file, err := os.Open(outPath)
	if err != nil {
		t.Fatalf("Failed to open captured stdin: %v", err)
	}
	defer file.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var msg map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			t.Fatalf("Line %d is not valid JSON: %v", len(lines)+1, err)
		}
		lines = append(lines, msg)
	}
	if len(lines) != 2 {
		t.Fatalf("Expected 2 JSON lines, got %d", len(lines))
	}

	if lines[0]["type"] != "user_text" || lines[0]["text"] != "fix the flaky test" {
		t.Errorf("Expected user_text line, got %v", lines[0])
	}
	if lines[1]["type"] != "permission_result" || lines[1]["id"] != "p7" {
		t.Errorf("Expected permission_result line for p7, got %v", lines[1])
	}
	if approved, ok := lines[1]["approved"].(bool); !ok || !approved {
		t.Errorf("Expected approved=true, got %v", lines[1]["approved"])
	}
	if always, ok := lines[1]["always_allow"].(bool); !ok || always {
		t.Errorf("Expected always_allow=false, got %v", lines[1]["always_allow"])
	}
}

func TestExecClient_RespawnsAfterExit(t *testing.T) {
	prior := respawnConfig
	respawnConfig = &resilience.ReconnectConfig{
		MaxAttempts: 3,
		Backoff:     10 * time.Millisecond,
		Multiplier:  1.0,
		MaxBackoff:  10 * time.Millisecond,
	}
	defer func() { respawnConfig = prior }()

	// Each incarnation emits one response and exits immediately.
	command := writeScript(t, `printf '%s\n' '{"type":"response","text":"alive"}'`+"\n")

	client, err := NewExecClient(command, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewExecClient failed: %v", err)
	}
	defer client.Close()

	// A second event can only come from a respawned process.
	for i := 0; i < 2; i++ {
		event := nextEvent(t, client.Events())
		if event.Type != EventResponse || event.Text != "alive" {
			t.Errorf("Expected response event %d, got %+v", i, event)
		}
	}
}

func TestExecClient_CloseIsIdempotent(t *testing.T) {
	command := writeScript(t, "cat >/dev/null\n")
	client, err := NewExecClient(command, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewExecClient failed: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("Expected second Close to succeed, got %v", err)
	}

	if err := client.SendText(context.Background(), "too late"); err == nil {
		t.Error("Expected SendText after Close to fail")
	}
}
