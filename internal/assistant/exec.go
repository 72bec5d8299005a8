package assistant

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	shellwords "github.com/mattn/go-shellwords"
	"github.com/rs/zerolog"

	"github.com/Erriccc/claude-code-voice/internal/observability"
	"github.com/Erriccc/claude-code-voice/internal/resilience"
)

// closeGrace bounds how long Close waits for the process to exit on stdin EOF
// before killing it.
const closeGrace = 5 * time.Second

// respawnConfig drives the backoff when the assistant process dies
// unexpectedly. Overridable for tests.
var respawnConfig = &resilience.ReconnectConfig{
	MaxAttempts: 5,
	Backoff:     time.Second,
	Multiplier:  2.0,
	MaxBackoff:  30 * time.Second,
}

// outbound is the wire shape of messages written to the assistant's stdin,
// one JSON object per line.
type outbound struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	ID          string `json:"id,omitempty"`
	Approved    *bool  `json:"approved,omitempty"`
	AlwaysAllow *bool  `json:"always_allow,omitempty"`
}

// ExecClient talks to an assistant subprocess over stdio, one JSON object per
// line in each direction. If the process dies while the client is open, it is
// respawned with backoff; the event channel closes only when respawning gives
// up or the client is closed.
type ExecClient struct {
	args   []string
	events chan Event
	logger zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{} // closed when the supervisor loop exits

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.Reader
	closed bool
}

// NewExecClient parses command with shell quoting rules, spawns it, and
// starts reading its event stream.
func NewExecClient(command string, logger zerolog.Logger) (*ExecClient, error) {
	args, err := shellwords.NewParser().Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse assistant command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("assistant command empty")
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &ExecClient{
		args:   args,
		events: make(chan Event, 32),
		logger: logger.With().Str("component", "assistant").Logger(),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	if err := c.spawn(); err != nil {
		cancel()
		return nil, err
	}
	go c.run()
	return c, nil
}

// Events returns the assistant's event stream. Closes when the client is
// closed or the process cannot be respawned.
func (c *ExecClient) Events() <-chan Event {
	return c.events
}

// SendText forwards a user utterance to the assistant.
func (c *ExecClient) SendText(ctx context.Context, text string) error {
	return c.write(ctx, outbound{Type: "user_text", Text: text})
}

// ResolvePermission reports a permission decision to the assistant.
func (c *ExecClient) ResolvePermission(ctx context.Context, id string, approved, alwaysAllow bool) error {
	return c.write(ctx, outbound{
		Type:        "permission_result",
		ID:          id,
		Approved:    &approved,
		AlwaysAllow: &alwaysAllow,
	})
}

// Close shuts down stdin so the process can exit on EOF, kills it if it does
// not, and waits for the supervisor loop to finish.
func (c *ExecClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	stdin := c.stdin
	c.mu.Unlock()

	c.cancel()
	if stdin != nil {
		_ = stdin.Close()
	}

	select {
	case <-c.done:
	case <-time.After(closeGrace):
		c.mu.Lock()
		cmd := c.cmd
		c.mu.Unlock()
		if cmd != nil && cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		<-c.done
	}
	return nil
}

// spawn starts a fresh assistant process and swaps it in as the active one.
func (c *ExecClient) spawn() error {
	cmd := exec.Command(c.args[0], c.args[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("assistant stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("assistant stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("assistant stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start assistant process: %w", err)
	}

	c.mu.Lock()
	c.cmd = cmd
	c.stdin = stdin
	c.stdout = stdout
	c.mu.Unlock()

	go c.logStderr(stderr)
	return nil
}

// run reads each process incarnation to exhaustion, then either stops (client
// closed) or respawns the process with backoff.
func (c *ExecClient) run() {
	defer close(c.done)
	defer close(c.events)

	for {
		c.mu.Lock()
		cmd, stdout := c.cmd, c.stdout
		c.mu.Unlock()

		c.readEvents(stdout)
		err := cmd.Wait()

		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}

		c.logger.Warn().Err(err).Msg("Assistant process exited, restarting")
		observability.RecordError("process_exit", "assistant")
		if err := resilience.Reconnect(c.ctx, c.spawn, respawnConfig); err != nil {
			c.logger.Error().Err(err).Msg("Assistant process could not be restarted")
			return
		}
	}
}

func (c *ExecClient) write(ctx context.Context, msg outbound) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	line, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode assistant message: %w", err)
	}
	line = append(line, '\n')

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("assistant client is closed")
	}
	if _, err := c.stdin.Write(line); err != nil {
		observability.RecordError("write_error", "assistant")
		return fmt.Errorf("write to assistant: %w", err)
	}
	return nil
}

func (c *ExecClient) readEvents(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			c.logger.Warn().Err(err).Msg("Dropping malformed assistant event")
			observability.RecordError("decode_error", "assistant")
			continue
		}
		switch event.Type {
		case EventResponse, EventPermissionRequest:
			c.events <- event
		default:
			c.logger.Debug().Str("type", string(event.Type)).Msg("Ignoring unknown assistant event type")
		}
	}
	if err := scanner.Err(); err != nil {
		c.logger.Warn().Err(err).Msg("Assistant event stream ended with error")
	}
}

func (c *ExecClient) logStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		c.logger.Debug().Str("stderr", scanner.Text()).Msg("Assistant process output")
	}
}
