package narration

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/justyntemme/storybook/internal/logging"
)

// DefaultPlayer is the player binary used for narration.
const DefaultPlayer = "mpv"

var errSinkClosed = errors.New("narration sink closed")

// MPVSink plays narration through an idle mpv process controlled over its
// JSON IPC socket.
type MPVSink struct {
	cmd     *exec.Cmd
	conn    net.Conn
	sock    string
	logger  *slog.Logger
	timeout time.Duration

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  int
	pending map[int]chan error
	loaded  string
	onEnd   func(url string)
	onError func(url string, err error)
	closed  bool
	done    chan struct{}
}

type mpvMessage struct {
	RequestID int    `json:"request_id,omitempty"`
	Error     string `json:"error,omitempty"`
	Event     string `json:"event,omitempty"`
	Reason    string `json:"reason,omitempty"`
	FileError string `json:"file_error,omitempty"`
}

// NewMPVSink starts player in idle mode and connects to its IPC socket.
func NewMPVSink(ctx context.Context, player string, logger *slog.Logger) (*MPVSink, error) {
	if player == "" {
		player = DefaultPlayer
	}
	bin, err := exec.LookPath(player)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", player, err)
	}

	sock := filepath.Join(os.TempDir(), "storybook-mpv-"+uuid.NewString()+".sock")
	cmd := exec.CommandContext(ctx, bin,
		"--idle=yes",
		"--no-video",
		"--no-terminal",
		"--input-ipc-server="+sock,
	)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", player, err)
	}

	var conn net.Conn
	deadline := time.Now().Add(3 * time.Second)
	for {
		conn, err = net.Dial("unix", sock)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			return nil, fmt.Errorf("connect to %s ipc: %w", player, err)
		}
		time.Sleep(25 * time.Millisecond)
	}

	s := newMPVSink(conn, logger)
	s.cmd = cmd
	s.sock = sock
	return s, nil
}

func newMPVSink(conn net.Conn, logger *slog.Logger) *MPVSink {
	s := &MPVSink{
		conn:    conn,
		logger:  logging.OrNop(logger),
		timeout: 2 * time.Second,
		pending: make(map[int]chan error),
		done:    make(chan struct{}),
	}
	go s.readLoop()
	return s
}

// SetEndHandler registers fn for natural end of playback.
func (s *MPVSink) SetEndHandler(fn func(url string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEnd = fn
}

// SetErrorHandler registers fn for sources that fail while loading or
// playing.
func (s *MPVSink) SetErrorHandler(fn func(url string, err error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = fn
}

// Available reports whether the player is still connected.
func (s *MPVSink) Available() bool {
	select {
	case <-s.done:
		return false
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

// Load replaces the current source with url, paused.
func (s *MPVSink) Load(url string) error {
	if err := s.command("set_property", "pause", true); err != nil {
		return err
	}
	if err := s.command("loadfile", url, "replace"); err != nil {
		return err
	}
	s.mu.Lock()
	s.loaded = url
	s.mu.Unlock()
	return nil
}

// Play resumes playback.
func (s *MPVSink) Play() error {
	return s.command("set_property", "pause", false)
}

// Stop stops playback and unloads the source.
func (s *MPVSink) Stop() error {
	s.mu.Lock()
	s.loaded = ""
	s.mu.Unlock()
	return s.command("stop")
}

// SetVolume sets the volume in [0,1].
func (s *MPVSink) SetVolume(v float64) error {
	return s.command("set_property", "volume", v*100)
}

// Close quits the player and removes its socket.
func (s *MPVSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	_ = s.command("quit")

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	err := s.conn.Close()
	<-s.done
	if s.cmd != nil {
		_ = s.cmd.Wait()
	}
	if s.sock != "" {
		_ = os.Remove(s.sock)
	}
	return err
}

func (s *MPVSink) command(args ...any) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errSinkClosed
	}
	s.nextID++
	id := s.nextID
	reply := make(chan error, 1)
	s.pending[id] = reply
	s.mu.Unlock()

	line, err := json.Marshal(map[string]any{"command": args, "request_id": id})
	if err != nil {
		s.forget(id)
		return err
	}
	line = append(line, '\n')

	s.writeMu.Lock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.timeout))
	_, err = s.conn.Write(line)
	s.writeMu.Unlock()
	if err != nil {
		s.forget(id)
		return fmt.Errorf("mpv %v: %w", args[0], err)
	}

	select {
	case err := <-reply:
		return err
	case <-s.done:
		return errSinkClosed
	case <-time.After(s.timeout):
		s.forget(id)
		return fmt.Errorf("mpv %v: timed out", args[0])
	}
}

func (s *MPVSink) forget(id int) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

func (s *MPVSink) readLoop() {
	defer close(s.done)

	scanner := bufio.NewScanner(s.conn)
	for scanner.Scan() {
		var msg mpvMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			s.logger.Debug("mpv: bad message", "error", err)
			continue
		}

		if msg.Event != "" {
			s.handleEvent(msg)
			continue
		}

		s.mu.Lock()
		reply, ok := s.pending[msg.RequestID]
		delete(s.pending, msg.RequestID)
		s.mu.Unlock()
		if !ok {
			continue
		}
		if msg.Error != "" && msg.Error != "success" {
			reply <- fmt.Errorf("mpv: %s", msg.Error)
		} else {
			reply <- nil
		}
	}
}

func (s *MPVSink) handleEvent(msg mpvMessage) {
	if msg.Event != "end-file" || (msg.Reason != "eof" && msg.Reason != "error") {
		return
	}
	s.mu.Lock()
	url := s.loaded
	s.loaded = ""
	onEnd, onError := s.onEnd, s.onError
	s.mu.Unlock()
	if url == "" {
		return
	}

	// Handlers may call back into the sink; never block the reader.
	if msg.Reason == "error" {
		reason := msg.FileError
		if reason == "" {
			reason = "unknown error"
		}
		s.logger.Debug("mpv: file failed", "url", url, "error", reason)
		if onError != nil {
			go onError(url, fmt.Errorf("mpv: %s", reason))
		}
		return
	}
	if onEnd != nil {
		go onEnd(url)
	}
}

// NopSink discards every command. It is used when narration is disabled
// or no player is available, and reports itself unavailable so nothing
// claims to play.
type NopSink struct{}

func (NopSink) Available() bool         { return false }
func (NopSink) Load(string) error       { return nil }
func (NopSink) Play() error             { return nil }
func (NopSink) Stop() error             { return nil }
func (NopSink) SetVolume(float64) error { return nil }
