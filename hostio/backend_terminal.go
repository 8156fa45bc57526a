// backend_terminal.go - raw-mode stdin/stdout Backend, for headless
// (no GUI) interactive use over a plain terminal or SSH session.
// Grounded on the teacher's terminal_host.go: raw mode via x/term,
// non-blocking reads off a background goroutine.

package hostio

import (
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"
)

// TerminalBackend implements Backend over the process's own stdin/stdout.
// It has no framebuffer and no audio device: drawing and tone ops are
// silently accepted and ignored, matching PRINT_CHAR/READ_CHAR's role as
// the only ops a text-only console can usefully service.
type TerminalBackend struct {
	fd           int
	oldState     *term.State
	nonblockSet  bool

	keys    chan byte
	stopCh  chan struct{}
	done    chan struct{}
	stopped sync.Once
}

// NewTerminalBackend puts stdin into raw, non-blocking mode and starts a
// background reader goroutine feeding PollKey.
func NewTerminalBackend() (*TerminalBackend, error) {
	t := &TerminalBackend{
		fd:     int(os.Stdin.Fd()),
		keys:   make(chan byte, 256),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}

	oldState, err := term.MakeRaw(t.fd)
	if err != nil {
		close(t.done)
		return nil, fmt.Errorf("backend_terminal: failed to set raw mode: %w", err)
	}
	t.oldState = oldState

	if err := syscall.SetNonblock(t.fd, true); err != nil {
		_ = term.Restore(t.fd, t.oldState)
		close(t.done)
		return nil, fmt.Errorf("backend_terminal: failed to set nonblocking stdin: %w", err)
	}
	t.nonblockSet = true

	go t.readLoop()
	return t, nil
}

func (t *TerminalBackend) readLoop() {
	defer close(t.done)
	buf := make([]byte, 1)

	for {
		select {
		case <-t.stopCh:
			return
		default:
		}

		n, err := syscall.Read(t.fd, buf)
		if n > 0 {
			b := buf[0]
			if b == '\r' {
				b = '\n'
			}
			select {
			case t.keys <- b:
			default:
			}
		}
		switch {
		case err == syscall.EAGAIN || err == syscall.EWOULDBLOCK:
			time.Sleep(5 * time.Millisecond)
		case err != nil:
			return
		case n == 0:
			time.Sleep(5 * time.Millisecond)
		}
	}
}

// Close stops the reader goroutine and restores the terminal.
func (t *TerminalBackend) Close() error {
	t.stopped.Do(func() { close(t.stopCh) })
	<-t.done
	if t.nonblockSet {
		_ = syscall.SetNonblock(t.fd, false)
		t.nonblockSet = false
	}
	if t.oldState != nil {
		err := term.Restore(t.fd, t.oldState)
		t.oldState = nil
		return err
	}
	return nil
}

func (t *TerminalBackend) PumpEvents() bool {
	return true
}

func (t *TerminalBackend) PollKey() (byte, bool) {
	select {
	case b := <-t.keys:
		return b, true
	default:
		return 0, false
	}
}

func (t *TerminalBackend) PollMouse() (uint16, uint16, byte, bool) {
	return 0, 0, 0, false
}

func (t *TerminalBackend) DrawPixel(x, y int, color byte)            {}
func (t *TerminalBackend) DrawLine(x1, y1, x2, y2 int, color byte)   {}
func (t *TerminalBackend) FillRect(x, y, w, h int, color byte)       {}
func (t *TerminalBackend) Refresh()                                  {}
func (t *TerminalBackend) Tone(freqHz, durationMs int)                {}

func (t *TerminalBackend) PrintChar(c byte) {
	os.Stdout.Write([]byte{c})
}

var _ Backend = (*TerminalBackend)(nil)
