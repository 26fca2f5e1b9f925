package input

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/term"
)

// RawReader is the pipeline's byte source: the controlling TTY in raw
// mode. It implements io.ReadWriter so the pipeline can both read input
// and write the shutdown wakeup query to the same descriptor.
type RawReader struct {
	mu            sync.Mutex
	tty           *os.File
	originalState *term.State
	running       bool
}

// NewRawReader creates an unstarted raw reader.
func NewRawReader() *RawReader {
	return &RawReader{}
}

// Start opens /dev/tty and switches it to raw mode. In raw mode input
// arrives byte-by-byte without line buffering, which the escape parser
// requires.
func (r *RawReader) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("raw reader already running")
	}

	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to open /dev/tty: %w", err)
	}

	fd := int(tty.Fd())
	originalState, err := term.GetState(fd)
	if err != nil {
		tty.Close()
		return fmt.Errorf("failed to get terminal state: %w", err)
	}

	if _, err := term.MakeRaw(fd); err != nil {
		tty.Close()
		return fmt.Errorf("failed to set raw mode: %w", err)
	}

	r.tty = tty
	r.originalState = originalState
	r.running = true
	return nil
}

// Stop restores the terminal state and closes the TTY.
func (r *RawReader) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return nil
	}
	r.running = false

	if r.originalState != nil {
		_ = term.Restore(int(r.tty.Fd()), r.originalState)
		r.originalState = nil
	}
	if err := r.tty.Close(); err != nil {
		return fmt.Errorf("failed to close tty: %w", err)
	}
	r.tty = nil
	return nil
}

// Read reads raw bytes from the TTY.
func (r *RawReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	tty := r.tty
	r.mu.Unlock()
	if tty == nil {
		return 0, os.ErrClosed
	}
	return tty.Read(p)
}

// Write writes bytes to the TTY. Used for queries whose replies arrive
// back on Read, including the shutdown wakeup.
func (r *RawReader) Write(p []byte) (int, error) {
	r.mu.Lock()
	tty := r.tty
	r.mu.Unlock()
	if tty == nil {
		return 0, os.ErrClosed
	}
	return tty.Write(p)
}

// IsRunning reports whether the reader holds the TTY.
func (r *RawReader) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
