// Package ptydriver spawns a child process attached to a pseudo-terminal,
// yields the output byte stream, accepts input and resize requests, and
// reports the child's exit status. It exposes a channel-based driver and
// owns no session bookkeeping of its own — that lives in internal/session.
package ptydriver

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"

	creackpty "github.com/creack/pty"
	shellquote "github.com/kballard/go-shellquote"
)

// ErrClosed is returned by Write/Resize once the driver has been closed.
var ErrClosed = errors.New("ptydriver: closed")

const readChunkSize = 4096

// Driver owns one child process attached to a PTY.
type Driver struct {
	cmd  *exec.Cmd
	ptmx *os.File

	output chan []byte
	exit   chan int

	mu     sync.Mutex
	closed bool
}

// Spawn starts argv[0] with the remaining elements as arguments, attached
// to a new PTY of the given size, in workDir with the given environment
// (nil means inherit os.Environ()).
func Spawn(argv []string, workDir string, env []string, cols, rows uint16) (*Driver, error) {
	if len(argv) == 0 {
		return nil, errors.New("ptydriver: argv must not be empty")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = workDir
	if len(env) > 0 {
		cmd.Env = env
	}

	ptmx, err := creackpty.StartWithSize(cmd, &creackpty.Winsize{Cols: cols, Rows: rows})
	if err != nil {
		return nil, fmt.Errorf("ptydriver: spawn: %w", err)
	}

	d := &Driver{
		cmd:    cmd,
		ptmx:   ptmx,
		output: make(chan []byte, 256),
		exit:   make(chan int, 1),
	}

	go d.readPump()
	go d.waitExit()

	return d, nil
}

// SplitCommand splits a single command-line string into argv the way a
// shell would, honoring quoting, for a command held as one string rather
// than as already-split CLI args. The CLI passes its trailing arguments
// to Spawn as argv directly and does not call it.
func SplitCommand(command string) ([]string, error) {
	argv, err := shellquote.Split(command)
	if err != nil {
		return nil, fmt.Errorf("ptydriver: invalid command %q: %w", command, err)
	}
	return argv, nil
}

// PID returns the child process id.
func (d *Driver) PID() int {
	if d.cmd.Process == nil {
		return 0
	}
	return d.cmd.Process.Pid
}

// Output returns the channel of output byte chunks read from the PTY. It
// is closed once the PTY read loop terminates (child exit or read error).
func (d *Driver) Output() <-chan []byte {
	return d.output
}

// Exit returns a channel that receives the child's exit status exactly
// once, after the child process has terminated.
func (d *Driver) Exit() <-chan int {
	return d.exit
}

func (d *Driver) readPump() {
	buf := make([]byte, readChunkSize)
	for {
		n, err := d.ptmx.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			d.output <- chunk
		}
		if err != nil {
			break
		}
	}
	close(d.output)
}

func (d *Driver) waitExit() {
	err := d.cmd.Wait()

	status := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			status = exitErr.ExitCode()
			if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
				status = -int(ws.Signal())
			}
		} else {
			status = -1
		}
	}

	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.exit <- status
	close(d.exit)
}

// Write sends data to the PTY master, forwarding it to the child's stdin.
func (d *Driver) Write(data []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ErrClosed
	}
	return d.ptmx.Write(data)
}

// Resize changes the PTY window size.
func (d *Driver) Resize(cols, rows uint16) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	return creackpty.Setsize(d.ptmx, &creackpty.Winsize{Cols: cols, Rows: rows})
}

// Close terminates the child process and releases the PTY file descriptor.
// Safe to call multiple times.
func (d *Driver) Close() error {
	d.mu.Lock()
	closed := d.closed
	d.closed = true
	d.mu.Unlock()

	if closed {
		return nil
	}

	if d.cmd.Process != nil {
		_ = d.cmd.Process.Signal(syscall.SIGTERM)
	}
	return d.ptmx.Close()
}
