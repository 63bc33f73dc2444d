// Package pty spawns the host shell behind a pseudo-terminal and pipes its
// byte stream to and from the terminal emulator core.
package pty

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"

	"github.com/creack/pty"

	"rfbterm/internal/logging"
)

// safeEnvVars is an environment allowlist: only pass through variables a
// shell actually needs, never the full parent environment.
var safeEnvVars = []string{"TERM", "SHELL", "LANG", "LC_ALL", "PATH", "USER", "HOME"}

// PTY owns one spawned shell process and its pseudo-terminal master fd.
type PTY struct {
	cmd *exec.Cmd
	f   *os.File

	resizeMu sync.Mutex
}

// Options configures a spawned shell.
type Options struct {
	Shell  string
	Args   []string
	Cwd    string
	Width  int
	Height int
	Term   string
}

// Spawn starts the shell (or Options.Args[0] if set) attached to a new
// pseudo-terminal sized to Width x Height.
func Spawn(opts Options) (*PTY, error) {
	shell := opts.Shell
	if shell == "" {
		shell = os.Getenv("SHELL")
	}
	if shell == "" {
		shell = "/bin/bash"
	}

	cmdline := opts.Args
	if len(cmdline) == 0 {
		cmdline = []string{shell}
	}

	cmd := exec.Command(cmdline[0], cmdline[1:]...)

	if opts.Cwd != "" {
		if _, err := os.Stat(opts.Cwd); err != nil {
			return nil, fmt.Errorf("pty: working directory %q not accessible: %w", opts.Cwd, err)
		}
		cmd.Dir = opts.Cwd
	}

	env := make([]string, 0, len(safeEnvVars))
	for _, v := range os.Environ() {
		parts := strings.SplitN(v, "=", 2)
		if len(parts) != 2 {
			continue
		}
		for _, safe := range safeEnvVars {
			if parts[0] == safe {
				env = append(env, v)
				break
			}
		}
	}
	termName := opts.Term
	if termName == "" {
		termName = "xterm"
	}
	if !hasPrefix(env, "TERM=") {
		env = append(env, "TERM="+termName)
	}
	if !hasPrefix(env, "SHELL=") {
		env = append(env, "SHELL="+cmdline[0])
	}
	cmd.Env = env

	f, err := pty.Start(cmd)
	if err != nil {
		return nil, fmt.Errorf("pty: failed to start: %w", err)
	}

	if err := pty.Setsize(f, &pty.Winsize{Rows: uint16(opts.Height), Cols: uint16(opts.Width)}); err != nil {
		f.Close()
		cmd.Process.Kill()
		return nil, fmt.Errorf("pty: failed to set initial size: %w", err)
	}

	return &PTY{cmd: cmd, f: f}, nil
}

func hasPrefix(env []string, prefix string) bool {
	for _, v := range env {
		if strings.HasPrefix(v, prefix) {
			return true
		}
	}
	return false
}

// Pid returns the spawned process id, or 0 if the process hasn't started.
func (p *PTY) Pid() int {
	if p.cmd.Process != nil {
		return p.cmd.Process.Pid
	}
	return 0
}

// Run blocks reading the PTY master, invoking onOutput for every chunk
// read, until the shell exits or the PTY is closed. It returns the shell's
// exit error, or nil on a clean exit.
func (p *PTY) Run(onOutput func([]byte)) error {
	buf := make([]byte, 32*1024)
	for {
		n, err := p.f.Read(buf)
		if n > 0 {
			onOutput(buf[:n])
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			logging.Warnf("pty: read error: %v", err)
			break
		}
	}
	return p.cmd.Wait()
}

// Write sends bytes to the shell's stdin: DA/DSR replies and keyboard
// input forwarded from the terminal emulator.
func (p *PTY) Write(b []byte) (int, error) {
	return p.f.Write(b)
}

// Resize changes the pseudo-terminal's window size, triggering SIGWINCH in
// the child shell.
func (p *PTY) Resize(width, height int) error {
	p.resizeMu.Lock()
	defer p.resizeMu.Unlock()
	return pty.Setsize(p.f, &pty.Winsize{Rows: uint16(height), Cols: uint16(width)})
}

// Close closes the pseudo-terminal master and reaps any zombie children.
func (p *PTY) Close() error {
	err := p.f.Close()
	for {
		var status syscall.WaitStatus
		pid, werr := syscall.Wait4(-1, &status, syscall.WNOHANG, nil)
		if werr != nil || pid <= 0 {
			break
		}
	}
	return err
}
