//go:build !windows

// Package stderr captures output that C audio backends (ALSA through oto)
// write directly to file descriptor 2, bypassing Go's os.Stderr, and hands
// it to a line handler instead of the terminal.
package stderr

import (
	"bufio"
	"os"
	"strings"
	"syscall"
)

// Capture is an active redirection of fd 2.
type Capture struct {
	orig      *os.File
	pipeRead  *os.File
	pipeWrite *os.File
	done      chan struct{}
	stopped   bool
}

// Start redirects fd 2 into a pipe and calls handle for every non-empty
// line from a background goroutine. Call it before the audio device opens.
// On error the process keeps its original stderr.
func Start(handle func(line string)) (*Capture, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}

	// Save original stderr file descriptor
	origFd, err := syscall.Dup(int(os.Stderr.Fd()))
	if err != nil {
		r.Close()
		w.Close()
		return nil, err
	}

	// Redirect stderr (fd 2) to the pipe's write end
	if err := syscall.Dup2(int(w.Fd()), int(os.Stderr.Fd())); err != nil {
		syscall.Close(origFd)
		r.Close()
		w.Close()
		return nil, err
	}

	c := &Capture{
		orig:      os.NewFile(uintptr(origFd), "stderr"),
		pipeRead:  r,
		pipeWrite: w,
		done:      make(chan struct{}),
	}
	go func() {
		defer close(c.done)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				handle(line)
			}
		}
	}()
	return c, nil
}

// Original returns the terminal stderr saved by Start. Loggers must write
// here, or their own output would be captured again.
func (c *Capture) Original() *os.File {
	return c.orig
}

// Stop restores the original stderr and waits for buffered lines to be
// handled. It is idempotent.
func (c *Capture) Stop() {
	if c.stopped {
		return
	}
	c.stopped = true

	_ = syscall.Dup2(int(c.orig.Fd()), int(os.Stderr.Fd()))
	// fd 2 no longer refers to the pipe; closing the last writer ends the scan.
	c.pipeWrite.Close()
	<-c.done
	c.pipeRead.Close()
	c.orig.Close()
}
