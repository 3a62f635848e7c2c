// Package builder runs the documentation build command under a
// pseudo-terminal and streams its output.
package builder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
)

const maxLineSize = 1 << 20

type Builder struct {
	command string
	dir     string
	logger  *log.Logger

	mu       sync.Mutex
	running  bool
	pending  bool
	finished time.Time
}

// New returns a builder running command through sh -c inside dir. Every
// output line is written through logger.
func New(command, dir string, logger *log.Logger) *Builder {
	return &Builder{
		command: command,
		dir:     dir,
		logger:  logger,
	}
}

// Run executes the command once and waits for it.
func (b *Builder) Run(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", b.command)
	cmd.Dir = b.dir

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("start %q: %w", b.command, err)
	}
	defer func() { _ = ptmx.Close() }()

	readErr := b.stream(ptmx)
	if readErr != nil {
		// Keep the child from blocking on a full pty.
		_, _ = io.Copy(io.Discard, ptmx)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("run %q: %w", b.command, err)
	}
	if readErr != nil {
		return fmt.Errorf("read output of %q: %w", b.command, readErr)
	}
	return nil
}

// stream logs the output line by line. Lines longer than maxLineSize are
// logged in maxLineSize chunks. Reading ends with EIO once the child closes
// its side of the pty, which is not an error.
func (b *Builder) stream(r io.Reader) error {
	br := bufio.NewReaderSize(r, maxLineSize)
	for {
		line, err := br.ReadSlice('\n')
		if len(line) > 0 {
			b.logger.Println(strings.TrimRight(string(line), "\r\n"))
		}
		switch {
		case err == nil, errors.Is(err, bufio.ErrBufferFull):
		case errors.Is(err, io.EOF), errors.Is(err, syscall.EIO):
			return nil
		default:
			return err
		}
	}
}

// Settling reports whether a build is running or finished less than window
// ago. File changes seen in that span are usually the build's own output.
func (b *Builder) Settling(window time.Duration) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running || time.Since(b.finished) < window
}

// Trigger starts a build in the background and calls done with its result.
// Triggers arriving while a build runs collapse into a single follow-up
// build.
func (b *Builder) Trigger(ctx context.Context, done func(error)) {
	b.mu.Lock()
	if b.running {
		b.pending = true
		b.mu.Unlock()
		return
	}
	b.running = true
	b.mu.Unlock()

	go func() {
		for {
			err := b.Run(ctx)
			b.mu.Lock()
			b.finished = time.Now()
			b.mu.Unlock()
			if done != nil {
				done(err)
			}

			b.mu.Lock()
			if !b.pending || ctx.Err() != nil {
				b.running = false
				b.pending = false
				b.mu.Unlock()
				return
			}
			b.pending = false
			b.mu.Unlock()
		}
	}()
}
