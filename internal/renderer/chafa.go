package renderer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"pixelterm/internal/logging"
)

// DefaultBinary is the renderer executable looked up on PATH.
const DefaultBinary = "chafa"

var baseArgs = []string{
	"--color-space", "rgb",
	"--dither", "none",
	"--relative", "off",
	"--optimize", "9",
	"--margin-right", "0",
	"--work", "9",
}

// Chafa renders images by running the chafa binary.
type Chafa struct {
	binary     string
	extraArgs  []string
	timeout    time.Duration
	logger     *slog.Logger
	cmdBuilder func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// ChafaOption configures a Chafa renderer.
type ChafaOption func(*Chafa)

// WithExtraArgs appends arguments after the built-in ones.
func WithExtraArgs(args ...string) ChafaOption {
	return func(c *Chafa) { c.extraArgs = append([]string(nil), args...) }
}

// WithTimeout bounds each render. Zero disables the bound.
func WithTimeout(d time.Duration) ChafaOption {
	return func(c *Chafa) { c.timeout = d }
}

// WithLogger sets the logger used for render diagnostics.
func WithLogger(logger *slog.Logger) ChafaOption {
	return func(c *Chafa) { c.logger = logger }
}

// NewChafa creates a renderer that runs binary (DefaultBinary when empty).
func NewChafa(binary string, opts ...ChafaOption) *Chafa {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = DefaultBinary
	}
	c := &Chafa{binary: binary}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "renderer")
	if c.cmdBuilder == nil {
		c.cmdBuilder = defaultCmdBuilder
	}
	return c
}

// Binary returns the configured executable.
func (c *Chafa) Binary() string { return c.binary }

// Args returns the command-line arguments used to render path.
func (c *Chafa) Args(path string, opts Options) []string {
	args := make([]string, 0, len(baseArgs)+len(c.extraArgs)+3)
	args = append(args, baseArgs...)
	if w, h, ok := opts.Size(); ok {
		args = append(args, "--size", strconv.Itoa(w)+"x"+strconv.Itoa(h))
	}
	args = append(args, c.extraArgs...)
	return append(args, path)
}

// Render runs the renderer for path and returns its stdout.
func (c *Chafa) Render(ctx context.Context, path string, opts Options) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	cmd := c.cmdBuilder(ctx, c.binary, c.Args(path, opts)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var cause error
		switch {
		case errors.Is(err, exec.ErrNotFound):
			cause = fmt.Errorf("%w: %w", ErrUnavailable, err)
		case ctx.Err() != nil:
			cause = ctx.Err()
		default:
			cause = err
		}
		return nil, &RenderError{Path: path, Stderr: stderr.String(), Err: cause}
	}

	c.logger.Debug("image rendered",
		logging.String(logging.FieldPath, path),
		logging.Int("bytes", stdout.Len()),
		logging.Duration("elapsed", time.Since(start)),
	)
	return stdout.Bytes(), nil
}

// Version returns the first line printed by the renderer's --version flag.
func (c *Chafa) Version(ctx context.Context) (string, error) {
	cmd := c.cmdBuilder(ctx, c.binary, "--version")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return "", fmt.Errorf("%s --version: %w", c.binary, err)
	}
	for _, line := range strings.Split(stdout.String(), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed, nil
		}
	}
	return "", fmt.Errorf("%s --version: empty output", c.binary)
}

func defaultCmdBuilder(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = time.Second
	return cmd
}
