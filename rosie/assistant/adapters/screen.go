package adapters

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	ports "github.com/ZanzyTHEbar/rosie-cli/rosie/assistant/ports"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/iter"
)

//go:embed assets/screenshot.py
var screenshotScript []byte

// PythonScreenCapturer captures displays with a small mss helper script.
type PythonScreenCapturer struct {
	python string
	script []byte
	logger zerolog.Logger
}

// NewPythonScreenCapturer uses the given interpreter, "python" when empty.
func NewPythonScreenCapturer(python string, logger zerolog.Logger) *PythonScreenCapturer {
	if python == "" {
		python = "python"
	}
	return &PythonScreenCapturer{python: python, script: screenshotScript, logger: logger}
}

type capturedFile struct {
	shot ports.Screenshot
	err  error
}

// Capture runs the helper and returns one screenshot per display, in display order.
func (c *PythonScreenCapturer) Capture(ctx context.Context) ([]ports.Screenshot, error) {
	scriptFile, err := os.CreateTemp("", "rosie-screenshot-*.py")
	if err != nil {
		return nil, fmt.Errorf("failed to stage screenshot script: %w", err)
	}
	defer os.Remove(scriptFile.Name())

	if _, err := scriptFile.Write(c.script); err != nil {
		scriptFile.Close()
		return nil, fmt.Errorf("failed to stage screenshot script: %w", err)
	}
	if err := scriptFile.Close(); err != nil {
		return nil, fmt.Errorf("failed to stage screenshot script: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.python, scriptFile.Name())
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("screenshot script failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		if p := strings.TrimSpace(strings.TrimSuffix(line, "\r")); p != "" {
			paths = append(paths, p)
		}
	}

	files := iter.Map(paths, func(path *string) capturedFile {
		defer os.Remove(*path)
		data, err := os.ReadFile(*path)
		if err != nil {
			return capturedFile{err: err}
		}
		return capturedFile{shot: ports.Screenshot{Label: filepath.Base(*path), Image: data}}
	})

	shots := make([]ports.Screenshot, 0, len(files))
	for i, f := range files {
		if f.err != nil {
			c.logger.Warn().Err(f.err).Str("path", paths[i]).Msg("skipping unreadable screenshot")
			continue
		}
		shots = append(shots, f.shot)
	}
	return shots, nil
}

var _ ports.ScreenCapturer = (*PythonScreenCapturer)(nil)
