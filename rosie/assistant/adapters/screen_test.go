package adapters

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPythonScreenCapturer_ReadsAndRemovesFiles(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh in place of the python interpreter")
	}
	dir := t.TempDir()
	first := filepath.Join(dir, "display-1-a.png")
	second := filepath.Join(dir, "display-2-b.png")

	c := &PythonScreenCapturer{
		python: "sh",
		script: []byte("printf one > " + first + "\nprintf two > " + second + "\necho " + first + "\necho " + second + "\n"),
		logger: zerolog.Nop(),
	}

	shots, err := c.Capture(context.Background())
	require.NoError(t, err)

	require.Len(t, shots, 2)
	assert.Equal(t, "display-1-a.png", shots[0].Label)
	assert.Equal(t, []byte("one"), shots[0].Image)
	assert.Equal(t, "display-2-b.png", shots[1].Label)
	assert.Equal(t, []byte("two"), shots[1].Image)

	_, err = os.Stat(first)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(second)
	assert.True(t, os.IsNotExist(err))
}

func TestPythonScreenCapturer_SkipsUnreadable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh in place of the python interpreter")
	}
	dir := t.TempDir()
	present := filepath.Join(dir, "display-1.png")

	c := &PythonScreenCapturer{
		python: "sh",
		script: []byte("printf img > " + present + "\necho " + present + "\necho " + filepath.Join(dir, "gone.png") + "\n"),
		logger: zerolog.Nop(),
	}

	shots, err := c.Capture(context.Background())
	require.NoError(t, err)
	require.Len(t, shots, 1)
	assert.Equal(t, "display-1.png", shots[0].Label)
}

func TestPythonScreenCapturer_NonZeroExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh in place of the python interpreter")
	}
	c := &PythonScreenCapturer{python: "sh", script: []byte("echo 'No module named mss' >&2\nexit 1\n"), logger: zerolog.Nop()}

	_, err := c.Capture(context.Background())
	assert.ErrorContains(t, err, "No module named mss")
}

func TestNewPythonScreenCapturer_EmbedsScript(t *testing.T) {
	c := NewPythonScreenCapturer("", zerolog.Nop())
	assert.Equal(t, "python", c.python)
	assert.Contains(t, string(c.script), "import mss")
}
