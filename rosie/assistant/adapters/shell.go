package adapters

import (
	"bytes"
	"context"
	"os/exec"
	"runtime"

	ports "github.com/ZanzyTHEbar/rosie-cli/rosie/assistant/ports"
)

// HostShell runs command lines through the platform shell.
type HostShell struct {
	Dir string // working directory, the process cwd when empty
}

// Run executes command with sh -c (cmd /C on Windows) and collects both streams.
func (h HostShell) Run(ctx context.Context, command string) (ports.CommandOutput, error) {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/C", command)
	} else {
		cmd = exec.CommandContext(ctx, "sh", "-c", command)
	}
	cmd.Dir = h.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return ports.CommandOutput{Stdout: stdout.String(), Stderr: stderr.String()}, err
}

var _ ports.CommandRunner = HostShell{}
