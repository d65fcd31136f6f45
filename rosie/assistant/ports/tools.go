package assistantports

import (
	"context"
)

// SearchOptions mirror the switches of the indexing tool.
type SearchOptions struct {
	Regex      bool
	MatchCase  bool
	MatchPath  bool
	WholeWord  bool
	MaxResults int
}

// SearchResult is one file or folder reported by the indexing tool.
type SearchResult struct {
	Path     string `json:"path"`
	Name     string `json:"name"`
	IsFolder bool   `json:"isFolder"`
}

// Searcher queries the host file index. It fails when the tool is unavailable.
type Searcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// Screenshot is the capture of one display.
type Screenshot struct {
	Label string
	Image []byte // PNG
}

// ScreenCapturer grabs every attached display.
type ScreenCapturer interface {
	Capture(ctx context.Context) ([]Screenshot, error)
}

// Operator is the interactive human gate. Confirm blocks until the operator answers
// or ctx is cancelled.
type Operator interface {
	Confirm(ctx context.Context, title, message string) (bool, error)
}

// CommandOutput is what a host shell produced for one command.
type CommandOutput struct {
	Stdout string
	Stderr string
}

// CommandRunner executes a command line in the host shell. A non-nil error means the
// command could not be started or exited unsuccessfully; output is still populated.
type CommandRunner interface {
	Run(ctx context.Context, command string) (CommandOutput, error)
}
