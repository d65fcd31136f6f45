package adapters

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	ports "github.com/ZanzyTHEbar/rosie-cli/rosie/assistant/ports"
	"github.com/rs/zerolog"
	gitignore "github.com/sabhiram/go-gitignore"
)

// Search backends.
const (
	SearchBackendEverything = "everything"
	SearchBackendLocate     = "locate"
)

var everythingLocations = []string{
	`C:\Program Files\Everything\es.exe`,
	`C:\Program Files (x86)\Everything\es.exe`,
}

// ToolNotFoundError reports a missing external executable.
type ToolNotFoundError struct {
	Tool string
	Err  error
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("%s not found; install it or set search.tool_path", e.Tool)
}

func (e *ToolNotFoundError) Unwrap() error { return e.Err }

// SearchConfig configures CLISearcher.
type SearchConfig struct {
	Backend    string
	ToolPath   string
	IgnoreFile string
	Options    ports.SearchOptions
}

// CLISearcher queries a file index through its command line client.
type CLISearcher struct {
	cfg    SearchConfig
	ignore *gitignore.GitIgnore
	logger zerolog.Logger
}

// NewCLISearcher prepares a searcher; the ignore file, when set, must be readable.
func NewCLISearcher(cfg SearchConfig, logger zerolog.Logger) (*CLISearcher, error) {
	s := &CLISearcher{cfg: cfg, logger: logger}
	if cfg.IgnoreFile != "" {
		ign, err := gitignore.CompileIgnoreFile(cfg.IgnoreFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load ignore file %s: %w", cfg.IgnoreFile, err)
		}
		s.ignore = ign
	}
	return s, nil
}

// Search runs the configured backend and filters results through the ignore file.
func (s *CLISearcher) Search(ctx context.Context, query string) ([]ports.SearchResult, error) {
	tool, args, err := s.command(query)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().Str("tool", tool).Strs("args", args).Msg("running file search")

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		// locate exits 1 when nothing matched
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 && stdout.Len() == 0 && s.cfg.Backend == SearchBackendLocate {
			return []ports.SearchResult{}, nil
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("search failed: %s", msg)
	}

	var paths []string
	if s.cfg.Backend == SearchBackendLocate {
		paths = parseLines(stdout.String())
	} else {
		paths, err = parseEverythingCSV(&stdout)
		if err != nil {
			return nil, err
		}
	}

	results := make([]ports.SearchResult, 0, len(paths))
	for _, p := range paths {
		if s.ignored(p) {
			continue
		}
		results = append(results, ports.SearchResult{
			Path:     p,
			Name:     baseName(p),
			IsFolder: isFolder(p),
		})
	}
	return results, nil
}

func (s *CLISearcher) command(query string) (string, []string, error) {
	opts := s.cfg.Options
	if opts.MaxResults <= 0 {
		opts.MaxResults = 100
	}

	switch s.cfg.Backend {
	case SearchBackendLocate:
		tool, err := findTool(s.cfg.ToolPath, "locate", nil)
		if err != nil {
			return "", nil, err
		}
		var args []string
		if !opts.MatchCase {
			args = append(args, "-i")
		}
		if opts.Regex {
			args = append(args, "-r")
		}
		if !opts.MatchPath {
			args = append(args, "-b")
		}
		args = append(args, "-l", strconv.Itoa(opts.MaxResults), query)
		return tool, args, nil

	case SearchBackendEverything, "":
		tool, err := findTool(s.cfg.ToolPath, "es", everythingLocations)
		if err != nil {
			return "", nil, err
		}
		args := []string{"-csv"}
		if opts.Regex {
			args = append(args, "-regex")
		}
		if opts.MatchCase {
			args = append(args, "-case")
		}
		if opts.MatchPath {
			args = append(args, "-path-match")
		}
		if opts.WholeWord {
			args = append(args, "-whole-word")
		}
		args = append(args, "-max-results", strconv.Itoa(opts.MaxResults), query)
		return tool, args, nil

	default:
		return "", nil, fmt.Errorf("unsupported search backend %q", s.cfg.Backend)
	}
}

func (s *CLISearcher) ignored(path string) bool {
	if s.ignore == nil {
		return false
	}
	return s.ignore.MatchesPath(strings.ReplaceAll(path, `\`, "/"))
}

// findTool resolves the configured path, then well-known locations, then PATH.
func findTool(configured, name string, locations []string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", &ToolNotFoundError{Tool: configured, Err: err}
		}
		return configured, nil
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc, nil
		}
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", &ToolNotFoundError{Tool: name, Err: err}
	}
	return path, nil
}

// parseEverythingCSV reads es.exe -csv output: an optional "Filename" header, then one quoted path per row.
func parseEverythingCSV(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var paths []string
	first := true
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse search output: %w", err)
		}
		if len(record) == 0 {
			continue
		}
		field := strings.Trim(strings.TrimSpace(record[0]), `"`)
		if first {
			first = false
			if strings.EqualFold(field, "Filename") {
				continue
			}
		}
		if field != "" {
			paths = append(paths, field)
		}
	}
	return paths, nil
}

func parseLines(out string) []string {
	var paths []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			paths = append(paths, line)
		}
	}
	return paths
}

func baseName(path string) string {
	trimmed := strings.TrimRight(path, `\/`)
	if i := strings.LastIndexAny(trimmed, `\/`); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

// isFolder asks the filesystem first and falls back to the shape of the path.
func isFolder(path string) bool {
	if info, err := os.Stat(path); err == nil {
		return info.IsDir()
	}
	if strings.HasSuffix(path, `\`) || strings.HasSuffix(path, "/") {
		return true
	}
	return !strings.Contains(baseName(path), ".")
}

var _ ports.Searcher = (*CLISearcher)(nil)
