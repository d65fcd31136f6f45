package adapters

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ports "github.com/ZanzyTHEbar/rosie-cli/rosie/assistant/ports"
)

// writeFakeTool writes an executable shell script standing in for the search CLI.
func writeFakeTool(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tool scripts need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "fake-search")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestCLISearcher_EverythingCSV(t *testing.T) {
	dir := t.TempDir()
	tool := writeFakeTool(t, `printf 'Filename\n"%s"\n"C:\\Users\\me\\notes.txt"\n"C:\\Users\\me\\Projects"\n' "`+dir+`"`)

	s, err := NewCLISearcher(SearchConfig{Backend: SearchBackendEverything, ToolPath: tool}, zerolog.Nop())
	require.NoError(t, err)

	results, err := s.Search(context.Background(), "notes")
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, ports.SearchResult{Path: dir, Name: filepath.Base(dir), IsFolder: true}, results[0])
	assert.Equal(t, ports.SearchResult{Path: `C:\Users\me\notes.txt`, Name: "notes.txt", IsFolder: false}, results[1])
	assert.Equal(t, ports.SearchResult{Path: `C:\Users\me\Projects`, Name: "Projects", IsFolder: true}, results[2])
}

func TestCLISearcher_PassesOptions(t *testing.T) {
	tool := writeFakeTool(t, `echo "$@" >&2; exit 3`)

	s, err := NewCLISearcher(SearchConfig{
		Backend:  SearchBackendEverything,
		ToolPath: tool,
		Options:  ports.SearchOptions{Regex: true, MatchCase: true, WholeWord: true, MaxResults: 5},
	}, zerolog.Nop())
	require.NoError(t, err)

	_, err = s.Search(context.Background(), "report")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-csv -regex -case -whole-word -max-results 5 report")
}

func TestCLISearcher_LocateArgs(t *testing.T) {
	tool := writeFakeTool(t, "true")
	s, err := NewCLISearcher(SearchConfig{Backend: SearchBackendLocate, ToolPath: tool, Options: ports.SearchOptions{MaxResults: 7}}, zerolog.Nop())
	require.NoError(t, err)

	_, args, err := s.command("*.pdf")
	require.NoError(t, err)
	assert.Equal(t, []string{"-i", "-b", "-l", "7", "*.pdf"}, args)
}

func TestCLISearcher_LocateNoMatches(t *testing.T) {
	tool := writeFakeTool(t, "exit 1")
	s, err := NewCLISearcher(SearchConfig{Backend: SearchBackendLocate, ToolPath: tool}, zerolog.Nop())
	require.NoError(t, err)

	results, err := s.Search(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCLISearcher_ToolMissing(t *testing.T) {
	s, err := NewCLISearcher(SearchConfig{Backend: SearchBackendEverything, ToolPath: filepath.Join(t.TempDir(), "es.exe")}, zerolog.Nop())
	require.NoError(t, err)

	_, err = s.Search(context.Background(), "x")

	var notFound *ToolNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCLISearcher_IgnoreFile(t *testing.T) {
	ignore := filepath.Join(t.TempDir(), ".rosieignore")
	require.NoError(t, os.WriteFile(ignore, []byte("node_modules/\n*.tmp\n"), 0o644))
	tool := writeFakeTool(t, `printf '/home/me/app/node_modules/x/index.js\n/home/me/app/main.go\n/home/me/scratch.tmp\n'`)

	s, err := NewCLISearcher(SearchConfig{Backend: SearchBackendLocate, ToolPath: tool, IgnoreFile: ignore}, zerolog.Nop())
	require.NoError(t, err)

	results, err := s.Search(context.Background(), "x")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "/home/me/app/main.go", results[0].Path)
}

func TestCLISearcher_UnknownBackend(t *testing.T) {
	s, err := NewCLISearcher(SearchConfig{Backend: "spotlight"}, zerolog.Nop())
	require.NoError(t, err)

	_, err = s.Search(context.Background(), "x")
	assert.ErrorContains(t, err, "unsupported search backend")
}

func TestParseEverythingCSV_NoHeader(t *testing.T) {
	paths, err := parseEverythingCSV(strings.NewReader("\"D:\\a.txt\"\n\"D:\\b\"\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{`D:\a.txt`, `D:\b`}, paths)
}

func TestBaseNameAndFolderHeuristic(t *testing.T) {
	assert.Equal(t, "file.txt", baseName(`C:\dir\file.txt`))
	assert.Equal(t, "dir", baseName(`C:\dir\`))
	assert.Equal(t, "b", baseName("/a/b"))

	assert.True(t, isFolder(`Z:\no\such\Folder\`))
	assert.True(t, isFolder(`Z:\no\such\Folder`))
	assert.False(t, isFolder(`Z:\no\such\file.md`))
}
