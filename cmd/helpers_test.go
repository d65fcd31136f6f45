package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// resetFlags clears flag state left behind by earlier executions of the shared commands.
func resetFlags() {
	verbose = false
	configPath = ""
	openAIKey = ""
	thinking = false
	setOpenAIKey = ""
	setConversationID = ""
	showConfig = false
	historyFormat = "text"

	var walk func(c *cobra.Command)
	walk = func(c *cobra.Command) {
		for _, name := range []string{"help", "version"} {
			if f := c.Flags().Lookup(name); f != nil {
				_ = f.Value.Set("false")
				f.Changed = false
			}
		}
		for _, sub := range c.Commands() {
			walk(sub)
		}
	}
	walk(rootCmd)
}

// testEnv is an isolated store directory plus a config file pointing at it.
type testEnv struct {
	dir        string
	configFile string
}

func newTestEnv(t *testing.T, baseURL string) *testEnv {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ROSIE_LLM_API_KEY", "")

	dir := t.TempDir()
	var cfg strings.Builder
	cfg.WriteString("store:\n  dir: \"" + filepath.ToSlash(dir) + "\"\n")
	if baseURL != "" {
		cfg.WriteString("llm:\n  base_url: \"" + baseURL + "\"\n")
	}

	configFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte(cfg.String()), 0o644))
	return &testEnv{dir: dir, configFile: configFile}
}

func (e *testEnv) path(name string) string { return filepath.Join(e.dir, name) }

// run executes the root command with the env's config and returns stdout.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)

	var stdout, stderr bytes.Buffer
	rootCmd.SetArgs(append([]string{"--config", e.configFile}, args...))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(""))

	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

// chatServer answers chat completions with the queued contents, in order.
type chatServer struct {
	*httptest.Server

	mu       sync.Mutex
	replies  []string
	requests []map[string]any
}

func newChatServer(t *testing.T, replies ...string) *chatServer {
	t.Helper()
	s := &chatServer{replies: replies}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

func (s *chatServer) baseURL() string { return s.URL + "/v1" }

func (s *chatServer) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	s.requests = append(s.requests, body)

	if r.URL.Path != "/v1/chat/completions" || len(s.replies) == 0 {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "unexpected request", "type": "server_error"}}`))
		return
	}

	content := s.replies[0]
	s.replies = s.replies[1:]

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
}

func (s *chatServer) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}
