package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSegmenter answers like segserver and reports a word as cached from its
// second request on.
func fakeSegmenter(t *testing.T) *httptest.Server {
	var mu sync.Mutex
	seen := map[string]bool{}
	cached := func(word string) bool {
		mu.Lock()
		defer mu.Unlock()
		hit := seen[word]
		seen[word] = true
		return hit
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/segment", func(w http.ResponseWriter, r *http.Request) {
		word := r.URL.Query().Get("word")
		json.NewEncoder(w).Encode(map[string]any{"word": word, "segments": []string{word}, "cached": cached(word)})
	})
	mux.HandleFunc("POST /api/v1/segment", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Words []string `json:"words"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		results := make([]map[string]any, len(req.Words))
		for i, word := range req.Words {
			results[i] = map[string]any{"word": word, "cached": cached(word)}
		}
		json.NewEncoder(w).Encode(map[string]any{"results": results})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRun(t *testing.T) {
	srv := fakeSegmenter(t)
	tests := []struct {
		name  string
		batch int
	}{
		{"single", 0},
		{"batch", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{
				BaseURL:     srv.URL,
				Concurrency: 2,
				Duration:    200 * time.Millisecond,
				Batch:       tt.batch,
				Words:       []string{"walked", "talked"},
			}
			stats := Run(context.Background(), cfg, srv.Client())

			total := stats.totalRequests.Load()
			require.Greater(t, total, int64(2))
			assert.Equal(t, total, stats.successCount.Load())
			assert.Greater(t, stats.cacheHits.Load(), int64(0))
			assert.LessOrEqual(t, stats.cacheHits.Load(), stats.words.Load())

			var out bytes.Buffer
			require.NoError(t, stats.Report(&out, cfg.Duration))
			assert.Contains(t, out.String(), "Cache Hit Rate:")
			assert.Contains(t, out.String(), "200: ")
		})
	}
}

func TestReport_NoRequests(t *testing.T) {
	var out bytes.Buffer
	err := NewStats().Report(&out, time.Second)
	assert.Error(t, err)
	assert.Contains(t, out.String(), "Total Requests:  0")
}

func TestPercentile(t *testing.T) {
	sorted := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, time.Duration(5), percentile(sorted, 50))
	assert.Equal(t, time.Duration(9), percentile(sorted, 90))
	assert.Equal(t, time.Duration(10), percentile(sorted, 99))
	assert.Equal(t, time.Duration(1), percentile(sorted, 0))
	assert.Equal(t, time.Duration(0), percentile(nil, 50))
}

func TestLoadWords_Distinct(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(path, []byte("walk talk walk\n# comment\ntalking\n"), 0o644))
	words, err := loadWords(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"walk", "talk", "talking"}, words)

	empty := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("# nothing\n"), 0o644))
	_, err = loadWords(empty)
	assert.Error(t, err)
}
