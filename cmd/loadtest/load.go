package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Batch       int
	Words       []string
}

type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64
	words         atomic.Int64
	cacheHits     atomic.Int64
	latencies     []time.Duration
	latenciesMu   sync.Mutex
	statusCodes   map[int]*atomic.Int64
	statusCodesMu sync.Mutex
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]*atomic.Int64),
	}
}

func (s *Stats) RecordRequest(duration time.Duration, statusCode int, err error) {
	s.totalRequests.Add(1)

	if err != nil {
		s.errorCount.Add(1)
		return
	}

	if statusCode >= 200 && statusCode < 300 {
		s.successCount.Add(1)
	} else {
		s.errorCount.Add(1)
	}

	s.latenciesMu.Lock()
	s.latencies = append(s.latencies, duration)
	s.latenciesMu.Unlock()

	s.statusCodesMu.Lock()
	if _, ok := s.statusCodes[statusCode]; !ok {
		s.statusCodes[statusCode] = &atomic.Int64{}
	}
	s.statusCodes[statusCode].Add(1)
	s.statusCodesMu.Unlock()
}

// segmentResult is the part of a segmentation response the load test reads.
type segmentResult struct {
	Cached bool `json:"cached"`
}

func (s *Stats) recordResults(results []segmentResult) {
	s.words.Add(int64(len(results)))
	for _, r := range results {
		if r.Cached {
			s.cacheHits.Add(1)
		}
	}
}

func newClient(concurrency int) *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        concurrency * 2,
			MaxIdleConnsPerHost: concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Run sends requests from cfg.Concurrency workers until cfg.Duration
// elapses or ctx is cancelled. Worker i starts at word i and walks the list.
func Run(ctx context.Context, cfg Config, client *http.Client) *Stats {
	stats := NewStats()
	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < max(1, cfg.Concurrency); w++ {
		g.Go(func() error {
			next := w
			for ctx.Err() == nil {
				req, err := buildRequest(ctx, cfg, next)
				if err != nil {
					return err
				}
				next += max(1, cfg.Batch)

				start := time.Now()
				resp, err := client.Do(req)
				duration := time.Since(start)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					stats.RecordRequest(duration, 0, err)
					continue
				}
				stats.RecordRequest(duration, resp.StatusCode, nil)
				if resp.StatusCode == http.StatusOK {
					stats.recordResults(decodeResults(resp.Body, cfg.Batch > 0))
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
			}
			return nil
		})
	}
	g.Wait()
	return stats
}

func buildRequest(ctx context.Context, cfg Config, next int) (*http.Request, error) {
	if cfg.Batch <= 0 {
		word := cfg.Words[next%len(cfg.Words)]
		u := fmt.Sprintf("%s/api/v1/segment?word=%s", cfg.BaseURL, url.QueryEscape(word))
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}
	words := make([]string, cfg.Batch)
	for i := range words {
		words[i] = cfg.Words[(next+i)%len(cfg.Words)]
	}
	body, err := json.Marshal(map[string][]string{"words": words})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+"/api/v1/segment", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func decodeResults(body io.Reader, batch bool) []segmentResult {
	if !batch {
		var r segmentResult
		if err := json.NewDecoder(body).Decode(&r); err != nil {
			return nil
		}
		return []segmentResult{r}
	}
	var resp struct {
		Results []segmentResult `json:"results"`
	}
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil
	}
	return resp.Results
}

// Report prints the summary. It fails when no request completed.
func (s *Stats) Report(w io.Writer, duration time.Duration) error {
	total := s.totalRequests.Load()
	success := s.successCount.Load()
	failed := s.errorCount.Load()

	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", total)
	fmt.Fprintf(w, "Successful:      %d\n", success)
	fmt.Fprintf(w, "Errors:          %d\n", failed)
	if total > 0 {
		fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(failed)/float64(total)*100)
		fmt.Fprintf(w, "Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}
	if words := s.words.Load(); words > 0 {
		fmt.Fprintf(w, "Words Segmented: %d\n", words)
		fmt.Fprintf(w, "Cache Hit Rate:  %.1f%%\n", float64(s.cacheHits.Load())/float64(words)*100)
	}

	s.latenciesMu.Lock()
	latencies := make([]time.Duration, len(s.latencies))
	copy(latencies, s.latencies)
	s.latenciesMu.Unlock()

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool {
			return latencies[i] < latencies[j]
		})

		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))

		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Latency ===")
		fmt.Fprintf(w, "Min:    %s\n", latencies[0])
		fmt.Fprintf(w, "Avg:    %s\n", avg)
		fmt.Fprintf(w, "P50:    %s\n", percentile(latencies, 50))
		fmt.Fprintf(w, "P90:    %s\n", percentile(latencies, 90))
		fmt.Fprintf(w, "P99:    %s\n", percentile(latencies, 99))
		fmt.Fprintf(w, "Max:    %s\n", latencies[len(latencies)-1])

		var sumSquared float64
		for _, l := range latencies {
			diff := float64(l - avg)
			sumSquared += diff * diff
		}
		fmt.Fprintf(w, "StdDev: %s\n", time.Duration(math.Sqrt(sumSquared/float64(len(latencies)))))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Status Codes ===")
	s.statusCodesMu.Lock()
	codes := make([]int, 0, len(s.statusCodes))
	for code := range s.statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %d\n", code, s.statusCodes[code].Load())
	}
	s.statusCodesMu.Unlock()

	if total == 0 {
		return errors.New("no requests completed, is the service running?")
	}
	return nil
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
