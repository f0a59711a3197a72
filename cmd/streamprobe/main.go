// streamprobe replays generation requests against a running storycut
// instance and reports time-to-first-fragment and total stream latency.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"
)

type options struct {
	baseURL    string
	prompt     string
	model      string
	lengthMode string
	runs       int
	verbose    bool
}

type generateRequest struct {
	Prompt     string `json:"prompt"`
	Model      string `json:"model"`
	LengthMode string `json:"lengthMode,omitempty"`
}

type contentEvent struct {
	Content string `json:"content"`
	Error   string `json:"error"`
}

type runStats struct {
	firstFragment time.Duration
	total         time.Duration
	fragments     int
	chars         int
}

func main() {
	cfg, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "streamprobe: %v\n", err)
		os.Exit(2)
	}
	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "streamprobe: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var cfg options
	flag.StringVar(&cfg.baseURL, "base-url", "http://127.0.0.1:8080", "storycut base URL")
	flag.StringVar(&cfg.prompt, "prompt", "Once upon a time", "prompt sent on every run")
	flag.StringVar(&cfg.model, "model", "llama3", "model identifier")
	flag.StringVar(&cfg.lengthMode, "length-mode", "sentence", "stopping granularity (word|sentence|paragraph|page)")
	flag.IntVar(&cfg.runs, "runs", 10, "number of generation requests to replay")
	flag.BoolVar(&cfg.verbose, "verbose", false, "print per-run progress")
	flag.Parse()

	cfg.baseURL = strings.TrimRight(strings.TrimSpace(cfg.baseURL), "/")
	if cfg.baseURL == "" {
		return options{}, fmt.Errorf("base-url is required")
	}
	if cfg.runs <= 0 {
		return options{}, fmt.Errorf("runs must be > 0")
	}
	return cfg, nil
}

func run(cfg options) error {
	stats := make([]runStats, 0, cfg.runs)
	for i := 0; i < cfg.runs; i++ {
		st, err := probeOnce(cfg)
		if err != nil {
			return fmt.Errorf("run %d: %w", i+1, err)
		}
		if cfg.verbose {
			fmt.Printf("run %d: first=%s total=%s fragments=%d chars=%d\n",
				i+1, st.firstFragment.Round(time.Millisecond), st.total.Round(time.Millisecond), st.fragments, st.chars)
		}
		stats = append(stats, st)
	}
	report(stats)
	return nil
}

func probeOnce(cfg options) (runStats, error) {
	body, err := json.Marshal(generateRequest{
		Prompt:     cfg.prompt,
		Model:      cfg.model,
		LengthMode: cfg.lengthMode,
	})
	if err != nil {
		return runStats{}, err
	}

	start := time.Now()
	res, err := http.Post(cfg.baseURL+"/v1/generate", "application/json", bytes.NewReader(body))
	if err != nil {
		return runStats{}, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return runStats{}, fmt.Errorf("status %d", res.StatusCode)
	}

	var st runStats
	scanner := bufio.NewScanner(res.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}
		var evt contentEvent
		if err := json.Unmarshal([]byte(data), &evt); err != nil {
			continue
		}
		if evt.Error != "" {
			return runStats{}, fmt.Errorf("stream error: %s", evt.Error)
		}
		if st.fragments == 0 {
			st.firstFragment = time.Since(start)
		}
		st.fragments++
		st.chars += len(evt.Content)
	}
	if err := scanner.Err(); err != nil {
		return runStats{}, err
	}
	st.total = time.Since(start)
	return st, nil
}

func report(stats []runStats) {
	firsts := make([]time.Duration, len(stats))
	totals := make([]time.Duration, len(stats))
	for i, st := range stats {
		firsts[i] = st.firstFragment
		totals[i] = st.total
	}
	fmt.Printf("runs: %d\n", len(stats))
	fmt.Printf("first fragment: p50=%s p95=%s\n", percentile(firsts, 50), percentile(firsts, 95))
	fmt.Printf("total:          p50=%s p95=%s\n", percentile(totals, 50), percentile(totals, 95))
}

func percentile(durations []time.Duration, p int) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := (len(sorted) - 1) * p / 100
	return sorted[idx].Round(time.Millisecond)
}
