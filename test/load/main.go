// Load generator for the submit endpoint. It paces POST /api/v1/messages
// at a fixed rate and reports latency percentiles, so queue lag and worker
// sizing can be tuned against realistic traffic.
//
// Configuration is taken from the environment:
//
//	TARGET_URL          submit endpoint (default http://localhost:8080/api/v1/messages)
//	REQUESTS_PER_SECOND target rate (default 1000)
//	DURATION_SECONDS    how long to run (default 30)
//	CONCURRENT_WORKERS  sender goroutines (default 200)
//	GATEWAY_ID          gateway to submit against (default 1)
//	TEMPLATE_ID         optional; when set, half the submits go through the template path
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type submitBody struct {
	GatewayID   int64      `json:"gateway_id"`
	TemplateID  *int64     `json:"template_id,omitempty"`
	PhoneNumber string     `json:"phone_number"`
	Message     string     `json:"message,omitempty"`
	Record      *recordRef `json:"record,omitempty"`
}

type recordRef struct {
	Model string                 `json:"model"`
	Data  map[string]interface{} `json:"data"`
}

type runConfig struct {
	targetURL  string
	rate       int
	duration   time.Duration
	workers    int
	gatewayID  int64
	templateID int64
}

func configFromEnv() runConfig {
	return runConfig{
		targetURL:  envStr("TARGET_URL", "http://localhost:8080/api/v1/messages"),
		rate:       envInt("REQUESTS_PER_SECOND", 1000),
		duration:   time.Duration(envInt("DURATION_SECONDS", 30)) * time.Second,
		workers:    envInt("CONCURRENT_WORKERS", 200),
		gatewayID:  int64(envInt("GATEWAY_ID", 1)),
		templateID: int64(envInt("TEMPLATE_ID", 0)),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// tally collects per-request outcomes from the sender goroutines.
type tally struct {
	accepted atomic.Int64
	rejected atomic.Int64

	mu        sync.Mutex
	latencies []time.Duration
}

func (t *tally) record(latency time.Duration, ok bool) {
	if ok {
		t.accepted.Add(1)
	} else {
		t.rejected.Add(1)
	}
	t.mu.Lock()
	t.latencies = append(t.latencies, latency)
	t.mu.Unlock()
}

func (t *tally) snapshot() []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]time.Duration, len(t.latencies))
	copy(out, t.latencies)
	return out
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// nextBody rotates recipients so the normalizer sees varied input, and
// alternates between direct-message and template submits when a template
// id was configured.
func nextBody(cfg runConfig, seq int64) submitBody {
	body := submitBody{
		GatewayID:   cfg.gatewayID,
		PhoneNumber: fmt.Sprintf("333 %07d", 1000000+seq%8999999),
	}
	if cfg.templateID > 0 && seq%2 == 0 {
		tid := cfg.templateID
		body.TemplateID = &tid
		body.Record = &recordRef{
			Model: "order",
			Data:  map[string]interface{}{"number": seq, "status": "shipped"},
		}
		return body
	}
	body.Message = fmt.Sprintf("load probe %d", seq)
	return body
}

func send(client *http.Client, url string, body submitBody, stats *tally) {
	payload, err := json.Marshal(body)
	if err != nil {
		stats.rejected.Add(1)
		return
	}

	start := time.Now()
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		stats.rejected.Add(1)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		stats.record(time.Since(start), false)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	// Submits are queued, not sent inline, so 202 is the happy path.
	ok := resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusOK
	stats.record(time.Since(start), ok)
}

func main() {
	cfg := configFromEnv()

	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        cfg.workers,
			MaxIdleConnsPerHost: cfg.workers,
			IdleConnTimeout:     90 * time.Second,
		},
		Timeout: 60 * time.Second,
	}

	fmt.Printf("target      %s\n", cfg.targetURL)
	fmt.Printf("rate        %d req/s for %s\n", cfg.rate, cfg.duration)
	fmt.Printf("workers     %d\n", cfg.workers)
	fmt.Println(strings.Repeat("-", 48))

	stats := &tally{}
	jobs := make(chan submitBody, cfg.rate)

	var wg sync.WaitGroup
	wg.Add(cfg.workers)
	for i := 0; i < cfg.workers; i++ {
		go func() {
			defer wg.Done()
			for body := range jobs {
				send(client, cfg.targetURL, body, stats)
			}
		}()
	}

	// One ticker slot per second; each slot enqueues a full second's worth
	// of requests and the workers spread them out.
	started := time.Now()
	deadline := started.Add(cfg.duration)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var seq int64
	for now := started; now.Before(deadline); now = <-ticker.C {
		for i := 0; i < cfg.rate; i++ {
			seq++
			jobs <- nextBody(cfg, seq)
		}
		fmt.Printf("[%3.0fs] sent %d, accepted %d, rejected %d\n",
			time.Since(started).Seconds(), seq, stats.accepted.Load(), stats.rejected.Load())
	}
	close(jobs)
	wg.Wait()

	elapsed := time.Since(started)
	accepted := stats.accepted.Load()
	rejected := stats.rejected.Load()
	total := accepted + rejected

	latencies := stats.snapshot()
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	var avg time.Duration
	if len(latencies) > 0 {
		avg = sum / time.Duration(len(latencies))
	}

	fmt.Println(strings.Repeat("=", 48))
	fmt.Printf("ran         %.2fs, %.1f req/s effective\n", elapsed.Seconds(), float64(total)/elapsed.Seconds())
	fmt.Printf("accepted    %d\n", accepted)
	fmt.Printf("rejected    %d\n", rejected)
	if total > 0 {
		fmt.Printf("accept rate %.2f%%\n", float64(accepted)/float64(total)*100)
	}
	if len(latencies) > 0 {
		fmt.Printf("latency     avg %s, p50 %s, p95 %s, p99 %s, max %s\n",
			avg.Round(time.Millisecond),
			percentile(latencies, 0.50).Round(time.Millisecond),
			percentile(latencies, 0.95).Round(time.Millisecond),
			percentile(latencies, 0.99).Round(time.Millisecond),
			latencies[len(latencies)-1].Round(time.Millisecond))
	}
}
