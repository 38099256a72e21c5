// Loadtest is a concurrent HTTP load testing tool for the forwarding
// service. It measures throughput, latency percentiles, and the outcome
// distribution of /call-echo responses.
//
// Usage:
//
//	go run ./scripts/loadtest -url http://localhost:8081 -concurrency 10 -requests 1000
//	go run ./scripts/loadtest -url http://localhost:8081 -concurrency 50 -requests 5000 -csv results.csv -out summary.json
//
// Outcomes are derived from the response: success, invalid_request, and the
// three failure shapes the forwarding service reports (timeout,
// connection_error, request_error).
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

type result struct {
	idx     int
	outcome string
	status  int
	dur     time.Duration
}

type bucket struct {
	count     int
	latencies []time.Duration
}

type latencyStats struct {
	min, avg, max      time.Duration
	p50, p90, p95, p99 time.Duration
}

func main() {
	var (
		target      = flag.String("url", "http://localhost:8081", "Forwarding service base URL")
		concurrency = flag.Int("concurrency", 10, "Number of concurrent workers")
		requests    = flag.Int("requests", 100, "Total number of requests to send")
		timeout     = flag.Duration("timeout", 10*time.Second, "Per-request timeout")
		outJSON     = flag.String("out", "", "Write JSON summary to this file (optional)")
		outCSV      = flag.String("csv", "", "Write per-request CSV to this file (optional)")
		verbose     = flag.Bool("v", false, "Verbose per-request logging to stdout")
	)
	flag.Parse()

	var csvWriter *csv.Writer
	if *outCSV != "" {
		f, err := os.Create(*outCSV)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create csv file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		csvWriter = csv.NewWriter(f)
		csvWriter.Write([]string{"idx", "timestamp", "outcome", "status", "duration_ms"})
		defer csvWriter.Flush()
	}

	client := &http.Client{Timeout: *timeout}
	base := strings.TrimRight(*target, "/")

	jobs := make(chan int)
	results := make(chan result, *concurrency)

	start := time.Now()

	var wg sync.WaitGroup
	for w := 0; w < *concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results <- probe(client, base, idx)
			}
		}()
	}

	go func() {
		for i := 0; i < *requests; i++ {
			jobs <- i
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	// The collector below owns all aggregation state; workers only send.
	var (
		sent, failed int
		all          []time.Duration
		byOutcome    = make(map[string]*bucket)
		byStatus     = make(map[int]int)
	)

	for r := range results {
		sent++
		if r.status < 200 || r.status > 299 {
			failed++
		}

		all = append(all, r.dur)
		byStatus[r.status]++

		b := byOutcome[r.outcome]
		if b == nil {
			b = &bucket{}
			byOutcome[r.outcome] = b
		}
		b.count++
		b.latencies = append(b.latencies, r.dur)

		if csvWriter != nil {
			csvWriter.Write([]string{
				fmt.Sprintf("%d", r.idx),
				time.Now().Format(time.RFC3339Nano),
				r.outcome,
				fmt.Sprintf("%d", r.status),
				fmt.Sprintf("%.3f", float64(r.dur.Microseconds())/1000.0),
			})
		}

		if *verbose {
			fmt.Printf("idx=%d outcome=%s status=%d dur=%v\n", r.idx, r.outcome, r.status, r.dur)
		}
	}

	elapsed := time.Since(start)

	fmt.Println("--- Load Test Summary ---")
	fmt.Printf("Target: %s\n", base)
	fmt.Printf("Requests: %d  Concurrency: %d\n", *requests, *concurrency)
	fmt.Printf("Total sent: %d  Success: %d  Failure: %d\n", sent, sent-failed, failed)
	fmt.Printf("Duration: %v  Throughput: %.2f req/s\n", elapsed, float64(sent)/elapsed.Seconds())

	fmt.Println("\nStatus codes:")
	for _, code := range sortedKeys(byStatus) {
		fmt.Printf("  %d -> %d\n", code, byStatus[code])
	}

	fmt.Println("\nOutcome distribution:")
	var outcomeNames []string
	for name := range byOutcome {
		outcomeNames = append(outcomeNames, name)
	}
	sort.Strings(outcomeNames)
	for _, name := range outcomeNames {
		b := byOutcome[name]
		fmt.Printf("  %s -> total=%d\n", name, b.count)
		if len(b.latencies) > 0 {
			s := summarize(b.latencies)
			fmt.Printf("    latencies: samples=%d min=%v avg=%v max=%v p50=%v p90=%v p95=%v p99=%v\n",
				len(b.latencies), s.min, s.avg, s.max, s.p50, s.p90, s.p95, s.p99)
		}
	}

	if len(all) > 0 {
		s := summarize(all)
		fmt.Println("\nOverall latencies:")
		fmt.Printf("  samples=%d min=%v avg=%v max=%v p50=%v p90=%v p95=%v p99=%v\n",
			len(all), s.min, s.avg, s.max, s.p50, s.p90, s.p95, s.p99)
	}

	fmt.Printf("\nGOMAXPROCS=%d\n", runtime.GOMAXPROCS(0))

	if *outJSON != "" {
		writeReport(*outJSON, report{
			Target:        base,
			Requests:      *requests,
			Concurrency:   *concurrency,
			TotalSent:     sent,
			Success:       sent - failed,
			Failure:       failed,
			DurationMs:    elapsed.Milliseconds(),
			ThroughputRPS: float64(sent) / elapsed.Seconds(),
			Outcomes:      outcomeReports(byOutcome),
		})
		fmt.Printf("\nWrote JSON summary to %s\n", *outJSON)
	}

	if failed > 0 {
		os.Exit(2)
	}
}

// probe sends one /call-echo request and classifies the result. Transport
// errors (the forwarding service itself unreachable) come back as
// client_error with status 0.
func probe(client *http.Client, base string, idx int) result {
	msg := fmt.Sprintf("loadtest-%d", idx)

	start := time.Now()
	resp, err := client.Get(base + "/call-echo?msg=" + url.QueryEscape(msg))
	dur := time.Since(start)

	if err != nil {
		return result{idx: idx, outcome: "client_error", dur: dur}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	return result{idx: idx, outcome: classifyResponse(resp.StatusCode, body), status: resp.StatusCode, dur: dur}
}

// classifyResponse maps a /call-echo response onto the outcome buckets the
// forwarding service reports.
func classifyResponse(status int, body []byte) string {
	if status >= 200 && status <= 299 {
		return "success"
	}

	var payload struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "unknown"
	}

	switch {
	case payload.Error == "Missing 'msg' parameter":
		return "invalid_request"
	case strings.HasPrefix(payload.Details, "Timeout:"):
		return "timeout"
	case strings.HasPrefix(payload.Details, "Connection error:"):
		return "connection_error"
	case strings.HasPrefix(payload.Details, "Request error:"):
		return "request_error"
	default:
		return "unknown"
	}
}

// summarize computes latency statistics over a non-empty sample set.
func summarize(latencies []time.Duration) latencyStats {
	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}

	at := func(p float64) time.Duration {
		return sorted[int(float64(len(sorted)-1)*p)]
	}

	return latencyStats{
		min: sorted[0],
		avg: sum / time.Duration(len(sorted)),
		max: sorted[len(sorted)-1],
		p50: at(0.50),
		p90: at(0.90),
		p95: at(0.95),
		p99: at(0.99),
	}
}

func sortedKeys(m map[int]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

type report struct {
	Target        string                   `json:"target"`
	Requests      int                      `json:"requests"`
	Concurrency   int                      `json:"concurrency"`
	TotalSent     int                      `json:"total_sent"`
	Success       int                      `json:"success"`
	Failure       int                      `json:"failure"`
	DurationMs    int64                    `json:"duration_ms"`
	ThroughputRPS float64                  `json:"throughput_rps"`
	Outcomes      map[string]outcomeReport `json:"outcomes"`
}

type outcomeReport struct {
	Total int     `json:"total"`
	P50   float64 `json:"p50_ms"`
	P90   float64 `json:"p90_ms"`
	P95   float64 `json:"p95_ms"`
	P99   float64 `json:"p99_ms"`
}

func outcomeReports(byOutcome map[string]*bucket) map[string]outcomeReport {
	out := make(map[string]outcomeReport, len(byOutcome))
	for name, b := range byOutcome {
		r := outcomeReport{Total: b.count}
		if len(b.latencies) > 0 {
			s := summarize(b.latencies)
			r.P50 = float64(s.p50.Milliseconds())
			r.P90 = float64(s.p90.Milliseconds())
			r.P95 = float64(s.p95.Milliseconds())
			r.P99 = float64(s.p99.Milliseconds())
		}
		out[name] = r
	}
	return out
}

func writeReport(path string, rep report) {
	f, err := os.Create(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create json file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write json summary: %v\n", err)
		os.Exit(1)
	}
}
