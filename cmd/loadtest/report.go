package main

import (
	"fmt"
	"io"
	"slices"
	"time"
)

// recorder is owned by a single worker; recorders are merged after the run.
type recorder struct {
	statuses  map[int]int
	failures  int
	latencies []time.Duration
}

func newRecorder() *recorder {
	return &recorder{statuses: make(map[int]int)}
}

func (r *recorder) Observe(status int, latency time.Duration) {
	r.statuses[status]++
	r.latencies = append(r.latencies, latency)
}

func (r *recorder) Failure() {
	r.failures++
}

type summary struct {
	statuses  map[int]int
	failures  int
	latencies []time.Duration // sorted
}

func merge(recorders []*recorder) summary {
	s := summary{statuses: make(map[int]int)}
	for _, r := range recorders {
		for status, n := range r.statuses {
			s.statuses[status] += n
		}
		s.failures += r.failures
		s.latencies = append(s.latencies, r.latencies...)
	}
	slices.Sort(s.latencies)
	return s
}

func (s summary) Total() int {
	return len(s.latencies) + s.failures
}

// Percentile uses the nearest-rank method; p is in (0, 100].
func (s summary) Percentile(p float64) time.Duration {
	if len(s.latencies) == 0 {
		return 0
	}
	rank := int(p/100*float64(len(s.latencies)) + 0.999999)
	rank = min(max(rank, 1), len(s.latencies))
	return s.latencies[rank-1]
}

func (s summary) Print(w io.Writer, elapsed time.Duration) {
	fmt.Fprintf(w, "requests: %d in %s (%.0f/s)\n", s.Total(), elapsed.Round(time.Millisecond), float64(s.Total())/elapsed.Seconds())

	codes := make([]int, 0, len(s.statuses))
	for code := range s.statuses {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %d\n", code, s.statuses[code])
	}
	if s.failures > 0 {
		fmt.Fprintf(w, "  transport errors: %d\n", s.failures)
	}

	if len(s.latencies) > 0 {
		fmt.Fprintf(w, "latency: min=%s p50=%s p95=%s p99=%s max=%s\n",
			s.latencies[0], s.Percentile(50), s.Percentile(95), s.Percentile(99), s.latencies[len(s.latencies)-1])
	}
}
