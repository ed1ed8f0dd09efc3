package session

import (
	"sort"
	"sync"
	"time"
)

const defaultRingSize = 128

// Stats aggregates loop latencies and counters. Latency series keep the
// most recent samples in a ring; percentiles are computed by the
// nearest-rank method. Safe for concurrent use.
type Stats struct {
	mu          sync.Mutex
	recognition *ring
	execution   *ring
	speech      *ring
	utterances  uint64
	fallbacks   uint64
	interrupts  uint64
}

// LatencySummary describes one latency series.
type LatencySummary struct {
	Count int
	P50   time.Duration
	P95   time.Duration
}

// StatsSnapshot is a point-in-time copy of the session statistics.
type StatsSnapshot struct {
	Utterances  uint64
	Fallbacks   uint64
	Interrupts  uint64
	Recognition LatencySummary
	Execution   LatencySummary
	Speech      LatencySummary
}

// NewStats returns a collector keeping the most recent size samples per
// series. A size of zero or less takes the default of 128.
func NewStats(size int) *Stats {
	if size <= 0 {
		size = defaultRingSize
	}
	return &Stats{
		recognition: newRing(size),
		execution:   newRing(size),
		speech:      newRing(size),
	}
}

// RecordRecognition adds one recognition latency sample.
func (s *Stats) RecordRecognition(d time.Duration) {
	s.mu.Lock()
	s.recognition.add(d)
	s.mu.Unlock()
}

// RecordExecution adds one command execution latency sample.
func (s *Stats) RecordExecution(d time.Duration) {
	s.mu.Lock()
	s.execution.add(d)
	s.mu.Unlock()
}

// RecordSpeech adds one synthesis-plus-playback latency sample.
func (s *Stats) RecordSpeech(d time.Duration) {
	s.mu.Lock()
	s.speech.add(d)
	s.mu.Unlock()
}

// CountUtterance counts one recognized utterance.
func (s *Stats) CountUtterance() {
	s.mu.Lock()
	s.utterances++
	s.mu.Unlock()
}

// CountFallback counts one utterance answered by the chat fallback.
func (s *Stats) CountFallback() {
	s.mu.Lock()
	s.fallbacks++
	s.mu.Unlock()
}

// CountInterrupt counts one cancelled utterance.
func (s *Stats) CountInterrupt() {
	s.mu.Lock()
	s.interrupts++
	s.mu.Unlock()
}

// Snapshot returns a copy of the counters and latency summaries.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatsSnapshot{
		Utterances:  s.utterances,
		Fallbacks:   s.fallbacks,
		Interrupts:  s.interrupts,
		Recognition: s.recognition.summary(),
		Execution:   s.execution.summary(),
		Speech:      s.speech.summary(),
	}
}

// ring keeps the most recent samples of a latency series.
type ring struct {
	buf  []time.Duration
	next int
	full bool
}

func newRing(size int) *ring {
	return &ring{buf: make([]time.Duration, size)}
}

func (r *ring) add(d time.Duration) {
	r.buf[r.next] = d
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
}

// samples returns a copy of the occupied portion of the ring.
func (r *ring) samples() []time.Duration {
	if r.full {
		out := make([]time.Duration, len(r.buf))
		copy(out, r.buf)
		return out
	}
	return append([]time.Duration(nil), r.buf[:r.next]...)
}

func (r *ring) summary() LatencySummary {
	s := r.samples()
	if len(s) == 0 {
		return LatencySummary{}
	}
	sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
	return LatencySummary{
		Count: len(s),
		P50:   nearestRank(s, 50),
		P95:   nearestRank(s, 95),
	}
}

// nearestRank returns the p-th percentile of sorted: the ceil(p*n/100)-th
// smallest sample.
func nearestRank(sorted []time.Duration, p int) time.Duration {
	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}
