package delivery

import (
	"fmt"
	"sync"
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
)

// maxLatencyMS bounds the latency histogram at one hour per transfer.
const maxLatencyMS = 3_600_000

// TransferStats aggregates the outcome of delivery transfers. Latencies are
// kept in an HDR histogram so batch reports can quote quantiles instead of
// a mean skewed by slow outliers. Safe for concurrent use.
type TransferStats struct {
	mu         sync.Mutex
	total      int64
	succeeded  int64
	failed     int64
	totalBytes int64
	latencies  *hdrhistogram.Histogram
}

// NewTransferStats returns empty stats tracking latencies from 1ms to 1h
// with three significant figures.
func NewTransferStats() *TransferStats {
	return &TransferStats{
		latencies: hdrhistogram.New(1, maxLatencyMS, 3),
	}
}

// Record adds one transfer outcome. Durations are clamped to the trackable
// range before entering the histogram.
func (ts *TransferStats) Record(d time.Duration, success bool, bytes int64) {
	ms := d.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	if ms > maxLatencyMS {
		ms = maxLatencyMS
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.total++
	ts.totalBytes += bytes
	if success {
		ts.succeeded++
	} else {
		ts.failed++
	}
	_ = ts.latencies.RecordValue(ms)
}

// Total returns the number of recorded transfers.
func (ts *TransferStats) Total() int64 {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.total
}

// Succeeded returns the number of successful transfers.
func (ts *TransferStats) Succeeded() int64 {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.succeeded
}

// Failed returns the number of failed transfers.
func (ts *TransferStats) Failed() int64 {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.failed
}

// TotalBytes returns the byte count across all recorded transfers.
func (ts *TransferStats) TotalBytes() int64 {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.totalBytes
}

// SuccessRate returns the share of successful transfers as a percentage.
func (ts *TransferStats) SuccessRate() float64 {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.successRateLocked()
}

func (ts *TransferStats) successRateLocked() float64 {
	if ts.total == 0 {
		return 0.0
	}
	return float64(ts.succeeded) / float64(ts.total) * 100.0
}

// Percentile returns the latency at the given quantile, e.g. 50, 95, 99.
func (ts *TransferStats) Percentile(p float64) time.Duration {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.percentileLocked(p)
}

func (ts *TransferStats) percentileLocked(p float64) time.Duration {
	return time.Duration(ts.latencies.ValueAtQuantile(p)) * time.Millisecond
}

// String returns a one-line summary of the collected stats.
func (ts *TransferStats) String() string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return fmt.Sprintf("TransferStats{Total: %d, Success: %d (%.2f%%), Failed: %d, TotalBytes: %d, P50: %v, P95: %v, P99: %v}",
		ts.total, ts.succeeded, ts.successRateLocked(), ts.failed, ts.totalBytes,
		ts.percentileLocked(50), ts.percentileLocked(95), ts.percentileLocked(99))
}
