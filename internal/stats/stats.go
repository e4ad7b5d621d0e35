// Package stats tracks download and upload throughput using an
// exponentially-weighted moving average.
package stats

import (
	"sync/atomic"
	"time"

	"github.com/rcrowley/go-metrics"
)

// Speed wraps a go-metrics EWMA as bytes/second throughput. Call Update
// with the number of bytes transferred since the last tick, and Tick
// every 5s (the tick interval go-metrics EWMAs assume when computing
// Rate) from a single background goroutine.
type Speed struct {
	ewma metrics.EWMA
}

// NewSpeed returns a Speed using a 1-minute-decay EWMA, matching
// go-metrics' conventional NewEWMA1.
func NewSpeed() *Speed {
	return &Speed{ewma: metrics.NewEWMA1()}
}

// Update records n additional bytes transferred.
func (s *Speed) Update(n int64) {
	s.ewma.Update(n)
}

// Tick advances the moving average by one window; call this every 5s,
// otherwise Rate is not in bytes/second.
func (s *Speed) Tick() {
	s.ewma.Tick()
}

// Rate returns the current smoothed rate in bytes/second.
func (s *Speed) Rate() float64 {
	return s.ewma.Rate()
}

// Transfer tracks both directions of throughput for one node, plus
// cumulative byte totals (see Totals). RecordUpload in
// particular is called concurrently from every per-datagram worker
// goroutine, so the running totals are kept with atomic ops rather
// than plain int64 fields.
type Transfer struct {
	Download *Speed
	Upload   *Speed

	totalDown int64
	totalUp   int64
}

// NewTransfer returns a zeroed Transfer.
func NewTransfer() *Transfer {
	return &Transfer{Download: NewSpeed(), Upload: NewSpeed()}
}

// RecordDownload accounts for n received payload bytes.
func (t *Transfer) RecordDownload(n int64) {
	t.Download.Update(n)
	atomic.AddInt64(&t.totalDown, n)
}

// RecordUpload accounts for n sent payload bytes.
func (t *Transfer) RecordUpload(n int64) {
	t.Upload.Update(n)
	atomic.AddInt64(&t.totalUp, n)
}

// Totals returns cumulative bytes transferred in each direction.
func (t *Transfer) Totals() (down, up int64) {
	return atomic.LoadInt64(&t.totalDown), atomic.LoadInt64(&t.totalUp)
}

// RunTicker ticks both EWMAs every interval until stop is closed.
func (t *Transfer) RunTicker(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.Download.Tick()
			t.Upload.Tick()
		case <-stop:
			return
		}
	}
}
