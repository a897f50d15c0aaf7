// Package timeline reconstructs fixed-width chart buckets from a persisted
// snapshot series. Reconstruction is pure: given the same now, series,
// fallback and window it always produces the same buckets, and it never
// mutates the series.
package timeline

import (
	"fmt"
	"time"
)

// Snapshot is any time-stamped series element.
type Snapshot interface {
	At() time.Time
}

// Window is a requested charting time span.
type Window string

const (
	Window6h  Window = "6h"
	Window24h Window = "24h"
	Window7d  Window = "7d"
)

// Spec is the bucket layout for a window.
type Spec struct {
	Width   time.Duration
	Buckets int
}

// SpecFor maps a requested window onto its bucket layout. Anything outside
// the known set falls back to the 6h layout.
func SpecFor(window string) (Window, Spec) {
	switch Window(window) {
	case Window24h:
		return Window24h, Spec{Width: 60 * time.Minute, Buckets: 24}
	case Window7d:
		return Window7d, Spec{Width: 360 * time.Minute, Buckets: 28}
	default:
		return Window6h, Spec{Width: 15 * time.Minute, Buckets: 24}
	}
}

// Bucket is one reconstructed chart point. Timestamp is the chosen
// snapshot's own timestamp for history buckets, or the bucket end for
// fallback buckets. FromHistory distinguishes the two.
type Bucket[T Snapshot] struct {
	Timestamp   time.Time
	MinutesAgo  int
	FromHistory bool
	Value       T
}

// Label renders the bucket's age as "1h 15m ago".
func (b Bucket[T]) Label() string {
	return fmt.Sprintf("%dh %dm ago", b.MinutesAgo/60, b.MinutesAgo%60)
}

// Build reconstructs the bucket sequence, oldest first. For bucket i of n,
// the interval is [now-(n-i)*width, now-(n-i-1)*width); the newest bucket
// ends exactly at now. Each bucket takes the latest snapshot inside its
// interval, or the fallback value stamped at the bucket end when the series
// has no coverage there. Out-of-order and duplicate timestamps in the
// series are tolerated.
func Build[T Snapshot](now time.Time, series []T, fallback T, spec Spec) []Bucket[T] {
	buckets := make([]Bucket[T], 0, spec.Buckets)
	for i := 0; i < spec.Buckets; i++ {
		start := now.Add(-time.Duration(spec.Buckets-i) * spec.Width)
		end := now.Add(-time.Duration(spec.Buckets-i-1) * spec.Width)

		var latest T
		found := false
		for _, s := range series {
			ts := s.At()
			if ts.Before(start) || !ts.Before(end) {
				continue
			}
			if !found || ts.After(latest.At()) {
				latest = s
				found = true
			}
		}

		b := Bucket[T]{
			MinutesAgo:  int(now.Sub(end).Minutes()),
			FromHistory: found,
		}
		if found {
			b.Timestamp = latest.At()
			b.Value = latest
		} else {
			b.Timestamp = end
			b.Value = fallback
		}
		buckets = append(buckets, b)
	}
	return buckets
}
