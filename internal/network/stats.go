package network

import (
	"sync/atomic"
	"time"

	"github.com/banshee-data/cepton-sdk-go/internal/monitoring"
)

// Stats counts listener traffic. It is safe for concurrent use.
type Stats struct {
	packets  atomic.Int64
	bytes    atomic.Int64
	dropped  atomic.Int64
	recorded atomic.Int64

	lastLog     atomic.Int64 // unix nanoseconds
	lastPackets atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Packets  int64
	Bytes    int64
	Dropped  int64
	Recorded int64
}

// Snapshot returns the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Packets:  s.packets.Load(),
		Bytes:    s.bytes.Load(),
		Dropped:  s.dropped.Load(),
		Recorded: s.recorded.Load(),
	}
}

// logStats reports totals and the packet rate since the previous call.
func (s *Stats) logStats(now time.Time) {
	snap := s.Snapshot()
	prev := s.lastLog.Swap(now.UnixNano())
	prevPackets := s.lastPackets.Swap(snap.Packets)

	rate := 0.0
	if prev != 0 {
		if elapsed := time.Duration(now.UnixNano() - prev).Seconds(); elapsed > 0 {
			rate = float64(snap.Packets-prevPackets) / elapsed
		}
	}
	monitoring.Logf("udp: %d packets (%.1f/s), %d bytes, %d dropped, %d recorded",
		snap.Packets, rate, snap.Bytes, snap.Dropped, snap.Recorded)
}
