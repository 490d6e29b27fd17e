package capture

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/banshee-data/cepton-sdk-go/internal/sdk"
)

// Record is one sensor packet in a loaded capture.
type Record struct {
	Handle sdk.SensorHandle
	// Offset is the time since the first record, in seconds.
	Offset float64
	// Timestamp is the capture time in unix microseconds.
	Timestamp int64
	Payload   []byte
}

// Capture is a fully indexed capture file. Records are in non-decreasing
// Offset order.
type Capture struct {
	Path string
	// StartTime is the timestamp of the first record in unix microseconds.
	StartTime int64
	// Length is the offset of the last record, in seconds.
	Length  float64
	Records []Record
}

// LoadOptions filters which packets become records.
type LoadOptions struct {
	// Port keeps only datagrams sent to this UDP port when non-zero.
	Port uint16
}

// Load opens path through src and indexes every UDP payload. Records get
// handles derived from their IPv4 source with sdk.SensorHandleFlagMock set.
// Out-of-order capture timestamps are clamped so offsets never decrease.
func Load(src PacketSource, path string, opts LoadOptions) (*Capture, error) {
	if err := src.Open(path); err != nil {
		return nil, err
	}
	defer src.Close()

	c := &Capture{Path: path}
	var first, last time.Time
	for {
		pkt, err := src.NextPacket()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if opts.Port != 0 && pkt.DstPort != opts.Port {
			continue
		}
		ts := pkt.Timestamp
		if first.IsZero() {
			first, last = ts, ts
		}
		if ts.Before(last) {
			ts = last
		}
		last = ts

		// Timestamps derive from the offset so they agree with the replay
		// position.
		offset := ts.Sub(first).Seconds()
		c.Records = append(c.Records, Record{
			Handle:    sdk.HandleFromAddr(pkt.Src) | sdk.SensorHandleFlagMock,
			Offset:    offset,
			Timestamp: first.UnixMicro() + int64(math.Round(offset*1e6)),
			Payload:   pkt.Payload,
		})
	}
	if len(c.Records) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoRecords)
	}
	c.StartTime = first.UnixMicro()
	c.Length = c.Records[len(c.Records)-1].Offset
	return c, nil
}

// Index returns the index of the first record whose offset is >= position,
// or len(Records) if there is none.
func (c *Capture) Index(position float64) int {
	lo, hi := 0, len(c.Records)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if c.Records[mid].Offset < position {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
