// Package driver assembles decoded sensor packets into image frames for an
// sdk.Session. Wire-format decoding is delegated to a PacketDecoder.
package driver

import (
	"sync"

	"github.com/banshee-data/cepton-sdk-go/internal/sdk"
)

// Decoded is the result of decoding one packet.
type Decoded struct {
	// Info describes the sender when the packet carries identification.
	Info *sdk.SensorInformation
	// Points are the measurements in the packet, in measurement order.
	Points []sdk.ImagePoint
	// Faults are device health conditions reported by the packet.
	Faults []sdk.ErrorCode
}

// PacketDecoder turns raw sensor packets into points.
type PacketDecoder interface {
	Decode(handle sdk.SensorHandle, timestamp int64, buf []byte) (Decoded, error)
}

// NopDecoder accepts every packet and yields no points. Sessions that only
// care about raw packets use it so the sensor table is still populated.
type NopDecoder struct{}

// Decode implements PacketDecoder.
func (NopDecoder) Decode(sdk.SensorHandle, int64, []byte) (Decoded, error) {
	return Decoded{}, nil
}

const (
	// Points outside the normalised image plane are clipped unless
	// ControlDisableImageClip is set.
	maxImageCoordinate = 1.0
	// Points beyond this distance in metres are clipped unless
	// ControlDisableDistanceClip is set.
	maxDistance = 200.0
)

type pendingFrame struct {
	start  int64
	points []sdk.ImagePoint
}

// FrameAssembler implements sdk.Driver. It is safe for concurrent use.
type FrameAssembler struct {
	decoder PacketDecoder

	mu     sync.Mutex
	frames map[sdk.SensorHandle]*pendingFrame
}

// NewFrameAssembler returns a driver using decoder. A nil decoder behaves as
// NopDecoder.
func NewFrameAssembler(decoder PacketDecoder) *FrameAssembler {
	if decoder == nil {
		decoder = NopDecoder{}
	}
	return &FrameAssembler{
		decoder: decoder,
		frames:  make(map[sdk.SensorHandle]*pendingFrame),
	}
}

// Receive decodes buf, updates the sensor table, reports faults on the error
// stream and emits frames according to the session's frame options. Decode
// failures are returned without emitting anything.
func (a *FrameAssembler) Receive(s *sdk.Session, handle sdk.SensorHandle, timestamp int64, buf []byte) error {
	d, err := a.decoder.Decode(handle, timestamp, buf)
	if err != nil {
		return err
	}

	info := sdk.SensorInformation{Handle: handle}
	if d.Info != nil {
		info = *d.Info
		info.Handle = handle
	}
	info.LastReportedTimestamp = timestamp
	s.UpdateSensor(info)

	for _, fault := range d.Faults {
		s.ReportError(handle, fault, "")
	}

	points := filterPoints(d.Points, timestamp, s.ControlFlags())
	fo := s.FrameOptions()

	if fo.Mode == sdk.FrameModeStreaming {
		if len(points) > 0 {
			s.EmitFrame(handle, points)
		}
		return nil
	}

	length := fo.Length
	if (fo.Mode == sdk.FrameModeCover || fo.Mode == sdk.FrameModeCycle) && info.MeasurementPeriod > 0 {
		length = info.MeasurementPeriod
	}
	lengthUs := int64(length * 1e6)

	a.mu.Lock()
	f, ok := a.frames[handle]
	if !ok {
		f = &pendingFrame{start: timestamp}
		a.frames[handle] = f
	}
	f.points = append(f.points, points...)
	var ready []sdk.ImagePoint
	if timestamp-f.start >= lengthUs {
		ready = f.points
		a.frames[handle] = &pendingFrame{start: timestamp}
	}
	a.mu.Unlock()

	if len(ready) > 0 {
		s.EmitFrame(handle, ready)
	}
	return nil
}

// Reset drops partially assembled frames.
func (a *FrameAssembler) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.frames = make(map[sdk.SensorHandle]*pendingFrame)
}

func filterPoints(in []sdk.ImagePoint, timestamp int64, control sdk.Control) []sdk.ImagePoint {
	if len(in) == 0 {
		return nil
	}
	out := make([]sdk.ImagePoint, 0, len(in))
	for _, p := range in {
		if p.ReturnType != 0 && control&sdk.ControlEnableMultipleReturns == 0 {
			continue
		}
		if control&sdk.ControlHostTimestamps != 0 {
			p.Timestamp = timestamp
		}
		if control&sdk.ControlDisableImageClip == 0 &&
			(abs32(p.ImageX) > maxImageCoordinate || abs32(p.ImageZ) > maxImageCoordinate) {
			p.Valid = false
		}
		if control&sdk.ControlDisableDistanceClip == 0 && p.Distance > maxDistance {
			p.Valid = false
		}
		out = append(out, p)
	}
	return out
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
