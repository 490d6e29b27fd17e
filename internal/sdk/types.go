package sdk

import (
	"fmt"
	"net/netip"
)

// SensorHandle identifies a sensor for the lifetime of a Session. Live sensors
// use their IPv4 address; handles produced by capture replay additionally
// carry SensorHandleFlagMock.
type SensorHandle uint64

// SensorHandleFlagMock indicates that a handle was generated by capture replay.
const SensorHandleFlagMock SensorHandle = 1 << 32

// HandleFromAddr derives a handle from an IPv4 source address. Non-IPv4
// addresses map to 0.
func HandleFromAddr(addr netip.Addr) SensorHandle {
	addr = addr.Unmap()
	if !addr.Is4() {
		return 0
	}
	b := addr.As4()
	return SensorHandle(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]))
}

// IsMock reports whether the handle was generated by capture replay.
func (h SensorHandle) IsMock() bool { return h&SensorHandleFlagMock != 0 }

// Addr returns the IPv4 address encoded in the low 32 bits.
func (h SensorHandle) Addr() netip.Addr {
	v := uint32(h)
	return netip.AddrFrom4([4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}

func (h SensorHandle) String() string {
	if h.IsMock() {
		return fmt.Sprintf("%s (replay)", h.Addr())
	}
	return h.Addr().String()
}

// SensorModel enumerates known sensor hardware.
type SensorModel uint16

const (
	ModelUnknown SensorModel = iota
	ModelHR80W
	ModelHR80T
	ModelHR80M
	ModelSORA200
	ModelVISTA860
	ModelHR80TR2
	ModelVISTA860GEN2
	ModelFUSION790
	ModelVISTAM
	ModelVISTAX
	ModelSORAP60
	ModelVISTAP60
	ModelVISTAX15
	ModelVISTAP90
	ModelSORAP90
)

// SensorInformation describes a sensor seen by the driver.
type SensorInformation struct {
	Handle          SensorHandle
	SerialNumber    uint64
	ModelName       string
	Model           SensorModel
	FirmwareVersion string

	// LastReportedTimestamp is the most recent packet time (unix microseconds).
	LastReportedTimestamp int64
	MeasurementPeriod     float64

	ReturnCount  uint8
	SegmentCount uint8

	IsMocked bool
}

// ImagePoint is a single image-space measurement produced by the driver.
type ImagePoint struct {
	Timestamp  int64 // unix microseconds
	ImageX     float32
	Distance   float32
	ImageZ     float32
	Intensity  float32
	ReturnType uint8
	Valid      bool
	Saturated  bool
}
