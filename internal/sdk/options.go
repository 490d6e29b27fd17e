package sdk

import "fmt"

// Control is a bitmask of session behaviour flags. The replay controller treats
// it as opaque; the driver and live listener consult it.
type Control uint32

const (
	// ControlDisableNetwork prevents the live UDP listener from starting.
	ControlDisableNetwork Control = 1 << 1
	// ControlDisableImageClip stops the driver clipping points outside the image.
	ControlDisableImageClip Control = 1 << 2
	// ControlDisableDistanceClip stops the driver clipping distant points.
	ControlDisableDistanceClip Control = 1 << 3
	// ControlEnableMultipleReturns asks the driver to keep every return.
	ControlEnableMultipleReturns Control = 1 << 4
	// ControlHostTimestamps replaces sensor timestamps with host arrival time.
	ControlHostTimestamps Control = 1 << 6
)

// FrameMode selects how the driver groups points into frames.
type FrameMode int32

const (
	// FrameModeStreaming emits a frame for every packet.
	FrameModeStreaming FrameMode = iota
	// FrameModeTimed emits a frame every FrameOptions.Length seconds.
	FrameModeTimed
	// FrameModeCover emits a frame once the field of view is covered.
	FrameModeCover
	// FrameModeCycle emits a frame once per scan cycle.
	FrameModeCycle
)

var frameModeNames = map[FrameMode]string{
	FrameModeStreaming: "streaming",
	FrameModeTimed:     "timed",
	FrameModeCover:     "cover",
	FrameModeCycle:     "cycle",
}

func (m FrameMode) String() string {
	if name, ok := frameModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("FrameMode(%d)", int32(m))
}

// ParseFrameMode parses a frame mode name as printed by FrameMode.String.
func ParseFrameMode(s string) (FrameMode, error) {
	for m, name := range frameModeNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown frame mode %q", s)
}

// FrameOptions controls frame emission. Length is in seconds and gates the
// image frame callback rate in timed mode.
type FrameOptions struct {
	Mode   FrameMode
	Length float64
}

// DefaultPort is the UDP port sensors send to by default.
const DefaultPort uint16 = 8808

// DefaultFrameLength is the timed frame length in seconds.
const DefaultFrameLength = 0.05

// Options configures a Session at initialization.
type Options struct {
	Control Control
	Port    uint16
	Frame   FrameOptions
}

// DefaultFrameOptions returns streaming frame options.
func DefaultFrameOptions() FrameOptions {
	return FrameOptions{Mode: FrameModeStreaming, Length: DefaultFrameLength}
}

// DefaultOptions returns the options used when none are supplied.
func DefaultOptions() Options {
	return Options{
		Port:  DefaultPort,
		Frame: DefaultFrameOptions(),
	}
}

// Validate checks frame options.
func (fo FrameOptions) Validate() error {
	if _, ok := frameModeNames[fo.Mode]; !ok {
		return fmt.Errorf("invalid frame mode %d", int32(fo.Mode))
	}
	if fo.Mode == FrameModeTimed && !(fo.Length > 0) {
		return fmt.Errorf("timed frame mode requires a positive length, got %v", fo.Length)
	}
	return nil
}

// Validate checks that the options are usable.
func (o Options) Validate() error {
	if o.Port == 0 {
		return fmt.Errorf("port must be non-zero")
	}
	return o.Frame.Validate()
}
