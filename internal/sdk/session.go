// Package sdk is the control and error-reporting layer between applications
// and the LIDAR acquisition driver.
//
// Every fallible call returns a *SensorError that must be checked; see
// SensorError for the rules. A Session replaces the process-wide SDK state of
// the C interface, so independent sessions can coexist in one process.
package sdk

import (
	"sync"

	"github.com/banshee-data/cepton-sdk-go/internal/monitoring"
)

// Version information for the SDK layer.
const (
	APIVersion   = 16
	VersionMajor = 1
	VersionMinor = 16
	Version      = "1.16.0"
)

// Driver decodes raw packets on behalf of a Session. Implementations report
// frames with Session.EmitFrame, errors and faults with Session.ReportError and
// sensor discovery with Session.UpdateSensor. Receive is called synchronously
// from MockNetworkReceive and may be called from several goroutines.
type Driver interface {
	Receive(s *Session, handle SensorHandle, timestamp int64, buf []byte) error
	Reset()
}

// Session holds the state of one initialized SDK instance.
type Session struct {
	mu          sync.RWMutex
	driver      Driver
	initialized bool
	options     Options

	errors  slot[ErrorCallback]
	frames  slot[ImageFrameCallback]
	packets slot[NetworkPacketCallback]

	sensors sensorTable
}

// NewSession creates an uninitialized session that hands packets to driver.
// A nil driver only delivers raw packets.
func NewSession(driver Driver) *Session {
	return &Session{driver: driver, options: DefaultOptions()}
}

// Initialize validates options and prepares the session. version must equal
// APIVersion. A non-nil errCb is registered as the error listener.
func (s *Session) Initialize(version int, opts Options, errCb ErrorCallback, userData any) *SensorError {
	if version != APIVersion {
		return Errorf(ErrorSDKVersionMismatch, "api version %d, expected %d", version, APIVersion)
	}
	if err := opts.Validate(); err != nil {
		return FromError(ErrorInvalidArguments, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return NewError(ErrorAlreadyInitialized, "")
	}
	if errCb != nil {
		if err := s.ListenErrors(errCb, userData); err != nil {
			return err
		}
	}
	s.options = opts
	s.initialized = true
	monitoring.Logf("sdk %s initialized: port=%d frame_mode=%s frame_length=%.3fs control=%#x",
		Version, opts.Port, opts.Frame.Mode, opts.Frame.Length, uint32(opts.Control))
	return nil
}

// Deinitialize clears listeners, sensors and driver state. It is a no-op
// success when the session was never initialized.
func (s *Session) Deinitialize() *SensorError {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return nil
	}
	s.errors.unlisten()
	s.frames.unlisten()
	s.packets.unlisten()
	s.sensors.clear(func(SensorHandle) bool { return true })
	if s.driver != nil {
		s.driver.Reset()
	}
	s.options = DefaultOptions()
	s.initialized = false
	return nil
}

// IsInitialized reports whether Initialize succeeded and Deinitialize has not
// been called since.
func (s *Session) IsInitialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

func (s *Session) requireInitialized() *SensorError {
	if !s.IsInitialized() {
		return NewError(ErrorNotInitialized, "")
	}
	return nil
}

// SetControlFlags replaces the bits selected by mask with those in flags.
func (s *Session) SetControlFlags(mask, flags Control) *SensorError {
	if err := s.requireInitialized(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.options.Control = (s.options.Control &^ mask) | (flags & mask)
	return nil
}

// ControlFlags returns the current control bitmask.
func (s *Session) ControlFlags() Control {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.options.Control
}

// HasControlFlag reports whether every bit of flag is set.
func (s *Session) HasControlFlag(flag Control) bool {
	return s.ControlFlags()&flag == flag
}

// SetPort sets the live network listen port.
func (s *Session) SetPort(port uint16) *SensorError {
	if err := s.requireInitialized(); err != nil {
		return err
	}
	if port == 0 {
		return NewError(ErrorInvalidArguments, "port must be non-zero")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.options.Port = port
	return nil
}

// Port returns the live network listen port.
func (s *Session) Port() uint16 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.options.Port
}

// SetFrameOptions changes frame emission. Pending driver frames are dropped.
func (s *Session) SetFrameOptions(fo FrameOptions) *SensorError {
	if err := s.requireInitialized(); err != nil {
		return err
	}
	if err := fo.Validate(); err != nil {
		return FromError(ErrorInvalidArguments, err)
	}
	s.mu.Lock()
	s.options.Frame = fo
	s.mu.Unlock()
	if s.driver != nil {
		s.driver.Reset()
	}
	return nil
}

// FrameOptions returns the current frame options.
func (s *Session) FrameOptions() FrameOptions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.options.Frame
}

// FrameMode returns the current frame mode.
func (s *Session) FrameMode() FrameMode { return s.FrameOptions().Mode }

// FrameLength returns the timed frame length in seconds.
func (s *Session) FrameLength() float64 { return s.FrameOptions().Length }

// MockNetworkReceive passes a packet to the session as if it had arrived on
// the network. It blocks while processing and calls the packet, frame and
// error listeners synchronously before returning. timestamp is unix
// microseconds.
func (s *Session) MockNetworkReceive(handle SensorHandle, timestamp int64, buf []byte) *SensorError {
	if err := s.requireInitialized(); err != nil {
		return err
	}
	if len(buf) == 0 {
		return NewError(ErrorInvalidArguments, "empty packet buffer")
	}

	s.emitPacket(handle, timestamp, buf)

	s.mu.RLock()
	driver := s.driver
	s.mu.RUnlock()
	if driver == nil {
		return nil
	}
	if err := driver.Receive(s, handle, timestamp, buf); err != nil {
		return FromError(ErrorCommunication, err)
	}
	return nil
}

// Clear drops every known sensor and any partially assembled frames. Used
// when loading or unloading a capture file.
func (s *Session) Clear() *SensorError {
	if err := s.requireInitialized(); err != nil {
		return err
	}
	s.sensors.clear(func(SensorHandle) bool { return true })
	s.mu.RLock()
	driver := s.driver
	s.mu.RUnlock()
	if driver != nil {
		driver.Reset()
	}
	return nil
}

// ClearMockSensors drops only sensors created by capture replay.
func (s *Session) ClearMockSensors() {
	s.sensors.clear(SensorHandle.IsMock)
}

func logUnhandled(handle SensorHandle, code ErrorCode, msg string) {
	if msg == "" {
		monitoring.Errorf("sensor %s: %s", handle, code)
		return
	}
	monitoring.Errorf("sensor %s: %s: %s", handle, code, msg)
}
