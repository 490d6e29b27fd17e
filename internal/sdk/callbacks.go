package sdk

import "sync/atomic"

// ErrorCallback receives sensor and SDK errors and faults. data is currently
// unused and always nil.
type ErrorCallback func(handle SensorHandle, code ErrorCode, msg string, data []byte, userData any)

// ImageFrameCallback receives reconstructed frames at the rate selected by the
// session's FrameOptions. points must not be retained after returning.
type ImageFrameCallback func(handle SensorHandle, points []ImagePoint, userData any)

// NetworkPacketCallback receives every raw packet handed to the driver.
// timestamp is unix microseconds; buf must not be retained after returning.
type NetworkPacketCallback func(handle SensorHandle, timestamp int64, buf []byte, userData any)

type binding[T any] struct {
	cb       T
	userData any
}

// slot holds at most one callback registration. Registration is a single
// compare-and-swap, so invocations always see a complete (callback, userData)
// pair and in-flight invocations finish with the pair they loaded.
type slot[T any] struct {
	b atomic.Pointer[binding[T]]
}

func (s *slot[T]) listen(cb T, userData any) bool {
	return s.b.CompareAndSwap(nil, &binding[T]{cb: cb, userData: userData})
}

func (s *slot[T]) unlisten() {
	s.b.Store(nil)
}

func (s *slot[T]) load() *binding[T] {
	return s.b.Load()
}

// ListenErrors registers the error callback. It fails with
// ErrorTooManyCallbacks if one is already registered.
func (s *Session) ListenErrors(cb ErrorCallback, userData any) *SensorError {
	if cb == nil {
		return NewError(ErrorInvalidArguments, "nil error callback")
	}
	if !s.errors.listen(cb, userData) {
		return NewError(ErrorTooManyCallbacks, "error callback already registered")
	}
	return nil
}

// UnlistenErrors clears the error callback. It always succeeds.
func (s *Session) UnlistenErrors() *SensorError {
	s.errors.unlisten()
	return nil
}

// ListenImageFrames registers the frame callback. It fails with
// ErrorTooManyCallbacks if one is already registered.
func (s *Session) ListenImageFrames(cb ImageFrameCallback, userData any) *SensorError {
	if cb == nil {
		return NewError(ErrorInvalidArguments, "nil image frame callback")
	}
	if !s.frames.listen(cb, userData) {
		return NewError(ErrorTooManyCallbacks, "image frame callback already registered")
	}
	return nil
}

// UnlistenImageFrames clears the frame callback. It always succeeds.
func (s *Session) UnlistenImageFrames() *SensorError {
	s.frames.unlisten()
	return nil
}

// ListenNetworkPackets registers the raw packet callback. It fails with
// ErrorTooManyCallbacks if one is already registered.
func (s *Session) ListenNetworkPackets(cb NetworkPacketCallback, userData any) *SensorError {
	if cb == nil {
		return NewError(ErrorInvalidArguments, "nil network packet callback")
	}
	if !s.packets.listen(cb, userData) {
		return NewError(ErrorTooManyCallbacks, "network packet callback already registered")
	}
	return nil
}

// UnlistenNetworkPackets clears the raw packet callback. It always succeeds.
func (s *Session) UnlistenNetworkPackets() *SensorError {
	s.packets.unlisten()
	return nil
}

// ReportError delivers an error or fault on the error stream. With no
// listener registered the event is logged instead.
func (s *Session) ReportError(handle SensorHandle, code ErrorCode, msg string) {
	if b := s.errors.load(); b != nil {
		b.cb(handle, code, msg, nil, b.userData)
		return
	}
	logUnhandled(handle, code, msg)
}

// EmitFrame delivers a reconstructed frame to the frame listener, if any.
func (s *Session) EmitFrame(handle SensorHandle, points []ImagePoint) {
	if b := s.frames.load(); b != nil {
		b.cb(handle, points, b.userData)
	}
}

func (s *Session) emitPacket(handle SensorHandle, timestamp int64, buf []byte) {
	if b := s.packets.load(); b != nil {
		b.cb(handle, timestamp, buf, b.userData)
	}
}
