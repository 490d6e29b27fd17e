// Package testutil provides shared test helpers for captures, sessions and
// checked errors.
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/cepton-sdk-go/internal/capture"
	"github.com/banshee-data/cepton-sdk-go/internal/sdk"
)

// CapturePacket is one datagram to write with WriteCapture.
type CapturePacket struct {
	Handle    sdk.SensorHandle
	Timestamp time.Time
	Payload   []byte
}

// EvenPackets returns n packets spaced step apart from start, alternating
// between handles. Payloads are four bytes with the packet index first.
func EvenPackets(start time.Time, n int, step time.Duration, handles ...sdk.SensorHandle) []CapturePacket {
	if len(handles) == 0 {
		handles = []sdk.SensorHandle{1}
	}
	packets := make([]CapturePacket, n)
	for i := range packets {
		packets[i] = CapturePacket{
			Handle:    handles[i%len(handles)],
			Timestamp: start.Add(time.Duration(i) * step),
			Payload:   []byte{byte(i), 0, 0, 0},
		}
	}
	return packets
}

// WriteCapture writes packets to a pcap file in a temporary directory and
// returns its path.
func WriteCapture(t *testing.T, packets []CapturePacket) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.pcap")
	w, err := capture.Create(path, sdk.DefaultPort)
	if err != nil {
		t.Fatalf("failed to create capture: %v", err)
	}
	for _, p := range packets {
		if err := w.WritePacket(p.Handle, p.Timestamp.UnixMicro(), p.Payload); err != nil {
			t.Fatalf("failed to write packet: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close capture: %v", err)
	}
	return path
}

// NewSession returns an initialized session that is deinitialized when the
// test ends.
func NewSession(t *testing.T, driver sdk.Driver) *sdk.Session {
	t.Helper()
	s := sdk.NewSession(driver)
	if err := s.Initialize(sdk.APIVersion, sdk.DefaultOptions(), nil, nil); err != nil {
		t.Fatalf("failed to initialize session: %v", err)
	}
	t.Cleanup(func() { s.Deinitialize().Ignore() })
	return s
}

// AssertCode checks that err carries want. A nil err is Success.
func AssertCode(t *testing.T, err *sdk.SensorError, want sdk.ErrorCode) {
	t.Helper()
	if got := err.Code(); got != want {
		t.Errorf("error code = %v, want %v (%v)", got, want, err)
	}
}

// Eventually polls cond until it holds or two seconds pass.
func Eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
