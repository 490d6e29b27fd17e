package replay

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"net/netip"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/cepton-sdk-go/internal/capture"
	"github.com/banshee-data/cepton-sdk-go/internal/sdk"
	"github.com/banshee-data/cepton-sdk-go/internal/testutil"
	"github.com/banshee-data/cepton-sdk-go/internal/timeutil"
)

var captureStart = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// makePackets returns n packets spaced step apart starting at captureStart.
func makePackets(n int, step time.Duration) []capture.Packet {
	packets := make([]capture.Packet, n)
	for i := range packets {
		packets[i] = capture.Packet{
			Timestamp: captureStart.Add(time.Duration(i) * step),
			Src:       netip.MustParseAddr("10.0.0.7"),
			SrcPort:   9000,
			DstPort:   sdk.DefaultPort,
			Payload:   []byte{byte(i), 0xCE},
		}
	}
	return packets
}

type packetLog struct {
	mu         sync.Mutex
	timestamps []int64
}

func (l *packetLog) record(_ sdk.SensorHandle, ts int64, _ []byte, _ any) {
	l.mu.Lock()
	l.timestamps = append(l.timestamps, ts)
	l.mu.Unlock()
}

func (l *packetLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.timestamps)
}

func (l *packetLog) all() []int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]int64(nil), l.timestamps...)
}

func newSession(t *testing.T, driver sdk.Driver) (*sdk.Session, *packetLog) {
	t.Helper()
	s := testutil.NewSession(t, driver)
	log := &packetLog{}
	if err := s.ListenNetworkPackets(log.record, nil); err != nil {
		t.Fatalf("ListenNetworkPackets: %v", err)
	}
	return s, log
}

// openMock opens a controller over n in-memory packets spaced step apart.
func openMock(t *testing.T, n int, step time.Duration, opts ...Option) (*Controller, *packetLog) {
	t.Helper()
	s, log := newSession(t, nil)
	factory := capture.NewMockSourceFactory(capture.NewMockSource(makePackets(n, step)))
	c := New(s, append([]Option{WithSourceFactory(factory)}, opts...)...)
	if err := c.Open("mock.pcap"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close().Ignore() })
	return c, log
}

func TestOpenErrors(t *testing.T) {
	tests := []struct {
		name   string
		source *capture.MockSource
		want   sdk.ErrorCode
	}{
		{
			name:   "missing file",
			source: &capture.MockSource{OpenError: &fs.PathError{Op: "open", Path: "x.pcap", Err: fs.ErrNotExist}},
			want:   sdk.ErrorFileIO,
		},
		{
			name:   "not a capture",
			source: &capture.MockSource{OpenError: fmt.Errorf("x.pcap: %w", capture.ErrInvalidFormat)},
			want:   sdk.ErrorInvalidFileType,
		},
		{
			name:   "no records",
			source: capture.NewMockSource(nil),
			want:   sdk.ErrorCorruptFile,
		},
		{
			name:   "damaged record",
			source: &capture.MockSource{Packets: makePackets(3, time.Millisecond), ReadError: errors.New("bad block")},
			want:   sdk.ErrorCorruptFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newSession(t, nil)
			c := New(s, WithSourceFactory(capture.NewMockSourceFactory(tt.source)))
			err := c.Open("x.pcap")
			if err.Code() != tt.want {
				t.Fatalf("Open() = %v, want %v", err, tt.want)
			}
			if c.IsOpen() || c.Filename() != "" || c.ID() != uuid.Nil {
				t.Error("failed Open should leave the controller closed")
			}
		})
	}
}

func TestOpenRequiresInitializedSession(t *testing.T) {
	c := New(sdk.NewSession(nil), WithSourceFactory(capture.NewMockSourceFactory(capture.NewMockSource(makePackets(2, time.Second)))))
	if err := c.Open("a.pcap"); err.Code() != sdk.ErrorNotInitialized {
		t.Errorf("Open() = %v, want %v", err, sdk.ErrorNotInitialized)
	}
}

func TestOpenTwice(t *testing.T) {
	c, _ := openMock(t, 5, 100*time.Millisecond)
	id := c.ID()
	if id == uuid.Nil {
		t.Fatal("open controller should have a session id")
	}
	if err := c.Open("other.pcap"); err.Code() != sdk.ErrorAlreadyInitialized {
		t.Errorf("second Open() = %v", err)
	}
	if c.Filename() != "mock.pcap" || c.ID() != id {
		t.Error("failed Open should not replace the open capture")
	}

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
	if err := c.Open("mock.pcap"); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if c.ID() == id {
		t.Error("reopen should start a new session id")
	}
}

func TestClosedOperations(t *testing.T) {
	s, _ := newSession(t, nil)
	c := New(s)

	for name, err := range map[string]*sdk.SensorError{
		"Seek":               c.Seek(0),
		"SeekRelative":       c.SeekRelative(1),
		"Resume":             c.Resume(),
		"ResumeBlocking":     c.ResumeBlocking(1),
		"ResumeBlockingOnce": c.ResumeBlockingOnce(),
	} {
		if err.Code() != sdk.ErrorNotOpen {
			t.Errorf("%s() = %v, want %v", name, err, sdk.ErrorNotOpen)
		}
	}
	if err := c.Pause(); err != nil {
		t.Errorf("Pause() = %v", err)
	}
	if c.Length() != 0 || c.StartTime() != 0 || c.Time() != 0 || c.IsRunning() {
		t.Error("closed controller should report zero state")
	}
	if err := c.SetSpeed(2); err != nil || c.Speed() != 2 {
		t.Errorf("SetSpeed while closed: %v, speed=%v", err, c.Speed())
	}
}

func TestMetadata(t *testing.T) {
	c, _ := openMock(t, 101, 100*time.Millisecond)
	if got, want := c.StartTime(), captureStart.UnixMicro(); got != want {
		t.Errorf("StartTime() = %d, want %d", got, want)
	}
	if c.Length() != 10 {
		t.Errorf("Length() = %v, want 10", c.Length())
	}
	if c.NumRecords() != 101 {
		t.Errorf("NumRecords() = %d", c.NumRecords())
	}
	if c.Position() != 0 || c.IsEnd() || c.IsRunning() || c.EnableLoop() || c.Speed() != 1 {
		t.Error("unexpected initial state")
	}
}

func TestSeek(t *testing.T) {
	c, _ := openMock(t, 101, 100*time.Millisecond)

	for _, p := range []float64{0, 2.5, 5, 9.99} {
		if err := c.Seek(p); err != nil {
			t.Fatalf("Seek(%v): %v", p, err)
		}
		if c.Position() != p {
			t.Errorf("Position() = %v after Seek(%v)", c.Position(), p)
		}
	}

	if err := c.Seek(3); err != nil {
		t.Fatal(err)
	}
	for _, p := range []float64{c.Length(), -1, 10.5, math.NaN()} {
		if err := c.Seek(p); err.Code() != sdk.ErrorInvalidArguments {
			t.Errorf("Seek(%v) = %v, want %v", p, err, sdk.ErrorInvalidArguments)
		}
		if c.Position() != 3 {
			t.Errorf("failed Seek(%v) moved position to %v", p, c.Position())
		}
	}

	if err := c.SeekRelative(1.5); err != nil || c.Position() != 4.5 {
		t.Errorf("SeekRelative(1.5): err=%v position=%v", err, c.Position())
	}
	if err := c.SeekRelative(-5); err.Code() != sdk.ErrorInvalidArguments || c.Position() != 4.5 {
		t.Errorf("SeekRelative(-5): err=%v position=%v", err, c.Position())
	}
}

func TestSeekThenStep(t *testing.T) {
	c, log := openMock(t, 101, 100*time.Millisecond)
	start := c.StartTime()

	if err := c.Seek(5.0); err != nil {
		t.Fatal(err)
	}
	if err := c.ResumeBlockingOnce(); err != nil {
		t.Fatal(err)
	}
	got := log.all()
	if len(got) != 1 {
		t.Fatalf("got %d callbacks, want 1", len(got))
	}
	if got[0] < start+5_000_000 {
		t.Errorf("callback timestamp %d before %d", got[0], start+5_000_000)
	}
	if c.Time() != got[0] {
		t.Errorf("Time() = %d, want %d", c.Time(), got[0])
	}

	if err := c.Seek(5.05); err != nil {
		t.Fatal(err)
	}
	if err := c.ResumeBlockingOnce(); err != nil {
		t.Fatal(err)
	}
	if ts := log.all()[1]; ts != start+5_100_000 {
		t.Errorf("step after Seek(5.05) delivered %d, want %d", ts, start+5_100_000)
	}
}

func TestResumeBlockingWholeCapture(t *testing.T) {
	c, log := openMock(t, 11, 100*time.Millisecond)

	if err := c.ResumeBlocking(c.Length()); err != nil {
		t.Fatal(err)
	}
	if c.Position() != c.Length() || !c.IsEnd() {
		t.Errorf("position=%v end=%v, want %v/true", c.Position(), c.IsEnd(), c.Length())
	}
	if log.count() != 11 {
		t.Errorf("delivered %d records, want 11", log.count())
	}

	if err := c.ResumeBlocking(1); err != nil {
		t.Fatal(err)
	}
	if err := c.ResumeBlockingOnce(); err != nil {
		t.Fatal(err)
	}
	if log.count() != 11 || !c.IsEnd() {
		t.Error("advancing at the end without loop should do nothing")
	}

	if err := c.Seek(0); err != nil {
		t.Fatal(err)
	}
	if c.IsEnd() {
		t.Error("Seek should clear the end flag")
	}
}

func TestResumeBlockingLoop(t *testing.T) {
	c, log := openMock(t, 11, 100*time.Millisecond)
	if err := c.SetEnableLoop(true); err != nil {
		t.Fatal(err)
	}

	if err := c.ResumeBlocking(c.Length()); err != nil {
		t.Fatal(err)
	}
	if c.IsEnd() {
		t.Error("looping playback should never report the end")
	}
	if c.Position() != 0 {
		t.Errorf("Position() = %v, want wrap to 0", c.Position())
	}
	ts := log.all()
	if len(ts) != 12 || ts[11] != c.StartTime() {
		t.Errorf("expected all records then the first again, got %d records", len(ts))
	}

	if err := c.ResumeBlocking(2.5); err != nil {
		t.Fatal(err)
	}
	if math.Abs(c.Position()-0.5) > 1e-9 {
		t.Errorf("Position() = %v, want 0.5 after wrapping twice", c.Position())
	}
}

func TestResumeBlockingDuration(t *testing.T) {
	c, log := openMock(t, 101, 100*time.Millisecond)

	if err := c.ResumeBlocking(1.0); err != nil {
		t.Fatal(err)
	}
	if c.Position() != 1.0 {
		t.Errorf("Position() = %v, want 1", c.Position())
	}
	if log.count() != 11 {
		t.Errorf("delivered %d records, want 11", log.count())
	}

	if err := c.ResumeBlocking(0.05); err != nil {
		t.Fatal(err)
	}
	if c.Position() != 1.05 || log.count() != 11 {
		t.Errorf("position=%v delivered=%d", c.Position(), log.count())
	}

	if err := c.ResumeBlocking(0); err != nil {
		t.Fatal(err)
	}
	for _, d := range []float64{-0.1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		if err := c.ResumeBlocking(d); err.Code() != sdk.ErrorInvalidArguments {
			t.Errorf("ResumeBlocking(%v) = %v", d, err)
		}
	}
	if c.Position() != 1.05 {
		t.Errorf("invalid calls moved position to %v", c.Position())
	}
}

func TestResumeBlockingRejectsInfiniteDurationWhenLooping(t *testing.T) {
	c, log := openMock(t, 5, 100*time.Millisecond)
	if err := c.SetEnableLoop(true); err != nil {
		t.Fatal(err)
	}
	if err := c.ResumeBlocking(math.Inf(1)); err.Code() != sdk.ErrorInvalidArguments {
		t.Fatalf("ResumeBlocking(+Inf) = %v, want %v", err, sdk.ErrorInvalidArguments)
	}
	if log.count() != 0 || c.Position() != 0 {
		t.Errorf("rejected call delivered %d records, position %v", log.count(), c.Position())
	}
}

func TestResumeBlockingOnceLoop(t *testing.T) {
	c, log := openMock(t, 3, 100*time.Millisecond)
	if err := c.SetEnableLoop(true); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		if err := c.ResumeBlockingOnce(); err != nil {
			t.Fatal(err)
		}
	}
	ts := log.all()
	start := c.StartTime()
	want := []int64{start, start + 100_000, start + 200_000, start}
	for i := range want {
		if ts[i] != want[i] {
			t.Errorf("record %d timestamp = %d, want %d", i, ts[i], want[i])
		}
	}
	if c.IsEnd() {
		t.Error("looping playback should never report the end")
	}
}

func TestSetSpeed(t *testing.T) {
	c, _ := openMock(t, 3, time.Second)
	for _, v := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if err := c.SetSpeed(v); err.Code() != sdk.ErrorInvalidArguments {
			t.Errorf("SetSpeed(%v) = %v", v, err)
		}
	}
	if c.Speed() != 1 {
		t.Errorf("Speed() = %v after invalid updates", c.Speed())
	}
	if err := c.SetSpeed(0.25); err != nil || c.Speed() != 0.25 {
		t.Errorf("SetSpeed(0.25): %v, %v", err, c.Speed())
	}
}

func TestResumeAndPause(t *testing.T) {
	clock := timeutil.NewMockClock(captureStart)
	c, log := openMock(t, 101, 100*time.Millisecond, WithClock(clock))

	if err := c.Resume(); err != nil {
		t.Fatal(err)
	}
	if err := c.Resume(); err != nil {
		t.Errorf("Resume while running = %v", err)
	}
	if !c.IsRunning() {
		t.Fatal("controller should be running")
	}

	clock.BlockUntilTimers(1)
	if log.count() != 1 {
		t.Fatalf("first record should play immediately, delivered %d", log.count())
	}
	clock.Advance(100 * time.Millisecond)
	clock.BlockUntilTimers(2)
	if log.count() != 2 {
		t.Fatalf("delivered %d records, want 2", log.count())
	}

	if err := c.Pause(); err != nil {
		t.Fatal(err)
	}
	if c.IsRunning() {
		t.Fatal("Pause should stop background playback")
	}
	paused := c.Position()
	if paused != 0.1 {
		t.Errorf("paused at %v, want 0.1", paused)
	}

	if err := c.ResumeBlocking(1.0); err != nil {
		t.Fatal(err)
	}
	if c.Position() != paused+1.0 {
		t.Errorf("Position() = %v, want %v", c.Position(), paused+1.0)
	}
	if log.count() != 12 {
		t.Errorf("delivered %d records, want 12", log.count())
	}
}

func TestResumeSpeed(t *testing.T) {
	clock := timeutil.NewMockClock(captureStart)
	c, log := openMock(t, 10, 100*time.Millisecond, WithClock(clock))
	if err := c.SetSpeed(2); err != nil {
		t.Fatal(err)
	}
	if err := c.Resume(); err != nil {
		t.Fatal(err)
	}

	clock.BlockUntilTimers(1)
	clock.Advance(49 * time.Millisecond)
	if log.count() != 1 {
		t.Fatalf("record played early: delivered %d", log.count())
	}
	clock.Advance(time.Millisecond)
	clock.BlockUntilTimers(2)
	if log.count() != 2 {
		t.Fatalf("delivered %d records, want 2", log.count())
	}
}

func TestSeekWhileRunningTakesEffectImmediately(t *testing.T) {
	clock := timeutil.NewMockClock(captureStart)
	c, log := openMock(t, 5, 10*time.Second, WithClock(clock))
	if err := c.Resume(); err != nil {
		t.Fatal(err)
	}
	clock.BlockUntilTimers(1)

	// The next record is 10s away; seeking to 25s must rearm the wait for
	// the record at 30s without waiting out the old gap.
	if err := c.Seek(25); err != nil {
		t.Fatal(err)
	}
	clock.BlockUntilTimers(2)
	clock.Advance(5 * time.Second)
	clock.BlockUntilTimers(3)

	got := log.all()
	want := []int64{captureStart.UnixMicro(), captureStart.Add(30 * time.Second).UnixMicro()}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("delivered %v, want %v", got, want)
	}
}

func TestSetSpeedWhileRunningRearmsWait(t *testing.T) {
	clock := timeutil.NewMockClock(captureStart)
	c, log := openMock(t, 5, 10*time.Second, WithClock(clock))
	if err := c.Resume(); err != nil {
		t.Fatal(err)
	}
	clock.BlockUntilTimers(1)
	clock.Advance(4 * time.Second)

	// 10s of capture at 2x is 5s of wall time, 4s of which have passed.
	if err := c.SetSpeed(2); err != nil {
		t.Fatal(err)
	}
	clock.BlockUntilTimers(2)
	if log.count() != 1 {
		t.Fatalf("record played early: delivered %d", log.count())
	}
	clock.Advance(time.Second)
	clock.BlockUntilTimers(3)
	if log.count() != 2 {
		t.Errorf("delivered %d records, want 2", log.count())
	}
}

func TestResumeBlockingPausesBackground(t *testing.T) {
	clock := timeutil.NewMockClock(captureStart)
	c, log := openMock(t, 10, 100*time.Millisecond, WithClock(clock))
	if err := c.Resume(); err != nil {
		t.Fatal(err)
	}
	clock.BlockUntilTimers(1)

	if err := c.ResumeBlockingOnce(); err != nil {
		t.Fatal(err)
	}
	if c.IsRunning() {
		t.Error("blocking advance should pause background playback")
	}
	if log.count() != 2 || c.Position() != 0.1 {
		t.Errorf("delivered=%d position=%v", log.count(), c.Position())
	}
}

func TestBackgroundReachesEnd(t *testing.T) {
	clock := timeutil.NewMockClock(captureStart)
	c, log := openMock(t, 3, 100*time.Millisecond, WithClock(clock))
	if err := c.Resume(); err != nil {
		t.Fatal(err)
	}
	clock.BlockUntilTimers(1)
	clock.Advance(100 * time.Millisecond)
	clock.BlockUntilTimers(2)
	clock.Advance(100 * time.Millisecond)

	testutil.Eventually(t, "playback to stop", func() bool { return !c.IsRunning() })
	if !c.IsEnd() || c.Position() != c.Length() {
		t.Errorf("end=%v position=%v", c.IsEnd(), c.Position())
	}
	if log.count() != 3 {
		t.Errorf("delivered %d records, want 3", log.count())
	}
}

func TestBackgroundLoop(t *testing.T) {
	clock := timeutil.NewMockClock(captureStart)
	c, log := openMock(t, 3, 100*time.Millisecond, WithClock(clock))
	if err := c.SetEnableLoop(true); err != nil {
		t.Fatal(err)
	}
	if err := c.Resume(); err != nil {
		t.Fatal(err)
	}
	clock.BlockUntilTimers(1)
	clock.Advance(100 * time.Millisecond)
	clock.BlockUntilTimers(2)
	clock.Advance(100 * time.Millisecond)
	clock.BlockUntilTimers(3)

	if log.count() != 4 {
		t.Fatalf("delivered %d records, want 4", log.count())
	}
	if !c.IsRunning() || c.IsEnd() {
		t.Error("looping playback should keep running")
	}
	if ts := log.all()[3]; ts != c.StartTime() {
		t.Errorf("wrapped record timestamp = %d, want %d", ts, c.StartTime())
	}
	if err := c.Pause(); err != nil {
		t.Fatal(err)
	}
}

func TestPauseInterruptsBlockingAdvance(t *testing.T) {
	s := sdk.NewSession(nil)
	if err := s.Initialize(sdk.APIVersion, sdk.DefaultOptions(), nil, nil); err != nil {
		t.Fatal(err)
	}
	started := make(chan struct{})
	release := make(chan struct{})
	var delivered int
	if err := s.ListenNetworkPackets(func(sdk.SensorHandle, int64, []byte, any) {
		delivered++
		if delivered == 1 {
			close(started)
			<-release
		}
	}, nil); err != nil {
		t.Fatal(err)
	}

	c := New(s, WithSourceFactory(capture.NewMockSourceFactory(capture.NewMockSource(makePackets(50, 100*time.Millisecond)))))
	if err := c.Open("mock.pcap"); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close().Ignore() })

	result := make(chan *sdk.SensorError)
	go func() { result <- c.ResumeBlocking(4) }()
	<-started
	if err := c.Pause(); err != nil {
		t.Fatal(err)
	}
	close(release)
	if err := <-result; err != nil {
		t.Fatalf("ResumeBlocking() = %v", err)
	}
	if delivered != 1 || c.Position() != 0 {
		t.Errorf("delivered=%d position=%v, want early return after the first record", delivered, c.Position())
	}
}

type failingDriver struct{}

func (failingDriver) Receive(*sdk.Session, sdk.SensorHandle, int64, []byte) error {
	return errors.New("unknown packet type 0x7f")
}

func (failingDriver) Reset() {}

func TestDeliveryErrorsReachErrorStream(t *testing.T) {
	s, _ := newSession(t, failingDriver{})
	var codes []sdk.ErrorCode
	if err := s.ListenErrors(func(_ sdk.SensorHandle, code sdk.ErrorCode, _ string, _ []byte, _ any) {
		codes = append(codes, code)
	}, nil); err != nil {
		t.Fatal(err)
	}

	c := New(s, WithSourceFactory(capture.NewMockSourceFactory(capture.NewMockSource(makePackets(4, 100*time.Millisecond)))))
	if err := c.Open("mock.pcap"); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close().Ignore() })

	if err := c.ResumeBlocking(c.Length()); err != nil {
		t.Fatalf("ResumeBlocking() = %v", err)
	}
	if len(codes) != 4 {
		t.Fatalf("got %d error events, want 4", len(codes))
	}
	for _, code := range codes {
		if code != sdk.ErrorCommunication {
			t.Errorf("code = %v, want %v", code, sdk.ErrorCommunication)
		}
	}
}

func TestConcurrentSettersWhileRunning(t *testing.T) {
	clock := timeutil.NewMockClock(captureStart)
	c, _ := openMock(t, 200, 10*time.Millisecond, WithClock(clock))
	if err := c.Resume(); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			if err := c.SetSpeed(float64(i%4) + 0.5); err != nil {
				t.Error(err)
			}
			if err := c.SetEnableLoop(i%2 == 0); err != nil {
				t.Error(err)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			clock.Advance(5 * time.Millisecond)
		}
	}()
	wg.Wait()

	if err := c.Pause(); err != nil {
		t.Fatal(err)
	}
	if c.IsRunning() {
		t.Error("Pause should stop background playback")
	}
}

func TestReplayPCAPFile(t *testing.T) {
	live := sdk.HandleFromAddr(netip.MustParseAddr("192.168.32.10"))
	path := testutil.WriteCapture(t, testutil.EvenPackets(captureStart, 20, 50*time.Millisecond, live))
	start := captureStart.UnixMicro()

	s, log := newSession(t, nil)
	if err := s.ListenErrors(func(_ sdk.SensorHandle, code sdk.ErrorCode, msg string, _ []byte, _ any) {
		t.Errorf("unexpected error event %v: %s", code, msg)
	}, nil); err != nil {
		t.Fatal(err)
	}
	c := New(s, WithPortFilter(sdk.DefaultPort))
	if err := c.Open(path); err != nil {
		t.Fatalf("Open(%s): %v", path, err)
	}
	t.Cleanup(func() { c.Close().Ignore() })

	if c.NumRecords() != 20 || c.StartTime() != start {
		t.Fatalf("records=%d start=%d", c.NumRecords(), c.StartTime())
	}
	if math.Abs(c.Length()-0.95) > 1e-9 {
		t.Errorf("Length() = %v, want 0.95", c.Length())
	}
	if err := c.ResumeBlocking(c.Length()); err != nil {
		t.Fatal(err)
	}
	if log.count() != 20 {
		t.Errorf("delivered %d records, want 20", log.count())
	}

	if err := New(s).Open(filepath.Join(t.TempDir(), "missing.pcap")); err.Code() != sdk.ErrorFileIO {
		t.Errorf("missing file: %v", err)
	}
}
