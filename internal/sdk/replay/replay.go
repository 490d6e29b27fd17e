// Package replay plays recorded sensor traffic back into an sdk.Session.
//
// A Controller is Closed until Open succeeds, then either paused or running.
// Records are advanced one at a time: blocking calls (ResumeBlockingOnce,
// ResumeBlocking) deliver on the caller's goroutine without delay, while
// Resume starts a background goroutine paced by the capture timestamps.
// The two modes never overlap; blocking calls pause the background run first.
//
// Callbacks run on the advancing goroutine. They must not call back into the
// Controller's advancement methods (Pause, Close, Resume*), which wait for the
// in-flight record to finish.
package replay

import (
	"errors"
	"io/fs"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/cepton-sdk-go/internal/capture"
	"github.com/banshee-data/cepton-sdk-go/internal/monitoring"
	"github.com/banshee-data/cepton-sdk-go/internal/sdk"
	"github.com/banshee-data/cepton-sdk-go/internal/timeutil"
)

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the clock used to pace background playback.
func WithClock(clock timeutil.Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithSourceFactory sets how capture files are read.
func WithSourceFactory(f capture.SourceFactory) Option {
	return func(c *Controller) { c.sources = f }
}

// WithPortFilter keeps only datagrams sent to port. Zero keeps everything.
func WithPortFilter(port uint16) Option {
	return func(c *Controller) { c.loadOpts.Port = port }
}

// Controller drives capture replay for one Session.
type Controller struct {
	session  *sdk.Session
	clock    timeutil.Clock
	sources  capture.SourceFactory
	loadOpts capture.LoadOptions

	// advance is held by whichever goroutine is delivering records.
	advance sync.Mutex

	mu       sync.Mutex
	capture  *capture.Capture
	id       uuid.UUID
	position float64
	next     int
	seeks    uint64
	loop     bool
	speed    float64
	end      bool
	stop     chan struct{}
	done     chan struct{}

	// wake interrupts the background wait after a seek or speed change.
	wake chan struct{}

	// interrupts is bumped by Pause and Close so blocking advances return
	// at the next record boundary.
	interrupts atomic.Uint64
}

// New returns a closed Controller that delivers records to session.
func New(session *sdk.Session, opts ...Option) *Controller {
	c := &Controller{
		session: session,
		clock:   timeutil.RealClock{},
		sources: capture.PCAPSourceFactory{},
		speed:   1,
		wake:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open loads and indexes a capture file. The controller starts paused at
// position 0.
func (c *Controller) Open(path string) *sdk.SensorError {
	if !c.session.IsInitialized() {
		return sdk.NewError(sdk.ErrorNotInitialized, "")
	}
	if c.IsOpen() {
		return sdk.Errorf(sdk.ErrorAlreadyInitialized, "capture replay already open: %s", c.Filename())
	}

	cp, err := capture.Load(c.sources.NewSource(), path, c.loadOpts)
	if err != nil {
		return sdk.FromError(classifyLoadError(err), err)
	}

	c.mu.Lock()
	if c.capture != nil {
		c.mu.Unlock()
		return sdk.Errorf(sdk.ErrorAlreadyInitialized, "capture replay already open: %s", c.capture.Path)
	}
	c.capture = cp
	c.id = uuid.New()
	c.position, c.next, c.end = 0, 0, false
	c.seeks++
	id := c.id
	c.mu.Unlock()

	c.session.ClearMockSensors()
	monitoring.Logf("[replay %s] opened %s: %d records, %.3fs", id, path, len(cp.Records), cp.Length)
	return nil
}

func classifyLoadError(err error) sdk.ErrorCode {
	var pathErr *fs.PathError
	switch {
	case errors.Is(err, capture.ErrInvalidFormat):
		return sdk.ErrorInvalidFileType
	case errors.Is(err, capture.ErrNoRecords):
		return sdk.ErrorCorruptFile
	case errors.As(err, &pathErr), errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		return sdk.ErrorFileIO
	default:
		return sdk.ErrorCorruptFile
	}
}

// Close stops playback and releases the capture. Closing a closed
// controller succeeds.
func (c *Controller) Close() *sdk.SensorError {
	c.interrupts.Add(1)
	c.pauseBackground()

	c.advance.Lock()
	defer c.advance.Unlock()
	c.mu.Lock()
	cp, id := c.capture, c.id
	c.capture = nil
	c.position, c.next, c.end = 0, 0, false
	c.mu.Unlock()

	if cp == nil {
		return nil
	}
	c.session.ClearMockSensors()
	monitoring.Logf("[replay %s] closed %s", id, cp.Path)
	return nil
}

// IsOpen reports whether a capture is loaded.
func (c *Controller) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capture != nil
}

func (c *Controller) requireOpen() *sdk.SensorError {
	if !c.IsOpen() {
		return sdk.NewError(sdk.ErrorNotOpen, "capture replay not open")
	}
	return nil
}

// ID identifies the current replay session in logs. It is the zero UUID
// while closed.
func (c *Controller) ID() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capture == nil {
		return uuid.Nil
	}
	return c.id
}

// Filename returns the path of the open capture, or "".
func (c *Controller) Filename() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capture == nil {
		return ""
	}
	return c.capture.Path
}

// StartTime returns the timestamp of the first record in unix microseconds.
func (c *Controller) StartTime() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capture == nil {
		return 0
	}
	return c.capture.StartTime
}

// Position returns the elapsed capture time in seconds.
func (c *Controller) Position() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

// Time returns the absolute capture time at the current position in unix
// microseconds.
func (c *Controller) Time() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capture == nil {
		return 0
	}
	return c.capture.StartTime + int64(math.Round(c.position*1e6))
}

// Length returns the capture duration in seconds.
func (c *Controller) Length() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capture == nil {
		return 0
	}
	return c.capture.Length
}

// NumRecords returns the number of packets in the open capture.
func (c *Controller) NumRecords() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capture == nil {
		return 0
	}
	return len(c.capture.Records)
}

// IsEnd reports whether advancement reached the end of the capture with
// looping disabled.
func (c *Controller) IsEnd() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.end
}

// EnableLoop reports whether playback wraps at the end of the capture.
func (c *Controller) EnableLoop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loop
}

// Speed returns the playback speed multiplier.
func (c *Controller) Speed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}

// IsRunning reports whether the background goroutine is advancing.
func (c *Controller) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop != nil
}

// Seek moves to position seconds, which must lie in [0, Length()). The next
// record delivered is the first at or after position.
func (c *Controller) Seek(position float64) *sdk.SensorError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seekLocked(position)
}

// SeekRelative moves by delta seconds from the current position.
func (c *Controller) SeekRelative(delta float64) *sdk.SensorError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seekLocked(c.position + delta)
}

func (c *Controller) seekLocked(position float64) *sdk.SensorError {
	if c.capture == nil {
		return sdk.NewError(sdk.ErrorNotOpen, "capture replay not open")
	}
	if math.IsNaN(position) || position < 0 || position >= c.capture.Length {
		return sdk.Errorf(sdk.ErrorInvalidArguments, "seek position %v outside [0, %v)", position, c.capture.Length)
	}
	c.position = position
	c.next = c.capture.Index(position)
	c.end = false
	c.seeks++
	c.signalLocked()
	return nil
}

func (c *Controller) signalLocked() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// SetEnableLoop enables or disables wrapping. It takes effect on the next
// record.
func (c *Controller) SetEnableLoop(loop bool) *sdk.SensorError {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loop = loop
	return nil
}

// SetSpeed sets the playback speed multiplier. It takes effect on the next
// record.
func (c *Controller) SetSpeed(speed float64) *sdk.SensorError {
	if math.IsNaN(speed) || math.IsInf(speed, 0) || speed <= 0 {
		return sdk.Errorf(sdk.ErrorInvalidArguments, "invalid replay speed %v", speed)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speed = speed
	c.signalLocked()
	return nil
}

// takeLocked claims the next record, wrapping when looping. It reports false
// at the end of a non-looping capture.
func (c *Controller) takeLocked() (capture.Record, bool) {
	records := c.capture.Records
	if c.next >= len(records) {
		if !c.loop || c.capture.Length <= 0 {
			c.position = c.capture.Length
			c.end = true
			return capture.Record{}, false
		}
		c.position, c.next = 0, 0
	}
	rec := records[c.next]
	c.next++
	c.position = rec.Offset
	c.end = false
	return rec, true
}

func (c *Controller) deliver(rec capture.Record) {
	if err := c.session.MockNetworkReceive(rec.Handle, rec.Timestamp, rec.Payload); err != nil {
		c.session.ReportError(rec.Handle, err.Code(), err.Message())
	}
}

// ResumeBlockingOnce delivers exactly one record on the calling goroutine.
// At the end of a non-looping capture it does nothing and IsEnd reports true.
func (c *Controller) ResumeBlockingOnce() *sdk.SensorError {
	if err := c.requireOpen(); err != nil {
		return err
	}
	c.pauseBackground()

	c.advance.Lock()
	defer c.advance.Unlock()
	c.mu.Lock()
	if c.capture == nil {
		c.mu.Unlock()
		return sdk.NewError(sdk.ErrorNotOpen, "capture replay not open")
	}
	rec, ok := c.takeLocked()
	c.mu.Unlock()
	if ok {
		c.deliver(rec)
	}
	return nil
}

// ResumeBlocking delivers every record in the next d seconds of capture time
// without delay. It returns early if Pause or Close is called concurrently.
func (c *Controller) ResumeBlocking(d float64) *sdk.SensorError {
	if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
		return sdk.Errorf(sdk.ErrorInvalidArguments, "invalid duration %v", d)
	}
	if err := c.requireOpen(); err != nil {
		return err
	}
	c.pauseBackground()
	gen := c.interrupts.Load()

	c.advance.Lock()
	defer c.advance.Unlock()

	c.mu.Lock()
	target := c.position + d
	c.mu.Unlock()
	for c.interrupts.Load() == gen {
		c.mu.Lock()
		cp := c.capture
		if cp == nil {
			c.mu.Unlock()
			return nil
		}
		if c.next < len(cp.Records) {
			if cp.Records[c.next].Offset > target {
				c.position = target
				c.mu.Unlock()
				return nil
			}
			rec, _ := c.takeLocked()
			c.mu.Unlock()
			c.deliver(rec)
			continue
		}
		if !c.loop || cp.Length <= 0 {
			c.position = cp.Length
			c.end = true
			c.mu.Unlock()
			return nil
		}
		target -= cp.Length
		c.position, c.next = 0, 0
		c.mu.Unlock()
	}
	return nil
}

// Resume starts background playback. Resuming a running controller succeeds
// without effect.
func (c *Controller) Resume() *sdk.SensorError {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capture == nil {
		return sdk.NewError(sdk.ErrorNotOpen, "capture replay not open")
	}
	if c.stop != nil {
		return nil
	}
	select {
	case <-c.wake:
	default:
	}
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.run(c.stop, c.done, c.id)
	return nil
}

// Pause stops background playback after the in-flight record and makes any
// concurrent blocking advance return early. It always succeeds.
func (c *Controller) Pause() *sdk.SensorError {
	c.interrupts.Add(1)
	c.pauseBackground()
	return nil
}

func (c *Controller) pauseBackground() {
	c.mu.Lock()
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (c *Controller) run(stop chan struct{}, done chan<- struct{}, id uuid.UUID) {
	defer close(done)
	c.advance.Lock()
	defer c.advance.Unlock()

	monitoring.Debugf("[replay %s] background playback started", id)
	last := c.clock.Now()
	for {
		c.mu.Lock()
		if c.capture == nil || c.stop != stop {
			c.mu.Unlock()
			return
		}
		if c.next >= len(c.capture.Records) && (!c.loop || c.capture.Length <= 0) {
			c.takeLocked()
			c.stop, c.done = nil, nil
			pos := c.position
			c.mu.Unlock()
			monitoring.Logf("[replay %s] reached end of capture at %.3fs", id, pos)
			return
		}
		offset := 0.0
		if c.next < len(c.capture.Records) {
			offset = c.capture.Records[c.next].Offset
		}
		delay := time.Duration((offset - c.position) / c.speed * float64(time.Second))
		seq := c.seeks
		if c.next >= len(c.capture.Records) {
			delay = 0
		}
		c.mu.Unlock()

		elapsed, ok := c.sleep(delay-c.clock.Since(last), stop)
		if !ok {
			return
		}

		c.mu.Lock()
		if c.capture == nil || c.stop != stop {
			c.mu.Unlock()
			return
		}
		if c.seeks != seq {
			c.mu.Unlock()
			last = c.clock.Now()
			continue
		}
		if !elapsed {
			// Speed changed: recompute the delay from the same start.
			c.mu.Unlock()
			continue
		}
		rec, ok := c.takeLocked()
		c.mu.Unlock()
		if ok {
			c.deliver(rec)
		}
		last = c.clock.Now()
	}
}

// sleep waits d on the controller clock. elapsed is false when a seek or speed
// change cut the wait short; ok is false once stop is closed.
func (c *Controller) sleep(d time.Duration, stop <-chan struct{}) (elapsed, ok bool) {
	if d <= 0 {
		ok = timeutil.Wait(c.clock, 0, stop)
		return ok, ok
	}
	timer := c.clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-stop:
		return false, false
	case <-c.wake:
		return false, true
	case <-timer.C():
		return true, true
	}
}
