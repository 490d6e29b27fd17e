// Package network feeds live sensor traffic from a UDP socket into an
// sdk.Session.
package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/banshee-data/cepton-sdk-go/internal/monitoring"
	"github.com/banshee-data/cepton-sdk-go/internal/sdk"
	"github.com/banshee-data/cepton-sdk-go/internal/timeutil"
)

// ErrNetworkDisabled is returned by Start when the session has
// sdk.ControlDisableNetwork set.
var ErrNetworkDisabled = errors.New("network input disabled by control flags")

// maxDatagram covers the largest sensor packet with margin.
const maxDatagram = 65535

// Recorder receives every datagram the listener accepts. capture.Writer
// implements it.
type Recorder interface {
	WritePacket(handle sdk.SensorHandle, timestamp int64, payload []byte) error
}

// Config configures a UDPListener.
type Config struct {
	// Address overrides the listen address. Empty means ":<session port>".
	Address     string
	RcvBuf      int
	LogInterval time.Duration
	Sockets     UDPSocketFactory
	Recorder    Recorder
	Clock       timeutil.Clock
}

// UDPListener reads datagrams and hands them to the session as if they had
// been replayed, stamped with host arrival time.
type UDPListener struct {
	session     *sdk.Session
	address     string
	rcvBuf      int
	logInterval time.Duration
	sockets     UDPSocketFactory
	recorder    Recorder
	clock       timeutil.Clock
	stats       Stats
}

// NewUDPListener creates a listener for session.
func NewUDPListener(session *sdk.Session, cfg Config) *UDPListener {
	l := &UDPListener{
		session:     session,
		address:     cfg.Address,
		rcvBuf:      cfg.RcvBuf,
		logInterval: cfg.LogInterval,
		sockets:     cfg.Sockets,
		recorder:    cfg.Recorder,
		clock:       cfg.Clock,
	}
	if l.logInterval == 0 {
		l.logInterval = time.Minute
	}
	if l.sockets == nil {
		l.sockets = RealUDPSocketFactory{}
	}
	if l.clock == nil {
		l.clock = timeutil.RealClock{}
	}
	return l
}

// Stats returns the listener's counters.
func (l *UDPListener) Stats() *Stats { return &l.stats }

// Start listens until ctx is cancelled, which is reported as ctx.Err().
func (l *UDPListener) Start(ctx context.Context) error {
	if !l.session.IsInitialized() {
		return errors.New("session not initialized")
	}
	if l.session.HasControlFlag(sdk.ControlDisableNetwork) {
		return ErrNetworkDisabled
	}

	address := l.address
	if address == "" {
		address = ":" + strconv.Itoa(int(l.session.Port()))
	}
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}
	conn, err := l.sockets.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address: %w", err)
	}
	defer conn.Close()

	if l.rcvBuf > 0 {
		if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
			monitoring.Logf("Warning: failed to set UDP receive buffer size to %d: %v", l.rcvBuf, err)
		}
	}
	monitoring.Logf("UDP listener started on %s", conn.LocalAddr())

	go l.logStats(ctx)

	buf := make([]byte, maxDatagram)
	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("UDP listener stopping: %v", ctx.Err())
			l.stats.logStats(l.clock.Now())
			return ctx.Err()
		default:
		}

		conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			monitoring.Errorf("UDP read error: %v", err)
			continue
		}
		l.handlePacket(from, buf[:n])
	}
}

func (l *UDPListener) handlePacket(from *net.UDPAddr, packet []byte) {
	l.stats.packets.Add(1)
	l.stats.bytes.Add(int64(len(packet)))

	handle := sdk.HandleFromAddr(from.AddrPort().Addr())
	if handle == 0 {
		l.stats.dropped.Add(1)
		monitoring.Debugf("dropping packet from non-IPv4 sender %v", from)
		return
	}
	ts := l.clock.Now().UnixMicro()

	if l.recorder != nil {
		if err := l.recorder.WritePacket(handle, ts, packet); err != nil {
			monitoring.Errorf("failed to record packet from %s: %v", handle, err)
		} else {
			l.stats.recorded.Add(1)
		}
	}

	if err := l.session.MockNetworkReceive(handle, ts, packet); err != nil {
		l.stats.dropped.Add(1)
		l.session.ReportError(handle, err.Code(), err.Message())
	}
}

func (l *UDPListener) logStats(ctx context.Context) {
	ticker := time.NewTicker(l.logInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.stats.logStats(l.clock.Now())
		}
	}
}
