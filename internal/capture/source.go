// Package capture reads and writes recorded sensor traffic in PCAP and PCAPNG
// files.
package capture

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

var (
	// ErrInvalidFormat is returned when a file is neither PCAP nor PCAPNG.
	ErrInvalidFormat = errors.New("not a pcap or pcapng capture")
	// ErrNoRecords is returned when a capture contains no usable UDP payloads.
	ErrNoRecords = errors.New("capture contains no sensor packets")
)

// Packet is a UDP datagram read from a capture.
type Packet struct {
	Timestamp time.Time
	Src       netip.Addr
	SrcPort   uint16
	DstPort   uint16
	Payload   []byte
}

// PacketSource reads UDP packets from a capture file.
// This abstraction enables unit testing without real capture files.
type PacketSource interface {
	// Open opens a capture file for reading.
	Open(filename string) error

	// NextPacket returns the next UDP packet, or io.EOF when the file is
	// exhausted. Non-UDP frames are skipped.
	NextPacket() (*Packet, error)

	// Close releases the file.
	Close() error
}

// SourceFactory creates packet sources. Replay uses it so tests can inject
// in-memory captures.
type SourceFactory interface {
	NewSource() PacketSource
}

type packetDataReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
}

// PCAPSource implements PacketSource with gopacket's pure Go pcap readers.
type PCAPSource struct {
	f        *os.File
	r        packetDataReader
	linkType layers.LinkType
	parser   *gopacket.DecodingLayerParser
	eth      layers.Ethernet
	sll      layers.LinuxSLL
	ip4      layers.IPv4
	ip6      layers.IPv6
	udp      layers.UDP
	decoded  []gopacket.LayerType
}

// NewPCAPSource returns an unopened PCAPSource.
func NewPCAPSource() *PCAPSource {
	return &PCAPSource{}
}

const pcapngMagic = 0x0A0D0D0A

// Open detects the container format and prepares the reader.
func (s *PCAPSource) Open(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open capture file %s: %w", filename, err)
	}
	br := bufio.NewReader(f)
	magic, err := br.Peek(4)
	if err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", filename, ErrInvalidFormat)
	}

	if binary.LittleEndian.Uint32(magic) == pcapngMagic {
		r, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			f.Close()
			return fmt.Errorf("%s: %w: %v", filename, ErrInvalidFormat, err)
		}
		s.r, s.linkType = r, r.LinkType()
	} else {
		r, err := pcapgo.NewReader(br)
		if err != nil {
			f.Close()
			return fmt.Errorf("%s: %w: %v", filename, ErrInvalidFormat, err)
		}
		s.r, s.linkType = r, r.LinkType()
	}
	s.f = f

	first := layers.LayerTypeEthernet
	switch s.linkType {
	case layers.LinkTypeLinuxSLL:
		first = layers.LayerTypeLinuxSLL
	case layers.LinkTypeRaw:
		first = layers.LayerTypeIPv4
	}
	s.parser = gopacket.NewDecodingLayerParser(first, &s.eth, &s.sll, &s.ip4, &s.ip6, &s.udp)
	s.parser.IgnoreUnsupported = true
	return nil
}

// NextPacket returns the next UDP packet in the file.
func (s *PCAPSource) NextPacket() (*Packet, error) {
	if s.r == nil {
		return nil, errors.New("capture source not open")
	}
	for {
		data, ci, err := s.r.ReadPacketData()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				// A truncated trailing record is treated as end of file.
				return nil, io.EOF
			}
			return nil, fmt.Errorf("failed to read capture record: %w", err)
		}

		if err := s.parser.DecodeLayers(data, &s.decoded); err != nil {
			continue
		}
		var (
			src   netip.Addr
			isUDP bool
		)
		for _, lt := range s.decoded {
			switch lt {
			case layers.LayerTypeIPv4:
				src, _ = netip.AddrFromSlice(s.ip4.SrcIP.To4())
			case layers.LayerTypeIPv6:
				src, _ = netip.AddrFromSlice(s.ip6.SrcIP)
			case layers.LayerTypeUDP:
				isUDP = true
			}
		}
		if !isUDP || len(s.udp.Payload) == 0 {
			continue
		}
		payload := make([]byte, len(s.udp.Payload))
		copy(payload, s.udp.Payload)
		return &Packet{
			Timestamp: ci.Timestamp,
			Src:       src,
			SrcPort:   uint16(s.udp.SrcPort),
			DstPort:   uint16(s.udp.DstPort),
			Payload:   payload,
		}, nil
	}
}

// Close closes the underlying file.
func (s *PCAPSource) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f, s.r = nil, nil
	return err
}

// PCAPSourceFactory creates PCAPSource instances.
type PCAPSourceFactory struct{}

// NewSource returns a new PCAPSource.
func (PCAPSourceFactory) NewSource() PacketSource {
	return NewPCAPSource()
}

// MockSource implements PacketSource for testing.
type MockSource struct {
	mu sync.Mutex

	// Packets holds the packets to return from NextPacket.
	Packets []Packet

	// ReadIndex tracks the current position in Packets.
	ReadIndex int

	// OpenError is returned by Open if set.
	OpenError error

	// ReadError is returned by NextPacket once all packets are consumed, if set.
	ReadError error

	// OpenedFile records the filename passed to Open.
	OpenedFile string

	// Closed indicates whether Close was called.
	Closed bool
}

// NewMockSource creates a MockSource with the given packets.
func NewMockSource(packets []Packet) *MockSource {
	return &MockSource{Packets: packets}
}

// Open records the filename and returns any configured error.
func (m *MockSource) Open(filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.OpenedFile = filename
	m.ReadIndex = 0
	m.Closed = false
	return m.OpenError
}

// NextPacket returns the next packet from the mock buffer.
func (m *MockSource) NextPacket() (*Packet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Closed {
		return nil, errors.New("source closed")
	}
	if m.ReadIndex >= len(m.Packets) {
		if m.ReadError != nil {
			return nil, m.ReadError
		}
		return nil, io.EOF
	}
	pkt := m.Packets[m.ReadIndex]
	m.ReadIndex++
	return &pkt, nil
}

// Close marks the source as closed.
func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Closed = true
	return nil
}

// MockSourceFactory hands out the same MockSource on every call.
type MockSourceFactory struct {
	mu sync.Mutex

	// Source is the source returned from NewSource.
	Source *MockSource

	// CreateCalls records the number of NewSource calls.
	CreateCalls int
}

// NewMockSourceFactory creates a MockSourceFactory.
func NewMockSourceFactory(source *MockSource) *MockSourceFactory {
	return &MockSourceFactory{Source: source}
}

// NewSource returns the configured mock source.
func (f *MockSourceFactory) NewSource() PacketSource {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.CreateCalls++
	return f.Source
}
