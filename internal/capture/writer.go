package capture

import (
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/banshee-data/cepton-sdk-go/internal/sdk"
)

const snapLen = 65536

// Writer records sensor packets into a classic pcap file. Each payload is
// wrapped in synthetic Ethernet, IPv4 and UDP headers so the result opens in
// standard tools and in PCAPSource.
type Writer struct {
	mu      sync.Mutex
	f       *os.File
	w       *pcapgo.Writer
	dstPort uint16
	buf     gopacket.SerializeBuffer
	count   int
}

// Create creates path and writes the pcap file header. dstPort is written as
// the UDP destination port of every record.
func Create(path string, dstPort uint16) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create capture file %s: %w", path, err)
	}
	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(snapLen, layers.LinkTypeEthernet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write pcap header: %w", err)
	}
	return &Writer{
		f:       f,
		w:       w,
		dstPort: dstPort,
		buf:     gopacket.NewSerializeBuffer(),
	}, nil
}

// WritePacket appends one packet. It matches sdk.NetworkPacketCallback
// semantics: handle supplies the source address and timestamp is unix
// microseconds.
func (w *Writer) WritePacket(handle sdk.SensorHandle, timestamp int64, payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	src := handle.Addr().As4()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0x00, src[0], src[1], src[2], src[3]},
		DstMAC:       net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IP(src[:]),
		DstIP:    net.IPv4bcast,
	}
	udp := &layers.UDP{
		SrcPort: layers.UDPPort(w.dstPort),
		DstPort: layers.UDPPort(w.dstPort),
	}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		return err
	}

	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(w.buf, opts, eth, ip, udp, gopacket.Payload(payload)); err != nil {
		return fmt.Errorf("failed to serialise packet: %w", err)
	}
	data := w.buf.Bytes()
	ci := gopacket.CaptureInfo{
		Timestamp:     time.UnixMicro(timestamp),
		CaptureLength: len(data),
		Length:        len(data),
	}
	if err := w.w.WritePacket(ci, data); err != nil {
		return fmt.Errorf("failed to write packet: %w", err)
	}
	w.count++
	return nil
}

// Count returns the number of packets written.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Close flushes and closes the file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}
