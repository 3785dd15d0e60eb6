package decoder

import (
	"testing"
)

func TestDecodeUDP(t *testing.T) {
	data := []byte{
		0x13, 0x88, // Src Port: 5000
		0x13, 0x89, // Dst Port: 5001
		0x00, 0x0C, // Length: 12 bytes (8 header + 4 payload)
		0x00, 0x00, // Checksum
		0x01, 0x02, 0x03, 0x04, // Payload
	}

	transport, payload, err := decodeUDP(data)
	if err != nil {
		t.Fatalf("decodeUDP failed: %v", err)
	}

	if transport.SrcPort != 5000 || transport.DstPort != 5001 {
		t.Errorf("Expected ports 5000->5001, got %d->%d", transport.SrcPort, transport.DstPort)
	}
	if len(payload) != 4 {
		t.Errorf("Expected payload length 4, got %d", len(payload))
	}
}

func TestDecodeUDPHeaderOnly(t *testing.T) {
	data := []byte{0x13, 0x88, 0x13, 0x89, 0x00, 0x08, 0x00, 0x00}

	_, payload, err := decodeUDP(data)
	if err != nil {
		t.Fatalf("decodeUDP failed: %v", err)
	}
	if len(payload) != 0 {
		t.Errorf("Expected empty payload, got %d bytes", len(payload))
	}
}

func TestDecodeTCP(t *testing.T) {
	data := []byte{
		0x13, 0x88, // Src Port: 5000
		0x13, 0x89, // Dst Port: 5001
		0x00, 0x00, 0x00, 0x01, // Seq Num: 1
		0x00, 0x00, 0x00, 0x02, // Ack Num: 2
		0x50,       // Data Offset: 5 (20 bytes)
		0x18,       // Flags: ACK + PSH
		0x20, 0x00, // Window Size
		0x00, 0x00, // Checksum
		0x00, 0x00, // Urgent Pointer
		0x01, 0x02, 0x03, 0x04, // Payload
	}

	transport, payload, err := decodeTCP(data)
	if err != nil {
		t.Fatalf("decodeTCP failed: %v", err)
	}

	if transport.SrcPort != 5000 || transport.DstPort != 5001 {
		t.Errorf("Expected ports 5000->5001, got %d->%d", transport.SrcPort, transport.DstPort)
	}
	if len(payload) != 4 {
		t.Errorf("Expected payload length 4, got %d", len(payload))
	}
}

func TestDecodeTCPWithOptions(t *testing.T) {
	data := make([]byte, 32+6)
	data[12] = 0x80 // Data offset: 8 words (32 bytes)
	for i := 32; i < len(data); i++ {
		data[i] = byte(i)
	}

	_, payload, err := decodeTCP(data)
	if err != nil {
		t.Fatalf("decodeTCP failed: %v", err)
	}
	if len(payload) != 6 || payload[0] != 32 {
		t.Errorf("Expected 6 payload bytes starting at offset 32, got %v", payload)
	}
}

func TestDecodeTCPUntrustedDataOffset(t *testing.T) {
	tests := []struct {
		name   string
		size   int
		offset byte
	}{
		{"offset below minimum", 40, 0x40},
		{"offset zero", 40, 0x00},
		{"options fill capture", 24, 0x60},
		{"offset far beyond capture", 24, 0xF0},
		{"offset one word beyond capture", 36, 0xA0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := make([]byte, tt.size)
			data[12] = tt.offset
			headerLen := int(tt.offset>>4) * 4

			_, payload, err := decodeTCP(data)
			fits := headerLen >= tcpHeaderMinLen && headerLen <= tt.size
			if fits {
				if err != nil {
					t.Fatalf("expected success, got %v", err)
				}
				if len(payload) != tt.size-headerLen {
					t.Errorf("expected payload %d, got %d", tt.size-headerLen, len(payload))
				}
				return
			}
			if err != errShortTransport {
				t.Errorf("expected errShortTransport, got %v", err)
			}
		})
	}
}

func TestDecodeUDPTooShort(t *testing.T) {
	data := []byte{0x13, 0x88, 0x13} // Too short

	_, _, err := decodeUDP(data)
	if err != errShortTransport {
		t.Errorf("Expected errShortTransport, got %v", err)
	}
}

func TestDecodeTCPTooShort(t *testing.T) {
	data := []byte{0x13, 0x88, 0x13, 0x89, 0x00} // Too short

	_, _, err := decodeTCP(data)
	if err != errShortTransport {
		t.Errorf("Expected errShortTransport, got %v", err)
	}
}

func TestDecodeTransportDispatch(t *testing.T) {
	// 8 bytes: a UDP header with no payload, or a third of a TCP header.
	data := []byte{0x13, 0x88, 0x13, 0x89, 0x00, 0x08, 0x00, 0x00}
	transport, payload, err := decodeTransport(data, 17)
	if err != nil || transport.DstPort != 5001 || len(payload) != 0 {
		t.Errorf("UDP dispatch: port %d payload %d err %v", transport.DstPort, len(payload), err)
	}
	if _, _, err = decodeTransport(data, 6); err != errShortTransport {
		t.Errorf("TCP dispatch: expected errShortTransport, got %v", err)
	}

	tcp := make([]byte, 20)
	tcp[12] = 0x50
	if _, _, err = decodeTransport(tcp, 6); err != nil {
		t.Errorf("TCP dispatch: %v", err)
	}
}

func TestDecodeTransportUnsupported(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04}

	_, payload, err := decodeTransport(data, 132) // SCTP
	if err != errUnsupportedTransport {
		t.Fatalf("Expected errUnsupportedTransport, got %v", err)
	}
	if payload != nil {
		t.Errorf("Expected no payload, got %v", payload)
	}
}

func BenchmarkDecodeUDP(b *testing.B) {
	data := []byte{
		0x13, 0x88, 0x13, 0x89,
		0x00, 0x08, 0x00, 0x00,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, err := decodeUDP(data)
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecodeTCP(b *testing.B) {
	data := make([]byte, 20)
	data[0], data[1] = 0x13, 0x88
	data[2], data[3] = 0x13, 0x89
	data[12] = 0x50

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, err := decodeTCP(data)
		if err != nil {
			b.Fatal(err)
		}
	}
}
