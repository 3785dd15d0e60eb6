// Package decoder implements protocol decoding.
package decoder

import (
	"encoding/binary"

	"firestige.xyz/pcapentropy/internal/core"
)

const (
	udpHeaderLen    = 8
	tcpHeaderMinLen = 20
)

// transportHeader holds the ports of a TCP or UDP header.
type transportHeader struct {
	SrcPort uint16
	DstPort uint16
}

// decodeTransport decodes the transport header for protocol.
// Returns the header and the transport payload.
func decodeTransport(data []byte, protocol uint8) (transportHeader, []byte, error) {
	switch protocol {
	case core.ProtocolTCP:
		return decodeTCP(data)
	case core.ProtocolUDP:
		return decodeUDP(data)
	default:
		return transportHeader{}, nil, errUnsupportedTransport
	}
}

// decodeUDP decodes a fixed 8-byte UDP header.
func decodeUDP(data []byte) (transportHeader, []byte, error) {
	if len(data) < udpHeaderLen {
		return transportHeader{}, nil, errShortTransport
	}

	// Length and checksum (offsets 4-7) are not validated.
	return ports(data), data[udpHeaderLen:], nil
}

// decodeTCP decodes a TCP header whose size comes from the data offset field.
// The data offset is untrusted and checked against len(data) before use.
func decodeTCP(data []byte) (transportHeader, []byte, error) {
	if len(data) < tcpHeaderMinLen {
		return transportHeader{}, nil, errShortTransport
	}

	// Data Offset (4 bits at offset 12, upper 4 bits), in 32-bit words
	headerLen := int(data[12]>>4) * 4
	if headerLen < tcpHeaderMinLen || len(data) < headerLen {
		return transportHeader{}, nil, errShortTransport
	}

	return ports(data), data[headerLen:], nil
}

// ports reads the source and destination ports shared by TCP and UDP.
func ports(data []byte) transportHeader {
	return transportHeader{
		SrcPort: binary.BigEndian.Uint16(data[0:2]),
		DstPort: binary.BigEndian.Uint16(data[2:4]),
	}
}
