// Package decoder implements protocol decoding.
package decoder

import (
	"net/netip"

	"firestige.xyz/pcapentropy/internal/core"
)

const ipv4HeaderMinLen = 20

// ipv4Header holds the IPv4 fields the dissector cares about.
type ipv4Header struct {
	Protocol uint8
	SrcIP    netip.Addr
	DstIP    netip.Addr
}

// decodeIPv4 decodes an IPv4 header including options.
// The IHL field is untrusted: it is checked against len(data) before the
// header is skipped. A protocol other than TCP or UDP yields the decoded
// header together with errUnsupportedTransport.
func decodeIPv4(data []byte) (ipv4Header, []byte, error) {
	if len(data) < ipv4HeaderMinLen {
		return ipv4Header{}, nil, errShortIP
	}

	// IHL (Internet Header Length) - lower 4 bits of first byte, in 32-bit words
	headerLen := int(data[0]&0x0F) * 4
	if headerLen < ipv4HeaderMinLen || len(data) < headerLen {
		return ipv4Header{}, nil, errShortIPOptions
	}

	// Total length is not trusted; the payload runs to the end of the capture.
	ip := ipv4Header{
		Protocol: data[9],
		SrcIP:    netip.AddrFrom4([4]byte(data[12:16])),
		DstIP:    netip.AddrFrom4([4]byte(data[16:20])),
	}

	if ip.Protocol != core.ProtocolTCP && ip.Protocol != core.ProtocolUDP {
		return ip, nil, errUnsupportedTransport
	}

	return ip, data[headerLen:], nil
}
