// Package decoder implements the Ethernet/IPv4/UDP/TCP dissector that
// locates the transport payload inside a captured frame.
//
// Every layer checks that enough captured bytes remain before it reads a
// field or skips a header, so no length field inside the frame can move
// the cursor past the end of the capture.
package decoder

import (
	"firestige.xyz/pcapentropy/internal/core"
)

// Layer errors. They are compared by identity in reasonOf.
var (
	errShortEthernet        = &core.TruncatedHeaderError{Layer: core.LayerEthernet}
	errShortIP              = &core.TruncatedHeaderError{Layer: core.LayerIP}
	errShortIPOptions       = &core.TruncatedHeaderError{Layer: core.LayerIPWithOption}
	errShortTransport       = &core.TruncatedHeaderError{Layer: core.LayerTransport}
	errUnsupportedTransport = core.ErrUnsupportedProto
)

// Dissector turns captured frames into payload views.
type Dissector interface {
	Dissect(frame core.CapturedFrame) core.Outcome
}

// Config contains dissector configuration.
type Config struct {
	// ReportProtocolMismatch marks non-UDP/TCP rejections as reportable.
	// The frame is rejected either way.
	ReportProtocolMismatch bool
}

// StandardDissector implements Dissector for Ethernet + IPv4 + UDP/TCP.
type StandardDissector struct {
	config Config
}

// NewStandardDissector creates a dissector.
func NewStandardDissector(cfg Config) *StandardDissector {
	return &StandardDissector{config: cfg}
}

// Dissect implements Dissector.
func (d *StandardDissector) Dissect(frame core.CapturedFrame) core.Outcome {
	return Dissect(frame, d.config.ReportProtocolMismatch)
}

// Dissect walks Ethernet, IPv4 and the transport header of frame and
// returns a view of the remaining bytes, or the reason the frame was
// rejected. reportMismatch only controls Outcome.Report for frames
// carrying neither UDP nor TCP.
func Dissect(frame core.CapturedFrame, reportMismatch bool) core.Outcome {
	data := frame.Data[:frame.Len()]
	ts := frame.Timestamp

	rest, err := decodeEthernet(data)
	if err != nil {
		return core.Reject(reasonOf(err), ts)
	}

	ip, rest, err := decodeIPv4(rest)
	if err != nil {
		out := core.Reject(reasonOf(err), ts)
		if err == errUnsupportedTransport {
			out.Report = reportMismatch
			out.SrcIP, out.DstIP, out.Protocol = ip.SrcIP, ip.DstIP, ip.Protocol
		}
		return out
	}

	th, rest, err := decodeTransport(rest, ip.Protocol)
	if err != nil {
		out := core.Reject(reasonOf(err), ts)
		out.SrcIP, out.DstIP, out.Protocol = ip.SrcIP, ip.DstIP, ip.Protocol
		return out
	}

	out := core.Accept(core.PayloadView{
		Offset: len(data) - len(rest),
		Length: len(rest),
	}, ts)
	out.SrcIP, out.DstIP, out.Protocol = ip.SrcIP, ip.DstIP, ip.Protocol
	out.SrcPort, out.DstPort = th.SrcPort, th.DstPort
	return out
}

func reasonOf(err error) core.Reason {
	switch err {
	case errShortEthernet:
		return core.ReasonShortEthernetHeader
	case errShortIP:
		return core.ReasonShortIPHeader
	case errShortIPOptions:
		return core.ReasonShortIPHeaderWithOptions
	case errShortTransport:
		return core.ReasonShortTransportHeader
	default:
		return core.ReasonUnsupportedTransport
	}
}
