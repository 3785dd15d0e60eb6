// Package core defines core types with zero external dependencies.
package core

import (
	"fmt"
	"net/netip"
	"time"
)

// IP protocol numbers understood by the dissector.
const (
	ProtocolICMP = 1
	ProtocolTCP  = 6
	ProtocolUDP  = 17
)

// Reason tells why a frame was rejected. ReasonNone means it was accepted.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonShortEthernetHeader
	ReasonShortIPHeader
	ReasonShortIPHeaderWithOptions
	ReasonShortTransportHeader
	ReasonUnsupportedTransport
)

var reasonNames = [...]string{
	ReasonNone:                     "none",
	ReasonShortEthernetHeader:      "Short Ethernet Header",
	ReasonShortIPHeader:            "Short IP Header",
	ReasonShortIPHeaderWithOptions: "Short IP Header with options",
	ReasonShortTransportHeader:     "Short Transport Header",
	ReasonUnsupportedTransport:     "non-UDP-TCP packet",
}

func (r Reason) String() string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return fmt.Sprintf("reason(%d)", uint8(r))
}

// Truncation reports whether r stands for a header cut short by the capture.
func (r Reason) Truncation() bool {
	return r >= ReasonShortEthernetHeader && r <= ReasonShortTransportHeader
}

// Outcome is the result of dissecting one frame: either a payload view or
// a rejection reason.
type Outcome struct {
	Payload   PayloadView
	Reason    Reason
	Timestamp time.Time

	// Report is false for rejections the caller asked to keep quiet.
	Report bool

	// Addressing of the accepted frame, zero for early rejections.
	SrcIP    netip.Addr
	DstIP    netip.Addr
	Protocol uint8
	SrcPort  uint16
	DstPort  uint16
}

// Accept builds an outcome carrying a payload view.
func Accept(view PayloadView, ts time.Time) Outcome {
	return Outcome{Payload: view, Timestamp: ts}
}

// Reject builds a reported rejection.
func Reject(reason Reason, ts time.Time) Outcome {
	return Outcome{Reason: reason, Timestamp: ts, Report: true}
}

// Rejected reports whether the frame was dropped.
func (o Outcome) Rejected() bool {
	return o.Reason != ReasonNone
}

// Empty reports whether the frame dissected cleanly but carried no payload.
func (o Outcome) Empty() bool {
	return !o.Rejected() && o.Payload.Length == 0
}

// Err converts the outcome into the matching sentinel-backed error.
func (o Outcome) Err() error {
	switch o.Reason {
	case ReasonNone:
		if o.Payload.Length == 0 {
			return ErrEmptyPayload
		}
		return nil
	case ReasonShortEthernetHeader:
		return &TruncatedHeaderError{Layer: LayerEthernet}
	case ReasonShortIPHeader:
		return &TruncatedHeaderError{Layer: LayerIP}
	case ReasonShortIPHeaderWithOptions:
		return &TruncatedHeaderError{Layer: LayerIPWithOption}
	case ReasonShortTransportHeader:
		return &TruncatedHeaderError{Layer: LayerTransport}
	case ReasonUnsupportedTransport:
		return fmt.Errorf("%w: ip protocol %d", ErrUnsupportedProto, o.Protocol)
	default:
		return fmt.Errorf("unknown rejection %s", o.Reason)
	}
}
