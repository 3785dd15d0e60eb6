// Package core defines sentinel errors.
package core

import (
	"errors"
	"fmt"
)

// Sentinel errors. Callers match them with errors.Is.
var (
	// Packet dissection errors
	ErrPacketTooShort   = errors.New("pcapentropy: packet too short")
	ErrUnsupportedProto = errors.New("pcapentropy: unsupported protocol")
	ErrEmptyPayload     = errors.New("pcapentropy: empty payload")

	// Source errors
	ErrSourceNotOpen   = errors.New("pcapentropy: capture source not open")
	ErrUnsupportedLink = errors.New("pcapentropy: unsupported link type")

	// Filter errors
	ErrInvalidFilter = errors.New("pcapentropy: invalid filter expression")

	// Configuration errors
	ErrConfigInvalid = errors.New("pcapentropy: invalid configuration")
)

// Layer names the header a truncated frame was missing.
type Layer string

const (
	LayerEthernet     Layer = "Ethernet Header"
	LayerIP           Layer = "IP Header"
	LayerIPWithOption Layer = "IP Header with options"
	LayerTransport    Layer = "Transport Header"
)

// TruncatedHeaderError reports a frame that ended inside a header.
type TruncatedHeaderError struct {
	Layer Layer
}

func (e *TruncatedHeaderError) Error() string {
	return fmt.Sprintf("truncated frame lacks a full %s", e.Layer)
}

func (e *TruncatedHeaderError) Unwrap() error {
	return ErrPacketTooShort
}
