// Package core defines core data structures with zero external dependencies.
package core

import (
	"fmt"
	"time"
)

// CapturedFrame is one capture record as handed over by a source.
// The dissector borrows it and never mutates or retains Data.
type CapturedFrame struct {
	Data       []byte    // Raw link-layer frame
	Timestamp  time.Time // Capture timestamp
	CaptureLen uint32    // Bytes actually captured
	OrigLen    uint32    // Length on the wire
}

// Len returns how many bytes of the frame may be read.
// CaptureLen is trusted only as far as Data actually reaches.
func (f CapturedFrame) Len() int {
	n := int(f.CaptureLen)
	if n > len(f.Data) {
		n = len(f.Data)
	}
	return n
}

// PayloadView is a bounded window into a CapturedFrame's bytes.
type PayloadView struct {
	Offset int
	Length int
}

// Bytes returns the viewed bytes without copying. The returned slice has
// its capacity capped so appends cannot scribble over the frame.
func (v PayloadView) Bytes(f CapturedFrame) []byte {
	end := v.Offset + v.Length
	if v.Offset < 0 || v.Length < 0 || end > f.Len() {
		return nil
	}
	return f.Data[v.Offset:end:end]
}

// FormatTimestamp renders t as seconds.microseconds.
func FormatTimestamp(t time.Time) string {
	return fmt.Sprintf("%d.%06d", t.Unix(), t.Nanosecond()/1000)
}
