package core

import (
	"errors"
	"testing"
	"time"
)

func TestCapturedFrameLen(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		capLen   uint32
		expected int
	}{
		{"matching", make([]byte, 60), 60, 60},
		{"capture shorter than buffer", make([]byte, 60), 42, 42},
		{"capture claims more than buffer", make([]byte, 20), 1500, 20},
		{"empty", nil, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := CapturedFrame{Data: tt.data, CaptureLen: tt.capLen}
			if got := f.Len(); got != tt.expected {
				t.Errorf("Len() = %d, expected %d", got, tt.expected)
			}
		})
	}
}

func TestPayloadViewBytes(t *testing.T) {
	data := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	f := CapturedFrame{Data: data, CaptureLen: 6}

	got := PayloadView{Offset: 2, Length: 3}.Bytes(f)
	if len(got) != 3 || got[0] != 2 || got[2] != 4 {
		t.Fatalf("unexpected view bytes %v", got)
	}
	if cap(got) != 3 {
		t.Errorf("expected capacity capped at 3, got %d", cap(got))
	}

	// Reaching into the uncaptured tail is refused.
	if b := (PayloadView{Offset: 4, Length: 4}).Bytes(f); b != nil {
		t.Errorf("expected nil for out-of-range view, got %v", b)
	}
	if b := (PayloadView{Offset: -1, Length: 1}).Bytes(f); b != nil {
		t.Errorf("expected nil for negative offset, got %v", b)
	}
	if b := (PayloadView{Offset: 6, Length: 0}).Bytes(f); len(b) != 0 {
		t.Errorf("expected empty view at end of capture, got %v", b)
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Unix(1700000000, 42000)
	if got := FormatTimestamp(ts); got != "1700000000.000042" {
		t.Errorf("FormatTimestamp = %q", got)
	}
}

func TestReasonString(t *testing.T) {
	if ReasonShortIPHeaderWithOptions.String() != "Short IP Header with options" {
		t.Errorf("unexpected name %q", ReasonShortIPHeaderWithOptions.String())
	}
	if Reason(200).String() != "reason(200)" {
		t.Errorf("unexpected name for unknown reason: %q", Reason(200).String())
	}
	if !ReasonShortTransportHeader.Truncation() || ReasonUnsupportedTransport.Truncation() || ReasonNone.Truncation() {
		t.Error("Truncation() classification is wrong")
	}
}

func TestOutcomeErr(t *testing.T) {
	ts := time.Now()

	t.Run("accepted", func(t *testing.T) {
		o := Accept(PayloadView{Offset: 42, Length: 10}, ts)
		if o.Rejected() || o.Empty() {
			t.Fatal("expected accepted non-empty outcome")
		}
		if err := o.Err(); err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
	})

	t.Run("empty payload", func(t *testing.T) {
		o := Accept(PayloadView{Offset: 42}, ts)
		if !o.Empty() {
			t.Fatal("expected empty outcome")
		}
		if !errors.Is(o.Err(), ErrEmptyPayload) {
			t.Errorf("expected ErrEmptyPayload, got %v", o.Err())
		}
	})

	t.Run("truncations", func(t *testing.T) {
		for _, r := range []Reason{ReasonShortEthernetHeader, ReasonShortIPHeader, ReasonShortIPHeaderWithOptions, ReasonShortTransportHeader} {
			err := Reject(r, ts).Err()
			if !errors.Is(err, ErrPacketTooShort) {
				t.Errorf("%s: expected ErrPacketTooShort, got %v", r, err)
			}
			var th *TruncatedHeaderError
			if !errors.As(err, &th) {
				t.Errorf("%s: expected *TruncatedHeaderError", r)
			}
		}
	})

	t.Run("unsupported", func(t *testing.T) {
		o := Reject(ReasonUnsupportedTransport, ts)
		o.Protocol = ProtocolICMP
		err := o.Err()
		if !errors.Is(err, ErrUnsupportedProto) {
			t.Errorf("expected ErrUnsupportedProto, got %v", err)
		}
		if !o.Report {
			t.Error("Reject should mark the outcome as reportable")
		}
	})
}
