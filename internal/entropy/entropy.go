// Package entropy computes the Shannon entropy of byte payloads.
//
// Every call works on its own frequency table, so Compute is safe to call
// from several goroutines at once.
package entropy

import "math"

// Alphabet is the number of distinct byte values.
const Alphabet = 256

// FrequencyTable counts occurrences of each byte value in one payload.
type FrequencyTable [Alphabet]uint64

// Result is the entropy summary of one payload.
type Result struct {
	Bits    float64 // Shannon entropy in bits per byte, within [0, 8]
	Symbols int     // Distinct byte values observed
	MaxBits float64 // log2(Symbols), 0 when Symbols <= 1
	Ratio   float64 // Bits / MaxBits, 0 when MaxBits is 0
}

// Tally counts the byte values of payload in a single pass.
func Tally(payload []byte) FrequencyTable {
	var t FrequencyTable
	for _, b := range payload {
		t[b]++
	}
	return t
}

// Total returns the number of bytes counted.
func (t *FrequencyTable) Total() uint64 {
	var n uint64
	for _, c := range t {
		n += c
	}
	return n
}

// Symbols returns how many byte values occur at least once.
func (t *FrequencyTable) Symbols() int {
	n := 0
	for _, c := range t {
		if c != 0 {
			n++
		}
	}
	return n
}

// Result scores the table. An empty table scores zero on every field.
func (t *FrequencyTable) Result() Result {
	total := t.Total()
	if total == 0 {
		return Result{}
	}

	var (
		bits    float64
		symbols int
		n       = float64(total)
	)
	for _, c := range t {
		if c == 0 {
			continue
		}
		symbols++
		p := float64(c) / n
		bits -= p * math.Log2(p)
	}

	r := Result{Bits: bits, Symbols: symbols}
	if symbols > 1 {
		r.MaxBits = math.Log2(float64(symbols))
		r.Ratio = bits / r.MaxBits
		// Rounding can push a uniform distribution a hair above 1.
		if r.Ratio > 1 {
			r.Ratio = 1
		}
	}
	// A single symbol sums to -1*log2(1) which is -0.
	if r.Bits <= 0 {
		r.Bits = 0
	}
	return r
}

// Compute returns the Shannon entropy summary of payload.
func Compute(payload []byte) Result {
	if len(payload) == 0 {
		return Result{}
	}
	t := Tally(payload)
	return t.Result()
}
