// Package filter compiles a small tcpdump-like expression into a classic
// BPF program and runs it against captured frames in user space.
//
// Supported primitives, joined with "and":
//
//	ip | tcp | udp | icmp
//	[src|dst] host A.B.C.D
//	[src|dst] A.B.C.D
//	[src|dst] port N
//
// Only Ethernet + IPv4 frames can match a non-empty expression.
package filter

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"golang.org/x/net/bpf"

	"firestige.xyz/pcapentropy/internal/core"
)

const (
	// Ethernet / IPv4 offsets used by the generated programs
	offEtherType = 12
	offIPStart   = 14
	offIPProto   = offIPStart + 9
	offIPSrc     = offIPStart + 12
	offIPDst     = offIPStart + 16

	etherTypeIPv4 = 0x0800

	// acceptLen is returned for matching frames, like tcpdump's default snaplen.
	acceptLen = 262144
)

type direction int

const (
	dirAny direction = iota
	dirSrc
	dirDst
)

// Filter is a compiled expression. A nil or empty Filter matches everything.
type Filter struct {
	expr  string
	insns []bpf.Instruction
	vm    *bpf.VM
}

// Compile parses expr and builds the BPF program for it.
func Compile(expr string) (*Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return &Filter{}, nil
	}

	prims, err := parse(expr)
	if err != nil {
		return nil, err
	}

	insns, err := assemble(prims)
	if err != nil {
		return nil, err
	}

	vm, err := bpf.NewVM(insns)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", core.ErrInvalidFilter, expr, err)
	}

	return &Filter{expr: expr, insns: insns, vm: vm}, nil
}

// Match reports whether data passes the filter.
func (f *Filter) Match(data []byte) bool {
	if f == nil || f.vm == nil {
		return true
	}
	n, err := f.vm.Run(data)
	return err == nil && n > 0
}

// Instructions returns the compiled program.
func (f *Filter) Instructions() []bpf.Instruction {
	if f == nil {
		return nil
	}
	return f.insns
}

// Raw returns the program in the form a kernel socket filter expects.
func (f *Filter) Raw() ([]bpf.RawInstruction, error) {
	if f == nil || len(f.insns) == 0 {
		return nil, nil
	}
	return bpf.Assemble(f.insns)
}

func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.expr
}

// primitive is one parsed term of the expression.
type primitive struct {
	kind  string // "ip", "proto", "host", "port"
	dir   direction
	proto uint8
	addr  netip.Addr
	port  uint16
}

func parse(expr string) ([]primitive, error) {
	tokens := strings.Fields(strings.ToLower(expr))
	var prims []primitive

	for i := 0; i < len(tokens); {
		p, next, err := parsePrimitive(tokens, i)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", core.ErrInvalidFilter, expr, err)
		}
		prims = append(prims, p)
		i = next

		if i < len(tokens) {
			if tokens[i] != "and" && tokens[i] != "&&" {
				return nil, fmt.Errorf("%w: %q: expected 'and', got %q", core.ErrInvalidFilter, expr, tokens[i])
			}
			i++
			if i == len(tokens) {
				return nil, fmt.Errorf("%w: %q: dangling 'and'", core.ErrInvalidFilter, expr)
			}
		}
	}
	return prims, nil
}

func parsePrimitive(tokens []string, i int) (primitive, int, error) {
	switch tokens[i] {
	case "ip":
		return primitive{kind: "ip"}, i + 1, nil
	case "tcp":
		return primitive{kind: "proto", proto: core.ProtocolTCP}, i + 1, nil
	case "udp":
		return primitive{kind: "proto", proto: core.ProtocolUDP}, i + 1, nil
	case "icmp":
		return primitive{kind: "proto", proto: core.ProtocolICMP}, i + 1, nil
	}

	dir := dirAny
	switch tokens[i] {
	case "src":
		dir = dirSrc
		i++
	case "dst":
		dir = dirDst
		i++
	}
	if i >= len(tokens) {
		return primitive{}, i, fmt.Errorf("incomplete expression")
	}

	switch tokens[i] {
	case "host":
		if i+1 >= len(tokens) {
			return primitive{}, i, fmt.Errorf("host needs an address")
		}
		addr, err := parseAddr(tokens[i+1])
		return primitive{kind: "host", dir: dir, addr: addr}, i + 2, err
	case "port":
		if i+1 >= len(tokens) {
			return primitive{}, i, fmt.Errorf("port needs a number")
		}
		port, err := strconv.ParseUint(tokens[i+1], 10, 16)
		if err != nil {
			return primitive{}, i, fmt.Errorf("bad port %q", tokens[i+1])
		}
		return primitive{kind: "port", dir: dir, port: uint16(port)}, i + 2, nil
	default:
		if dir == dirAny {
			return primitive{}, i, fmt.Errorf("unknown primitive %q", tokens[i])
		}
		addr, err := parseAddr(tokens[i])
		return primitive{kind: "host", dir: dir, addr: addr}, i + 1, err
	}
}

func parseAddr(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("bad address %q", s)
	}
	if !addr.Is4() {
		return netip.Addr{}, fmt.Errorf("only IPv4 addresses are supported: %q", s)
	}
	return addr, nil
}

// program collects instructions; drops lists JumpIf instructions whose
// false branch must land on the final drop instruction.
type program struct {
	insns []bpf.Instruction
	drops []int
}

func (p *program) emit(ins bpf.Instruction) {
	p.insns = append(p.insns, ins)
}

// expect emits a comparison that falls through on equality and drops
// the frame otherwise.
func (p *program) expect(val uint32) {
	p.drops = append(p.drops, len(p.insns))
	p.emit(bpf.JumpIf{Cond: bpf.JumpEqual, Val: val})
}

// either matches val at off1 or off2. Loads go through X when indirect.
func (p *program) either(off1, off2 uint32, size int, indirect bool, val uint32) {
	load := func(off uint32) bpf.Instruction {
		if indirect {
			return bpf.LoadIndirect{Off: off, Size: size}
		}
		return bpf.LoadAbsolute{Off: off, Size: size}
	}
	p.emit(load(off1))
	// On match skip the second load and compare.
	p.emit(bpf.JumpIf{Cond: bpf.JumpEqual, Val: val, SkipTrue: 2})
	p.emit(load(off2))
	p.expect(val)
}

func assemble(prims []primitive) ([]bpf.Instruction, error) {
	p := &program{}

	// Every primitive needs an IPv4 frame.
	p.emit(bpf.LoadAbsolute{Off: offEtherType, Size: 2})
	p.expect(etherTypeIPv4)

	for _, prim := range prims {
		switch prim.kind {
		case "ip":
		case "proto":
			p.emit(bpf.LoadAbsolute{Off: offIPProto, Size: 1})
			p.expect(uint32(prim.proto))
		case "host":
			a := prim.addr.As4()
			val := uint32(a[0])<<24 | uint32(a[1])<<16 | uint32(a[2])<<8 | uint32(a[3])
			switch prim.dir {
			case dirSrc:
				p.emit(bpf.LoadAbsolute{Off: offIPSrc, Size: 4})
				p.expect(val)
			case dirDst:
				p.emit(bpf.LoadAbsolute{Off: offIPDst, Size: 4})
				p.expect(val)
			default:
				p.either(offIPSrc, offIPDst, 4, false, val)
			}
		case "port":
			// Ports only exist for TCP and UDP.
			p.emit(bpf.LoadAbsolute{Off: offIPProto, Size: 1})
			p.emit(bpf.JumpIf{Cond: bpf.JumpEqual, Val: core.ProtocolTCP, SkipTrue: 1})
			p.expect(core.ProtocolUDP)
			// X = IPv4 header length
			p.emit(bpf.LoadMemShift{Off: offIPStart})
			val := uint32(prim.port)
			switch prim.dir {
			case dirSrc:
				p.emit(bpf.LoadIndirect{Off: offIPStart, Size: 2})
				p.expect(val)
			case dirDst:
				p.emit(bpf.LoadIndirect{Off: offIPStart + 2, Size: 2})
				p.expect(val)
			default:
				p.either(offIPStart, offIPStart+2, 2, true, val)
			}
		}
	}

	p.emit(bpf.RetConstant{Val: acceptLen})
	drop := len(p.insns)
	p.emit(bpf.RetConstant{Val: 0})

	for _, i := range p.drops {
		skip := drop - i - 1
		if skip > 255 {
			return nil, fmt.Errorf("%w: expression too long", core.ErrInvalidFilter)
		}
		j := p.insns[i].(bpf.JumpIf)
		j.SkipFalse = uint8(skip)
		p.insns[i] = j
	}

	return p.insns, nil
}
