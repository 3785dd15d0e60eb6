// Package file reads capture records from pcap and pcapng files.
package file

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"firestige.xyz/pcapentropy/internal/core"
)

const (
	pcapngBlockSHB = 0x0A0D0D0A
	magicLen       = 4
)

// packetReader is the part of pcapgo.Reader and pcapgo.NgReader we use.
type packetReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

// FileSource yields CapturedFrames from a capture file. In pcapng files
// packets captured on a non-Ethernet interface are skipped and counted.
type FileSource struct {
	path    string
	file    *os.File
	reader  packetReader
	ng      *pcapgo.NgReader // set for pcapng
	format  string
	skipped uint64
}

// NewSource creates a source for the capture file at path. Nothing is
// opened until Start.
func NewSource(path string) (*FileSource, error) {
	if path == "" {
		return nil, fmt.Errorf("file path is required")
	}
	return &FileSource{path: path}, nil
}

// Start opens the capture file and reads its header.
func (fs *FileSource) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Open(fs.path)
	if err != nil {
		return fmt.Errorf("failed to open capture file %s: %w", fs.path, err)
	}

	reader, format, err := newPacketReader(bufio.NewReader(f))
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to read capture file %s: %w", fs.path, err)
	}

	if ng, ok := reader.(*pcapgo.NgReader); ok {
		fs.ng = ng
	} else if lt := reader.LinkType(); lt != layers.LinkTypeEthernet {
		f.Close()
		return fmt.Errorf("%w: %s has link type %s", core.ErrUnsupportedLink, fs.path, lt)
	}

	fs.file = f
	fs.reader = reader
	fs.format = format
	fs.skipped = 0
	return nil
}

// newPacketReader sniffs the leading magic number to choose between the
// classic pcap and the pcapng reader.
func newPacketReader(br *bufio.Reader) (packetReader, string, error) {
	magic, err := br.Peek(magicLen)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, "", fmt.Errorf("file too short for a capture header: %w", io.ErrUnexpectedEOF)
		}
		return nil, "", err
	}

	if binary.BigEndian.Uint32(magic) == pcapngBlockSHB {
		// Interfaces are checked per packet in Next.
		r, err := pcapgo.NewNgReader(br, pcapgo.NgReaderOptions{WantMixedLinkType: true})
		if err != nil {
			return nil, "", err
		}
		return r, "pcapng", nil
	}

	r, err := pcapgo.NewReader(br)
	if err != nil {
		return nil, "", err
	}
	return r, "pcap", nil
}

// Next returns the next capture record, or io.EOF when the file is done.
// The returned frame owns its Data.
func (fs *FileSource) Next() (core.CapturedFrame, error) {
	if fs.reader == nil {
		return core.CapturedFrame{}, core.ErrSourceNotOpen
	}

	for {
		data, ci, err := fs.reader.ReadPacketData()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return core.CapturedFrame{}, io.EOF
			}
			return core.CapturedFrame{}, fmt.Errorf("failed to read packet: %w", err)
		}

		ethernet, err := fs.ethernet(ci)
		if err != nil {
			return core.CapturedFrame{}, err
		}
		if !ethernet {
			fs.skipped++
			continue
		}

		return frameOf(data, ci), nil
	}
}

// ethernet reports whether the packet was captured on an Ethernet
// interface. Classic pcap files were checked once in Start.
func (fs *FileSource) ethernet(ci gopacket.CaptureInfo) (bool, error) {
	if fs.ng == nil {
		return true, nil
	}
	intf, err := fs.ng.Interface(ci.InterfaceIndex)
	if err != nil {
		return false, fmt.Errorf("failed to read packet: %w", err)
	}
	return intf.LinkType == layers.LinkTypeEthernet, nil
}

func frameOf(data []byte, ci gopacket.CaptureInfo) core.CapturedFrame {
	return core.CapturedFrame{
		Data:       data,
		Timestamp:  ci.Timestamp,
		CaptureLen: uint32(ci.CaptureLength),
		OrigLen:    uint32(ci.Length),
	}
}

// Format reports "pcap" or "pcapng" once started.
func (fs *FileSource) Format() string {
	return fs.format
}

// Skipped returns how many pcapng packets were dropped because their
// interface is not Ethernet.
func (fs *FileSource) Skipped() uint64 {
	return fs.skipped
}

// Stop closes the capture file.
func (fs *FileSource) Stop() error {
	if fs.file == nil {
		return nil
	}
	err := fs.file.Close()
	fs.file = nil
	fs.reader = nil
	fs.ng = nil
	return err
}
