// Package store persists trained model snapshots to a file directory,
// PostgreSQL or BadgerDB.
package store

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/Adithya-Monish-Kumar-K/morfseg/internal/baseline"
	apperrors "github.com/Adithya-Monish-Kumar-K/morfseg/pkg/errors"
)

// Every encoded snapshot starts with a fixed 64-byte header followed by the
// gzipped JSON state.
const (
	MagicBytes    uint32 = 0x4D46534D // "MFSM"
	FormatVersion uint32 = 1
	HeaderSize    int    = 64
)

// Header describes an encoded snapshot.
type Header struct {
	Magic        uint32
	Version      uint32
	StateVersion uint32
	Checksum     uint32
	CreatedAt    int64
	PayloadSize  int64
	Nodes        uint32
}

// Encode serialises a snapshot: header, then gzip-compressed JSON. The
// checksum covers the compressed payload.
func Encode(s *baseline.State) ([]byte, error) {
	var payload bytes.Buffer
	zw := gzip.NewWriter(&payload)
	if err := json.NewEncoder(zw).Encode(s); err != nil {
		return nil, fmt.Errorf("marshaling model state: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compressing model state: %w", err)
	}

	h := Header{
		Magic:        MagicBytes,
		Version:      FormatVersion,
		StateVersion: uint32(s.Version),
		Checksum:     crc32.ChecksumIEEE(payload.Bytes()),
		CreatedAt:    time.Now().Unix(),
		PayloadSize:  int64(payload.Len()),
		Nodes:        uint32(len(s.Nodes)),
	}
	out := make([]byte, HeaderSize, HeaderSize+payload.Len())
	binary.LittleEndian.PutUint32(out[0:4], h.Magic)
	binary.LittleEndian.PutUint32(out[4:8], h.Version)
	binary.LittleEndian.PutUint32(out[8:12], h.StateVersion)
	binary.LittleEndian.PutUint32(out[12:16], h.Checksum)
	binary.LittleEndian.PutUint64(out[16:24], uint64(h.CreatedAt))
	binary.LittleEndian.PutUint64(out[24:32], uint64(h.PayloadSize))
	binary.LittleEndian.PutUint32(out[32:36], h.Nodes)
	return append(out, payload.Bytes()...), nil
}

// ReadHeader parses and validates the header of an encoded snapshot.
func ReadHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: model snapshot truncated (%d bytes)", apperrors.ErrInvalidInput, len(data))
	}
	h := Header{
		Magic:        binary.LittleEndian.Uint32(data[0:4]),
		Version:      binary.LittleEndian.Uint32(data[4:8]),
		StateVersion: binary.LittleEndian.Uint32(data[8:12]),
		Checksum:     binary.LittleEndian.Uint32(data[12:16]),
		CreatedAt:    int64(binary.LittleEndian.Uint64(data[16:24])),
		PayloadSize:  int64(binary.LittleEndian.Uint64(data[24:32])),
		Nodes:        binary.LittleEndian.Uint32(data[32:36]),
	}
	if h.Magic != MagicBytes {
		return h, fmt.Errorf("%w: bad magic bytes %x", apperrors.ErrInvalidInput, h.Magic)
	}
	if h.Version != FormatVersion {
		return h, fmt.Errorf("%w: unsupported snapshot format %d", apperrors.ErrInvalidInput, h.Version)
	}
	if h.PayloadSize != int64(len(data)-HeaderSize) {
		return h, fmt.Errorf("%w: payload size %d, have %d bytes", apperrors.ErrInvalidInput, h.PayloadSize, len(data)-HeaderSize)
	}
	return h, nil
}

// Decode validates and deserialises a snapshot produced by Encode.
func Decode(data []byte) (*baseline.State, error) {
	h, err := ReadHeader(data)
	if err != nil {
		return nil, err
	}
	payload := data[HeaderSize:]
	if sum := crc32.ChecksumIEEE(payload); sum != h.Checksum {
		return nil, fmt.Errorf("%w: checksum mismatch %08x != %08x", apperrors.ErrInvalidInput, sum, h.Checksum)
	}
	zr, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: decompressing model state: %v", apperrors.ErrInvalidInput, err)
	}
	var s baseline.State
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: parsing model state: %v", apperrors.ErrInvalidInput, err)
	}
	return &s, nil
}
