package container

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"
)

const (
	magic      = 0x4643584d // "MXCF"
	version    = 1
	headerSize = 32

	// maxPayload bounds allocations driven by header fields.
	maxPayload = 1 << 34
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// WriteOption configures Write.
type WriteOption func(*writeOptions)

type writeOptions struct {
	compression Compression
}

// WithCompression sets the payload compression. Default is none.
func WithCompression(c Compression) WriteOption {
	return func(o *writeOptions) {
		o.compression = c
	}
}

// Write serializes f to w and returns the number of bytes written.
func Write(w io.Writer, f *File, opts ...WriteOption) (int64, error) {
	o := writeOptions{compression: CompressionNone}
	for _, opt := range opts {
		opt(&o)
	}

	payload, err := encodePayload(f)
	if err != nil {
		return 0, err
	}

	stored, used, err := compress(payload, o.compression)
	if err != nil {
		return 0, err
	}

	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(header[0:4], magic)
	binary.LittleEndian.PutUint32(header[4:8], version)
	binary.LittleEndian.PutUint32(header[8:12], uint32(used))
	binary.LittleEndian.PutUint32(header[12:16], crc32.Checksum(stored, castagnoli))
	binary.LittleEndian.PutUint64(header[16:24], uint64(len(payload)))
	binary.LittleEndian.PutUint64(header[24:32], uint64(len(stored)))

	n, err := w.Write(header)
	if err != nil {
		return int64(n), err
	}
	m, err := w.Write(stored)
	return int64(n + m), err
}

// Read parses a container from r.
func Read(r io.Reader) (*File, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrCorrupt, err)
	}
	h, err := parseHeader(header)
	if err != nil {
		return nil, err
	}
	stored := make([]byte, h.storedLen)
	if _, err := io.ReadFull(r, stored); err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrCorrupt, err)
	}
	return h.decode(stored)
}

// Decode parses a container held entirely in memory, such as a mapped file.
func Decode(data []byte) (*File, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrCorrupt, len(data))
	}
	h, err := parseHeader(data[:headerSize])
	if err != nil {
		return nil, err
	}
	if uint64(len(data)-headerSize) < h.storedLen {
		return nil, fmt.Errorf("%w: truncated payload", ErrCorrupt)
	}
	return h.decode(data[headerSize : headerSize+int(h.storedLen)])
}

type header struct {
	compression Compression
	checksum    uint32
	rawLen      uint64
	storedLen   uint64
}

func parseHeader(b []byte) (*header, error) {
	if m := binary.LittleEndian.Uint32(b[0:4]); m != magic {
		return nil, fmt.Errorf("%w: invalid magic %x", ErrCorrupt, m)
	}
	if v := binary.LittleEndian.Uint32(b[4:8]); v != version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, v)
	}
	h := &header{
		compression: Compression(binary.LittleEndian.Uint32(b[8:12])),
		checksum:    binary.LittleEndian.Uint32(b[12:16]),
		rawLen:      binary.LittleEndian.Uint64(b[16:24]),
		storedLen:   binary.LittleEndian.Uint64(b[24:32]),
	}
	if h.rawLen > maxPayload || h.storedLen > maxPayload {
		return nil, fmt.Errorf("%w: payload too large", ErrCorrupt)
	}
	return h, nil
}

func (h *header) decode(stored []byte) (*File, error) {
	if crc32.Checksum(stored, castagnoli) != h.checksum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}
	payload, err := decompress(stored, h.compression, int(h.rawLen))
	if err != nil {
		return nil, err
	}
	return decodePayload(payload)
}

func encodePayload(f *File) ([]byte, error) {
	size := 64
	for _, g := range f.groups {
		for _, ds := range g.datasets {
			size += 32 + len(ds.name) + ds.len()*8
		}
	}
	pb := newPayloadBuffer(make([]byte, 0, size))

	pb.writeUint32(uint32(len(f.attrOrder)))
	for _, k := range f.attrOrder {
		pb.writeString(k)
		pb.writeString(f.attrs[k])
	}

	pb.writeUint32(uint32(len(f.groups)))
	for _, g := range f.groups {
		pb.writeString(g.name)
		pb.writeUint32(uint32(len(g.datasets)))
		for _, ds := range g.datasets {
			pb.writeString(ds.name)
			pb.writeUint8(uint8(ds.dtype))
			pb.writeUint64(uint64(ds.rows))
			pb.writeUint64(uint64(ds.cols))
			switch ds.dtype {
			case Int64:
				for _, v := range ds.ints {
					pb.writeUint64(uint64(v))
				}
			case Float64:
				for _, v := range ds.floats {
					pb.writeUint64(math.Float64bits(v))
				}
			}
		}
	}

	if pb.err != nil {
		return nil, pb.err
	}
	return pb.buf, nil
}

func decodePayload(payload []byte) (*File, error) {
	pb := newPayloadBuffer(payload)
	f := New()

	numAttrs := pb.readUint32()
	for i := uint32(0); i < numAttrs && pb.err == nil; i++ {
		k := pb.readString()
		v := pb.readString()
		f.SetAttr(k, v)
	}

	numGroups := pb.readUint32()
	for i := uint32(0); i < numGroups && pb.err == nil; i++ {
		g, err := f.CreateGroup(pb.readString())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		numDatasets := pb.readUint32()
		for j := uint32(0); j < numDatasets && pb.err == nil; j++ {
			if err := decodeDataset(pb, g); err != nil {
				return nil, err
			}
		}
	}

	if pb.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, pb.err)
	}
	if pb.remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, pb.remaining())
	}
	return f, nil
}

func decodeDataset(pb *payloadBuffer, g *Group) error {
	name := pb.readString()
	dtype := DType(pb.readUint8())
	rows := pb.readUint64()
	cols := pb.readUint64()
	if pb.err != nil {
		return nil
	}
	if cols == 0 && rows > 0 {
		return fmt.Errorf("%w: dataset %q has %d rows and no columns", ErrCorrupt, name, rows)
	}
	if cols != 0 && rows > uint64(pb.remaining())/8/cols {
		return fmt.Errorf("%w: dataset %q shape %dx%d exceeds payload", ErrCorrupt, name, rows, cols)
	}
	n := int(rows * cols)

	var err error
	switch dtype {
	case Int64:
		data := make([]int64, n)
		for i := range data {
			data[i] = int64(pb.readUint64())
		}
		_, err = g.CreateInts(name, int(rows), int(cols), data)
	case Float64:
		data := make([]float64, n)
		for i := range data {
			data[i] = math.Float64frombits(pb.readUint64())
		}
		_, err = g.CreateFloats(name, int(rows), int(cols), data)
	default:
		return fmt.Errorf("%w: dataset %q has unknown dtype %d", ErrCorrupt, name, dtype)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return nil
}
