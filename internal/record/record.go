package record

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// Kind tags the variant of a Record.
type Kind uint8

const (
	KindSet    Kind = 1
	KindRemove Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindSet:
		return "Set"
	case KindRemove:
		return "Rm"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Record is one mutation in the log. A Remove record is a tombstone and
// never carries a value.
type Record struct {
	Kind      Kind
	Timestamp int64 // Unix nanoseconds at creation
	Key       []byte
	Value     []byte
}

// Header is the fixed-size prefix of every frame.
type Header struct {
	CRC       uint32
	Timestamp int64
	Kind      Kind
	KeySize   uint32
	ValueSize uint32
	HeaderCRC uint32
}

// CRC (4) + Timestamp (8) + Kind (1) + KeySize (4) + ValueSize (4) + HeaderCRC (4)
const HeaderSize = 25

// headerCRCOffset is where the header checksum sits; it covers the bytes
// between the frame checksum and itself.
const headerCRCOffset = 21

var (
	ErrShortFrame  = errors.New("record: short frame")
	ErrChecksum    = errors.New("record: checksum mismatch")
	ErrUnknownKind = errors.New("record: unknown kind")
)

// ErrHeaderChecksum means the sizes in a header cannot be trusted, so the end
// of the frame is unknown.
var ErrHeaderChecksum = errors.New("record: header checksum mismatch")

func Set(key, value []byte) Record {
	return Record{
		Kind:      KindSet,
		Timestamp: time.Now().UnixNano(),
		Key:       key,
		Value:     value,
	}
}

func Remove(key []byte) Record {
	return Record{
		Kind:      KindRemove,
		Timestamp: time.Now().UnixNano(),
		Key:       key,
	}
}

// Size returns the encoded length of the record in bytes.
func (r Record) Size() int64 {
	return FrameSize(len(r.Key), len(r.Value))
}

// FrameSize returns the encoded length of a frame holding a key and value of
// the given lengths.
func FrameSize(keyLen, valueLen int) int64 {
	return int64(HeaderSize + keyLen + valueLen)
}

// Size returns the total frame length described by the header.
func (h Header) Size() int64 {
	return int64(HeaderSize) + int64(h.KeySize) + int64(h.ValueSize)
}

// Encode serializes r into a single frame:
//
//	<crc:uint32><timestamp:int64><kind:uint8><key_size:uint32><value_size:uint32><header_crc:uint32><key><value>
//
// All integers are little-endian. header_crc covers timestamp, kind and both
// sizes, so a damaged length is caught before it is used to find the end of
// the frame. crc covers every byte after the crc field.
func Encode(r Record) []byte {
	value := r.Value
	if r.Kind == KindRemove {
		value = nil
	}

	buf := make([]byte, HeaderSize+len(r.Key)+len(value))
	binary.LittleEndian.PutUint64(buf[4:12], uint64(r.Timestamp))
	buf[12] = byte(r.Kind)
	binary.LittleEndian.PutUint32(buf[13:17], uint32(len(r.Key)))
	binary.LittleEndian.PutUint32(buf[17:21], uint32(len(value)))
	binary.LittleEndian.PutUint32(buf[headerCRCOffset:HeaderSize], CalculateCRC(buf[4:headerCRCOffset]))
	copy(buf[HeaderSize:], r.Key)
	copy(buf[HeaderSize+len(r.Key):], value)

	binary.LittleEndian.PutUint32(buf[0:4], CalculateCRC(buf[4:]))
	return buf
}

// DecodeHeader parses and validates the fixed-size frame prefix. Once it
// returns nil, Size can be trusted. The frame checksum needs the whole frame
// and is left to Decode.
func DecodeHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, ErrShortFrame
	}

	h := Header{
		CRC:       binary.LittleEndian.Uint32(data[0:4]),
		Timestamp: int64(binary.LittleEndian.Uint64(data[4:12])),
		Kind:      Kind(data[12]),
		KeySize:   binary.LittleEndian.Uint32(data[13:17]),
		ValueSize: binary.LittleEndian.Uint32(data[17:21]),
		HeaderCRC: binary.LittleEndian.Uint32(data[headerCRCOffset:HeaderSize]),
	}

	if !ValidateCRC(data[4:headerCRCOffset], h.HeaderCRC) {
		return Header{}, ErrHeaderChecksum
	}

	switch h.Kind {
	case KindSet:
	case KindRemove:
		if h.ValueSize != 0 {
			return Header{}, fmt.Errorf("%w: tombstone with %d value bytes", ErrUnknownKind, h.ValueSize)
		}
	default:
		return Header{}, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(h.Kind))
	}

	return h, nil
}

// Decode parses one complete frame. The returned key and value alias data.
func Decode(data []byte) (Record, error) {
	h, err := DecodeHeader(data)
	if err != nil {
		return Record{}, err
	}

	if int64(len(data)) < h.Size() {
		return Record{}, ErrShortFrame
	}
	data = data[:h.Size()]

	if !ValidateCRC(data[4:], h.CRC) {
		return Record{}, ErrChecksum
	}

	keyEnd := HeaderSize + int(h.KeySize)
	return Record{
		Kind:      h.Kind,
		Timestamp: h.Timestamp,
		Key:       data[HeaderSize:keyEnd],
		Value:     data[keyEnd:],
	}, nil
}
