package record

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"testing"
)

func TestEncodeDecodeRecord(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
	}{
		{"set", Set([]byte("language"), []byte("go"))},
		{"set with empty value", Set([]byte("empty"), nil)},
		{"set with binary key", Set([]byte{0x00, 0xff, '\n'}, []byte{0x01})},
		{"remove", Remove([]byte("language"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := Encode(tt.rec)
			if int64(len(encoded)) != tt.rec.Size() {
				t.Fatalf("encoded length %d, Size() %d", len(encoded), tt.rec.Size())
			}

			decoded, err := Decode(encoded)
			if err != nil {
				t.Fatalf("unexpected decode error: %v", err)
			}

			if decoded.Kind != tt.rec.Kind {
				t.Errorf("Kind mismatch: got %v, want %v", decoded.Kind, tt.rec.Kind)
			}
			if decoded.Timestamp != tt.rec.Timestamp {
				t.Errorf("Timestamp mismatch: got %v, want %v", decoded.Timestamp, tt.rec.Timestamp)
			}
			if !bytes.Equal(decoded.Key, tt.rec.Key) {
				t.Errorf("Key mismatch: got %v, want %v", decoded.Key, tt.rec.Key)
			}
			if !bytes.Equal(decoded.Value, tt.rec.Value) {
				t.Errorf("Value mismatch: got %v, want %v", decoded.Value, tt.rec.Value)
			}
		})
	}
}

func TestRemoveDropsValue(t *testing.T) {
	r := Record{Kind: KindRemove, Key: []byte("k"), Value: []byte("ignored")}

	encoded := Encode(r)
	if len(encoded) != HeaderSize+1 {
		t.Fatalf("tombstone frame has %d bytes, want %d", len(encoded), HeaderSize+1)
	}
}

func TestDecodeErrorsOnTruncatedData(t *testing.T) {
	encoded := Encode(Set([]byte("abc"), []byte("xy")))

	for i := 0; i < len(encoded); i++ {
		_, err := Decode(encoded[:i])
		if !errors.Is(err, ErrShortFrame) {
			t.Fatalf("decoding %d bytes: got %v, want ErrShortFrame", i, err)
		}
	}
}

func TestDecodeDetectsCorruption(t *testing.T) {
	encoded := Encode(Set([]byte("abc"), []byte("xy")))

	for i := 0; i < len(encoded); i++ {
		corrupted := bytes.Clone(encoded)
		corrupted[i] ^= 0x01

		if _, err := Decode(corrupted); err == nil {
			t.Fatalf("flipping byte %d went undetected", i)
		}
	}
}

// reseal recomputes both checksums after a test edits a frame in place.
func reseal(frame []byte) {
	binary.LittleEndian.PutUint32(frame[headerCRCOffset:HeaderSize], CalculateCRC(frame[4:headerCRCOffset]))
	binary.LittleEndian.PutUint32(frame[0:4], CalculateCRC(frame[4:]))
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	encoded := Encode(Set([]byte("k"), []byte("v")))
	encoded[12] = 9
	reseal(encoded)

	if _, err := Decode(encoded); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("got %v, want ErrUnknownKind", err)
	}
	if _, err := DecodeHeader(encoded); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("DecodeHeader: got %v, want ErrUnknownKind", err)
	}
}

func TestDecodeHeaderValidatesSizes(t *testing.T) {
	encoded := Encode(Set([]byte("abc"), []byte("xy")))

	if _, err := DecodeHeader(encoded[:HeaderSize]); err != nil {
		t.Fatalf("intact header: unexpected error %v", err)
	}

	// every byte the header checksum covers, plus the checksum itself
	for i := 4; i < HeaderSize; i++ {
		t.Run(fmt.Sprintf("byte %d", i), func(t *testing.T) {
			corrupted := bytes.Clone(encoded[:HeaderSize])
			corrupted[i] ^= 0x80

			if _, err := DecodeHeader(corrupted); !errors.Is(err, ErrHeaderChecksum) {
				t.Fatalf("got %v, want ErrHeaderChecksum", err)
			}
		})
	}

	// the frame checksum is not part of the header check
	corrupted := bytes.Clone(encoded)
	corrupted[0] ^= 0x01
	if _, err := DecodeHeader(corrupted); err != nil {
		t.Fatalf("frame checksum flip: DecodeHeader returned %v", err)
	}
	if _, err := Decode(corrupted); !errors.Is(err, ErrChecksum) {
		t.Fatalf("frame checksum flip: Decode returned %v, want ErrChecksum", err)
	}
}

func TestEncodedByteLayout(t *testing.T) {
	r := Record{
		Kind:      KindSet,
		Timestamp: 2,
		Key:       []byte("a"),
		Value:     []byte("b"),
	}

	encoded := Encode(r)

	// Expected bytes structure:
	// uint32 CRC
	// int64 Timestamp
	// uint8 Kind
	// uint32 KeySize
	// uint32 ValueSize
	// uint32 HeaderCRC
	// []byte Key
	// []byte Value
	offset := 0

	expectUint32 := func(name string, want uint32) {
		got := binary.LittleEndian.Uint32(encoded[offset : offset+4])
		if got != want {
			t.Fatalf("%s mismatch: got %v want %v", name, got, want)
		}
		offset += 4
	}

	expectUint32("CRC", CalculateCRC(encoded[4:]))

	if got := int64(binary.LittleEndian.Uint64(encoded[offset : offset+8])); got != r.Timestamp {
		t.Fatalf("Timestamp mismatch: got %v want %v", got, r.Timestamp)
	}
	offset += 8

	if Kind(encoded[offset]) != KindSet {
		t.Fatalf("Kind mismatch: got %v want %v", encoded[offset], KindSet)
	}
	offset++

	expectUint32("KeySize", 1)
	expectUint32("ValueSize", 1)
	expectUint32("HeaderCRC", CalculateCRC(encoded[4:21]))

	if encoded[offset] != 'a' {
		t.Fatalf("expected key byte 'a', got %v", encoded[offset])
	}
	offset++

	if encoded[offset] != 'b' {
		t.Fatalf("expected value byte 'b', got %v", encoded[offset])
	}
}
