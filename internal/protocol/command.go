package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Command is a decoded client request.
//
// Name selects the operation (e.g. "get", "set", "rm"); the meaning of Key
// and Value depends on it and either may be empty.
type Command struct {
	Name  string
	Key   string
	Value string
}

// EncodeCommand serializes a client command into its wire format:
//
//	<name_len:uint8><key_len:uint32><value_len:uint32><name><key><value>
//
// All integer fields are big-endian. The command name is limited to 255
// bytes.
func EncodeCommand(name, key, value string) ([]byte, error) {
	if len(name) > math.MaxUint8 {
		return nil, fmt.Errorf("command name too long: %d bytes", len(name))
	}
	if uint64(len(key)) > math.MaxUint32 || uint64(len(value)) > math.MaxUint32 {
		return nil, fmt.Errorf("command payload too large")
	}

	buf := &bytes.Buffer{}
	buf.Grow(1 + 4 + 4 + len(name) + len(key) + len(value))

	buf.WriteByte(uint8(len(name)))
	if err := binary.Write(buf, binary.BigEndian, uint32(len(key))); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.BigEndian, uint32(len(value))); err != nil {
		return nil, err
	}

	buf.WriteString(name)
	buf.WriteString(key)
	buf.WriteString(value)

	return buf.Bytes(), nil
}

// DecodeCommand reads one command from r, blocking until it is complete or
// the reader fails.
func DecodeCommand(r io.Reader) (*Command, error) {
	var nameLen uint8
	var keyLen uint32
	var valueLen uint32

	if err := binary.Read(r, binary.BigEndian, &nameLen); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &keyLen); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &valueLen); err != nil {
		return nil, err
	}

	if keyLen > MaxPayloadSize || valueLen > MaxPayloadSize {
		return nil, fmt.Errorf("command payload exceeds %d bytes", MaxPayloadSize)
	}

	payload := make([]byte, int(nameLen)+int(keyLen)+int(valueLen))
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}

	keyStart := int(nameLen)
	valueStart := keyStart + int(keyLen)
	return &Command{
		Name:  string(payload[:keyStart]),
		Key:   string(payload[keyStart:valueStart]),
		Value: string(payload[valueStart:]),
	}, nil
}
