package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// MaxPayloadSize bounds any single key, value or response body accepted
// from the network.
const MaxPayloadSize = 64 << 20

// Status tells the client how to read a response body.
type Status uint8

const (
	StatusOK       Status = 0
	StatusNotFound Status = 1
	StatusError    Status = 2
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotFound:
		return "not found"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

type Response struct {
	Status Status
	Body   string
}

// EncodeResponse serializes a response:
//
//	<status:uint8><body_len:uint32><body>
func EncodeResponse(status Status, body string) ([]byte, error) {
	if uint64(len(body)) > math.MaxUint32 {
		return nil, fmt.Errorf("response body too large")
	}

	buf := &bytes.Buffer{}
	buf.Grow(1 + 4 + len(body))

	buf.WriteByte(byte(status))
	if err := binary.Write(buf, binary.BigEndian, uint32(len(body))); err != nil {
		return nil, err
	}
	buf.WriteString(body)

	return buf.Bytes(), nil
}

func DecodeResponse(r io.Reader) (*Response, error) {
	var status uint8
	var bodyLen uint32

	if err := binary.Read(r, binary.BigEndian, &status); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &bodyLen); err != nil {
		return nil, err
	}
	if bodyLen > MaxPayloadSize {
		return nil, fmt.Errorf("response body exceeds %d bytes", MaxPayloadSize)
	}

	buf := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}

	return &Response{Status: Status(status), Body: string(buf)}, nil
}
