package speech

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Volcengine speech services exchange binary frames over WebSocket. Each
// frame starts with a 4 byte header:
//
//	byte 0: protocol version (4 bits) | header size in 4 byte words (4 bits)
//	byte 1: message type (4 bits)     | message flags (4 bits)
//	byte 2: serialization (4 bits)    | compression (4 bits)
//	byte 3: reserved
//
// followed by an optional sequence number, optional event metadata and a
// length-prefixed payload. Integers are big endian.

const protocolVersion = 0b0001

type messageType uint8

const (
	fullClientRequest  messageType = 0b0001
	audioOnlyRequest   messageType = 0b0010
	fullServerResponse messageType = 0b1001
	audioOnlyResponse  messageType = 0b1011
	errorResponse      messageType = 0b1111
)

type messageFlags uint8

const (
	flagNoSequence       messageFlags = 0b0000
	flagPositiveSequence messageFlags = 0b0001
	flagLastNoSequence   messageFlags = 0b0010
	flagNegativeSequence messageFlags = 0b0011
	flagWithEvent        messageFlags = 0b0100
)

const (
	serializationNone uint8 = 0b0000
	serializationJSON uint8 = 0b0001
)

const (
	compressionNone uint8 = 0b0000
	compressionGzip uint8 = 0b0001
)

type eventType int32

const (
	eventStartConnection    eventType = 1
	eventFinishConnection   eventType = 2
	eventConnectionStarted  eventType = 50
	eventConnectionFailed   eventType = 51
	eventConnectionFinished eventType = 52
	eventSessionFinished    eventType = 152
)

// frame is one decoded protocol message.
type frame struct {
	Type          messageType
	Flags         messageFlags
	Serialization uint8
	Compression   uint8
	Sequence      int32
	Event         eventType
	SessionID     string
	ConnectID     string
	ErrorCode     uint32
	Payload       []byte
}

func (f *frame) hasSequence() bool {
	switch f.Flags & 0b0011 {
	case flagPositiveSequence, flagNegativeSequence:
		return true
	}
	return false
}

func (f *frame) hasEvent() bool {
	return f.Flags&flagWithEvent == flagWithEvent
}

// isLast reports whether the server marked this as the final packet.
func (f *frame) isLast() bool {
	switch f.Flags & 0b0011 {
	case flagLastNoSequence, flagNegativeSequence:
		return true
	}
	return false
}

// payload returns the frame body with compression removed.
func (f *frame) payload() ([]byte, error) {
	if f.Compression == compressionGzip {
		return gunzip(f.Payload)
	}
	return f.Payload, nil
}

func eventCarriesSessionID(e eventType) bool {
	switch e {
	case eventStartConnection, eventFinishConnection,
		eventConnectionStarted, eventConnectionFailed, eventConnectionFinished:
		return false
	}
	return true
}

func eventCarriesConnectID(e eventType) bool {
	switch e {
	case eventConnectionStarted, eventConnectionFailed, eventConnectionFinished:
		return true
	}
	return false
}

func (f *frame) encode() []byte {
	var buf bytes.Buffer

	buf.WriteByte(protocolVersion<<4 | 0b0001)
	buf.WriteByte(uint8(f.Type)<<4 | uint8(f.Flags))
	buf.WriteByte(f.Serialization<<4 | f.Compression)
	buf.WriteByte(0)

	if f.hasSequence() {
		writeUint32(&buf, uint32(f.Sequence))
	}

	if f.hasEvent() {
		writeUint32(&buf, uint32(f.Event))
		if eventCarriesSessionID(f.Event) {
			writeString(&buf, f.SessionID)
		}
		if eventCarriesConnectID(f.Event) {
			writeString(&buf, f.ConnectID)
		}
	}

	if f.Type == errorResponse {
		writeUint32(&buf, f.ErrorCode)
	}

	writeUint32(&buf, uint32(len(f.Payload)))
	buf.Write(f.Payload)

	return buf.Bytes()
}

func decodeFrame(data []byte) (*frame, error) {
	r := bytes.NewReader(data)

	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	if version := header[0] >> 4; version != protocolVersion {
		return nil, errors.Errorf("unsupported protocol version %d", version)
	}

	// Skip header extensions beyond the fixed 4 bytes.
	if extra := int(header[0]&0x0F)*4 - 4; extra > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(extra)); err != nil {
			return nil, errors.Wrap(err, "read header extension")
		}
	}

	f := &frame{
		Type:          messageType(header[1] >> 4),
		Flags:         messageFlags(header[1] & 0x0F),
		Serialization: header[2] >> 4,
		Compression:   header[2] & 0x0F,
	}

	if f.hasSequence() {
		seq, err := readUint32(r)
		if err != nil {
			return nil, errors.Wrap(err, "read sequence")
		}
		f.Sequence = int32(seq)
	}

	if f.hasEvent() {
		event, err := readUint32(r)
		if err != nil {
			return nil, errors.Wrap(err, "read event")
		}
		f.Event = eventType(int32(event))

		if eventCarriesSessionID(f.Event) {
			if f.SessionID, err = readString(r); err != nil {
				return nil, errors.Wrap(err, "read session id")
			}
		}
		if eventCarriesConnectID(f.Event) {
			if f.ConnectID, err = readString(r); err != nil {
				return nil, errors.Wrap(err, "read connect id")
			}
		}
	}

	if f.Type == errorResponse {
		code, err := readUint32(r)
		if err != nil {
			return nil, errors.Wrap(err, "read error code")
		}
		f.ErrorCode = code
	}

	size, err := readUint32(r)
	if err != nil {
		return nil, errors.Wrap(err, "read payload size")
	}
	if size > 0 {
		f.Payload = make([]byte, size)
		if _, err := io.ReadFull(r, f.Payload); err != nil {
			return nil, errors.Wrapf(err, "read payload (expected %d bytes)", size)
		}
	}

	return f, nil
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeString(buf *bytes.Buffer, s string) {
	writeUint32(buf, uint32(len(s)))
	buf.WriteString(s)
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func readString(r io.Reader) (string, error) {
	size, err := readUint32(r)
	if err != nil {
		return "", err
	}
	if size == 0 {
		return "", nil
	}
	b := make([]byte, size)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, errors.Wrap(err, "gzip write")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "gzip close")
	}
	return buf.Bytes(), nil
}

func gunzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "gzip reader")
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "gzip read")
	}
	return out, nil
}
