// File: network/protocol.go
// Author: nebulastream/streamcore contributors
// License: Apache-2.0
//
// Wire framing (spec §4.4, §6): length-prefixed (4-byte little-endian),
// then { messageType byte, channelId (four 8-byte little-endian
// integers), payload }.

package network

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/nebulastream/streamcore/errs"
	"github.com/nebulastream/streamcore/partition"
)

// MessageType tags the kind of frame on the wire.
type MessageType uint8

const (
	MessageRegister MessageType = iota
	MessageAck
	MessageData
	MessageEvent
	MessageEndOfStream
	MessageError
)

func (t MessageType) String() string {
	switch t {
	case MessageRegister:
		return "Register"
	case MessageAck:
		return "Ack"
	case MessageData:
		return "Data"
	case MessageEvent:
		return "Event"
	case MessageEndOfStream:
		return "EndOfStream"
	case MessageError:
		return "Error"
	default:
		return "Unknown"
	}
}

// EventKind enumerates the out-of-band event payloads (spec §4.4).
type EventKind uint8

const (
	EventCustom EventKind = iota
	EventPauseRequested
	EventResumeRequested
)

// ErrorType enumerates the wire-level error payloads (spec §4.4).
type ErrorType uint8

const (
	ErrorPartitionNotRegistered ErrorType = iota
	ErrorProtocol
)

// Frame is one decoded wire message.
type Frame struct {
	Type    MessageType
	Channel partition.NesPartition
	Payload []byte
}

const frameHeaderSize = 1 + 4*8 // messageType + four uint64 channel components

// WriteFrame serializes f as a length-prefixed frame onto w.
func WriteFrame(w io.Writer, f Frame) error {
	body := make([]byte, frameHeaderSize+len(f.Payload))
	body[0] = byte(f.Type)
	binary.LittleEndian.PutUint64(body[1:9], f.Channel.QueryID)
	binary.LittleEndian.PutUint64(body[9:17], f.Channel.OperatorID)
	binary.LittleEndian.PutUint64(body[17:25], f.Channel.PartitionID)
	binary.LittleEndian.PutUint64(body[25:33], f.Channel.SubpartitionID)
	copy(body[frameHeaderSize:], f.Payload)

	var lenPrefix [4]byte
	binary.LittleEndian.PutUint32(lenPrefix[:], uint32(len(body)))
	if _, err := w.Write(lenPrefix[:]); err != nil {
		return fmt.Errorf("write frame length: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write frame body: %w", err)
	}
	return nil
}

// ReadFrame reads and decodes the next length-prefixed frame from r.
func ReadFrame(r io.Reader) (Frame, error) {
	var lenPrefix [4]byte
	if _, err := io.ReadFull(r, lenPrefix[:]); err != nil {
		return Frame{}, err
	}
	n := binary.LittleEndian.Uint32(lenPrefix[:])
	if n < frameHeaderSize {
		return Frame{}, errs.New(errs.CodeProtocolError, "frame shorter than header").WithContext("length", n)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return Frame{}, fmt.Errorf("read frame body: %w", err)
	}

	f := Frame{
		Type: MessageType(body[0]),
		Channel: partition.NesPartition{
			QueryID:        binary.LittleEndian.Uint64(body[1:9]),
			OperatorID:     binary.LittleEndian.Uint64(body[9:17]),
			PartitionID:    binary.LittleEndian.Uint64(body[17:25]),
			SubpartitionID: binary.LittleEndian.Uint64(body[25:33]),
		},
		Payload: body[frameHeaderSize:],
	}
	return f, nil
}

const dataPayloadHeaderSize = 4 + 4 + 8 // tupleCount + tupleSize + watermark

// EncodeDataPayload builds a Data frame's payload: buffer bytes prefixed
// by { tupleCount, tupleSize, watermark } (spec §4.4).
func EncodeDataPayload(tupleCount, tupleSize uint32, watermark int64, buf []byte) []byte {
	out := make([]byte, dataPayloadHeaderSize+len(buf))
	binary.LittleEndian.PutUint32(out[0:4], tupleCount)
	binary.LittleEndian.PutUint32(out[4:8], tupleSize)
	binary.LittleEndian.PutUint64(out[8:16], uint64(watermark))
	copy(out[dataPayloadHeaderSize:], buf)
	return out
}

// DecodeDataPayload splits a Data frame's payload back into its header
// fields and raw buffer bytes.
func DecodeDataPayload(payload []byte) (tupleCount, tupleSize uint32, watermark int64, buf []byte, err error) {
	if len(payload) < dataPayloadHeaderSize {
		return 0, 0, 0, nil, errs.New(errs.CodeProtocolError, "data payload shorter than header")
	}
	tupleCount = binary.LittleEndian.Uint32(payload[0:4])
	tupleSize = binary.LittleEndian.Uint32(payload[4:8])
	watermark = int64(binary.LittleEndian.Uint64(payload[8:16]))
	buf = payload[dataPayloadHeaderSize:]
	return
}

// EncodeEventPayload builds an Event frame's payload.
func EncodeEventPayload(kind EventKind, opaque []byte) []byte {
	out := make([]byte, 1+len(opaque))
	out[0] = byte(kind)
	copy(out[1:], opaque)
	return out
}

// DecodeEventPayload splits an Event frame's payload.
func DecodeEventPayload(payload []byte) (EventKind, []byte, error) {
	if len(payload) < 1 {
		return 0, nil, errs.New(errs.CodeProtocolError, "event payload empty")
	}
	return EventKind(payload[0]), payload[1:], nil
}

// EncodeErrorPayload builds an Error frame's payload.
func EncodeErrorPayload(kind ErrorType) []byte {
	return []byte{byte(kind)}
}

// DecodeErrorPayload splits an Error frame's payload.
func DecodeErrorPayload(payload []byte) (ErrorType, error) {
	if len(payload) < 1 {
		return 0, errs.New(errs.CodeProtocolError, "error payload empty")
	}
	return ErrorType(payload[0]), nil
}
