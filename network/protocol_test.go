package network

import (
	"bytes"
	"testing"

	"github.com/nebulastream/streamcore/partition"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := Frame{
		Type:    MessageData,
		Channel: partition.NesPartition{QueryID: 1, OperatorID: 2, PartitionID: 3, SubpartitionID: 4},
		Payload: []byte("hello"),
	}
	if err := WriteFrame(&buf, want); err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}

	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if got.Type != want.Type || got.Channel != want.Channel || !bytes.Equal(got.Payload, want.Payload) {
		t.Fatalf("ReadFrame() = %+v, want %+v", got, want)
	}
}

func TestDataPayloadRoundTrip(t *testing.T) {
	raw := []byte{1, 2, 3, 4, 5}
	encoded := EncodeDataPayload(7, 16, 12345, raw)

	tupleCount, tupleSize, watermark, buf, err := DecodeDataPayload(encoded)
	if err != nil {
		t.Fatalf("DecodeDataPayload() error = %v", err)
	}
	if tupleCount != 7 || tupleSize != 16 || watermark != 12345 || !bytes.Equal(buf, raw) {
		t.Fatalf("DecodeDataPayload() = (%d, %d, %d, %v), want (7, 16, 12345, %v)", tupleCount, tupleSize, watermark, buf, raw)
	}
}

func TestEventPayloadRoundTrip(t *testing.T) {
	encoded := EncodeEventPayload(EventPauseRequested, []byte("opaque"))
	kind, opaque, err := DecodeEventPayload(encoded)
	if err != nil {
		t.Fatalf("DecodeEventPayload() error = %v", err)
	}
	if kind != EventPauseRequested || string(opaque) != "opaque" {
		t.Fatalf("DecodeEventPayload() = (%v, %q), want (EventPauseRequested, opaque)", kind, opaque)
	}
}

func TestDecodeFrameRejectsShortLength(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0x01, 0x00, 0x00, 0x00}) // length=1, shorter than header
	buf.WriteByte(0x00)
	if _, err := ReadFrame(&buf); err == nil {
		t.Fatalf("expected ReadFrame() to reject a frame shorter than the header")
	}
}
