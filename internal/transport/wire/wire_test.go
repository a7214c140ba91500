package wire

import (
	"encoding/binary"
	"testing"
)

func TestPackDecodeRaw(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03, 0x04}
	frame := Pack(FormatRaw, 9, payload)

	if string(frame) != string(payload) {
		t.Fatalf("Pack(raw) changed the payload: %v", frame)
	}

	got, kind, err := Decode(FormatRaw, frame)
	if err != nil {
		t.Fatalf("Decode(raw) returned error: %v", err)
	}
	if kind != KindAudio {
		t.Fatalf("Decode(raw) kind=%v, want %v", kind, KindAudio)
	}
	if string(got) != string(payload) {
		t.Fatalf("Decode(raw) payload=%v, want %v", got, payload)
	}
}

func TestPackDecodeFramed(t *testing.T) {
	payload := []byte{0x09, 0x08, 0x07}
	frame := Pack(FormatFramed, 42, payload)

	if len(frame) != headerSize+len(payload) {
		t.Fatalf("frame length=%d, want %d", len(frame), headerSize+len(payload))
	}

	got, kind, err := Decode(FormatFramed, frame)
	if err != nil {
		t.Fatalf("Decode(framed) returned error: %v", err)
	}
	if kind != KindAudio {
		t.Fatalf("Decode(framed) kind=%v, want %v", kind, KindAudio)
	}
	if string(got) != string(payload) {
		t.Fatalf("Decode(framed) payload=%v, want %v", got, payload)
	}

	seq, err := Seq(frame)
	if err != nil {
		t.Fatalf("Seq returned error: %v", err)
	}
	if seq != 42 {
		t.Fatalf("Seq=%d, want 42", seq)
	}
}

func TestDecodeFramedControlPayload(t *testing.T) {
	payload := []byte(`{"type":"eos"}`)
	frame := make([]byte, headerSize+len(payload))
	binary.BigEndian.PutUint16(frame[0:2], FormatFramed)
	binary.BigEndian.PutUint16(frame[2:4], kindCtrl)
	binary.BigEndian.PutUint32(frame[12:16], uint32(len(payload)))
	copy(frame[headerSize:], payload)

	got, kind, err := Decode(FormatFramed, frame)
	if err != nil {
		t.Fatalf("Decode(framed ctrl) returned error: %v", err)
	}
	if kind != KindControl {
		t.Fatalf("Decode(framed ctrl) kind=%v, want %v", kind, KindControl)
	}
	if string(got) != string(payload) {
		t.Fatalf("Decode(framed ctrl) payload=%q, want %q", string(got), string(payload))
	}
}

func TestDecodeFramedErrors(t *testing.T) {
	if _, _, err := Decode(FormatFramed, []byte{0x00}); err == nil {
		t.Fatal("expected an error for a short frame")
	}

	frame := make([]byte, headerSize)
	binary.BigEndian.PutUint32(frame[12:16], 100)
	if _, _, err := Decode(FormatFramed, frame); err == nil {
		t.Fatal("expected an error for an oversized payload declaration")
	}

	bad := make([]byte, headerSize)
	binary.BigEndian.PutUint16(bad[2:4], 9)
	if _, _, err := Decode(FormatFramed, bad); err == nil {
		t.Fatal("expected an error for an unsupported kind")
	}
}

func TestNormalizeFormat(t *testing.T) {
	if NormalizeFormat(0) != FormatRaw {
		t.Fatal("unknown format must normalize to raw")
	}
	if NormalizeFormat(FormatFramed) != FormatFramed {
		t.Fatal("framed format must survive normalization")
	}
	if ParseFormat("framed") != FormatFramed || ParseFormat("") != FormatRaw {
		t.Fatal("ParseFormat mapping is wrong")
	}
}
