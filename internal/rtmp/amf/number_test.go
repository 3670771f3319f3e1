package amf

import (
	"bytes"
	"math"
	"testing"
)

// Known-good AMF0 Number wire encodings (marker 0x00 + 8-byte big-endian IEEE754 double).
var (
	amf0Number0   = []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	amf0Number1_5 = []byte{0x00, 0x3F, 0xF8, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
)

func TestEncodeNumber_Vector_0(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeNumber(&buf, 0.0); err != nil {
		t.Fatalf("EncodeNumber(0.0) error: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), amf0Number0) {
		t.Fatalf("encoded bytes mismatch for 0.0\n got: %x\nwant: %x", buf.Bytes(), amf0Number0)
	}
}

func TestEncodeNumber_Vector_1_5(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeNumber(&buf, 1.5); err != nil {
		t.Fatalf("EncodeNumber(1.5) error: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), amf0Number1_5) {
		t.Fatalf("encoded bytes mismatch for 1.5\n got: %x\nwant: %x", buf.Bytes(), amf0Number1_5)
	}
}

func TestDecodeNumber_Vector_0(t *testing.T) {
	v, err := DecodeNumber(bytes.NewReader(amf0Number0))
	if err != nil {
		t.Fatalf("DecodeNumber(0.0) error: %v", err)
	}
	if v != 0.0 {
		t.Fatalf("expected 0.0 got %v", v)
	}
}

func TestDecodeNumber_Vector_1_5(t *testing.T) {
	v, err := DecodeNumber(bytes.NewReader(amf0Number1_5))
	if err != nil {
		t.Fatalf("DecodeNumber(1.5) error: %v", err)
	}
	if v != 1.5 {
		t.Fatalf("expected 1.5 got %v", v)
	}
}

func TestNumber_EdgeCases_RoundTrip(t *testing.T) {
	cases := []float64{1.0, -1.0, math.Inf(1), math.Inf(-1)}
	for _, in := range cases {
		var buf bytes.Buffer
		if err := EncodeNumber(&buf, in); err != nil {
			t.Fatalf("encode %v: %v", in, err)
		}
		out, err := DecodeNumber(&buf)
		if err != nil {
			t.Fatalf("decode %v: %v", in, err)
		}
		if in != out {
			t.Fatalf("mismatch: in=%v out=%v", in, out)
		}
	}
}

func TestNumber_NaN_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeNumber(&buf, math.NaN()); err != nil {
		t.Fatalf("encode NaN: %v", err)
	}
	out, err := DecodeNumber(&buf)
	if err != nil {
		t.Fatalf("decode NaN: %v", err)
	}
	if !math.IsNaN(out) {
		t.Fatalf("expected NaN got %v", out)
	}
}

func TestDecodeNumber_InvalidMarker(t *testing.T) {
	bad := []byte{0x02 /* string marker */, 0, 0, 0, 0, 0, 0, 0, 0}
	if _, err := DecodeNumber(bytes.NewReader(bad)); err == nil {
		t.Fatalf("expected error for invalid marker")
	}
}

func TestDecodeNumber_ShortBuffer(t *testing.T) {
	short := []byte{0x00, 0x00, 0x01} // truncated payload
	if _, err := DecodeNumber(bytes.NewReader(short)); err == nil {
		t.Fatalf("expected error for short read")
	}
}

func BenchmarkEncodeNumber(b *testing.B) {
	for i := 0; i < b.N; i++ {
		var buf bytes.Buffer
		_ = EncodeNumber(&buf, 123.456)
	}
}

func BenchmarkDecodeNumber(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = DecodeNumber(bytes.NewReader(amf0Number1_5))
	}
}
