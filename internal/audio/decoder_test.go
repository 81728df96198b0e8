package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func pcm16Bytes(values ...int16) []byte {
	out := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(v))
	}
	return out
}

func TestDecodeChunkPCM16Normalized(t *testing.T) {
	raw := pcm16Bytes(0, 16384, -16384, 32767, -32768)
	samples := DecodeChunk(raw)
	if len(samples) != 5 {
		t.Fatalf("expected 5 samples, got %d", len(samples))
	}
	for i, s := range samples {
		if s < -1 || s > 1 {
			t.Fatalf("sample %d out of range: %f", i, s)
		}
	}
	if samples[0] != 0 {
		t.Fatalf("expected zero sample, got %f", samples[0])
	}
	if math.Abs(float64(samples[1])-0.5) > 1e-6 {
		t.Fatalf("expected 0.5, got %f", samples[1])
	}
	if samples[4] != -1 {
		t.Fatalf("expected -1, got %f", samples[4])
	}
}

func TestDecodeChunkTooSmall(t *testing.T) {
	if got := DecodeChunk([]byte{1, 2, 3}); got != nil {
		t.Fatalf("expected nil for short chunk, got %v", got)
	}
	if got := DecodeChunk(nil); got != nil {
		t.Fatalf("expected nil for empty chunk, got %v", got)
	}
}

func TestDecodeChunkOddLengthFallsBackToFloat32(t *testing.T) {
	// 5 bytes: 既不是 pcm16 也不是 float32，最终返回空。
	if got := DecodeChunk([]byte{1, 2, 3, 4, 5}); got != nil {
		t.Fatalf("expected nil for undecodable chunk, got %v", got)
	}
}

func TestDecodeFloat32Direct(t *testing.T) {
	raw := make([]byte, 8)
	binary.LittleEndian.PutUint32(raw[0:], math.Float32bits(0.25))
	binary.LittleEndian.PutUint32(raw[4:], math.Float32bits(-0.75))

	samples := decodeFloat32(raw)
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	if samples[0] != 0.25 || samples[1] != -0.75 {
		t.Fatalf("unexpected samples: %v", samples)
	}
}

func TestEncodeWAVHeader(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 2.0}
	wav := EncodeWAV(samples, 16000)

	if len(wav) != wavHeaderSize+len(samples)*2 {
		t.Fatalf("unexpected wav size: %d", len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Fatalf("bad wav signature")
	}
	if rate := binary.LittleEndian.Uint32(wav[24:28]); rate != 16000 {
		t.Fatalf("unexpected sample rate: %d", rate)
	}
	// 超出范围的采样被截断到 int16 上限。
	last := int16(binary.LittleEndian.Uint16(wav[wavHeaderSize+6:]))
	if last != 32767 {
		t.Fatalf("expected clipped sample 32767, got %d", last)
	}
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	raw := pcm16Bytes(100, -200, 300, -400)
	samples := DecodeChunk(raw)
	wav := EncodeWAV(samples, 16000)
	decoded := decodePCM16(wav[wavHeaderSize:])
	for i := range samples {
		if math.Abs(float64(decoded[i]-samples[i])) > 1e-3 {
			t.Fatalf("roundtrip mismatch at %d: %f vs %f", i, decoded[i], samples[i])
		}
	}
}
