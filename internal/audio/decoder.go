package audio

import (
	"encoding/binary"
	"log"
	"math"
)

// minChunkBytes 小于该长度的音频块不携带有效采样。
const minChunkBytes = 4

// DecodeChunk 将传输层送来的原始字节解码为归一化到 [-1,1] 的采样序列。
// 优先按 16-bit 小端 PCM 解释；当结果明显不是归一化 PCM 时改按原始
// float32 解释。解码永不向调用方返回错误，失败时返回空序列。
func DecodeChunk(raw []byte) []float32 {
	if len(raw) < minChunkBytes {
		log.Printf("[audio] chunk too small: %d bytes", len(raw))
		return nil
	}

	if len(raw)%2 == 0 {
		samples := decodePCM16(raw)
		peak := peakAmplitude(samples)
		if peak <= 10 {
			return samples
		}
		// 归一化 PCM 不可能出现这么大的值，按 float32 重新解释同一段字节。
		log.Printf("[audio] sample peak %.2f implausible for pcm16, trying float32", peak)
	} else {
		log.Printf("[audio] odd chunk length %d, not pcm16", len(raw))
	}

	return decodeFloat32(raw)
}

func decodePCM16(raw []byte) []float32 {
	samples := make([]float32, len(raw)/2)
	for i := range samples {
		s := int16(binary.LittleEndian.Uint16(raw[2*i:]))
		samples[i] = float32(s) / 32768.0
	}
	return samples
}

func decodeFloat32(raw []byte) []float32 {
	if len(raw)%4 != 0 {
		log.Printf("[audio] chunk length %d not interpretable as float32", len(raw))
		return nil
	}
	samples := make([]float32, len(raw)/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(raw[4*i:])
		samples[i] = math.Float32frombits(bits)
	}
	return samples
}

func peakAmplitude(samples []float32) float64 {
	peak := 0.0
	for _, s := range samples {
		v := math.Abs(float64(s))
		if v > peak {
			peak = v
		}
	}
	return peak
}
