package audio

import (
	"encoding/binary"
	"math"
)

const wavHeaderSize = 44

// EncodeWAV 将采样序列编码为 16-bit PCM 单声道 WAV 字节流。
// 超出 [-1,1] 的采样会被截断。
func EncodeWAV(samples []float32, sampleRate int) []byte {
	dataSize := len(samples) * 2
	buf := make([]byte, wavHeaderSize+dataSize)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(buf[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1)  // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*2)) // byte rate
	binary.LittleEndian.PutUint16(buf[32:34], 2)                    // block align
	binary.LittleEndian.PutUint16(buf[34:36], 16)                   // bits per sample

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	for i, s := range samples {
		v := float64(s)
		if v > 1 {
			v = 1
		}
		if v < -1 {
			v = -1
		}
		pcm := int16(math.Round(v * 32767))
		binary.LittleEndian.PutUint16(buf[wavHeaderSize+2*i:], uint16(pcm))
	}

	return buf
}
