package audio

// retainRatio 溢出裁剪后保留的比例（丢弃最旧的30%）。
const retainRatio = 0.7

// Buffer 按会话累积解码后的采样，总长度受最大时长约束。
// Buffer 自身不加锁，由持有它的会话状态负责串行访问。
type Buffer struct {
	samples    []float32
	sampleRate int
	maxSamples int
}

// NewBuffer 创建一个以 maxSeconds 为上限的滚动缓冲。
func NewBuffer(sampleRate int, maxSeconds float64) *Buffer {
	return &Buffer{
		sampleRate: sampleRate,
		maxSamples: int(maxSeconds * float64(sampleRate)),
	}
}

// Append 追加解码后的采样。
func (b *Buffer) Append(samples []float32) {
	if len(samples) == 0 {
		return
	}
	b.samples = append(b.samples, samples...)
}

// Len 返回当前采样数。
func (b *Buffer) Len() int {
	return len(b.samples)
}

// Duration 返回缓冲的音频时长（秒）。
func (b *Buffer) Duration() float64 {
	return float64(len(b.samples)) / float64(b.sampleRate)
}

// Snapshot 返回当前缓冲内容的独立副本，供重分析使用。
func (b *Buffer) Snapshot() []float32 {
	out := make([]float32, len(b.samples))
	copy(out, b.samples)
	return out
}

// Tail 返回最近 seconds 秒的采样（不复制）。
func (b *Buffer) Tail(seconds float64) []float32 {
	n := int(seconds * float64(b.sampleRate))
	if n >= len(b.samples) {
		return b.samples
	}
	return b.samples[len(b.samples)-n:]
}

// TrimIfNeeded 在超过上限时仅保留最近 70% 的采样，返回丢弃的数量。
// 裁剪只在一次重分析结束后调用，开销为保留长度的拷贝。
func (b *Buffer) TrimIfNeeded() int {
	if len(b.samples) <= b.maxSamples {
		return 0
	}
	keep := int(float64(b.maxSamples) * retainRatio)
	dropped := len(b.samples) - keep
	kept := make([]float32, keep)
	copy(kept, b.samples[dropped:])
	b.samples = kept
	return dropped
}
