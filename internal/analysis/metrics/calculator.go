package metrics

import (
	"math"
	"time"

	"github.com/pitchlive-ai/pitchlive/backend/internal/model/pitch"
)

const (
	// speakingThreshold 判定说话与否的未缩放 RMS 阈值。
	speakingThreshold = 0.01
	// trendLimit 趋势序列的长度上限，超出时淘汰最旧的点。
	trendLimit = 10
	// frameLength ZCR 分析帧长度，会话内保持一致以保证可比性。
	frameLength = 512
)

// Calculator 从每个音频块推导实时指标并推进会话累计状态。
type Calculator struct {
	sampleRate int
}

// NewCalculator 创建指标计算器。
func NewCalculator(sampleRate int) *Calculator {
	return &Calculator{sampleRate: sampleRate}
}

// Update 根据新音频块返回更新后的指标。输入为空或数值异常时
// 原样返回当前指标，从不失败。
func (c *Calculator) Update(m pitch.LiveMetrics, samples []float32, now time.Time) pitch.LiveMetrics {
	if len(samples) == 0 {
		return m
	}

	rms := math.Sqrt(Energy(samples))
	if math.IsNaN(rms) || math.IsInf(rms, 0) {
		return m
	}

	m.VolumeLevel = round(rms*100, 2)
	m.PitchVariation = round(stddev(frameZeroCrossingRates(samples)), 3)

	speaking := rms > speakingThreshold
	if speaking {
		m.SpeakingTime += float64(len(samples)) / float64(c.sampleRate)
	} else if m.IsSpeaking {
		// 说话后转入静音记为一次停顿。
		m.PauseCount++
	}
	m.IsSpeaking = speaking
	m.LastUpdate = now.UTC().Format(time.RFC3339)

	return m
}

// ApplyScore 将一次评分结果并入趋势数据。
func ApplyScore(m pitch.LiveMetrics, score pitch.ScoreResult, now time.Time) pitch.LiveMetrics {
	m.ConfidenceTrend = appendBoundedFloat(m.ConfidenceTrend, score.ConfidenceScore)

	if score.DominantEmotion != "" {
		point := pitch.EmotionPoint{
			Emotion:   score.DominantEmotion,
			Timestamp: now.UTC().Format(time.RFC3339),
		}
		m.EmotionTrend = appendBoundedEmotion(m.EmotionTrend, point)
	}

	if score.WordsPerMinute > 0 {
		m.SpeakingPace = score.WordsPerMinute
	}

	return m
}

// Energy 返回采样的平均平方能量。
func Energy(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return sum / float64(len(samples))
}

// frameZeroCrossingRates 按固定帧长计算每帧的过零率。
func frameZeroCrossingRates(samples []float32) []float64 {
	if len(samples) == 0 {
		return nil
	}

	var rates []float64
	for start := 0; start < len(samples); start += frameLength {
		end := start + frameLength
		if end > len(samples) {
			end = len(samples)
		}
		frame := samples[start:end]
		if len(frame) < 2 {
			break
		}
		crossings := 0
		for i := 1; i < len(frame); i++ {
			if (frame[i-1] >= 0) != (frame[i] >= 0) {
				crossings++
			}
		}
		rates = append(rates, float64(crossings)/float64(len(frame)))
	}
	return rates
}

func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

func round(v float64, digits int) float64 {
	scale := math.Pow(10, float64(digits))
	return math.Round(v*scale) / scale
}

func appendBoundedFloat(trend []float64, v float64) []float64 {
	trend = append(trend, v)
	if len(trend) > trendLimit {
		trend = trend[len(trend)-trendLimit:]
	}
	return trend
}

func appendBoundedEmotion(trend []pitch.EmotionPoint, p pitch.EmotionPoint) []pitch.EmotionPoint {
	trend = append(trend, p)
	if len(trend) > trendLimit {
		trend = trend[len(trend)-trendLimit:]
	}
	return trend
}
