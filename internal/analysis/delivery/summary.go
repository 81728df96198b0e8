package delivery

import "github.com/pitchlive-ai/pitchlive/backend/internal/model/pitch"

// stableChangeLimit 情绪变化次数低于该值视为稳定。
const stableChangeLimit = 3

// Summarize 汇总会话期间的情绪走势：主导情绪、分布、变化次数与稳定性。
func Summarize(trend []pitch.EmotionPoint) pitch.EmotionSummary {
	if len(trend) == 0 {
		return pitch.EmotionSummary{DominantEmotion: string(Neutral)}
	}

	counts := make(map[string]int, len(trend))
	changes := 0
	for i, point := range trend {
		counts[point.Emotion]++
		if i > 0 && trend[i-1].Emotion != point.Emotion {
			changes++
		}
	}

	dominant := trend[0].Emotion
	best := 0
	for emotion, count := range counts {
		if count > best {
			best = count
			dominant = emotion
		}
	}

	stability := "stable"
	if changes >= stableChangeLimit {
		stability = "variable"
	}

	return pitch.EmotionSummary{
		DominantEmotion: dominant,
		Distribution:    counts,
		EmotionChanges:  changes,
		Stability:       stability,
	}
}
