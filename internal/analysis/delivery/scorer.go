package delivery

import (
	"strings"

	"github.com/pitchlive-ai/pitchlive/backend/internal/model/pitch"
)

// Label 表示路演语气标签。
type Label string

const (
	Neutral      Label = "neutral"
	Confident    Label = "confident"
	Enthusiastic Label = "enthusiastic"
	Nervous      Label = "nervous"
	Uncertain    Label = "uncertain"
)

var keywordBuckets = map[Label][]string{
	Confident: {
		"proven", "we will", "guaranteed", "strong", "leading", "clearly",
		"traction", "results", "growth", "profitable", "we know", "confident",
		"market leader", "outperform", "demonstrated",
	},
	Enthusiastic: {
		"excited", "amazing", "incredible", "huge", "love", "thrilled",
		"revolutionary", "game-changing", "passionate", "opportunity",
		"breakthrough", "can't wait",
	},
	Nervous: {
		"um", "uh", "sort of", "kind of", "i guess", "hopefully",
		"not sure", "i mean", "you know", "basically",
	},
	Uncertain: {
		"maybe", "possibly", "might", "we hope", "perhaps", "roughly",
		"around", "i think", "probably", "somewhat",
	},
}

// fillerWords 影响自信度评分的口头填充词。
var fillerWords = []string{"um", "uh", "like", "you know", "i mean", "sort of", "kind of"}

// 语速分档（词/分钟）。
const (
	paceSlowLimit = 110.0
	paceFastLimit = 170.0
)

// Score 对转写文本进行启发式评估，作为评分协作方不可用时的回退。
func Score(transcript string, duration float64) pitch.ScoreResult {
	normalized := strings.ToLower(strings.TrimSpace(transcript))
	words := strings.Fields(normalized)

	wpm := 0.0
	if duration > 0 {
		wpm = float64(len(words)) / (duration / 60.0)
	}

	fillerCount := 0
	for _, filler := range fillerWords {
		fillerCount += strings.Count(normalized, filler)
	}

	emotion, emotionScore := dominantLabel(normalized)

	confidence := 50.0
	switch emotion {
	case Confident:
		confidence += float64(emotionScore) * 2
	case Enthusiastic:
		confidence += float64(emotionScore) * 1.5
	case Nervous, Uncertain:
		confidence -= float64(emotionScore) * 2
	}
	confidence -= float64(fillerCount) * 3
	if wpm >= paceSlowLimit && wpm <= paceFastLimit {
		confidence += 10
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}

	return pitch.ScoreResult{
		ConfidenceScore: confidence,
		DominantEmotion: string(emotion),
		WordsPerMinute:  wpm,
		Pacing:          classifyPace(wpm),
		Feedback:        feedbackFor(emotion, wpm, fillerCount),
	}
}

func dominantLabel(normalized string) (Label, int) {
	if normalized == "" {
		return Neutral, 0
	}

	scores := make(map[Label]int)
	for label, keywords := range keywordBuckets {
		for _, word := range keywords {
			if strings.Contains(normalized, word) {
				scores[label] += 3
			}
		}
	}

	best := Neutral
	bestScore := 0
	for label, s := range scores {
		if s > bestScore {
			bestScore = s
			best = label
		}
	}
	return best, bestScore
}

func classifyPace(wpm float64) string {
	switch {
	case wpm == 0:
		return ""
	case wpm < paceSlowLimit:
		return "slow"
	case wpm > paceFastLimit:
		return "rushed"
	default:
		return "balanced"
	}
}

func feedbackFor(emotion Label, wpm float64, fillerCount int) string {
	switch {
	case fillerCount > 3:
		return "Try to reduce filler words to sound more confident."
	case wpm > paceFastLimit:
		return "Slow down a little so investors can follow your key points."
	case wpm > 0 && wpm < paceSlowLimit:
		return "Pick up the pace to keep the energy of your pitch."
	case emotion == Confident || emotion == Enthusiastic:
		return "Good energy, keep building on your strongest points."
	default:
		return "Keep going, focus on concrete numbers and traction."
	}
}
