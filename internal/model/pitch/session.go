package pitch

import "time"

// Session 表示一次实时路演分析会话的快照。
type Session struct {
	ID          string    `json:"id"`
	UserID      int64     `json:"userId"`
	StartedAt   time.Time `json:"startedAt"`
	TotalChunks int       `json:"totalChunks"`
	Transcript  string    `json:"transcript"`
}

// SessionSummary 会话结束时生成的只读总结。
type SessionSummary struct {
	SessionID       string         `json:"sessionId"`
	TotalDuration   float64        `json:"totalDuration"` // seconds
	SpeakingTime    float64        `json:"speakingTime"`  // seconds
	SpeakingRatio   float64        `json:"speakingRatio"`
	TotalChunks     int            `json:"totalChunks"`
	FinalTranscript string         `json:"finalTranscript"`
	AnalysisCount   int            `json:"analysisCount"`
	ConfidenceTrend []float64      `json:"confidenceTrend"`
	EmotionSummary  EmotionSummary `json:"emotionSummary"`
	FinalMetrics    LiveMetrics    `json:"finalMetrics"`
}

// EmotionSummary 汇总会话期间的情绪走势。
type EmotionSummary struct {
	DominantEmotion string         `json:"dominantEmotion"`
	Distribution    map[string]int `json:"emotionDistribution,omitempty"`
	EmotionChanges  int            `json:"emotionChanges"`
	Stability       string         `json:"emotionalStability,omitempty"`
}
