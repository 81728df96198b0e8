package pitch

// LiveMetrics 每个音频块更新一次的实时信号指标。
type LiveMetrics struct {
	VolumeLevel     float64        `json:"volumeLevel"`    // RMS×100, 0-100
	PitchVariation  float64        `json:"pitchVariation"` // stddev of frame ZCR
	IsSpeaking      bool           `json:"isSpeaking"`
	SpeakingTime    float64        `json:"speakingTime"` // cumulative seconds
	SpeakingPace    float64        `json:"speakingPace"` // latest words per minute
	PauseCount      int            `json:"pauseCount"`
	ConfidenceTrend []float64      `json:"confidenceTrend"`
	EmotionTrend    []EmotionPoint `json:"emotionTrend"`
	LastUpdate      string         `json:"lastUpdate,omitempty"` // ISO-8601
}

// EmotionPoint 情绪走势中的一个采样点。
type EmotionPoint struct {
	Emotion   string `json:"emotion"`
	Timestamp string `json:"timestamp"` // ISO-8601
}
