package pitch

// AnalysisStatus 区分重分析的三种结束方式，调用方据此分支而不是匹配消息文本。
type AnalysisStatus string

const (
	// AnalysisScored 转写非空且评分成功。
	AnalysisScored AnalysisStatus = "scored"
	// AnalysisListening 本次窗口未识别出语音，继续监听。
	AnalysisListening AnalysisStatus = "listening"
	// AnalysisFailed 评分协作方调用失败，降级为仅音频指标。
	AnalysisFailed AnalysisStatus = "failed"
)

// ChunkAnalysisResult 一次重分析（转写+评分）的不可变结果。
type ChunkAnalysisResult struct {
	ChunkID     int             `json:"chunkId"`
	Transcript  string          `json:"transcript"`
	Timestamp   string          `json:"timestamp"` // ISO-8601
	Duration    float64         `json:"duration"`  // seconds of analyzed audio
	AudioEnergy float64         `json:"audioEnergy"`
	HasSpeech   bool            `json:"hasSpeech"`
	Analysis    AnalysisPayload `json:"analysis"`
}

// AnalysisPayload 重分析的评分载荷。
type AnalysisPayload struct {
	Status          AnalysisStatus `json:"status"`
	ConfidenceScore float64        `json:"confidenceScore"`
	DominantEmotion string         `json:"dominantEmotion,omitempty"`
	WordsPerMinute  float64        `json:"wordsPerMinute,omitempty"`
	Pacing          string         `json:"pacing,omitempty"`
	Feedback        string         `json:"feedback,omitempty"`
	Message         string         `json:"message,omitempty"`
	AudioQuality    string         `json:"audioQuality,omitempty"`
	Error           string         `json:"error,omitempty"`
}

// ScoreResult 内容评分协作方的返回结构。
type ScoreResult struct {
	ConfidenceScore float64 `json:"confidenceScore"` // 0-100
	DominantEmotion string  `json:"dominantEmotion,omitempty"`
	WordsPerMinute  float64 `json:"wordsPerMinute,omitempty"`
	Pacing          string  `json:"pacing,omitempty"`
	Feedback        string  `json:"feedback,omitempty"`
}

// ChunkResult ProcessChunk 返回的组合结果。
type ChunkResult struct {
	SessionID      string               `json:"sessionId"`
	ChunkProcessed bool                 `json:"chunkProcessed"`
	LiveMetrics    LiveMetrics          `json:"liveMetrics"`
	Analysis       *ChunkAnalysisResult `json:"analysis,omitempty"`
}
