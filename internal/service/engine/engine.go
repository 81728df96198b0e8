package engine

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pitchlive-ai/pitchlive/backend/internal/analysis/delivery"
	"github.com/pitchlive-ai/pitchlive/backend/internal/analysis/metrics"
	"github.com/pitchlive-ai/pitchlive/backend/internal/audio"
	"github.com/pitchlive-ai/pitchlive/backend/internal/model/pitch"
)

var (
	ErrSessionExists   = errors.New("session already exists")
	ErrSessionNotFound = errors.New("session not found")
)

// Transcriber 语音转文本协作方。未识别出语音时返回空字符串而不是错误。
type Transcriber interface {
	Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error)
}

// Scorer 内容评分协作方。
type Scorer interface {
	Score(ctx context.Context, transcript string, duration float64) (pitch.ScoreResult, error)
}

// Responder 投资人回应协作方。
type Responder interface {
	Respond(ctx context.Context, transcript string, recent *pitch.ChunkAnalysisResult) (pitch.InvestorResponse, error)
}

// Config 流式分析引擎的阈值配置。阈值来源于经验调参，均可通过环境变量覆盖。
type Config struct {
	SampleRate             int     // 采样率，默认 16000
	TranscriptionThreshold float64 // 触发重分析的最小缓冲时长（秒）
	SilenceThreshold       float64 // 静音判定的平均平方能量阈值
	MaxBufferSeconds       float64 // 滚动缓冲的最大时长（秒）
	SnapshotDir            string  // 重分析快照 WAV 的落盘目录，空则使用系统临时目录
}

const (
	defaultSampleRate             = 16000
	defaultTranscriptionThreshold = 3.0
	defaultSilenceThreshold       = 0.01
	defaultMaxBufferSeconds       = 30.0

	// recentWindowSeconds 门控检查最近音频能量的窗口。
	recentWindowSeconds = 2.0
	// minAnalysisSeconds 重分析的硬性最短时长。
	minAnalysisSeconds = 1.0
	// minSnapshotBytes 序列化快照的最小字节数，防止空写或损坏。
	minSnapshotBytes = 1000

	listeningMessage     = "Continuing to listen..."
	encouragementMessage = "I'm listening... please continue with your pitch."
	degradedMessage      = "I'm having trouble processing your pitch right now. Please continue."
)

func (c Config) withDefaults() Config {
	if c.SampleRate <= 0 {
		c.SampleRate = defaultSampleRate
	}
	if c.TranscriptionThreshold <= 0 {
		c.TranscriptionThreshold = defaultTranscriptionThreshold
	}
	if c.SilenceThreshold <= 0 {
		c.SilenceThreshold = defaultSilenceThreshold
	}
	if c.MaxBufferSeconds <= 0 {
		c.MaxBufferSeconds = defaultMaxBufferSeconds
	}
	if c.SnapshotDir == "" {
		c.SnapshotDir = os.TempDir()
	}
	return c
}

// Engine 实时音频流分析引擎：维护会话状态、滚动缓冲与实时指标，
// 并在积累到足够的非静音音频时驱动转写与评分。
type Engine struct {
	cfg         Config
	transcriber Transcriber
	scorer      Scorer
	responder   Responder
	calc        *metrics.Calculator

	mu       sync.RWMutex
	sessions map[string]*sessionState
}

// sessionState 单个会话的全部可变状态。缓冲、门控标记与趋势
// 均按会话隔离，并发会话互不干扰。
type sessionState struct {
	mu         sync.Mutex
	id         string
	userID     int64
	startedAt  time.Time
	chunks     int
	transcript string
	analyses   []pitch.ChunkAnalysisResult
	metrics    pitch.LiveMetrics
	buffer     *audio.Buffer
	analyzing  bool
	ended      bool
}

// New 创建引擎实例。协作方通过依赖注入传入，引擎自身不持有全局单例。
func New(cfg Config, transcriber Transcriber, scorer Scorer, responder Responder) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		cfg:         cfg,
		transcriber: transcriber,
		scorer:      scorer,
		responder:   responder,
		calc:        metrics.NewCalculator(cfg.SampleRate),
		sessions:    make(map[string]*sessionState),
	}
}

// StartSession 启动一个新的分析会话。sessionID 为空时自动生成。
// 会话已存在时返回 ErrSessionExists。
func (e *Engine) StartSession(_ context.Context, sessionID string, userID int64) (pitch.Session, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	st := &sessionState{
		id:        sessionID,
		userID:    userID,
		startedAt: time.Now(),
		buffer:    audio.NewBuffer(e.cfg.SampleRate, e.cfg.MaxBufferSeconds),
		metrics: pitch.LiveMetrics{
			LastUpdate: time.Now().UTC().Format(time.RFC3339),
		},
	}

	e.mu.Lock()
	if _, exists := e.sessions[sessionID]; exists {
		e.mu.Unlock()
		return pitch.Session{}, ErrSessionExists
	}
	e.sessions[sessionID] = st
	e.mu.Unlock()

	log.Printf("[engine] started session %s user=%d", sessionID, userID)
	return pitch.Session{ID: sessionID, UserID: userID, StartedAt: st.startedAt}, nil
}

// ProcessChunk 处理一个音频块：解码、入缓冲、更新实时指标，并在
// 门控条件满足时执行一次重分析。重分析的任何失败都不会中断会话，
// 只有未知会话会返回错误。
func (e *Engine) ProcessChunk(ctx context.Context, sessionID string, raw []byte) (pitch.ChunkResult, error) {
	st, err := e.lookup(sessionID)
	if err != nil {
		return pitch.ChunkResult{}, err
	}

	samples := audio.DecodeChunk(raw)

	st.mu.Lock()
	st.chunks++
	chunkID := st.chunks
	st.buffer.Append(samples)
	st.metrics = e.calc.Update(st.metrics, samples, time.Now())

	trigger := !st.analyzing &&
		st.buffer.Duration() > e.cfg.TranscriptionThreshold &&
		metrics.Energy(st.buffer.Tail(recentWindowSeconds)) > e.cfg.SilenceThreshold

	var snapshot []float32
	if trigger {
		// 门控通过：打快照并置忙标记。标记存续期间到达的块仍会
		// 入缓冲并更新指标，但不会再次触发分析。
		st.analyzing = true
		snapshot = st.buffer.Snapshot()
	}
	result := pitch.ChunkResult{
		SessionID:      sessionID,
		ChunkProcessed: true,
		LiveMetrics:    cloneMetrics(st.metrics),
	}
	st.mu.Unlock()

	if !trigger {
		return result, nil
	}

	analysis := e.runAnalysis(ctx, st, chunkID, snapshot)

	st.mu.Lock()
	st.analyzing = false
	st.buffer.TrimIfNeeded()
	if analysis != nil {
		if st.ended {
			// 会话已在分析期间结束，丢弃迟到的结果。
			log.Printf("[engine] session %s ended mid-analysis, discarding result", sessionID)
			analysis = nil
		} else {
			e.record(st, analysis)
			result.Analysis = analysis
			result.LiveMetrics = cloneMetrics(st.metrics)
		}
	}
	st.mu.Unlock()

	return result, nil
}

// runAnalysis 对缓冲快照执行一次转写+评分。校验失败时静默放弃
// 本次分析并返回 nil，不产生结果也不改动趋势。
func (e *Engine) runAnalysis(ctx context.Context, st *sessionState, chunkID int, snapshot []float32) *pitch.ChunkAnalysisResult {
	duration := float64(len(snapshot)) / float64(e.cfg.SampleRate)
	if duration < e.cfg.TranscriptionThreshold || duration < minAnalysisSeconds {
		log.Printf("[engine] snapshot too short for analysis: %.2fs", duration)
		return nil
	}

	energy := metrics.Energy(snapshot)
	if energy < e.cfg.SilenceThreshold {
		log.Printf("[engine] snapshot mostly silence (energy %.6f), skipping", energy)
		return nil
	}

	wav := audio.EncodeWAV(snapshot, e.cfg.SampleRate)
	if len(wav) < minSnapshotBytes {
		log.Printf("[engine] snapshot suspiciously small (%d bytes), skipping", len(wav))
		return nil
	}
	if err := e.dumpSnapshot(st.id, wav); err != nil {
		// 临时存储写失败只放弃本次分析，不影响后续块。
		log.Printf("[engine] snapshot write failed: %v", err)
		return nil
	}

	result := &pitch.ChunkAnalysisResult{
		ChunkID:     chunkID,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Duration:    duration,
		AudioEnergy: energy,
		HasSpeech:   energy > e.cfg.SilenceThreshold,
	}

	text, err := e.transcriber.Transcribe(ctx, snapshot, e.cfg.SampleRate)
	if err != nil {
		log.Printf("[engine] transcription failed for session %s: %v", st.id, err)
		result.Analysis = pitch.AnalysisPayload{
			Status: pitch.AnalysisFailed,
			Error:  "transcription failed: " + err.Error(),
		}
		return result
	}

	text = strings.TrimSpace(text)
	result.Transcript = text

	if text == "" {
		// 无语音不是错误：记录一次"继续监听"结果。
		result.Analysis = pitch.AnalysisPayload{
			Status:       pitch.AnalysisListening,
			Message:      listeningMessage,
			AudioQuality: "detected",
		}
		return result
	}

	score, err := e.scorer.Score(ctx, text, duration)
	if err != nil {
		log.Printf("[engine] scoring failed for session %s: %v", st.id, err)
		result.Analysis = pitch.AnalysisPayload{
			Status: pitch.AnalysisFailed,
			Error:  "scoring failed: " + err.Error(),
		}
		return result
	}

	result.Analysis = pitch.AnalysisPayload{
		Status:          pitch.AnalysisScored,
		ConfidenceScore: score.ConfidenceScore,
		DominantEmotion: score.DominantEmotion,
		WordsPerMinute:  score.WordsPerMinute,
		Pacing:          score.Pacing,
		Feedback:        score.Feedback,
	}
	return result
}

// record 在会话锁内登记一次分析结果并更新趋势。
func (e *Engine) record(st *sessionState, analysis *pitch.ChunkAnalysisResult) {
	if analysis.Transcript != "" {
		if st.transcript == "" {
			st.transcript = analysis.Transcript
		} else {
			st.transcript += " " + analysis.Transcript
		}
	}
	if analysis.Analysis.Status == pitch.AnalysisScored {
		st.metrics = metrics.ApplyScore(st.metrics, pitch.ScoreResult{
			ConfidenceScore: analysis.Analysis.ConfidenceScore,
			DominantEmotion: analysis.Analysis.DominantEmotion,
			WordsPerMinute:  analysis.Analysis.WordsPerMinute,
		}, time.Now())
	}
	st.analyses = append(st.analyses, *analysis)
}

func (e *Engine) dumpSnapshot(sessionID string, wav []byte) error {
	name := "pitch-" + sessionID + "-" + uuid.NewString() + ".wav"
	path := filepath.Join(e.cfg.SnapshotDir, name)
	if err := os.WriteFile(path, wav, 0o600); err != nil {
		return err
	}
	// 快照仅用于调试，转写走内存数据，写完即删。
	defer os.Remove(path)

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() < minSnapshotBytes {
		return errors.New("snapshot file truncated")
	}
	return nil
}

// RequestLiveResponse 基于累计转写生成实时投资人回应。
// 转写为空时直接返回固定的鼓励语，不调用协作方。
func (e *Engine) RequestLiveResponse(ctx context.Context, sessionID string) (pitch.InvestorResponse, error) {
	st, err := e.lookup(sessionID)
	if err != nil {
		return pitch.InvestorResponse{}, err
	}

	st.mu.Lock()
	transcript := strings.TrimSpace(st.transcript)
	var recent *pitch.ChunkAnalysisResult
	if n := len(st.analyses); n > 0 {
		last := st.analyses[n-1]
		recent = &last
	}
	sessionCtx := &pitch.SessionContext{
		TotalSpeakingTime: st.metrics.SpeakingTime,
		ConfidenceTrend:   lastN(st.metrics.ConfidenceTrend, 3),
		CurrentPace:       st.metrics.SpeakingPace,
	}
	st.mu.Unlock()

	if transcript == "" {
		return pitch.InvestorResponse{
			Type:         "investor_response",
			InvestorType: "encouraging",
			Message:      encouragementMessage,
		}, nil
	}

	response, err := e.responder.Respond(ctx, transcript, recent)
	if err != nil {
		log.Printf("[engine] live response failed for session %s: %v", sessionID, err)
		return pitch.InvestorResponse{
			Type:    "investor_response",
			Error:   "response generation failed: " + err.Error(),
			Message: degradedMessage,
		}, nil
	}

	if response.Type == "" {
		response.Type = "investor_response"
	}
	response.Context = sessionCtx
	return response, nil
}

// Metrics 返回会话当前的实时指标快照。
func (e *Engine) Metrics(sessionID string) (pitch.LiveMetrics, error) {
	st, err := e.lookup(sessionID)
	if err != nil {
		return pitch.LiveMetrics{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return cloneMetrics(st.metrics), nil
}

// EndSession 结束会话并生成总结，之后会话状态被移除。
// 对已结束或未知的会话返回 ErrSessionNotFound。
func (e *Engine) EndSession(_ context.Context, sessionID string) (pitch.SessionSummary, error) {
	e.mu.Lock()
	st, ok := e.sessions[sessionID]
	if ok {
		delete(e.sessions, sessionID)
	}
	e.mu.Unlock()
	if !ok {
		return pitch.SessionSummary{}, ErrSessionNotFound
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.ended = true

	totalDuration := time.Since(st.startedAt).Seconds()
	ratio := 0.0
	if totalDuration > 0 {
		ratio = st.metrics.SpeakingTime / totalDuration
	}

	summary := pitch.SessionSummary{
		SessionID:       sessionID,
		TotalDuration:   totalDuration,
		SpeakingTime:    st.metrics.SpeakingTime,
		SpeakingRatio:   ratio,
		TotalChunks:     st.chunks,
		FinalTranscript: st.transcript,
		AnalysisCount:   len(st.analyses),
		ConfidenceTrend: append([]float64(nil), st.metrics.ConfidenceTrend...),
		EmotionSummary:  delivery.Summarize(st.metrics.EmotionTrend),
		FinalMetrics:    cloneMetrics(st.metrics),
	}

	log.Printf("[engine] ended session %s chunks=%d analyses=%d", sessionID, st.chunks, len(st.analyses))
	return summary, nil
}

func (e *Engine) lookup(sessionID string) (*sessionState, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	st, ok := e.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return st, nil
}

func cloneMetrics(m pitch.LiveMetrics) pitch.LiveMetrics {
	m.ConfidenceTrend = append([]float64(nil), m.ConfidenceTrend...)
	m.EmotionTrend = append([]pitch.EmotionPoint(nil), m.EmotionTrend...)
	return m
}

func lastN(values []float64, n int) []float64 {
	if len(values) > n {
		values = values[len(values)-n:]
	}
	return append([]float64(nil), values...)
}
