package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/pitchlive-ai/pitchlive/backend/internal/analysis/delivery"
	"github.com/pitchlive-ai/pitchlive/backend/internal/model/pitch"
)

// Config 控制内容评分服务的行为。
type Config struct {
	Enabled bool
}

// Service 使用大模型对路演转写进行评分，模型不可用时回退到启发式规则。
type Service struct {
	enabled  bool
	scorer   compose.Runnable[map[string]any, *schema.Message]
	fallback func(transcript string, duration float64) pitch.ScoreResult
}

// NewService 创建评分服务。chatModel 可与其他服务共享同一实例。
func NewService(ctx context.Context, chatModel model.ChatModel, cfg Config) (*Service, error) {
	svc := &Service{
		enabled:  cfg.Enabled && chatModel != nil,
		fallback: delivery.Score,
	}

	if !svc.enabled {
		return svc, nil
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(scoringSystemPrompt),
		schema.UserMessage(scoringUserPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile pitch scoring chain: %w", err)
	}

	svc.scorer = runnable
	return svc, nil
}

// Enabled 返回是否走模型评分路径。
func (s *Service) Enabled() bool {
	return s != nil && s.enabled && s.scorer != nil
}

// Score 评估一段转写文本。duration 为该段音频的秒数，用于计算语速。
func (s *Service) Score(ctx context.Context, transcript string, duration float64) (pitch.ScoreResult, error) {
	if !s.Enabled() {
		return s.fallback(transcript, duration), nil
	}

	input := map[string]any{
		"transcript": strings.TrimSpace(transcript),
		"duration":   fmt.Sprintf("%.1f", duration),
	}

	msg, err := s.scorer.Invoke(ctx, input)
	if err != nil {
		log.Printf("[scoring] scorer invoke failed, use fallback: %v", err)
		return s.fallback(transcript, duration), nil
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return s.fallback(transcript, duration), nil
	}

	payload, err := parseScorerOutput(msg.Content)
	if err != nil {
		log.Printf("[scoring] scorer output parse failed, use fallback: %v", err)
		return s.fallback(transcript, duration), nil
	}

	heuristic := s.fallback(transcript, duration)
	return mergeWithHeuristic(payload, heuristic), nil
}

// parseScorerOutput 解析大模型返回的 JSON。
func parseScorerOutput(content string) (*scorerPayload, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("missing json object")
	}

	payload := &scorerPayload{}
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// mergeWithHeuristic 用启发式结果补齐模型遗漏的字段，并钳制取值范围。
func mergeWithHeuristic(payload *scorerPayload, heuristic pitch.ScoreResult) pitch.ScoreResult {
	result := heuristic

	if payload.ConfidenceScore > 0 {
		result.ConfidenceScore = clampScore(payload.ConfidenceScore)
	}
	if emotion := strings.ToLower(strings.TrimSpace(payload.DominantEmotion)); emotion != "" {
		result.DominantEmotion = emotion
	}
	if pacing := strings.ToLower(strings.TrimSpace(payload.Pacing)); pacing != "" {
		result.Pacing = pacing
	}
	if feedback := strings.TrimSpace(payload.Feedback); feedback != "" {
		result.Feedback = feedback
	}

	return result
}

func clampScore(val float64) float64 {
	if val < 0 {
		return 0
	}
	if val > 100 {
		return 100
	}
	return val
}

type scorerPayload struct {
	ConfidenceScore float64 `json:"confidenceScore"`
	DominantEmotion string  `json:"dominantEmotion"`
	Pacing          string  `json:"pacing"`
	Feedback        string  `json:"feedback"`
}

const scoringSystemPrompt = "你是一名路演教练，负责评估创业者向投资人陈述的表达质量。请阅读转写文本和时长，从自信度、情绪基调、语速与表达清晰度几方面打分。\n输出要求：只返回一个 JSON 对象，字段如下：confidenceScore (0~100 的数字)、dominantEmotion (必须是 neutral/confident/enthusiastic/nervous/uncertain 之一)、pacing (slow/balanced/rushed 之一)、feedback (一句英文改进建议，面向演讲者)。不得输出多余文本。"

const scoringUserPrompt = "转写文本：\n{transcript}\n\n音频时长（秒）：{duration}\n\n请基于这些信息给出 JSON。"
