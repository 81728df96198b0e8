package responder

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/pitchlive-ai/pitchlive/backend/internal/model/pitch"
)

// Config 控制投资人回应服务的行为。
type Config struct {
	Enabled bool
}

// Service 扮演听取路演的投资人，对最近的陈述片段给出追问或反馈。
// 模型不可用时回退到按关键词挑选的预置问题。
type Service struct {
	enabled   bool
	responder compose.Runnable[map[string]any, *schema.Message]
}

// NewService 创建投资人回应服务。
func NewService(ctx context.Context, chatModel model.ChatModel, cfg Config) (*Service, error) {
	svc := &Service{enabled: cfg.Enabled && chatModel != nil}

	if !svc.enabled {
		return svc, nil
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(investorSystemPrompt),
		schema.UserMessage(investorUserPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile investor responder chain: %w", err)
	}

	svc.responder = runnable
	return svc, nil
}

// Enabled 返回是否走模型生成路径。
func (s *Service) Enabled() bool {
	return s != nil && s.enabled && s.responder != nil
}

// Respond 基于累计转写与最近一次分析生成投资人回应。
func (s *Service) Respond(ctx context.Context, transcript string, recent *pitch.ChunkAnalysisResult) (pitch.InvestorResponse, error) {
	if !s.Enabled() {
		return cannedResponse(transcript), nil
	}

	input := map[string]any{
		"transcript": strings.TrimSpace(transcript),
		"assessment": formatAssessment(recent),
	}

	msg, err := s.responder.Invoke(ctx, input)
	if err != nil {
		log.Printf("[responder] responder invoke failed, use canned response: %v", err)
		return cannedResponse(transcript), nil
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return cannedResponse(transcript), nil
	}

	return parseResponderOutput(msg.Content), nil
}

// parseResponderOutput 优先解析 JSON，失败时把原始文本当作投资人的话。
func parseResponderOutput(content string) pitch.InvestorResponse {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start != -1 && end > start {
		payload := &responderPayload{}
		if err := json.Unmarshal([]byte(trimmed[start:end+1]), payload); err == nil {
			message := strings.TrimSpace(payload.Message)
			if message != "" {
				return pitch.InvestorResponse{
					Type:         "investor_response",
					InvestorType: normalizeInvestorType(payload.InvestorType),
					Message:      message,
				}
			}
		}
	}

	return pitch.InvestorResponse{
		Type:         "investor_response",
		InvestorType: "curious",
		Message:      trimmed,
	}
}

// formatAssessment 把最近一次评分摘要拼成提示词片段。
func formatAssessment(recent *pitch.ChunkAnalysisResult) string {
	if recent == nil || recent.Analysis.Status != pitch.AnalysisScored {
		return "暂无评分数据"
	}

	a := recent.Analysis
	parts := []string{fmt.Sprintf("自信度 %.0f/100", a.ConfidenceScore)}
	if a.DominantEmotion != "" {
		parts = append(parts, fmt.Sprintf("情绪基调 %s", a.DominantEmotion))
	}
	if a.Pacing != "" {
		parts = append(parts, fmt.Sprintf("语速 %s (%.0f wpm)", a.Pacing, a.WordsPerMinute))
	}
	return strings.Join(parts, "，")
}

func normalizeInvestorType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "skeptical", "curious", "impressed", "analytical":
		return strings.ToLower(strings.TrimSpace(raw))
	default:
		return "curious"
	}
}

// cannedResponse 按转写中的话题关键词挑选预置追问。
func cannedResponse(transcript string) pitch.InvestorResponse {
	normalized := strings.ToLower(transcript)

	bucket := questionsGeneric
	investorType := "curious"
	switch {
	case containsAny(normalized, "revenue", "pricing", "monetiz", "business model"):
		bucket = questionsRevenue
		investorType = "analytical"
	case containsAny(normalized, "market", "customer", "competitor", "competition"):
		bucket = questionsMarket
		investorType = "skeptical"
	case containsAny(normalized, "team", "founder", "hire", "experience"):
		bucket = questionsTeam
		investorType = "curious"
	case containsAny(normalized, "growth", "traction", "users", "scale"):
		bucket = questionsTraction
		investorType = "impressed"
	}

	return pitch.InvestorResponse{
		Type:         "investor_response",
		InvestorType: investorType,
		Message:      bucket[rand.Intn(len(bucket))],
	}
}

func containsAny(s string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

type responderPayload struct {
	Message      string `json:"message"`
	InvestorType string `json:"investorType"`
}

var (
	questionsRevenue = []string{
		"Interesting. How do you plan to price this for enterprise customers?",
		"What does your revenue model look like at scale?",
		"Walk me through your unit economics on a typical customer.",
	}
	questionsMarket = []string{
		"Who do you see as your biggest competitor, and why do you win?",
		"How large is the addressable market you're actually going after?",
		"What stops an incumbent from copying this in six months?",
	}
	questionsTeam = []string{
		"Tell me more about the team. Why are you the right people to build this?",
		"What key hire do you need to make in the next twelve months?",
	}
	questionsTraction = []string{
		"Those growth numbers are promising. What's driving the acquisition?",
		"How much of that traction is organic versus paid?",
	}
	questionsGeneric = []string{
		"Can you tell me more about the problem you're solving?",
		"What's the most important thing you've learned from your customers so far?",
		"Where do you see this company in three years?",
	}
)

const investorSystemPrompt = "你是一名正在听取创业路演的风险投资人。请根据目前的陈述内容和表达评估，提出一个切中要害的追问或给出简短反馈。语气专业但不失好奇心。\n输出要求：只返回一个 JSON 对象，字段如下：message (一句英文回应，面向演讲者)、investorType (必须是 skeptical/curious/impressed/analytical 之一)。不得输出多余文本。"

const investorUserPrompt = "目前的陈述转写：\n{transcript}\n\n最近一次表达评估：\n{assessment}\n\n请基于这些信息给出 JSON。"
