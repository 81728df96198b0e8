package pitch

// InvestorResponse 实时投资人回应。
type InvestorResponse struct {
	Type         string          `json:"type"`
	InvestorType string          `json:"investorType,omitempty"`
	Message      string          `json:"message"`
	Error        string          `json:"error,omitempty"`
	Context      *SessionContext `json:"sessionContext,omitempty"`
}

// SessionContext 附加在投资人回应上的会话上下文片段。
type SessionContext struct {
	TotalSpeakingTime float64   `json:"totalSpeakingTime"`
	ConfidenceTrend   []float64 `json:"confidenceTrend"` // last 3 points
	CurrentPace       float64   `json:"currentPace"`
}
