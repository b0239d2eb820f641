package orchestrator

const (
	DefaultMessageCostEstimateUSD = 0.0043
	DefaultDailyCostLimitUSD      = 75.0
	DefaultAnalysisCadence        = 3
	DefaultAnalysisWindow         = 6
)

type Config struct {
	// MessageCostEstimateUSD is the fixed projection added to today's spend by the budget gate.
	MessageCostEstimateUSD float64
	DailyCostLimitUSD      float64
	InputCostPerMTokUSD    float64
	OutputCostPerMTokUSD   float64
	// AnalysisCadence runs evidence extraction every N messages.
	AnalysisCadence int
	// AnalysisWindow is how many trailing messages the extractor sees.
	AnalysisWindow int
}

func (c Config) withDefaults() Config {
	if c.MessageCostEstimateUSD <= 0 {
		c.MessageCostEstimateUSD = DefaultMessageCostEstimateUSD
	}
	if c.DailyCostLimitUSD <= 0 {
		c.DailyCostLimitUSD = DefaultDailyCostLimitUSD
	}
	if c.AnalysisCadence <= 0 {
		c.AnalysisCadence = DefaultAnalysisCadence
	}
	if c.AnalysisWindow <= 0 {
		c.AnalysisWindow = DefaultAnalysisWindow
	}
	if c.InputCostPerMTokUSD < 0 {
		c.InputCostPerMTokUSD = 0
	}
	if c.OutputCostPerMTokUSD < 0 {
		c.OutputCostPerMTokUSD = 0
	}
	return c
}

// CostOf prices token usage in USD.
func (c Config) CostOf(u TokenUsage) float64 {
	return float64(u.InputTokens)*c.InputCostPerMTokUSD/1e6 + float64(u.OutputTokens)*c.OutputCostPerMTokUSD/1e6
}
