package models

// HistoryStats summarizes stored suggestions for a namespace over a period
type HistoryStats struct {
	Namespace          string
	PeriodDays         int
	TotalSuggestions   int
	LLMValidated       int
	Static             int
	UniqueApplications int
	ByAvailability     map[DataAvailability]int
	AIAcceptanceRate   float64
}

// ApplicationTrend tracks the suggestions produced for one application over time
type ApplicationTrend struct {
	Namespace   string
	Application string
	Records     []*SuggestionRecord
	MinReplicas []int
	MaxReplicas []int
	Sources     map[SuggestionSource]int
}
