package domain

// TicketAnalysis is the structured decision returned by the classifier.
// Team and Priority are always applied; the remaining fields select one
// of the resolve / clarify / confirm branches.
type TicketAnalysis struct {
	Team                string  `json:"team"`
	Priority            string  `json:"priority"`
	Reason              string  `json:"reason"`
	SuggestedResolution *string `json:"suggested_resolution,omitempty"`
	CanResolve          bool    `json:"can_resolve"`
	NeedsMoreInfo       bool    `json:"needs_more_info"`
	ClarifyingQuestion  *string `json:"clarifying_question,omitempty"`
}
