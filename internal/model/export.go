package model

// SessionExport is the JSON document served for a session's current state.
type SessionExport struct {
	VideoID       string              `json:"video_id,omitempty"`
	Quiz          *Quiz               `json:"quiz"`
	MCQResponses  map[string]string   `json:"mcq_responses"`
	TextResponses map[string]string   `json:"text_responses"`
	TextFeedback  map[string]Feedback `json:"text_feedback"`
	Submitted     bool                `json:"submitted"`
	Score         *ScoreSummary       `json:"score"`
}
