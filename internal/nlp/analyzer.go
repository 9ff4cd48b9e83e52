// Package nlp turns free-form WhatsApp messages into structured intent and
// entity data, and generates the assistant's replies.
package nlp

import "context"

// Intents recognized by the analyzers.
const (
	IntentGreeting       = "greeting"
	IntentLeadCollection = "lead_collection"
	IntentServiceInquiry = "service_inquiry"
	IntentScheduling     = "scheduling"
	IntentGoodbye        = "goodbye"
	IntentQuestion       = "question"
	IntentComplaint      = "complaint"
	IntentOffTopic       = "off_topic"
	IntentOther          = "other"
)

// Analysis is the structured reading of one inbound message. Entities are
// keyed by the lead intake field names.
type Analysis struct {
	Intent         string            `json:"intent"`
	Confidence     float64           `json:"confidence"`
	Emotion        string            `json:"emotion"`
	Entities       map[string]string `json:"entities"`
	ResponseType   string            `json:"response_type"`
	ShouldRefocus  bool              `json:"should_refocus"`
	SuggestedReply string            `json:"suggested_response"`
}

// ConversationContext gives the analyzer what it needs to stay on topic:
// the answers collected so far, what is still missing, and the stage.
type ConversationContext struct {
	Stage         string
	Fields        map[string]string
	MissingFields []string
}

// Analyzer reads inbound messages and writes the assistant's replies.
// Implementations must be safe for concurrent use.
type Analyzer interface {
	// Analyze extracts intent, emotion, and intake entities from a message.
	Analyze(ctx context.Context, message string, convo ConversationContext) (Analysis, error)
	// Reply generates the assistant's next message given the analysis.
	Reply(ctx context.Context, analysis Analysis, convo ConversationContext) (string, error)
}
