package nlp

import (
	"context"
	"fmt"
	"strings"
)

// KeywordAnalyzer is the deterministic fallback used when no language model
// is configured or the model call fails. It classifies intent from keyword
// matches and extracts entities with the shared regex pass.
type KeywordAnalyzer struct {
	companyName string
}

// NewKeywordAnalyzer creates the fallback analyzer.
func NewKeywordAnalyzer(companyName string) *KeywordAnalyzer {
	return &KeywordAnalyzer{companyName: companyName}
}

var _ Analyzer = (*KeywordAnalyzer)(nil)

func (a *KeywordAnalyzer) Analyze(_ context.Context, message string, _ ConversationContext) (Analysis, error) {
	lower := strings.ToLower(message)

	analysis := Analysis{
		Intent:     IntentOther,
		Confidence: 0.5,
		Emotion:    "neutral",
		Entities:   make(map[string]string),
	}

	switch {
	case containsAny(lower, "schedule", "appointment", "book", "call me", "meet"):
		analysis.Intent = IntentScheduling
		analysis.Confidence = 0.8
	case containsAny(lower, "hi", "hello", "hey", "namaste", "good morning", "good evening"):
		analysis.Intent = IntentGreeting
		analysis.Confidence = 0.7
	case containsAny(lower, "bye", "goodbye", "see you", "thanks, bye"):
		analysis.Intent = IntentGoodbye
		analysis.Confidence = 0.7
	case containsAny(lower, "study", "education", "course", "university", "college", "job", "work", "visa"):
		analysis.Intent = IntentServiceInquiry
		analysis.Confidence = 0.6
	}

	switch {
	case containsAny(lower, "study abroad", "education abroad", "abroad"):
		analysis.Entities["service"] = "Education Abroad"
	case containsAny(lower, "study in india", "education india"):
		analysis.Entities["service"] = "Education India"
	case containsAny(lower, "job in europe", "job europe", "work in europe", "truck driver"):
		analysis.Entities["service"] = "Job Europe"
	}

	analysis.Entities = fillEntityGaps(analysis.Entities, message)
	if len(analysis.Entities) > 0 && analysis.Intent == IntentOther {
		analysis.Intent = IntentLeadCollection
		analysis.Confidence = 0.6
	}
	return analysis, nil
}

func (a *KeywordAnalyzer) Reply(_ context.Context, analysis Analysis, convo ConversationContext) (string, error) {
	switch analysis.Intent {
	case IntentGreeting:
		return fmt.Sprintf("Hi there! Welcome to %s. We help with Education in India, Education Abroad, and Jobs in Europe. Which service are you interested in?", a.companyName), nil
	case IntentGoodbye:
		return fmt.Sprintf("Thank you for reaching out to %s! Feel free to message me any time. Have a great day!", a.companyName), nil
	case IntentScheduling:
		return "I'd be happy to set up a consultation call for you.", nil
	}

	if len(convo.MissingFields) > 0 {
		return fmt.Sprintf("Thanks for sharing! Could you also tell me your %s?", fieldQuestion(convo.MissingFields[0])), nil
	}
	return "Great, I have everything I need. Would you like to schedule a consultation call?", nil
}

func containsAny(text string, keywords ...string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

func fieldQuestion(field string) string {
	switch field {
	case "service":
		return "service of interest (Education India, Education Abroad, or Job Europe)"
	case "name":
		return "full name"
	case "number":
		return "contact number"
	case "email":
		return "email address"
	case "residence":
		return "place of residence"
	case "course":
		return "preferred course"
	case "education_place":
		return "preferred study location"
	case "education_country":
		return "preferred study destination"
	case "work_type":
		return "type of work you are looking for"
	default:
		return strings.ReplaceAll(field, "_", " ")
	}
}
