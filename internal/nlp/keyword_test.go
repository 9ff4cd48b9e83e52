package nlp

import (
	"context"
	"strings"
	"testing"
)

func TestKeywordIntentClassification(t *testing.T) {
	analyzer := NewKeywordAnalyzer("Dream Axis")
	ctx := context.Background()

	cases := []struct {
		message string
		intent  string
	}{
		{"Hello!", IntentGreeting},
		{"I want to schedule a call", IntentScheduling},
		{"Can I book a consultation?", IntentScheduling},
		{"I want to study abroad", IntentServiceInquiry},
		{"ok bye", IntentGoodbye},
		{"asdf qwerty", IntentOther},
	}
	for _, tc := range cases {
		analysis, err := analyzer.Analyze(ctx, tc.message, ConversationContext{})
		if err != nil {
			t.Fatalf("analyze %q: %v", tc.message, err)
		}
		if analysis.Intent != tc.intent {
			t.Fatalf("message %q: expected intent %s, got %s", tc.message, tc.intent, analysis.Intent)
		}
	}
}

func TestKeywordServiceDetection(t *testing.T) {
	analyzer := NewKeywordAnalyzer("Dream Axis")
	analysis, err := analyzer.Analyze(context.Background(), "I'm looking for a job in Europe as a truck driver", ConversationContext{})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if analysis.Entities["service"] != "Job Europe" {
		t.Fatalf("expected Job Europe, got %q", analysis.Entities["service"])
	}
}

func TestRegexEntityExtraction(t *testing.T) {
	analyzer := NewKeywordAnalyzer("Dream Axis")
	analysis, err := analyzer.Analyze(context.Background(),
		"My name is Aarav Sharma, reach me at +919876543210 or aarav@example.com", ConversationContext{})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if analysis.Entities["number"] != "+919876543210" {
		t.Fatalf("expected phone extraction, got %q", analysis.Entities["number"])
	}
	if analysis.Entities["email"] != "aarav@example.com" {
		t.Fatalf("expected email extraction, got %q", analysis.Entities["email"])
	}
	if analysis.Entities["name"] != "Aarav Sharma" {
		t.Fatalf("expected name extraction, got %q", analysis.Entities["name"])
	}
	if analysis.Intent != IntentLeadCollection {
		t.Fatalf("extracted entities should imply lead collection, got %s", analysis.Intent)
	}
}

func TestReplyAsksForNextMissingField(t *testing.T) {
	analyzer := NewKeywordAnalyzer("Dream Axis")
	reply, err := analyzer.Reply(context.Background(), Analysis{Intent: IntentLeadCollection}, ConversationContext{
		MissingFields: []string{"email", "residence"},
	})
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if !strings.Contains(reply, "email") {
		t.Fatalf("reply should ask for the first missing field: %s", reply)
	}
	if strings.Contains(reply, "residence") {
		t.Fatalf("reply must ask for one field at a time: %s", reply)
	}
}

func TestExtractJSONFromMarkdown(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}\n```":     `{"a":1}`,
		`{"a":1}`:                 `{"a":1}`,
	}
	for input, want := range cases {
		if got := extractJSONFromMarkdown(input); got != want {
			t.Fatalf("input %q: expected %q, got %q", input, want, got)
		}
	}
}

func TestDropNullEntities(t *testing.T) {
	cleaned := dropNullEntities(map[string]string{
		"service": "Education Abroad",
		"name":    "null",
		"email":   "  ",
		"course":  "NULL",
	})
	if len(cleaned) != 1 || cleaned["service"] != "Education Abroad" {
		t.Fatalf("expected only the real value to survive, got %v", cleaned)
	}
}
