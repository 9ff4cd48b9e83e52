package nlp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/logger"

	"google.golang.org/genai"
)

const analyzePrompt = `You are the WhatsApp assistant for %s, a business offering Education India, Education Abroad, and Job Europe services. Analyze the lead's message.

Lead information to collect (depending on service):
- service: Education India, Education Abroad, Job Europe
- education_place: (for Education India)
- education_country: (for Education Abroad)
- course: (for Education India/Abroad)
- work_type: (for Job Europe)
- name, number, email, residence

Conversation stage: %s
Collected so far: %s
Still missing: %s

Respond with ONLY valid JSON:
{
  "intent": "greeting|lead_collection|service_inquiry|scheduling|goodbye|question|complaint|off_topic|other",
  "confidence": 0.0,
  "emotion": "happy|neutral|frustrated|confused|excited|worried",
  "entities": {"service": "", "education_place": "", "education_country": "", "course": "", "work_type": "", "name": "", "number": "", "email": "", "residence": ""},
  "response_type": "conversational|question|confirmation|refocus",
  "should_refocus": false,
  "suggested_response": "your reply: acknowledge the message, then ask for exactly ONE missing field"
}

Lead's message: %s`

const replyPrompt = `You are a friendly, professional WhatsApp assistant for %s, helping leads with study, work, and visa services.

Guidelines: be warm and human, keep it to 2-4 sentences, ask for at most one missing piece of information, and politely steer off-topic chat back to the services.

Conversation stage: %s
Collected so far: %s
Still missing: %s
Message analysis: %s

Write only the reply text, no preamble.`

// GeminiAnalyzer classifies messages and writes replies with the Gemini
// API. Every call degrades to the keyword fallback on failure, so a model
// outage slows nothing down and breaks nothing.
type GeminiAnalyzer struct {
	client  *genai.Client
	model   string
	company string

	fallback Analyzer
	log      *logger.Logger
}

// NewGeminiAnalyzer creates the model-backed analyzer.
func NewGeminiAnalyzer(ctx context.Context, apiKey, model, companyName string, log *logger.Logger) (*GeminiAnalyzer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiAnalyzer{
		client:   client,
		model:    model,
		company:  companyName,
		fallback: NewKeywordAnalyzer(companyName),
		log:      log,
	}, nil
}

var _ Analyzer = (*GeminiAnalyzer)(nil)

func (a *GeminiAnalyzer) Analyze(ctx context.Context, message string, convo ConversationContext) (Analysis, error) {
	prompt := fmt.Sprintf(analyzePrompt,
		a.company, convo.Stage, encodeFields(convo.Fields), strings.Join(convo.MissingFields, ", "), message)

	text, err := a.generate(ctx, prompt, 0.3)
	if err != nil {
		a.log.ExternalCallFailed("gemini", "analyze_message", err)
		return a.fallback.Analyze(ctx, message, convo)
	}

	var analysis Analysis
	if err := json.Unmarshal([]byte(extractJSONFromMarkdown(text)), &analysis); err != nil {
		a.log.ExternalCallFailed("gemini", "decode_analysis", err)
		return a.fallback.Analyze(ctx, message, convo)
	}

	analysis.Entities = fillEntityGaps(dropNullEntities(analysis.Entities), message)
	if analysis.Intent == "" {
		analysis.Intent = IntentOther
	}
	return analysis, nil
}

func (a *GeminiAnalyzer) Reply(ctx context.Context, analysis Analysis, convo ConversationContext) (string, error) {
	encoded, err := json.Marshal(analysis)
	if err != nil {
		return a.fallback.Reply(ctx, analysis, convo)
	}
	prompt := fmt.Sprintf(replyPrompt,
		a.company, convo.Stage, encodeFields(convo.Fields), strings.Join(convo.MissingFields, ", "), encoded)

	text, err := a.generate(ctx, prompt, 0.7)
	if err != nil {
		a.log.ExternalCallFailed("gemini", "generate_reply", err)
		return a.fallback.Reply(ctx, analysis, convo)
	}
	reply := strings.TrimSpace(text)
	if reply == "" {
		return a.fallback.Reply(ctx, analysis, convo)
	}
	return reply, nil
}

func (a *GeminiAnalyzer) generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	content := &genai.Content{
		Parts: []*genai.Part{{Text: prompt}},
	}
	result, err := a.client.Models.GenerateContent(ctx, a.model, []*genai.Content{content},
		&genai.GenerateContentConfig{
			Temperature: genai.Ptr(temperature),
		})
	if err != nil {
		return "", err
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}
	return result.Candidates[0].Content.Parts[0].Text, nil
}

func encodeFields(fields map[string]string) string {
	if len(fields) == 0 {
		return "{}"
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "{}"
	}
	return string(data)
}
