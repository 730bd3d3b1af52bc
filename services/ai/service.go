package aisvc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/brainypal/backend/core"
	"github.com/brainypal/backend/core/chat"
	"github.com/brainypal/backend/core/content"
	"github.com/brainypal/backend/core/study"
)

const (
	fallbackModel      = "template-fallback"
	fallbackConfidence = 0.6
	hostedConfidence   = 0.9
	maxContentRunes    = 6000
)

// Service generates study material and chat replies with a hosted model,
// degrading to template-based generation when the model is not configured
// or a request fails.
type Service struct {
	client *openai.Client
	model  string
	logger core.Logger
}

var (
	_ chat.Responder     = (*Service)(nil)
	_ study.Generator    = (*Service)(nil)
	_ content.Summarizer = (*Service)(nil)
)

func NewService(logger core.Logger) *Service {
	svc := &Service{model: core.Conf.AI.Model, logger: logger}
	if key := core.Conf.AI.APIKey; key != "" {
		cfg := openai.DefaultConfig(key)
		if core.Conf.AI.BaseURL != "" {
			cfg.BaseURL = core.Conf.AI.BaseURL
		}
		svc.client = openai.NewClientWithConfig(cfg)
	}
	return svc
}

func (s *Service) disabled() bool {
	return s.client == nil || s.model == ""
}

// Reply answers a chat message using the recent conversation as context.
func (s *Service) Reply(ctx context.Context, message string, history []chat.Exchange) (chat.Reply, error) {
	if s.disabled() {
		return chat.Reply{Text: fallbackReply(message), Model: fallbackModel, Confidence: fallbackConfidence}, nil
	}

	msgs := []openai.ChatCompletionMessage{{
		Role: openai.ChatMessageRoleSystem,
		Content: "You are BrainyPal, a friendly AI study assistant. Help the student understand " +
			"concepts, suggest study strategies and keep answers focused and encouraging.",
	}}
	for _, ex := range history {
		if ex.UserMsg != "" {
			msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: ex.UserMsg})
		}
		if ex.AIMsg != "" {
			msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: ex.AIMsg})
		}
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message})

	content, err := s.complete(ctx, msgs, 0.7, 1024)
	if err != nil {
		s.logger.Warn("chat completion failed, using fallback", "err", err)
		return chat.Reply{Text: fallbackReply(message), Model: fallbackModel, Confidence: fallbackConfidence}, nil
	}
	return chat.Reply{Text: content, Model: s.model, Confidence: hostedConfidence}, nil
}

// Flashcards generates question/answer pairs from a topic or raw content.
func (s *Service) Flashcards(ctx context.Context, topic, content, difficulty string, count int) ([]study.GeneratedCard, error) {
	if s.disabled() {
		return fallbackFlashcards(topic, content, difficulty, count), nil
	}

	instruction := fmt.Sprintf(
		`Create exactly %d study flashcards at %s difficulty. Strictly respond with a JSON object `+
			`{"flashcards":[{"question":"","answer":"","topic":"","difficulty":""}]}. `+
			`Questions must be atomic and test active recall.`, count, difficulty)

	var out struct {
		Flashcards []study.GeneratedCard `json:"flashcards"`
	}
	if err := s.generateJSON(ctx, instruction, topic, content, &out); err != nil || len(out.Flashcards) == 0 {
		if err != nil {
			s.logger.Warn("flashcard generation failed, using fallback", "err", err)
		}
		return fallbackFlashcards(topic, content, difficulty, count), nil
	}
	if len(out.Flashcards) > count {
		out.Flashcards = out.Flashcards[:count]
	}
	return out.Flashcards, nil
}

// QuizQuestions generates quiz questions of the requested type.
func (s *Service) QuizQuestions(ctx context.Context, topic, content, difficulty, quizType string, count int) ([]study.GeneratedQuestion, error) {
	if s.disabled() {
		return fallbackQuizQuestions(topic, content, difficulty, quizType, count), nil
	}

	instruction := fmt.Sprintf(
		`Create exactly %d %s quiz questions at %s difficulty. Strictly respond with a JSON object `+
			`{"questions":[{"question":"","question_type":"%s","options":[],"correct_answer":"","explanation":"","points":1}]}. `+
			`For multiple_choice include 4 options with the correct answer among them. `+
			`For true_false the correct_answer is "true" or "false" with no options.`,
		count, quizType, difficulty, quizType)

	var out struct {
		Questions []study.GeneratedQuestion `json:"questions"`
	}
	if err := s.generateJSON(ctx, instruction, topic, content, &out); err != nil || len(out.Questions) == 0 {
		if err != nil {
			s.logger.Warn("quiz generation failed, using fallback", "err", err)
		}
		return fallbackQuizQuestions(topic, content, difficulty, quizType, count), nil
	}
	if len(out.Questions) > count {
		out.Questions = out.Questions[:count]
	}
	return out.Questions, nil
}

// PracticeQuestions generates short-answer practice questions for a topic.
func (s *Service) PracticeQuestions(ctx context.Context, topic string, count int) ([]study.GeneratedQuestion, error) {
	if s.disabled() {
		return fallbackPracticeQuestions(topic, count), nil
	}

	instruction := fmt.Sprintf(
		`Create exactly %d short practice questions about the topic below. Strictly respond with a JSON object `+
			`{"questions":[{"question":"","question_type":"short_answer","correct_answer":"","explanation":"","points":1}]}.`,
		count)

	var out struct {
		Questions []study.GeneratedQuestion `json:"questions"`
	}
	if err := s.generateJSON(ctx, instruction, topic, "", &out); err != nil || len(out.Questions) == 0 {
		if err != nil {
			s.logger.Warn("practice generation failed, using fallback", "err", err)
		}
		return fallbackPracticeQuestions(topic, count), nil
	}
	if len(out.Questions) > count {
		out.Questions = out.Questions[:count]
	}
	return out.Questions, nil
}

// Summarize condenses document text to at most maxSentences sentences.
func (s *Service) Summarize(ctx context.Context, content string, maxSentences int) (string, error) {
	if s.disabled() {
		return fallbackSummary(content, maxSentences), nil
	}

	msgs := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: "You summarize study material faithfully and concisely.",
		},
		{
			Role: openai.ChatMessageRoleUser,
			Content: fmt.Sprintf("Summarize the following study material in at most %d sentences:\n\n%s",
				maxSentences, clipRunes(content, maxContentRunes)),
		},
	}
	summary, err := s.complete(ctx, msgs, 0.3, 1024)
	if err != nil {
		s.logger.Warn("summarization failed, using fallback", "err", err)
		return fallbackSummary(content, maxSentences), nil
	}
	return summary, nil
}

func (s *Service) generateJSON(ctx context.Context, instruction, topic, content string, out interface{}) error {
	prompt := instruction
	if topic != "" {
		prompt += "\n\nTopic: " + sanitizeForPrompt(topic, 120)
	}
	if content != "" {
		prompt += "\n\nSource material:\n" + clipRunes(content, maxContentRunes)
	}

	msgs := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: "You are an expert educator who designs spaced repetition study material. Respond with JSON only.",
		},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}
	raw, err := s.complete(ctx, msgs, 0.4, 4096)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(extractJSON(raw)), out)
}

func (s *Service) complete(ctx context.Context, msgs []openai.ChatCompletionMessage, temperature float32, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, core.Conf.AI.RequestTimeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    msgs,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// extractJSON removes markdown code block formatting if present and extracts the JSON object.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		start := 3
		if newlineIdx := strings.Index(content[start:], "\n"); newlineIdx != -1 {
			start += newlineIdx + 1
		}
		if endIdx := strings.Index(content[start:], "```"); endIdx != -1 {
			content = content[start : start+endIdx]
		} else {
			content = content[start:]
		}
	}
	content = strings.TrimSpace(content)

	if startIdx := strings.Index(content, "{"); startIdx != -1 {
		if endIdx := strings.LastIndex(content, "}"); endIdx != -1 && endIdx > startIdx {
			content = content[startIdx : endIdx+1]
		}
	}
	return strings.TrimSpace(content)
}

func sanitizeForPrompt(input string, limit int) string {
	collapsed := strings.Join(strings.Fields(strings.TrimSpace(input)), " ")
	runes := []rune(collapsed)
	if limit <= 0 || len(runes) <= limit {
		return collapsed
	}
	if limit > 3 {
		return string(runes[:limit-3]) + "..."
	}
	return string(runes[:limit])
}

func clipRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
