package aisvc

import (
	"fmt"
	"math/rand"
	"regexp"
	"sort"
	"strings"

	"github.com/brainypal/backend/core/study"
)

// Template-based generation used when no hosted model is configured or a
// request fails. Material is derived from the key concepts of the given
// content, so output still varies per document.

var flashcardTemplates = [][2]string{
	{"What is %s?", "%s is a key concept covered in the material. Review its definition and main characteristics."},
	{"What are the main components of %s?", "Break %s down into its parts and learn how each one contributes to the whole."},
	{"How does %s work?", "Walk through the process behind %s step by step, from inputs to outcomes."},
	{"Give an example of %s.", "Think of a real-world situation where %s applies and explain the connection."},
	{"Why is %s important?", "Consider the benefits of %s and the problems it solves."},
	{"What happens if %s fails?", "Examine the consequences when %s breaks down or is absent."},
	{"How is %s different from similar concepts?", "Compare %s with related ideas and note what makes it unique."},
	{"What is an easy way to remember %s?", "Build a mnemonic or simple analogy that captures the essence of %s."},
}

var quizTemplates = map[string][]string{
	study.QuizTypeMultipleChoice: {
		"What is the primary function of %s?",
		"Which of the following best describes %s?",
		"What happens when %s occurs?",
	},
	study.QuizTypeTrueFalse: {
		"%s is essential to the overall process.",
		"%s can occur without any external factors.",
		"The main purpose of %s is well understood.",
	},
	study.QuizTypeShortAnswer: {
		"Explain how %s works in your own words.",
		"Give an example of %s from everyday life.",
		"What would happen if %s didn't exist?",
	},
	study.QuizTypeFillBlank: {
		"The process of %s involves _____ and _____.",
		"%s occurs when _____ meets _____.",
		"The main result of %s is _____.",
	},
}

var practiceTemplates = []string{
	"What is %s and why is it important?",
	"How does %s work in simple terms?",
	"Give three real-world examples of %s.",
	"What are the main benefits of understanding %s?",
	"How would you explain %s to a 10-year-old?",
	"What problems does %s solve?",
	"Compare %s with similar concepts.",
	"What happens when %s goes wrong?",
	"What are the future applications of %s?",
	"How has %s evolved over time?",
}

var stopWords = map[string]bool{
	"this": true, "that": true, "with": true, "from": true, "they": true,
	"have": true, "will": true, "been": true, "there": true, "their": true,
	"which": true, "about": true, "would": true, "could": true, "should": true,
	"these": true, "those": true, "where": true, "when": true, "while": true,
}

var wordRe = regexp.MustCompile(`[a-zA-Z][a-zA-Z'-]{4,}`)

// keyConcepts extracts the most frequent non-trivial words from the text,
// with the topic always ranked first when given.
func keyConcepts(text, topic string) []string {
	counts := make(map[string]int)
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		if !stopWords[w] {
			counts[w]++
		}
	}
	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) > 5 {
		words = words[:5]
	}
	if topic != "" {
		words = append([]string{topic}, words...)
	}
	if len(words) == 0 {
		words = []string{"the concept"}
	}
	if len(words) > 5 {
		words = words[:5]
	}
	return words
}

func fallbackFlashcards(topic, content, difficulty string, count int) []study.GeneratedCard {
	concepts := keyConcepts(content, topic)
	cards := make([]study.GeneratedCard, 0, count)
	for i := 0; i < count; i++ {
		tmpl := flashcardTemplates[i%len(flashcardTemplates)]
		concept := concepts[i%len(concepts)]
		cards = append(cards, study.GeneratedCard{
			Question:   fmt.Sprintf(tmpl[0], concept),
			Answer:     fmt.Sprintf(tmpl[1], concept),
			Topic:      topic,
			Difficulty: difficulty,
		})
	}
	return cards
}

func fallbackQuizQuestions(topic, content, difficulty, quizType string, count int) []study.GeneratedQuestion {
	templates, ok := quizTemplates[quizType]
	if !ok {
		templates = quizTemplates[study.QuizTypeShortAnswer]
		quizType = study.QuizTypeShortAnswer
	}

	concepts := keyConcepts(content, topic)
	questions := make([]study.GeneratedQuestion, 0, count)
	for i := 0; i < count; i++ {
		concept := concepts[i%len(concepts)]
		q := study.GeneratedQuestion{
			Question:     fmt.Sprintf(templates[i%len(templates)], concept),
			QuestionType: quizType,
			Points:       1,
		}
		switch quizType {
		case study.QuizTypeMultipleChoice:
			q.CorrectAnswer = fmt.Sprintf("The definition of %s from the material", concept)
			q.Options = []string{
				q.CorrectAnswer,
				fmt.Sprintf("An alternative explanation of %s", concept),
				fmt.Sprintf("A different aspect of %s", concept),
				fmt.Sprintf("Something unrelated to %s", concept),
			}
			q.Explanation = fmt.Sprintf("Review the section of the material that defines %s.", concept)
		case study.QuizTypeTrueFalse:
			if rand.Intn(2) == 0 {
				q.CorrectAnswer = "true"
			} else {
				q.CorrectAnswer = "false"
			}
			q.Explanation = fmt.Sprintf("Check the material's statements about %s.", concept)
		default:
			q.CorrectAnswer = fmt.Sprintf("An answer covering the role of %s in %s", concept, orDefault(topic, "the material"))
		}
		questions = append(questions, q)
	}
	return questions
}

func fallbackPracticeQuestions(topic string, count int) []study.GeneratedQuestion {
	questions := make([]study.GeneratedQuestion, 0, count)
	for i := 0; i < count; i++ {
		questions = append(questions, study.GeneratedQuestion{
			Question:      fmt.Sprintf(practiceTemplates[i%len(practiceTemplates)], topic),
			QuestionType:  study.QuizTypeShortAnswer,
			CorrectAnswer: fmt.Sprintf("A complete answer explains %s in your own words with at least one example.", topic),
			Points:        1,
		})
	}
	return questions
}

func fallbackReply(message string) string {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "flashcard"):
		return "I can turn any topic or uploaded notes into flashcards. Try the generate flashcards option with a topic you're studying."
	case strings.Contains(msg, "quiz"):
		return "Quizzes are a great way to test yourself. Generate one from a topic or from your uploaded notes and I'll grade it for you."
	case strings.Contains(msg, "hello"), strings.Contains(msg, "hi "), msg == "hi":
		return "Hello! I'm BrainyPal, your study assistant. What are you working on today?"
	default:
		return "That's a good question to dig into. Break it down into smaller parts, and consider generating flashcards or a quiz on it to test your understanding."
	}
}

var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]`)

// fallbackSummary ranks sentences by how many of the text's key concepts they
// mention and returns the top ones in their original order.
func fallbackSummary(content string, maxSentences int) string {
	sentences := sentenceRe.FindAllString(content, -1)
	if len(sentences) <= maxSentences {
		return strings.TrimSpace(content)
	}

	concepts := keyConcepts(content, "")
	type scored struct {
		idx   int
		score int
	}
	ranked := make([]scored, len(sentences))
	for i, s := range sentences {
		lower := strings.ToLower(s)
		sc := 0
		for _, c := range concepts {
			sc += strings.Count(lower, c)
		}
		ranked[i] = scored{idx: i, score: sc}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	top := ranked[:maxSentences]
	sort.Slice(top, func(i, j int) bool { return top[i].idx < top[j].idx })

	parts := make([]string, 0, len(top))
	for _, s := range top {
		parts = append(parts, strings.TrimSpace(sentences[s.idx]))
	}
	return strings.Join(parts, " ")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
