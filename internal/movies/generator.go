package movies

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"quiz-portal/internal/domain"
)

const (
	distractorCount  = 3
	distractorSpread = 1.5
)

// MovieSource resolves a title to its metadata.
type MovieSource interface {
	FetchMovie(ctx context.Context, title string) (Movie, error)
}

// GeneratedQuestion is a question payload ready to be added to a quiz draft.
type GeneratedQuestion struct {
	Type          domain.QuestionType    `json:"type"`
	Subtype       domain.QuestionSubtype `json:"subtype"`
	Question      string                 `json:"question"`
	Answers       []string               `json:"answers,omitempty"`
	CorrectAnswer string                 `json:"correctAnswer"`
	Tolerance     float64                `json:"acceptedRange,omitempty"`
}

// Draft converts the generated payload into a quiz question draft.
func (g GeneratedQuestion) Draft() domain.QuestionDraft {
	d := domain.QuestionDraft{
		Text:    g.Question,
		Type:    g.Type,
		Subtype: g.Subtype,
	}
	if g.Type == domain.QuestionMultipleChoice {
		for _, a := range g.Answers {
			d.Choices = append(d.Choices, domain.ChoiceDraft{Text: a, IsCorrect: a == g.CorrectAnswer})
		}
		return d
	}
	d.CorrectAnswer = g.CorrectAnswer
	return d
}

// Generator builds movie-rating questions.
type Generator struct {
	source MovieSource

	mu  sync.Mutex
	rng *rand.Rand
}

func NewGenerator(source MovieSource) *Generator {
	return NewGeneratorWithRand(source, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewGeneratorWithRand allows deterministic shuffles in tests.
func NewGeneratorWithRand(source MovieSource, rng *rand.Rand) *Generator {
	return &Generator{source: source, rng: rng}
}

func prompt(m Movie) string {
	return fmt.Sprintf("What is the IMDb rating of %s (%s)?", m.Title, m.Year)
}

// BuildMultipleChoice returns a four-option question with the correct rating marked.
func (g *Generator) BuildMultipleChoice(ctx context.Context, title string) (GeneratedQuestion, error) {
	movie, err := g.source.FetchMovie(ctx, title)
	if err != nil {
		return GeneratedQuestion{}, err
	}
	correct := Round1(movie.Rating)

	g.mu.Lock()
	wrong, err := GenerateDistractors(g.rng, correct, distractorCount, distractorSpread)
	if err != nil {
		g.mu.Unlock()
		return GeneratedQuestion{}, err
	}
	all := append([]float64{correct}, wrong...)
	g.rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	g.mu.Unlock()

	answers := make([]string, len(all))
	for i, r := range all {
		answers[i] = FormatRating(r)
	}
	return GeneratedQuestion{
		Type:          domain.QuestionMultipleChoice,
		Subtype:       domain.SubtypeRating,
		Question:      prompt(movie),
		Answers:       answers,
		CorrectAnswer: FormatRating(correct),
	}, nil
}

// BuildTextAnswer returns a typed-answer question accepted within ±0.2.
func (g *Generator) BuildTextAnswer(ctx context.Context, title string) (GeneratedQuestion, error) {
	movie, err := g.source.FetchMovie(ctx, title)
	if err != nil {
		return GeneratedQuestion{}, err
	}
	return GeneratedQuestion{
		Type:          domain.QuestionText,
		Subtype:       domain.SubtypeRating,
		Question:      prompt(movie),
		CorrectAnswer: FormatRating(Round1(movie.Rating)),
		Tolerance:     DefaultTolerance,
	}, nil
}
