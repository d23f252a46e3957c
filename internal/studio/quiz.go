package studio

import (
	"fmt"
	"sync"

	"studio/internal/apperr"
	"studio/internal/genai"
)

// Quiz pairs a synthesized question set with the user's answer sheet. Answers
// can be changed freely until Submit fires, after which the sheet is
// immutable and the score is fixed.
type Quiz struct {
	mu        sync.Mutex
	questions []genai.QuizQuestion
	answers   []string
	submitted bool
	score     int
}

func NewQuiz(questions []genai.QuizQuestion) (*Quiz, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: quiz has no questions", apperr.ErrInvalidInput)
	}
	return &Quiz{
		questions: questions,
		answers:   make([]string, len(questions)),
	}, nil
}

// Answer selects an option for one question. The option must be one of the
// question's own options; changes after submission are rejected.
func (q *Quiz) Answer(index int, option string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.submitted {
		return fmt.Errorf("%w: the quiz has already been submitted", apperr.ErrInvalidInput)
	}
	if index < 0 || index >= len(q.questions) {
		return fmt.Errorf("%w: question %d does not exist", apperr.ErrInvalidInput, index)
	}
	valid := false
	for _, o := range q.questions[index].Options {
		if o == option {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: %q is not an option for question %d", apperr.ErrInvalidInput, option, index)
	}
	q.answers[index] = option
	return nil
}

// Submit freezes the answer sheet and returns the score: the count of
// questions whose selected option matches the correct one. Submitting twice
// returns the same score.
func (q *Quiz) Submit() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.submitted {
		return q.score, nil
	}
	q.submitted = true
	for i, question := range q.questions {
		if q.answers[i] != "" && q.answers[i] == question.Answer {
			q.score++
		}
	}
	return q.score, nil
}

// Score reports the final score; valid only after submission.
func (q *Quiz) Score() (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.score, q.submitted
}

// Submitted reports whether the sheet is frozen.
func (q *Quiz) Submitted() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.submitted
}

// Len returns the number of questions.
func (q *Quiz) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.questions)
}

// Questions returns a copy of the question set for rendering.
func (q *Quiz) Questions() []genai.QuizQuestion {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]genai.QuizQuestion, len(q.questions))
	copy(out, q.questions)
	return out
}
