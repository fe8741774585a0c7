package refiner

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// MinIdeaLength is the shortest trimmed idea worth sending to the model.
	MinIdeaLength = 10

	DefaultTimeout = 20 * time.Second

	MessageAlreadyGreat = "¡Tu idea ya es genial! La IA no encontró mejoras significativas."
	MessageFailed       = "No se pudo obtener una sugerencia en este momento."
	MessageTooShort     = "Describe un poco más tu idea para que la IA pueda ayudarte."
)

var errEmptyCandidate = errors.New("model returned an empty refinement")

// Outcome classifies a refinement attempt.
type Outcome int

const (
	OutcomeTooShort Outcome = iota
	OutcomeSuggested
	OutcomeUnchanged
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeTooShort:
		return "too_short"
	case OutcomeSuggested:
		return "suggested"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// Result is what the visitor sees after a refinement attempt. Suggestion is
// set only for OutcomeSuggested; Message carries the canned text otherwise.
type Result struct {
	Outcome    Outcome
	Suggestion string
	Message    string
	Err        error
}

// IdeaLength counts characters of the trimmed idea.
func IdeaLength(idea string) int {
	return utf8.RuneCountInString(strings.TrimSpace(idea))
}

// Assistant gates, times out and classifies calls to a Refiner.
type Assistant struct {
	refiner Refiner
	timeout time.Duration
	logger  *zap.Logger
	flight  singleflight.Group
}

func NewAssistant(refiner Refiner, timeout time.Duration, logger *zap.Logger) *Assistant {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Assistant{
		refiner: refiner,
		timeout: timeout,
		logger:  logger,
	}
}

// Refine never fails: service problems come back as OutcomeFailed.
// Concurrent requests for the same idea share one upstream call.
func (a *Assistant) Refine(ctx context.Context, idea string) Result {
	if IdeaLength(idea) < MinIdeaLength {
		return Result{Outcome: OutcomeTooShort, Message: MessageTooShort}
	}

	requestID := uuid.NewString()
	start := time.Now()

	v, err, shared := a.flight.Do(idea, func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()
		return a.refiner.Refine(callCtx, idea)
	})

	candidate, _ := v.(string)
	if err == nil && strings.TrimSpace(candidate) == "" {
		err = errEmptyCandidate
	}
	if err != nil {
		a.logger.Warn("Failed to refine idea",
			zap.Error(err),
			zap.String("request_id", requestID),
			zap.Duration("elapsed", time.Since(start)))
		return Result{Outcome: OutcomeFailed, Message: MessageFailed, Err: err}
	}

	candidate = strings.TrimSpace(candidate)
	if candidate == strings.TrimSpace(idea) {
		a.logger.Info("Idea returned unchanged",
			zap.String("request_id", requestID),
			zap.Bool("shared", shared))
		return Result{Outcome: OutcomeUnchanged, Message: MessageAlreadyGreat}
	}

	a.logger.Info("Idea refined",
		zap.String("request_id", requestID),
		zap.Bool("shared", shared),
		zap.Int("length", utf8.RuneCountInString(candidate)),
		zap.Duration("elapsed", time.Since(start)))
	return Result{Outcome: OutcomeSuggested, Suggestion: candidate}
}
