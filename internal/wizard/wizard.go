// Package wizard drives one project draft through the four designer steps.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xaenox/comproclick-bot/internal/catalog"
	"github.com/xaenox/comproclick-bot/internal/models"
	"github.com/xaenox/comproclick-bot/internal/refiner"
	"github.com/xaenox/comproclick-bot/internal/storage"
	"go.uber.org/zap"
)

// DraftKey is the storage key of the in-progress draft.
const DraftKey = "comproClickProjectDraft"

var (
	ErrStepIncomplete  = errors.New("step incomplete")
	ErrUnknownOption   = errors.New("unknown option")
	ErrWrongStep       = errors.New("input does not belong to the current step")
	ErrRefineInFlight  = errors.New("refinement in progress")
	ErrStaleRefinement = errors.New("refinement discarded: idea changed")
	ErrNoSuggestion    = errors.New("no suggestion to use")
	ErrNoAssistant     = errors.New("idea refinement is not configured")
)

type Step int

const (
	StepType Step = iota + 1
	StepCategory
	StepTimeline
	StepIdea
)

func (s Step) String() string {
	switch s {
	case StepType:
		return "type"
	case StepCategory:
		return "category"
	case StepTimeline:
		return "timeline"
	case StepIdea:
		return "idea"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// Callbacks connect the wizard to whatever hosts it.
type Callbacks struct {
	// Complete receives the finished draft. When it returns nil the draft is
	// reset and the wizard starts over.
	Complete func(models.ProjectDraft) error
	// BackHome is called when the visitor goes back from the first step.
	BackHome func()
}

type Controller struct {
	mu        sync.Mutex
	step      Step
	draft     *storage.Cell[models.ProjectDraft]
	catalog   *catalog.Catalog
	assistant *refiner.Assistant
	tracker   refiner.Tracker
	debouncer *refiner.Debouncer
	callbacks Callbacks
	logger    *zap.Logger
}

func New(draft *storage.Cell[models.ProjectDraft], cat *catalog.Catalog, assistant *refiner.Assistant, debouncer *refiner.Debouncer, callbacks Callbacks, logger *zap.Logger) *Controller {
	return &Controller{
		step:      StepType,
		draft:     draft,
		catalog:   cat,
		assistant: assistant,
		debouncer: debouncer,
		callbacks: callbacks,
		logger:    logger,
	}
}

func (c *Controller) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

func (c *Controller) Draft() models.ProjectDraft {
	return c.draft.Get()
}

func (c *Controller) SelectType(id string) error {
	if !c.catalog.ProjectTypes.Offers(id) {
		return fmt.Errorf("%w: project type %q", ErrUnknownOption, id)
	}
	c.draft.Update(func(d models.ProjectDraft) models.ProjectDraft {
		d.Type = models.Pick(id).WithOther(d.Type.Other)
		return d
	})
	return nil
}

func (c *Controller) SetTypeOther(text string) error {
	if !c.draft.Get().Type.IsOther() {
		return fmt.Errorf("%w: project type is not %q", ErrWrongStep, models.OtherID)
	}
	c.draft.Update(func(d models.ProjectDraft) models.ProjectDraft {
		d.Type = d.Type.WithOther(text)
		return d
	})
	return nil
}

func (c *Controller) SelectCategory(id string) error {
	if !c.catalog.ProjectCategories.Offers(id) {
		return fmt.Errorf("%w: project category %q", ErrUnknownOption, id)
	}
	c.draft.Update(func(d models.ProjectDraft) models.ProjectDraft {
		d.Category = models.Pick(id).WithOther(d.Category.Other)
		return d
	})
	return nil
}

func (c *Controller) SetCategoryOther(text string) error {
	if !c.draft.Get().Category.IsOther() {
		return fmt.Errorf("%w: project category is not %q", ErrWrongStep, models.OtherID)
	}
	c.draft.Update(func(d models.ProjectDraft) models.ProjectDraft {
		d.Category = d.Category.WithOther(text)
		return d
	})
	return nil
}

func (c *Controller) SelectTimeline(id string) error {
	if !c.catalog.Timelines.Offers(id) {
		return fmt.Errorf("%w: timeline %q", ErrUnknownOption, id)
	}
	c.draft.Update(func(d models.ProjectDraft) models.ProjectDraft {
		d.Timeline = id
		return d
	})
	return nil
}

// SetIdea replaces the idea text. A running refinement for the previous text
// will be discarded when it returns. Changing the text withdraws the
// suggestion made for the old one.
func (c *Controller) SetIdea(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Update(func(d models.ProjectDraft) models.ProjectDraft {
		if d.Idea == text {
			return d
		}
		d.Idea = text
		d.RefinedIdea = ""
		c.tracker.ClearSuggestion()
		return d
	})
}

func (c *Controller) guard() error {
	d := c.draft.Get()
	switch c.step {
	case StepType:
		if !d.Type.IsSet() {
			return fmt.Errorf("%w: choose a project type", ErrStepIncomplete)
		}
		if !d.Type.Complete() {
			return fmt.Errorf("%w: describe the other project type", ErrStepIncomplete)
		}
	case StepCategory:
		if !d.Category.IsSet() {
			return fmt.Errorf("%w: choose a project category", ErrStepIncomplete)
		}
		if !d.Category.Complete() {
			return fmt.Errorf("%w: describe the other project category", ErrStepIncomplete)
		}
	case StepTimeline:
		if strings.TrimSpace(d.Timeline) == "" {
			return fmt.Errorf("%w: choose a timeline", ErrStepIncomplete)
		}
	case StepIdea:
		if refiner.IdeaLength(d.Idea) < refiner.MinIdeaLength {
			return fmt.Errorf("%w: the idea needs at least %d characters", ErrStepIncomplete, refiner.MinIdeaLength)
		}
		if c.tracker.InFlight() {
			return ErrRefineInFlight
		}
	}
	return nil
}

// Next advances one step, or hands the finished draft to Complete when on the
// last step. The guard of the current step must hold.
func (c *Controller) Next() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guard(); err != nil {
		return err
	}
	if c.step < StepIdea {
		c.step++
		c.logger.Debug("Wizard advanced", zap.Stringer("step", c.step))
		return nil
	}

	draft := c.draft.Get()
	if c.callbacks.Complete != nil {
		if err := c.callbacks.Complete(draft); err != nil {
			return fmt.Errorf("failed to complete draft: %w", err)
		}
	}

	c.draft.Clear()
	c.step = StepType
	c.tracker.Reset()
	if c.debouncer != nil {
		c.debouncer.Stop()
	}
	c.logger.Info("Wizard completed")
	return nil
}

// Prev goes back one step, or calls BackHome from the first step. Any
// displayed suggestion is withdrawn along with its copy on the draft.
func (c *Controller) Prev() {
	c.mu.Lock()
	c.tracker.ClearSuggestion()
	c.draft.Update(func(d models.ProjectDraft) models.ProjectDraft {
		d.RefinedIdea = ""
		return d
	})
	if c.step > StepType {
		c.step--
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if c.callbacks.BackHome != nil {
		c.callbacks.BackHome()
	}
}

// Restart abandons the current pass: the draft is emptied and the wizard
// returns to the first step.
func (c *Controller) Restart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Clear()
	c.step = StepType
	c.tracker.Reset()
	if c.debouncer != nil {
		c.debouncer.Stop()
	}
}

func (c *Controller) Suggestion() string {
	return c.tracker.Suggestion()
}

func (c *Controller) Refining() bool {
	return c.tracker.InFlight()
}

// Refine asks the assistant to polish the current idea. The answer is applied
// only if no newer request started and the idea did not change meanwhile.
func (c *Controller) Refine(ctx context.Context) (refiner.Result, error) {
	if c.assistant == nil {
		return refiner.Result{Outcome: refiner.OutcomeFailed, Message: refiner.MessageFailed, Err: ErrNoAssistant}, nil
	}

	c.mu.Lock()
	idea := c.draft.Get().Idea
	if refiner.IdeaLength(idea) < refiner.MinIdeaLength {
		c.mu.Unlock()
		return refiner.Result{Outcome: refiner.OutcomeTooShort, Message: refiner.MessageTooShort}, nil
	}
	if c.tracker.InFlight() {
		c.mu.Unlock()
		return refiner.Result{}, ErrRefineInFlight
	}
	token := c.tracker.Begin()
	c.draft.Update(func(d models.ProjectDraft) models.ProjectDraft {
		d.RefinedIdea = ""
		return d
	})
	c.mu.Unlock()

	res := c.assistant.Refine(ctx, idea)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.draft.Get().Idea != idea {
		c.tracker.Abandon(token)
		return res, ErrStaleRefinement
	}
	if !c.tracker.Finish(token, res) {
		return res, ErrStaleRefinement
	}

	switch res.Outcome {
	case refiner.OutcomeSuggested:
		c.draft.Update(func(d models.ProjectDraft) models.ProjectDraft {
			d.RefinedIdea = res.Suggestion
			return d
		})
	case refiner.OutcomeFailed, refiner.OutcomeUnchanged:
		c.draft.Update(func(d models.ProjectDraft) models.ProjectDraft {
			d.RefinedIdea = ""
			return d
		})
	}
	return res, nil
}

// ScheduleRefine is the input-driven variant of Refine: it waits for the
// debouncer's quiet period and then refines, passing the outcome to notify.
// Stale and too-short outcomes are not reported. Ideas equal to the last
// adopted suggestion are not sent again.
func (c *Controller) ScheduleRefine(ctx context.Context, notify func(refiner.Result)) {
	if c.debouncer == nil || c.assistant == nil {
		return
	}
	idea := c.draft.Get().Idea
	if refiner.IdeaLength(idea) < refiner.MinIdeaLength || idea == c.tracker.Adopted() {
		c.debouncer.Stop()
		return
	}

	var fire func()
	fire = func() {
		res, err := c.Refine(ctx)
		switch {
		case errors.Is(err, ErrRefineInFlight):
			c.debouncer.Trigger(fire)
		case err != nil:
			c.logger.Debug("Scheduled refinement dropped", zap.Error(err))
		case res.Outcome != refiner.OutcomeTooShort && notify != nil:
			notify(res)
		}
	}
	c.debouncer.Trigger(fire)
}

// UseSuggestion adopts the displayed suggestion as the idea.
func (c *Controller) UseSuggestion() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	text, ok := c.tracker.Adopt()
	if !ok {
		return ErrNoSuggestion
	}
	c.draft.Update(func(d models.ProjectDraft) models.ProjectDraft {
		d.Idea = text
		d.RefinedIdea = ""
		return d
	})
	return nil
}

// Close cancels any scheduled refinement.
func (c *Controller) Close() {
	if c.debouncer != nil {
		c.debouncer.Stop()
	}
}
