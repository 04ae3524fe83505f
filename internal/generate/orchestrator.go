// Package generate drives the multi-step generation pipeline:
// clarify → plan styles → stream N artifacts concurrently. It owns the
// session lifecycle and is the only writer into the session Store.
//
// Failure philosophy (one artifact must never sink its siblings):
//   - clarification failure degrades to no clarification
//   - planning failure degrades to the fallback style labels
//   - a stream failure marks its own artifact as errored and nothing else
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/draftly/draftly/internal/llm"
	"github.com/draftly/draftly/internal/session"
	"github.com/draftly/draftly/internal/stream"
)

// Phase is the orchestrator's position in the per-submission state
// machine. One guarded struct holds the phase and its associated data, so
// illegal combinations (streaming while the clarify step is still open)
// cannot be represented.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseClarifying Phase = "clarifying"
	PhasePlanning   Phase = "planning"
	PhaseStreaming  Phase = "streaming"
	PhaseSettled    Phase = "settled"
)

const (
	// DefaultVariants is how many artifacts one submission produces.
	DefaultVariants = 3

	// maxClarifyingQuestions bounds the clarification step.
	maxClarifyingQuestions = 3

	// errorPlaceholder is written into an artifact whose generation
	// failed; the artifact keeps it permanently.
	errorPlaceholder = "Generation failed. Please try again."
)

// FallbackStyles pads the planned style labels when the model returns
// fewer than requested.
var FallbackStyles = []string{"Minimal & Clean", "Bold & Expressive", "Soft & Rounded"}

// Sentinel errors for orchestrator operations.
var (
	// ErrEmptyPrompt indicates a submission with no prompt text.
	ErrEmptyPrompt = errors.New("empty prompt")

	// ErrWrongPhase indicates an operation invalid in the current phase.
	ErrWrongPhase = errors.New("operation not valid in current phase")

	// ErrUnknownQuestion indicates an answer to a question that was never
	// asked.
	ErrUnknownQuestion = errors.New("unknown clarifying question")

	// ErrArtifactNotReady indicates the variation flow was requested
	// before the current artifact finished streaming.
	ErrArtifactNotReady = errors.New("artifact not ready")
)

// Config contains all required parameters for the Orchestrator.
type Config struct {
	Client llm.Client
	Store  *session.Store
	Logger *slog.Logger

	// Variants is the number of artifacts per session (0 = DefaultVariants).
	Variants int

	// FallbackStyles overrides the default padding labels (nil = defaults).
	FallbackStyles []string
}

func (cfg Config) validate() error {
	if cfg.Client == nil {
		return errors.New("llm client is required")
	}
	if cfg.Store == nil {
		return errors.New("session store is required")
	}
	return nil
}

// submission is the state machine's associated data for the in-flight
// user submission. Replaced wholesale on each new Submit.
type submission struct {
	phase     Phase
	prompt    string
	questions []session.ClarifyingQuestion
	answers   map[string]string
	sessionID uuid.UUID
	done      chan struct{} // closed once all tasks terminated; nil before Streaming
}

// Orchestrator runs the generation pipeline for one submission at a time.
// Starting a new submission does not cancel tasks still streaming for a
// prior one; they finish against their own session.
//
// Safe for concurrent use.
type Orchestrator struct {
	client         llm.Client
	store          *session.Store
	logger         *slog.Logger
	variants       int
	fallbackStyles []string

	mu        sync.Mutex
	sub       submission
	styleTags []string
}

// New creates an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	variants := cfg.Variants
	if variants <= 0 {
		variants = DefaultVariants
	}
	fallback := cfg.FallbackStyles
	if len(fallback) == 0 {
		fallback = FallbackStyles
	}
	return &Orchestrator{
		client:         cfg.Client,
		store:          cfg.Store,
		logger:         logger,
		variants:       variants,
		fallbackStyles: fallback,
		sub:            submission{phase: PhaseIdle},
	}, nil
}

// Phase returns the current state machine phase.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sub.phase
}

// SetStyleTags sets the active style preset tags folded into every prompt
// of subsequent submissions.
func (o *Orchestrator) SetStyleTags(tags []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.styleTags = append([]string(nil), tags...)
}

// Questions returns the pending clarifying questions, if any.
func (o *Orchestrator) Questions() []session.ClarifyingQuestion {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]session.ClarifyingQuestion(nil), o.sub.questions...)
}

// Submit starts a new submission for the given prompt. It requests
// clarifying questions from the model and returns them for the caller to
// answer. If the clarification call fails or yields nothing usable,
// generation starts immediately with an empty answers map and Submit
// returns no questions — a broken clarify step never blocks generation.
func (o *Orchestrator) Submit(ctx context.Context, prompt string) ([]session.ClarifyingQuestion, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	o.mu.Lock()
	o.sub = submission{
		phase:   PhaseClarifying,
		prompt:  prompt,
		answers: make(map[string]string),
	}
	tags := o.styleTags
	o.mu.Unlock()

	questions := o.clarify(ctx, prompt, tags)
	if len(questions) == 0 {
		o.logger.Debug("no usable clarifying questions, proceeding to generation")
		if _, err := o.ConfirmGeneration(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}

	o.mu.Lock()
	// A concurrent Submit may have replaced the submission while the
	// clarify call was in flight; only attach questions to our own.
	if o.sub.phase == PhaseClarifying && o.sub.prompt == prompt {
		o.sub.questions = questions
	}
	o.mu.Unlock()
	return questions, nil
}

// AnswerQuestion records the chosen option for one clarifying question.
func (o *Orchestrator) AnswerQuestion(questionID, option string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sub.phase != PhaseClarifying {
		return fmt.Errorf("%w: %s", ErrWrongPhase, o.sub.phase)
	}
	for _, q := range o.sub.questions {
		if q.ID == questionID {
			o.sub.answers[questionID] = option
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
}

// ConfirmGeneration proceeds from clarification to generation. "Skip" and
// "submit answers" are the same call — the answers map is simply empty in
// the first case. It creates the session (placeholder artifacts appear
// immediately), plans style labels, launches the N streaming tasks, and
// returns the new session ID without waiting for them.
func (o *Orchestrator) ConfirmGeneration(ctx context.Context) (uuid.UUID, error) {
	o.mu.Lock()
	if o.sub.phase != PhaseClarifying {
		phase := o.sub.phase
		o.mu.Unlock()
		return uuid.Nil, fmt.Errorf("%w: %s", ErrWrongPhase, phase)
	}
	o.sub.phase = PhasePlanning
	o.sub.questions = nil
	prompt := o.sub.prompt
	answers := o.sub.answers
	tags := o.styleTags
	o.mu.Unlock()

	sess := o.store.CreateSession(prompt, answers, o.variants)

	styles := o.planStyles(ctx, prompt, answers, tags)
	for i, style := range styles {
		id := sess.Artifacts[i].ID
		if err := o.store.UpdateArtifact(sess.ID, id, func(a session.Artifact) session.Artifact {
			a.Style = style
			return a
		}); err != nil {
			o.logger.Warn("labeling artifact", "artifact_id", id, "error", err)
		}
	}

	done := make(chan struct{})
	o.mu.Lock()
	o.sub.phase = PhaseStreaming
	o.sub.sessionID = sess.ID
	o.sub.done = done
	o.mu.Unlock()

	// Tasks outlive the triggering call (an HTTP request context ends the
	// moment the response is written); once launched, a submission runs
	// all its tasks to completion or local failure.
	taskCtx := context.WithoutCancel(ctx)

	var tasks sync.WaitGroup
	for i := range o.variants {
		tasks.Add(1)
		go func(artifactID, style string) {
			defer tasks.Done()
			o.streamArtifact(taskCtx, sess.ID, artifactID, style, prompt, answers, tags)
		}(sess.Artifacts[i].ID, styles[i])
	}

	// Settle once every task has terminated, success or error alike.
	go func() {
		defer close(done)
		tasks.Wait()
		o.mu.Lock()
		if o.sub.sessionID == sess.ID && o.sub.phase == PhaseStreaming {
			o.sub.phase = PhaseSettled
		}
		o.mu.Unlock()
		o.logger.Info("generation settled", "session_id", sess.ID)
	}()

	o.logger.Info("generation started", "session_id", sess.ID, "variants", o.variants)
	return sess.ID, nil
}

// Wait blocks until the current submission's tasks have all terminated.
// Returns immediately when nothing is streaming.
func (o *Orchestrator) Wait() {
	o.mu.Lock()
	done := o.sub.done
	o.mu.Unlock()
	if done != nil {
		<-done
	}
}

// clarify asks the model for clarifying questions and parses them.
// Any failure degrades to zero questions.
func (o *Orchestrator) clarify(ctx context.Context, prompt string, tags []string) []session.ClarifyingQuestion {
	text, err := o.client.Generate(ctx, clarifyPrompt(prompt, tags))
	if err != nil {
		o.logger.Warn("clarification call failed, skipping", "error", err)
		return nil
	}

	var parsed []session.ClarifyingQuestion
	if err := stream.ExtractInto(text, &parsed); err != nil {
		o.logger.Warn("clarification response unusable, skipping", "error", err)
		return nil
	}

	questions := make([]session.ClarifyingQuestion, 0, maxClarifyingQuestions)
	for i, q := range parsed {
		if strings.TrimSpace(q.Question) == "" || len(q.Options) == 0 {
			continue
		}
		if q.ID == "" {
			q.ID = fmt.Sprintf("q%d", i+1)
		}
		questions = append(questions, q)
		if len(questions) == maxClarifyingQuestions {
			break
		}
	}
	return questions
}

// planStyles asks the model for exactly N distinct style labels. Short or
// failed plans are padded from the fallback list; long ones are truncated.
// The result always has exactly o.variants entries.
func (o *Orchestrator) planStyles(ctx context.Context, prompt string, answers map[string]string, tags []string) []string {
	var planned []string
	text, err := o.client.Generate(ctx, planPrompt(prompt, o.variants, answers, tags))
	if err != nil {
		o.logger.Warn("planning call failed, using fallback styles", "error", err)
	} else if err := stream.ExtractInto(text, &planned); err != nil {
		o.logger.Warn("planning response unusable, using fallback styles", "error", err)
	}

	styles := make([]string, 0, o.variants)
	used := make(map[string]bool)
	for _, s := range planned {
		s = strings.TrimSpace(s)
		if s == "" || used[s] {
			continue
		}
		styles = append(styles, s)
		used[s] = true
		if len(styles) == o.variants {
			return styles
		}
	}
	for _, s := range o.fallbackStyles {
		if len(styles) == o.variants {
			break
		}
		if used[s] {
			continue
		}
		styles = append(styles, s)
		used[s] = true
	}
	for len(styles) < o.variants {
		styles = append(styles, fmt.Sprintf("Variant %d", len(styles)+1))
	}
	return styles
}

// streamArtifact is the independent generation task owning one artifact.
// It is the only writer to that artifact and finalizes it exactly once.
// Any failure stays local: the artifact goes to error, siblings run on.
func (o *Orchestrator) streamArtifact(ctx context.Context, sessionID uuid.UUID, artifactID, style, prompt string, answers map[string]string, tags []string) {
	var acc strings.Builder
	_, err := o.client.GenerateStream(ctx, generatePrompt(prompt, style, answers, tags),
		func(_ context.Context, fragment string) error {
			acc.WriteString(fragment)
			content := acc.String()
			return o.store.UpdateArtifact(sessionID, artifactID, func(a session.Artifact) session.Artifact {
				a.Content = content
				return a
			})
		})
	if err != nil {
		o.logger.Warn("artifact stream failed", "artifact_id", artifactID, "error", err)
		o.finalize(sessionID, artifactID, errorPlaceholder, session.StatusError)
		return
	}

	html := stream.TrimFences(acc.String())
	if html == "" {
		o.logger.Warn("artifact stream produced no content", "artifact_id", artifactID)
		o.finalize(sessionID, artifactID, errorPlaceholder, session.StatusError)
		return
	}
	o.finalize(sessionID, artifactID, html, session.StatusComplete)
}

// finalize writes the terminal content and status for one artifact.
func (o *Orchestrator) finalize(sessionID uuid.UUID, artifactID, content string, status session.Status) {
	err := o.store.UpdateArtifact(sessionID, artifactID, func(a session.Artifact) session.Artifact {
		a.Content = content
		a.Status = status
		return a
	})
	if err != nil {
		o.logger.Warn("finalizing artifact", "artifact_id", artifactID, "error", err)
	}
}
