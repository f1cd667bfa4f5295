package presenter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/noah-isme/lanex-quiz-api/internal/normalizer"
	"github.com/noah-isme/lanex-quiz-api/internal/page"
	"github.com/noah-isme/lanex-quiz-api/internal/quiz"
	"github.com/noah-isme/lanex-quiz-api/pkg/gradingclient"
)

var (
	// ErrSubmitInProgress is returned when a submission is already running.
	ErrSubmitInProgress = errors.New("submission already in progress")
	// ErrAlreadyGraded is returned for any submit after results were shown.
	ErrAlreadyGraded = errors.New("test already graded")
	// ErrDeclined is returned when the user cancels the confirmation prompt.
	ErrDeclined = errors.New("submission declined")
	// ErrNotGraded is returned when acknowledging results that do not exist yet.
	ErrNotGraded = errors.New("test not graded yet")
)

// State is the page lifecycle state.
type State int

const (
	Answering State = iota
	Submitting
	Graded
	EmptyRejected
	ErrorShown
)

func (s State) String() string {
	switch s {
	case Answering:
		return "answering"
	case Submitting:
		return "submitting"
	case Graded:
		return "graded"
	case EmptyRejected:
		return "empty_rejected"
	case ErrorShown:
		return "error_shown"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Grader produces a grading envelope for a submission.
type Grader interface {
	Grade(ctx context.Context, payload quiz.Payload, key quiz.AnswerKey) (gradingclient.Envelope, error)
}

// Confirmer asks the user to confirm a submission.
type Confirmer interface {
	Confirm(ctx context.Context, question string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, question string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, question string) bool {
	return f(ctx, question)
}

// Notifier receives the non-terminal messages shown to the user.
type Notifier interface {
	Notice(message string)
	Alert(message string)
}

// HostApp is the embedding application, closed by the OK and back actions.
type HostApp interface {
	Close() error
}

// Identity carries the optional user identity sent with a submission.
type Identity struct {
	Username   string
	TelegramID *int64
}

// Options configures a Session. Zero values fall back to defaults.
type Options struct {
	Level     string
	Key       quiz.AnswerKey
	Identity  Identity
	Selectors *page.Selectors
	Messages  *Messages
	// PassThreshold enables the pass/fail line in the summary when > 0.
	PassThreshold float64
	// AllowEmpty forwards empty forms to the grader instead of rejecting them locally.
	AllowEmpty bool
	Confirmer  Confirmer
	Notifier   Notifier
	Host       HostApp
}

// Session drives one test page from answering to graded.
type Session struct {
	mu         sync.Mutex
	state      State
	inFlight   bool
	history    []State
	result     *quiz.GradingResult
	source     gradingclient.Source
	doc        *page.Document
	grader     Grader
	normalizer *normalizer.Normalizer
	view       view
	opts       Options
	logger     zerolog.Logger
}

// NewSession binds a grader to a parsed page.
func NewSession(doc *page.Document, grader Grader, opts Options, logger zerolog.Logger) *Session {
	selectors := page.DefaultSelectors()
	if opts.Selectors != nil {
		selectors = *opts.Selectors
	}
	messages := DefaultMessages()
	if opts.Messages != nil {
		messages = *opts.Messages
	}

	componentLogger := logger.With().Str("component", "result_presenter").Str("level", opts.Level).Logger()
	return &Session{
		state:      Answering,
		history:    []State{Answering},
		doc:        doc,
		grader:     grader,
		normalizer: normalizer.New(selectors, logger),
		view: view{
			doc:       doc,
			selectors: selectors,
			messages:  messages,
			threshold: opts.PassThreshold,
		},
		opts:   opts,
		logger: componentLogger,
	}
}

// State reports the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// History lists every state the session passed through.
func (s *Session) History() []State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]State(nil), s.history...)
}

// Result returns the applied grading result once the session is graded.
func (s *Session) Result() (quiz.GradingResult, gradingclient.Source, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return quiz.GradingResult{}, "", false
	}
	return *s.result, s.source, true
}

func (s *Session) transition(next State) {
	s.logger.Debug().Str("from", s.state.String()).Str("to", next.String()).Msg("state transition")
	s.state = next
	s.history = append(s.history, next)
}

// Submit collects, grades and presents the answers. It returns the state
// reached by this attempt; EmptyRejected and ErrorShown leave the page
// editable and the session back in Answering.
func (s *Session) Submit(ctx context.Context) (State, error) {
	s.mu.Lock()
	if s.state == Graded {
		s.mu.Unlock()
		s.logger.Debug().Msg("submit ignored, already graded")
		return Graded, ErrAlreadyGraded
	}
	if s.inFlight {
		s.mu.Unlock()
		s.logger.Debug().Msg("submit ignored, submission in progress")
		return Submitting, ErrSubmitInProgress
	}
	s.inFlight = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	if s.opts.Confirmer != nil && !s.opts.Confirmer.Confirm(ctx, s.view.messages.Confirm) {
		s.logger.Info().Msg("submission declined")
		return Answering, ErrDeclined
	}

	s.mu.Lock()
	s.transition(Submitting)
	s.mu.Unlock()

	answers, report := s.normalizer.Normalize(s.doc)
	s.logger.Debug().
		Int("tasks", len(answers)).
		Int("positional", len(report.Positional)).
		Int("conflicts", len(report.Conflicts)).
		Msg("answers collected")

	if !s.opts.AllowEmpty && !answers.HasAnyAnswer() {
		return s.reject(), nil
	}

	payload := quiz.Payload{
		Level:      s.opts.Level,
		Answers:    answers,
		Username:   s.opts.Identity.Username,
		TelegramID: s.opts.Identity.TelegramID,
	}

	envelope, err := s.grader.Grade(ctx, payload, s.opts.Key)
	if err != nil {
		s.logger.Error().Err(err).Msg("grading failed")
		return s.fail(s.view.messages.GenericError), err
	}

	switch envelope.Status {
	case quiz.ResponseStatusEmptyForm:
		return s.reject(), nil
	case quiz.ResponseStatusOK:
		if envelope.Result.IsEmpty() {
			s.logger.Warn().Str("source", string(envelope.Source)).Msg("grading returned an empty result")
			return s.fail(s.view.messages.GenericError), nil
		}
	default:
		s.logger.Warn().Str("status", envelope.Status).Msg("grading rejected the submission")
		return s.fail(s.view.messages.Rejected), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.applyResult(envelope.Result)
	result := envelope.Result
	s.result = &result
	s.source = envelope.Source
	s.transition(Graded)
	s.logger.Info().Str("source", string(envelope.Source)).Str("total", result.Total).Msg("results applied")
	return Graded, nil
}

func (s *Session) reject() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.showNotice(s.view.messages.EmptyForm, false)
	if s.opts.Notifier != nil {
		s.opts.Notifier.Notice(s.view.messages.EmptyForm)
	}
	s.transition(EmptyRejected)
	s.transition(Answering)
	return EmptyRejected
}

func (s *Session) fail(message string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.showNotice(message, true)
	if s.opts.Notifier != nil {
		s.opts.Notifier.Alert(message)
	}
	s.transition(ErrorShown)
	s.transition(Answering)
	return ErrorShown
}

// Acknowledge handles the OK button shown with the results.
func (s *Session) Acknowledge() error {
	if s.State() != Graded {
		return ErrNotGraded
	}
	return s.closeHost()
}

// Back handles the back action, which leaves the test without grading.
func (s *Session) Back() error {
	s.mu.Lock()
	inFlight := s.inFlight
	s.mu.Unlock()
	if inFlight {
		return ErrSubmitInProgress
	}
	return s.closeHost()
}

func (s *Session) closeHost() error {
	if s.opts.Host == nil {
		return nil
	}
	if err := s.opts.Host.Close(); err != nil {
		return fmt.Errorf("close host app: %w", err)
	}
	return nil
}
