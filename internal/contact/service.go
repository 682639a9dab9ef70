// Package contact validates, stores and relays contact form submissions.
package contact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"blackbox/api/internal/store"
)

var ErrRelayFailed = errors.New("relay failed")

const DefaultRelayTimeout = 10 * time.Second

// Store persists submissions. Implementations assign increasing ids.
type Store interface {
	CreateSubmission(ctx context.Context, in store.NewSubmission) (store.Submission, error)
	ListSubmissions(ctx context.Context) ([]store.Submission, error)
}

// Relay forwards a stored submission to an external destination.
type Relay interface {
	Name() string
	Relay(ctx context.Context, sub store.Submission) error
}

type Recorder interface {
	SubmissionRecorded(result string)
	RelayRecorded(relay, status string)
}

type RelayStatus string

const (
	RelayDelivered RelayStatus = "delivered"
	RelayFailed    RelayStatus = "failed"
	RelaySkipped   RelayStatus = "skipped"
)

type RelayOutcome struct {
	Status RelayStatus `json:"status"`
	Relay  string      `json:"relay,omitempty"`
	Error  string      `json:"error,omitempty"`
	Err    error       `json:"-"`
}

// Receipt is the result of a successful Submit. A failed relay does not
// make the submission unsuccessful.
type Receipt struct {
	Submission store.Submission `json:"submission"`
	Relay      RelayOutcome     `json:"relay"`
}

type Service struct {
	store        Store
	relay        Relay
	validate     *validator.Validate
	now          func() time.Time
	relayTimeout time.Duration
	log          *zap.Logger
	metrics      Recorder
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithRelayTimeout(d time.Duration) Option {
	return func(s *Service) { s.relayTimeout = d }
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Service) { s.log = log }
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.metrics = r }
}

// NewService wires the intake pipeline. relay may be nil.
func NewService(st Store, relay Relay, opts ...Option) *Service {
	s := &Service{
		store:        st,
		relay:        relay,
		validate:     newValidator(),
		now:          time.Now,
		relayTimeout: DefaultRelayTimeout,
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates in, persists it, then relays it. Only validation and
// persistence failures are returned as errors.
func (s *Service) Submit(ctx context.Context, in Input) (Receipt, error) {
	if err := Validate(s.validate, in); err != nil {
		s.recordSubmission("invalid")
		return Receipt{}, err
	}

	sub, err := s.store.CreateSubmission(ctx, store.NewSubmission{
		Name:        in.Name,
		Email:       in.Email,
		Business:    store.OptionalString(in.Business),
		Message:     in.Message,
		SubmittedAt: s.now().UTC(),
	})
	if err != nil {
		s.recordSubmission("error")
		return Receipt{}, fmt.Errorf("persist submission: %w", err)
	}
	s.recordSubmission("stored")
	s.log.Info("contact submission stored", zap.Int64("submission_id", sub.ID))

	return Receipt{Submission: sub, Relay: s.forward(ctx, sub)}, nil
}

func (s *Service) List(ctx context.Context) ([]store.Submission, error) {
	items, err := s.store.ListSubmissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return items, nil
}

// forward runs the relay detached from the request so a client hang-up
// does not cut delivery short.
func (s *Service) forward(ctx context.Context, sub store.Submission) RelayOutcome {
	if s.relay == nil {
		return RelayOutcome{Status: RelaySkipped}
	}
	name := s.relay.Name()

	relayCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.relayTimeout)
	defer cancel()

	if err := s.relay.Relay(relayCtx, sub); err != nil {
		wrapped := fmt.Errorf("%w: %s: %v", ErrRelayFailed, name, err)
		s.log.Warn("contact relay failed",
			zap.Int64("submission_id", sub.ID),
			zap.String("relay", name),
			zap.Error(err),
		)
		s.recordRelay(name, RelayFailed)
		return RelayOutcome{Status: RelayFailed, Relay: name, Error: wrapped.Error(), Err: wrapped}
	}
	s.recordRelay(name, RelayDelivered)
	return RelayOutcome{Status: RelayDelivered, Relay: name}
}

func (s *Service) recordSubmission(result string) {
	if s.metrics != nil {
		s.metrics.SubmissionRecorded(result)
	}
}

func (s *Service) recordRelay(name string, status RelayStatus) {
	if s.metrics != nil {
		s.metrics.RelayRecorded(name, string(status))
	}
}
