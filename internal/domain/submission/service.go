package submission

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rpggio/capvault/internal/domain/activity"
	"github.com/rpggio/capvault/internal/domain/captable"
	"github.com/rpggio/capvault/internal/repository"
)

// Service opens submission flows and tracks them in a registry.
type Service struct {
	deps     *deps
	registry *Registry
	stop     context.CancelFunc
}

// Dependencies are the collaborators flows use. Journal, Activity and
// Investors may be nil.
type Dependencies struct {
	Writer    Writer
	Encryptor Encryptor
	Prover    ProofGenerator
	Journal   Journal
	Activity  ActivityRecorder
	Investors CacheInvalidator
}

// NewService creates a submission service. Missing encryptor and prover
// fall back to the placeholders.
func NewService(d Dependencies, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if d.Encryptor == nil {
		d.Encryptor = PlaceholderEncryptor{}
	}
	if d.Prover == nil {
		d.Prover = PlaceholderProver{}
	}
	if d.Journal == nil {
		d.Journal = nopJournal{}
	}
	if d.Activity == nil {
		d.Activity = nopRecorder{}
	}
	if d.Investors == nil {
		d.Investors = nopInvalidator{}
	}
	base, stop := context.WithCancel(context.Background())
	s := &Service{
		deps: &deps{
			writer:    d.Writer,
			encryptor: d.Encryptor,
			prover:    d.Prover,
			journal:   d.Journal,
			recorder:  d.Activity,
			investors: d.Investors,
			opts:      opts,
			logger:    logger,
			now:       func() time.Time { return time.Now().UTC() },
			base:      base,
		},
		registry: NewRegistry(),
		stop:     stop,
	}
	s.deps.onConfirmed = func(f *Flow) {
		s.registry.Remove(f.ID())
		logger.Info("submission flow confirmed", "submission_id", f.ID(), "open_flows", s.registry.Len())
	}
	return s
}

// Close stops watching dispatched transactions. Flows still awaiting
// confirmation stay in that state.
func (s *Service) Close() {
	s.stop()
}

// OpenFlows returns the number of open flows.
func (s *Service) OpenFlows() int {
	return s.registry.Len()
}

// Start opens a flow for investor on listing. Closed listings are refused.
func (s *Service) Start(ctx context.Context, investor string, listing captable.Listing) (*Flow, error) {
	if listing.Status == captable.ListingClosed {
		return nil, fmt.Errorf("%w: %s", ErrListingClosed, listing.Company.Name)
	}
	f := newFlow(uuid.NewString(), investor, listing.Company, s.deps)
	rec := f.recordLocked()
	if err := s.deps.journal.Upsert(ctx, &rec); err != nil {
		s.deps.logger.Warn("journaling submission", "submission_id", f.id, "error", err)
	}
	s.registry.Add(f)
	s.deps.logger.Info("submission flow opened", "submission_id", f.id, "company_id", listing.Company.ID, "investor", investor)
	return f, nil
}

// Flow returns the open flow with id. Confirmed and cancelled flows are
// no longer open; use Record for them.
func (s *Service) Flow(id string) (*Flow, error) {
	f, ok := s.registry.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFlowNotFound, id)
	}
	return f, nil
}

// Cancel closes the flow with id and forgets it.
func (s *Service) Cancel(id string) error {
	f, err := s.Flow(id)
	if err != nil {
		return err
	}
	if err := f.Cancel(); err != nil {
		return err
	}
	s.registry.Remove(id)
	s.deps.logger.Info("submission flow cancelled", "submission_id", id)
	return nil
}

// Record returns the journaled state of a flow, open or not.
func (s *Service) Record(ctx context.Context, id string) (*Record, error) {
	rec, err := s.deps.journal.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrFlowNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("reading submission %s: %w", id, err)
	}
	return rec, nil
}

// List returns journaled submissions.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Record, error) {
	recs, err := s.deps.journal.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}
	if recs == nil {
		recs = []Record{}
	}
	return recs, nil
}

type nopJournal struct{}

func (nopJournal) Upsert(context.Context, *Record) error { return nil }

func (nopJournal) Get(context.Context, string) (*Record, error) { return nil, repository.ErrNotFound }

func (nopJournal) List(context.Context, ListOptions) ([]Record, error) { return []Record{}, nil }

type nopInvalidator struct{}

func (nopInvalidator) Invalidate(string) {}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, string, activity.ActivityType, string, uint64, string, any) {
}
