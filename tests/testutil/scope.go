package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/agrocredit/backend/internal/application/txscope"
	"github.com/agrocredit/backend/internal/domain/eligibility"
	"github.com/agrocredit/backend/internal/domain/farm"
	"github.com/agrocredit/backend/internal/domain/financing"
	"github.com/agrocredit/backend/internal/domain/inspection"
	"github.com/agrocredit/backend/internal/domain/shared"
	"github.com/agrocredit/backend/internal/domain/subject"
)

// FakeScope runs transactions against mock repositories. Events recorded
// inside a transaction are kept only if the function returns nil.
type FakeScope struct {
	InspectionRepo *MockInspectionRepository
	SubjectRepo    *MockSubjectRepository
	EstimationRepo *MockEstimationRepository
	FinancingRepo  *MockFinancingRepository
	PaymentRepo    *MockPaymentRepository
	FarmerRepo     *MockFarmerRepository
	ParcelRepo     *MockParcelRepository

	mu        sync.Mutex
	executed  int
	committed []shared.DomainEvent
}

// NewFakeScope creates a scope with fresh mocks
func NewFakeScope() *FakeScope {
	return &FakeScope{
		InspectionRepo: new(MockInspectionRepository),
		SubjectRepo:    new(MockSubjectRepository),
		EstimationRepo: new(MockEstimationRepository),
		FinancingRepo:  new(MockFinancingRepository),
		PaymentRepo:    new(MockPaymentRepository),
		FarmerRepo:     new(MockFarmerRepository),
		ParcelRepo:     new(MockParcelRepository),
	}
}

// Execute implements txscope.TransactionScope
func (s *FakeScope) Execute(ctx context.Context, fn func(repos txscope.Repositories) error) error {
	s.mu.Lock()
	s.executed++
	s.mu.Unlock()

	tx := &fakeRepos{scope: s}
	if err := fn(tx); err != nil {
		return err
	}
	s.mu.Lock()
	s.committed = append(s.committed, tx.events...)
	s.mu.Unlock()
	return nil
}

// Executions returns how many transactions were started
func (s *FakeScope) Executions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.executed
}

// CommittedEvents returns the events of committed transactions
func (s *FakeScope) CommittedEvents() []shared.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]shared.DomainEvent(nil), s.committed...)
}

// CommittedEventTypes returns the type names of committed events in order
func (s *FakeScope) CommittedEventTypes() []string {
	events := s.CommittedEvents()
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.EventType()
	}
	return types
}

// AssertExpectations checks every mock repository
func (s *FakeScope) AssertExpectations(t *testing.T) {
	t.Helper()
	s.InspectionRepo.AssertExpectations(t)
	s.SubjectRepo.AssertExpectations(t)
	s.EstimationRepo.AssertExpectations(t)
	s.FinancingRepo.AssertExpectations(t)
	s.PaymentRepo.AssertExpectations(t)
	s.FarmerRepo.AssertExpectations(t)
	s.ParcelRepo.AssertExpectations(t)
}

type fakeRepos struct {
	scope  *FakeScope
	events []shared.DomainEvent
}

func (r *fakeRepos) Inspections() inspection.Repository            { return r.scope.InspectionRepo }
func (r *fakeRepos) Subjects() subject.Repository                  { return r.scope.SubjectRepo }
func (r *fakeRepos) Estimations() eligibility.EstimationRepository { return r.scope.EstimationRepo }
func (r *fakeRepos) Financings() financing.Repository              { return r.scope.FinancingRepo }
func (r *fakeRepos) Payments() financing.PaymentRepository         { return r.scope.PaymentRepo }
func (r *fakeRepos) Farmers() farm.FarmerRepository                { return r.scope.FarmerRepo }
func (r *fakeRepos) Parcels() farm.ParcelRepository                { return r.scope.ParcelRepo }
func (r *fakeRepos) Events() txscope.EventRecorder                 { return r }

func (r *fakeRepos) Record(_ context.Context, events ...shared.DomainEvent) error {
	r.events = append(r.events, events...)
	return nil
}

var _ txscope.TransactionScope = (*FakeScope)(nil)
