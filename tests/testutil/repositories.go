package testutil

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/agrocredit/backend/internal/domain/eligibility"
	"github.com/agrocredit/backend/internal/domain/farm"
	"github.com/agrocredit/backend/internal/domain/financing"
	"github.com/agrocredit/backend/internal/domain/inspection"
	"github.com/agrocredit/backend/internal/domain/kpi"
	"github.com/agrocredit/backend/internal/domain/subject"
)

// MockInspectionRepository is a testify mock of inspection.Repository
type MockInspectionRepository struct {
	mock.Mock
}

func (m *MockInspectionRepository) FindByID(ctx context.Context, id uuid.UUID) (*inspection.Inspection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inspection.Inspection), args.Error(1)
}

func (m *MockInspectionRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*inspection.Inspection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inspection.Inspection), args.Error(1)
}

func (m *MockInspectionRepository) FindAll(ctx context.Context, filter inspection.Filter) ([]inspection.Inspection, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]inspection.Inspection), args.Get(1).(int64), args.Error(2)
}

func (m *MockInspectionRepository) FindLatestByParcels(ctx context.Context, parcelIDs []uuid.UUID) (map[uuid.UUID]*inspection.Inspection, error) {
	args := m.Called(ctx, parcelIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]*inspection.Inspection), args.Error(1)
}

func (m *MockInspectionRepository) Create(ctx context.Context, i *inspection.Inspection) error {
	return m.Called(ctx, i).Error(0)
}

func (m *MockInspectionRepository) SaveWithLock(ctx context.Context, i *inspection.Inspection) error {
	return m.Called(ctx, i).Error(0)
}

// MockSubjectRepository is a testify mock of subject.Repository
type MockSubjectRepository struct {
	mock.Mock
}

func (m *MockSubjectRepository) FindByID(ctx context.Context, id uuid.UUID) (*subject.ProductiveSubject, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subject.ProductiveSubject), args.Error(1)
}

func (m *MockSubjectRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*subject.ProductiveSubject, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subject.ProductiveSubject), args.Error(1)
}

func (m *MockSubjectRepository) FindByIdentityNumberForUpdate(ctx context.Context, identityNumber string) (*subject.ProductiveSubject, error) {
	args := m.Called(ctx, identityNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subject.ProductiveSubject), args.Error(1)
}

func (m *MockSubjectRepository) InsertIfAbsent(ctx context.Context, s *subject.ProductiveSubject) (bool, error) {
	args := m.Called(ctx, s)
	return args.Bool(0), args.Error(1)
}

func (m *MockSubjectRepository) SaveWithLock(ctx context.Context, s *subject.ProductiveSubject) error {
	return m.Called(ctx, s).Error(0)
}

// MockEstimationRepository is a testify mock of eligibility.EstimationRepository
type MockEstimationRepository struct {
	mock.Mock
}

func (m *MockEstimationRepository) Upsert(ctx context.Context, e *eligibility.ParcelEstimation) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockEstimationRepository) FindByParcel(ctx context.Context, parcelID uuid.UUID) (*eligibility.ParcelEstimation, error) {
	args := m.Called(ctx, parcelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eligibility.ParcelEstimation), args.Error(1)
}

func (m *MockEstimationRepository) FindBySubject(ctx context.Context, subjectID uuid.UUID) ([]eligibility.ParcelEstimation, error) {
	args := m.Called(ctx, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]eligibility.ParcelEstimation), args.Error(1)
}

// MockFinancingRepository is a testify mock of financing.Repository
type MockFinancingRepository struct {
	mock.Mock
}

func (m *MockFinancingRepository) FindByID(ctx context.Context, id uuid.UUID) (*financing.Financing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*financing.Financing), args.Error(1)
}

func (m *MockFinancingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*financing.Financing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*financing.Financing), args.Error(1)
}

func (m *MockFinancingRepository) FindAll(ctx context.Context, filter financing.Filter) ([]financing.Financing, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]financing.Financing), args.Get(1).(int64), args.Error(2)
}

func (m *MockFinancingRepository) SumOpenPrincipal(ctx context.Context, subjectID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, subjectID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockFinancingRepository) FindOpenCreatedBefore(ctx context.Context, before time.Time, after *financing.ScanCursor, limit int) ([]financing.Financing, error) {
	args := m.Called(ctx, before, after, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]financing.Financing), args.Error(1)
}

func (m *MockFinancingRepository) Create(ctx context.Context, f *financing.Financing) error {
	return m.Called(ctx, f).Error(0)
}

func (m *MockFinancingRepository) SaveWithLock(ctx context.Context, f *financing.Financing) error {
	return m.Called(ctx, f).Error(0)
}

// MockPaymentRepository is a testify mock of financing.PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, p *financing.Payment) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockPaymentRepository) FindAll(ctx context.Context, filter financing.LedgerFilter) ([]financing.Payment, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]financing.Payment), args.Get(1).(int64), args.Error(2)
}

func (m *MockPaymentRepository) SumRetained(ctx context.Context, financingID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, financingID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockFarmerRepository is a testify mock of farm.FarmerRepository
type MockFarmerRepository struct {
	mock.Mock
}

func (m *MockFarmerRepository) FindByID(ctx context.Context, id uuid.UUID) (*farm.Farmer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*farm.Farmer), args.Error(1)
}

func (m *MockFarmerRepository) FindByIdentityNumber(ctx context.Context, identityNumber string) (*farm.Farmer, error) {
	args := m.Called(ctx, identityNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*farm.Farmer), args.Error(1)
}

func (m *MockFarmerRepository) FindAll(ctx context.Context, filter farm.FarmerFilter) ([]farm.Farmer, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]farm.Farmer), args.Get(1).(int64), args.Error(2)
}

func (m *MockFarmerRepository) Save(ctx context.Context, f *farm.Farmer) error {
	return m.Called(ctx, f).Error(0)
}

// MockParcelRepository is a testify mock of farm.ParcelRepository
type MockParcelRepository struct {
	mock.Mock
}

func (m *MockParcelRepository) FindByID(ctx context.Context, id uuid.UUID) (*farm.Parcel, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*farm.Parcel), args.Error(1)
}

func (m *MockParcelRepository) FindByFarmer(ctx context.Context, farmerID uuid.UUID) ([]farm.Parcel, error) {
	args := m.Called(ctx, farmerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]farm.Parcel), args.Error(1)
}

func (m *MockParcelRepository) Save(ctx context.Context, p *farm.Parcel) error {
	return m.Called(ctx, p).Error(0)
}

// MockKPIRepository is a testify mock of kpi.Repository
type MockKPIRepository struct {
	mock.Mock
}

func (m *MockKPIRepository) Totals(ctx context.Context, filter financing.LedgerFilter) (kpi.Totals, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(kpi.Totals), args.Error(1)
}
