// Package farm manages the farmers and parcels that inspections refer to.
package farm

import (
	"context"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agrocredit/backend/internal/application/txscope"
	"github.com/agrocredit/backend/internal/domain/farm"
	"github.com/agrocredit/backend/internal/domain/identity"
	"github.com/agrocredit/backend/internal/domain/shared"
	"github.com/agrocredit/backend/internal/domain/shared/valueobject"
	"github.com/agrocredit/backend/internal/infrastructure/csvimport"
	"github.com/agrocredit/backend/internal/infrastructure/telemetry"
)

// Import limits
const (
	MaxImportRows   = 5000
	MaxImportErrors = 100
)

// Import columns
const (
	ColIdentityNumber = "identity_number"
	ColName           = "name"
	ColPhone          = "phone"
	ColEmail          = "email"
	ColAddress        = "address"
)

// Service manages farmers and parcels
type Service struct {
	scope   txscope.TransactionScope
	farmers farm.FarmerRepository
	parcels farm.ParcelRepository
	logger  *zap.Logger
}

// NewService creates a new farm Service
func NewService(scope txscope.TransactionScope, farmers farm.FarmerRepository, parcels farm.ParcelRepository, logger *zap.Logger) *Service {
	return &Service{
		scope:   scope,
		farmers: farmers,
		parcels: parcels,
		logger:  logger,
	}
}

// CreateFarmer registers a farmer; identity numbers are unique
func (s *Service) CreateFarmer(ctx context.Context, actor identity.Actor, req CreateFarmerRequest) (*FarmerResponse, error) {
	if err := actor.Require(identity.PermFarmWrite); err != nil {
		return nil, err
	}
	f, err := farm.NewFarmer(req.IdentityNumber, farm.Contact{
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   req.Email,
		Address: req.Address,
	})
	if err != nil {
		return nil, err
	}

	err = s.scope.Execute(ctx, func(repos txscope.Repositories) error {
		existing, err := repos.Farmers().FindByIdentityNumber(ctx, f.IdentityNumber.String())
		if err != nil {
			return err
		}
		if existing != nil {
			return shared.NewDomainError(shared.KindAlreadyExists, "FARMER_EXISTS", "a farmer with this identity number already exists")
		}
		return repos.Farmers().Save(ctx, f)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Farmer created", zap.String("farmer_id", f.ID.String()))
	resp := ToFarmerResponse(f)
	return &resp, nil
}

// UpdateFarmer replaces the contact data of a farmer
func (s *Service) UpdateFarmer(ctx context.Context, actor identity.Actor, id uuid.UUID, req UpdateFarmerRequest) (*FarmerResponse, error) {
	if err := actor.Require(identity.PermFarmWrite); err != nil {
		return nil, err
	}

	var f *farm.Farmer
	err := s.scope.Execute(ctx, func(repos txscope.Repositories) error {
		var err error
		f, err = repos.Farmers().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if f == nil {
			return shared.NewNotFoundError("farmer")
		}
		if err := f.UpdateContact(farm.Contact{
			Name:    req.Name,
			Phone:   req.Phone,
			Email:   req.Email,
			Address: req.Address,
		}); err != nil {
			return err
		}
		return repos.Farmers().Save(ctx, f)
	})
	if err != nil {
		return nil, err
	}
	resp := ToFarmerResponse(f)
	return &resp, nil
}

// GetFarmer returns one farmer
func (s *Service) GetFarmer(ctx context.Context, actor identity.Actor, id uuid.UUID) (*FarmerResponse, error) {
	if err := actor.Require(identity.PermFarmWrite); err != nil {
		return nil, err
	}
	f, err := s.farmers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, shared.NewNotFoundError("farmer")
	}
	resp := ToFarmerResponse(f)
	return &resp, nil
}

// ListFarmers returns a page of farmers
func (s *Service) ListFarmers(ctx context.Context, actor identity.Actor, query ListFarmersQuery) (*shared.Paginated[FarmerResponse], error) {
	if err := actor.Require(identity.PermFarmWrite); err != nil {
		return nil, err
	}
	filter := query.toFilter()
	items, total, err := s.farmers.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]FarmerResponse, len(items))
	for i := range items {
		out[i] = ToFarmerResponse(&items[i])
	}
	page := shared.NewPaginated(out, total, filter.Page)
	return &page, nil
}

// CreateParcel adds a parcel to an existing farmer
func (s *Service) CreateParcel(ctx context.Context, actor identity.Actor, farmerID uuid.UUID, req CreateParcelRequest) (*ParcelResponse, error) {
	if err := actor.Require(identity.PermFarmWrite); err != nil {
		return nil, err
	}
	p, err := farm.NewParcel(farmerID, req.Name, req.Crop, req.Location, req.AreaHectares)
	if err != nil {
		return nil, err
	}

	err = s.scope.Execute(ctx, func(repos txscope.Repositories) error {
		owner, err := repos.Farmers().FindByID(ctx, farmerID)
		if err != nil {
			return err
		}
		if owner == nil {
			return shared.NewNotFoundError("farmer")
		}
		return repos.Parcels().Save(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Parcel created",
		zap.String("parcel_id", p.ID.String()),
		zap.String("farmer_id", farmerID.String()),
	)
	resp := ToParcelResponse(p)
	return &resp, nil
}

// ListParcels returns every parcel of a farmer
func (s *Service) ListParcels(ctx context.Context, actor identity.Actor, farmerID uuid.UUID) ([]ParcelResponse, error) {
	if err := actor.Require(identity.PermFarmWrite); err != nil {
		return nil, err
	}
	parcels, err := s.parcels.FindByFarmer(ctx, farmerID)
	if err != nil {
		return nil, err
	}
	out := make([]ParcelResponse, len(parcels))
	for i := range parcels {
		out[i] = ToParcelResponse(&parcels[i])
	}
	return out, nil
}

// ImportFarmers registers the farmers of a CSV upload. Rows failing
// validation are reported and left out; identity numbers already registered
// are skipped. Valid rows are written in one transaction.
func (s *Service) ImportFarmers(ctx context.Context, actor identity.Actor, r io.Reader) (*ImportResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "farm", "import_farmers")
	defer span.End()

	if err := actor.Require(identity.PermFarmWrite); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	parser, err := csvimport.NewParser(r)
	if err != nil {
		err = shared.NewValidationError("INVALID_FILE", err.Error())
		telemetry.RecordError(span, err)
		return nil, err
	}
	if missing := parser.Missing(ColIdentityNumber, ColName); len(missing) > 0 {
		err := shared.NewValidationError("MISSING_COLUMNS", "missing required columns: "+strings.Join(missing, ", "))
		telemetry.RecordError(span, err)
		return nil, err
	}
	rows, err := parser.Rows(MaxImportRows)
	if err != nil {
		err = shared.NewValidationError("INVALID_FILE", err.Error())
		telemetry.RecordError(span, err)
		return nil, err
	}

	errs := csvimport.NewErrorCollection(MaxImportErrors)
	validator := csvimport.NewValidator(farmerImportRules(), errs)
	result := &ImportResult{TotalRows: len(rows)}

	var candidates []*farm.Farmer
	var lines []int
	for _, row := range rows {
		if !validator.Validate(row) {
			continue
		}
		f, err := farm.NewFarmer(row.Get(ColIdentityNumber), farm.Contact{
			Name:    row.Get(ColName),
			Phone:   row.Get(ColPhone),
			Email:   row.Get(ColEmail),
			Address: row.Get(ColAddress),
		})
		if err != nil {
			errs.Add(csvimport.RowError{Row: row.Line, Code: csvimport.ErrCodeRejected, Message: err.Error()})
			continue
		}
		candidates = append(candidates, f)
		lines = append(lines, row.Line)
	}

	err = s.scope.Execute(ctx, func(repos txscope.Repositories) error {
		result.Created, result.Skipped = 0, 0
		for _, f := range candidates {
			existing, err := repos.Farmers().FindByIdentityNumber(ctx, f.IdentityNumber.String())
			if err != nil {
				return err
			}
			if existing != nil {
				result.Skipped++
				continue
			}
			if err := repos.Farmers().Save(ctx, f); err != nil {
				return err
			}
			result.Created++
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result.Errors = errs.Errors()
	result.TotalErrors = errs.TotalCount()
	result.IsTruncated = errs.IsTruncated()
	telemetry.SetAttributes(span, "rows", result.TotalRows, "created", result.Created)
	telemetry.SetOK(span)
	s.logger.Info("Farmer import finished",
		zap.Int("rows", result.TotalRows),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", result.TotalErrors),
		zap.Ints("accepted_lines", lines),
	)
	return result, nil
}

func farmerImportRules() []csvimport.Rule {
	return []csvimport.Rule{
		csvimport.Column(ColIdentityNumber).Required().Unique().Check(func(v string) error {
			_, err := valueobject.NewIdentityNumber(v)
			return err
		}).Build(),
		csvimport.Column(ColName).Required().MaxLength(200).Build(),
		csvimport.Column(ColPhone).MaxLength(50).Build(),
		csvimport.Column(ColEmail).Email().MaxLength(200).Build(),
		csvimport.Column(ColAddress).MaxLength(500).Build(),
	}
}
