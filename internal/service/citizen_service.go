package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"idstation-backend/internal/domain"
	"idstation-backend/internal/repository"
	"idstation-backend/internal/server/authctx"

	"github.com/google/uuid"
)

// ErrValidation wraps missing/invalid field failures.
var ErrValidation = errors.New("validation failed")

// ErrRoleDenied is returned when the caller's role may not perform an
// operation. The router gates routes by role too; services re-check so the
// rules hold no matter how they are reached.
var ErrRoleDenied = errors.New("operation not allowed for this role")

// CitizenStore is the persistence contract the citizen workflow needs.
// repository.CitizenRepository implements it against Postgres and
// repository.MemoryCitizenStore in memory.
type CitizenStore interface {
	Search(ctx context.Context, stationID *int64, q repository.CitizenQuery) ([]domain.Citizen, int64, error)
	GetByID(ctx context.Context, stationID *int64, id int64) (*domain.Citizen, error)
	Create(ctx context.Context, c domain.Citizen) (*domain.Citizen, error)
	Update(ctx context.Context, stationID *int64, id int64, c domain.Citizen) (*domain.Citizen, error)
	Delete(ctx context.Context, stationID *int64, id int64) error
	SetVerification(ctx context.Context, stationID *int64, id int64, status domain.Status) (*domain.Citizen, error)
}

// AuditSink records workflow transitions. Optional; a nil sink disables
// auditing.
type AuditSink interface {
	Create(ctx context.Context, in repository.CreateAuditInput) (int64, error)
}

type CitizenService struct {
	Citizens CitizenStore
	Audit    AuditSink
	Logger   *slog.Logger
}

type CitizenFields struct {
	RegNumber         string
	FirstName         string
	MiddleName        string
	LastName          string
	Gender            string
	BirthDate         time.Time
	BirthPlace        string
	Occupation        string
	Phone             string
	EmergencyName     string
	EmergencyPhone    string
	EmergencyRelation string
	PhotoRef          string
}

func (f CitizenFields) validate() error {
	required := []struct {
		name  string
		empty bool
	}{
		{"regNumber", f.RegNumber == ""},
		{"firstName", f.FirstName == ""},
		{"lastName", f.LastName == ""},
		{"gender", f.Gender == ""},
		{"birthDate", f.BirthDate.IsZero()},
		{"phone", f.Phone == ""},
	}
	for _, r := range required {
		if r.empty {
			return fmt.Errorf("%w: %s is required", ErrValidation, r.name)
		}
	}
	return nil
}

// Search lists citizens in the caller's station; superAdmin sees all.
func (s CitizenService) Search(ctx context.Context, user authctx.CurrentUser, q repository.CitizenQuery) ([]domain.Citizen, int64, error) {
	scope, err := user.StationScope()
	if err != nil {
		return nil, 0, err
	}
	return s.Citizens.Search(ctx, scope, q)
}

func (s CitizenService) GetByID(ctx context.Context, user authctx.CurrentUser, id int64) (*domain.Citizen, error) {
	scope, err := user.StationScope()
	if err != nil {
		return nil, err
	}
	return s.Citizens.GetByID(ctx, scope, id)
}

// Create registers a citizen in the caller's station with verification
// PENDING and a freshly generated barcode payload.
func (s CitizenService) Create(ctx context.Context, user authctx.CurrentUser, in CitizenFields) (*domain.Citizen, error) {
	if !user.Is(domain.RoleRegistrar, domain.RoleStationAdmin) {
		return nil, ErrRoleDenied
	}
	scope, err := user.StationScope()
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	created, err := s.Citizens.Create(ctx, domain.Citizen{
		StationID:         *scope,
		RegNumber:         in.RegNumber,
		FirstName:         in.FirstName,
		MiddleName:        in.MiddleName,
		LastName:          in.LastName,
		Gender:            in.Gender,
		BirthDate:         in.BirthDate,
		BirthPlace:        in.BirthPlace,
		Occupation:        in.Occupation,
		Phone:             in.Phone,
		EmergencyName:     in.EmergencyName,
		EmergencyPhone:    in.EmergencyPhone,
		EmergencyRelation: in.EmergencyRelation,
		PhotoRef:          in.PhotoRef,
		Barcode:           uuid.NewString(),
		IsVerified:        domain.StatusPending,
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, user, "citizen.create", created.ID, created.RegNumber)
	return created, nil
}

// Update replaces the editable fields of a citizen in the caller's station.
func (s CitizenService) Update(ctx context.Context, user authctx.CurrentUser, id int64, in CitizenFields) (*domain.Citizen, error) {
	if !user.Is(domain.RoleRegistrar, domain.RoleStationAdmin) {
		return nil, ErrRoleDenied
	}
	scope, err := user.StationScope()
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	updated, err := s.Citizens.Update(ctx, scope, id, domain.Citizen{
		RegNumber:         in.RegNumber,
		FirstName:         in.FirstName,
		MiddleName:        in.MiddleName,
		LastName:          in.LastName,
		Gender:            in.Gender,
		BirthDate:         in.BirthDate,
		BirthPlace:        in.BirthPlace,
		Occupation:        in.Occupation,
		Phone:             in.Phone,
		EmergencyName:     in.EmergencyName,
		EmergencyPhone:    in.EmergencyPhone,
		EmergencyRelation: in.EmergencyRelation,
		PhotoRef:          in.PhotoRef,
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, user, "citizen.update", updated.ID, updated.RegNumber)
	return updated, nil
}

func (s CitizenService) Delete(ctx context.Context, user authctx.CurrentUser, id int64) error {
	if !user.Is(domain.RoleRegistrar, domain.RoleStationAdmin) {
		return ErrRoleDenied
	}
	scope, err := user.StationScope()
	if err != nil {
		return err
	}
	if err := s.Citizens.Delete(ctx, scope, id); err != nil {
		return err
	}
	s.record(ctx, user, "citizen.delete", id, "")
	return nil
}

// SetVerification assigns the verification state. Admin-only. Re-applying
// the current state succeeds without error.
func (s CitizenService) SetVerification(ctx context.Context, user authctx.CurrentUser, id int64, status domain.Status) (*domain.Citizen, error) {
	if !user.Is(domain.RoleStationAdmin, domain.RoleSuperAdmin, domain.RoleDeveloper) {
		return nil, ErrRoleDenied
	}
	if !domain.ValidStatus(status) {
		return nil, fmt.Errorf("%w: invalid verification status %q", ErrValidation, status)
	}
	scope, err := user.StationScope()
	if err != nil {
		return nil, err
	}
	updated, err := s.Citizens.SetVerification(ctx, scope, id, status)
	if err != nil {
		return nil, err
	}
	s.record(ctx, user, "citizen.verify."+string(status), id, updated.RegNumber)
	return updated, nil
}

func (s CitizenService) record(ctx context.Context, user authctx.CurrentUser, action string, entityID int64, detail string) {
	if s.Audit == nil {
		return
	}
	_, err := s.Audit.Create(ctx, repository.CreateAuditInput{
		StationID: user.StationID,
		Actor:     user.Username,
		Action:    action,
		Entity:    "citizen",
		EntityID:  entityID,
		Detail:    detail,
		Type:      domain.AuditInfo,
		Timestamp: time.Now(),
	})
	if err != nil && s.Logger != nil {
		s.Logger.Warn("audit write failed", "action", action, "err", err)
	}
}
