/*
Package service orchestrates the Repository and the scheduling engine.

PURPOSE:
  The engine packages are pure. This layer loads what they need, runs them,
  persists the result and logs what happened. The REST adapter and the
  weekly draft job both call into it.

SERIALIZATION:
  generate, updateShift, publish and the approval decisions read-then-write
  one Schedule aggregate. They are serialized per (establishment, week) with
  an in-process keyed mutex. Operations addressed by schedule id resolve the
  week first, take the lock, then re-read.

TRANSACTIONS:
  Approving a schedule applies each employee's hours delta to their debt.
  That runs inside Repository.WithTx so either every employee and the
  schedule are written or none are.

LOGGING:
  logrus, one entry per mutation with establishment_id / week_start /
  schedule_id fields. Engine packages never log.

SEE ALSO:
  - schedules.go: schedule lifecycle operations
  - report.go: validation report returned alongside schedules
*/
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/warp/shift-engine/calendar"
	"github.com/warp/shift-engine/restriction"
	"github.com/warp/shift-engine/schedule"
	"github.com/warp/shift-engine/timeoff"
)

// Service is safe for concurrent use.
type Service struct {
	repo  schedule.TxRepository
	log   logrus.FieldLogger
	newID func() string
	locks keyedMutex
}

// Option configures a Service.
type Option func(*Service)

// WithIDGenerator replaces uuid.NewString, mainly for tests.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// New creates a service over repo. A nil logger discards output.
func New(repo schedule.TxRepository, log logrus.FieldLogger, opts ...Option) *Service {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	s := &Service{
		repo:  repo,
		log:   log,
		newID: uuid.NewString,
		locks: keyedMutex{locks: make(map[string]*sync.Mutex)},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// =============================================================================
// KEYED MUTEX
// =============================================================================

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// lock blocks until key is free and returns its unlock function.
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func weekKey(establishmentID string, weekStart calendar.Date) string {
	return establishmentID + "|" + calendar.WeekStart(weekStart).String()
}

func employeeKey(employeeID string) string { return "employee|" + employeeID }

// =============================================================================
// SETTINGS
// =============================================================================

// Settings returns the establishment's settings, or the defaults when none
// were saved.
func (s *Service) Settings(ctx context.Context, establishmentID string) (schedule.Settings, error) {
	settings, err := s.repo.GetSettings(ctx, establishmentID)
	if errors.Is(err, schedule.ErrNotFound) {
		return schedule.DefaultSettings(), nil
	}
	if err != nil {
		return schedule.Settings{}, err
	}
	return settings.WithDefaults(), nil
}

// SaveSettings validates and stores settings.
func (s *Service) SaveSettings(ctx context.Context, establishmentID string, settings schedule.Settings) (schedule.Settings, error) {
	if establishmentID == "" {
		return schedule.Settings{}, fmt.Errorf("%w: establishment is required", schedule.ErrInvalidSettings)
	}
	if err := settings.Validate(); err != nil {
		return schedule.Settings{}, err
	}
	normalized := settings.WithDefaults()
	normalized.Holidays = nil
	for _, h := range settings.Holidays {
		normalized = normalized.WithHoliday(h)
	}
	if err := s.repo.SaveSettings(ctx, establishmentID, normalized); err != nil {
		return schedule.Settings{}, fmt.Errorf("failed to save settings: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"establishment_id": establishmentID,
		"holidays":         len(normalized.Holidays),
		"open_sundays":     len(normalized.OpenSundays),
	}).Info("settings saved")
	return normalized, nil
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (s *Service) ListEmployees(ctx context.Context, establishmentID string) ([]schedule.Employee, error) {
	return s.repo.ListEmployees(ctx, establishmentID)
}

func (s *Service) GetEmployee(ctx context.Context, id string) (schedule.Employee, error) {
	return s.repo.GetEmployee(ctx, id)
}

// SaveEmployee creates or replaces an employee. A blank id is generated.
func (s *Service) SaveEmployee(ctx context.Context, emp schedule.Employee) (schedule.Employee, error) {
	if emp.ID == "" {
		emp.ID = s.newID()
	}
	if emp.EstablishmentID == "" {
		return schedule.Employee{}, fmt.Errorf("%w: establishment is required", schedule.ErrInvalidEmployee)
	}
	if err := emp.Validate(); err != nil {
		return schedule.Employee{}, err
	}
	// Debt only moves on schedule approval.
	current, err := s.repo.GetEmployee(ctx, emp.ID)
	switch {
	case err == nil:
		emp.HoursDebt = current.HoursDebt
	case errors.Is(err, schedule.ErrNotFound):
		emp.HoursDebt = decimal.Zero
	default:
		return schedule.Employee{}, err
	}
	if len(emp.History) > 0 {
		emp.Active = emp.IsActiveOn(calendar.Today())
	}
	if err := s.repo.SaveEmployee(ctx, emp); err != nil {
		return schedule.Employee{}, fmt.Errorf("failed to save employee: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"establishment_id": emp.EstablishmentID,
		"employee_id":      emp.ID,
		"category":         emp.Category,
		"weekly_hours":     emp.WeeklyHours,
	}).Info("employee saved")
	return emp, nil
}

// AddHoursOverride adds a temporary contracted-hours override.
func (s *Service) AddHoursOverride(ctx context.Context, employeeID string, o schedule.HoursOverride) (schedule.Employee, error) {
	emp, err := s.repo.GetEmployee(ctx, employeeID)
	if err != nil {
		return schedule.Employee{}, err
	}
	if o.ID == "" {
		o.ID = s.newID()
	}
	updated, err := emp.WithHoursOverride(o)
	if err != nil {
		return schedule.Employee{}, err
	}
	if err := s.repo.SaveEmployee(ctx, updated); err != nil {
		return schedule.Employee{}, fmt.Errorf("failed to save employee: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"employee_id": employeeID,
		"override":    o.Range().String(),
		"hours":       o.Hours,
	}).Info("temporary hours added")
	return updated, nil
}

// =============================================================================
// REQUESTS
// =============================================================================

func (s *Service) ListPermanentRequests(ctx context.Context, establishmentID string) ([]schedule.PermanentRequest, error) {
	return s.repo.ListPermanentRequests(ctx, establishmentID)
}

// AddPermanentRequest checks the request's preconditions and stores it.
// Requests for the same employee are serialized so the checks see every
// earlier request.
func (s *Service) AddPermanentRequest(ctx context.Context, establishmentID string, req schedule.PermanentRequest) (schedule.PermanentRequest, error) {
	unlock := s.locks.lock(employeeKey(req.EmployeeID))
	defer unlock()

	var prepared schedule.PermanentRequest
	err := s.repo.WithTx(ctx, func(repo schedule.Repository) error {
		emp, err := employeeOf(ctx, repo, establishmentID, req.EmployeeID)
		if err != nil {
			return err
		}
		existing, err := repo.ListPermanentRequests(ctx, establishmentID)
		if err != nil {
			return err
		}
		if prepared, err = restriction.Prepare(emp, existing, req); err != nil {
			return err
		}
		if prepared.ID == "" {
			prepared.ID = s.newID()
		}
		if err := repo.SavePermanentRequest(ctx, establishmentID, prepared); err != nil {
			return fmt.Errorf("failed to save permanent request: %w", err)
		}
		return nil
	})
	if err != nil {
		return schedule.PermanentRequest{}, err
	}

	s.log.WithFields(logrus.Fields{
		"establishment_id": establishmentID,
		"employee_id":      prepared.EmployeeID,
		"type":             prepared.Type,
	}).Info("permanent request added")
	return prepared, nil
}

func (s *Service) ListTimeOff(ctx context.Context, establishmentID string) ([]schedule.TimeOffRequest, error) {
	return s.repo.ListTimeOffRequests(ctx, establishmentID)
}

// AddTimeOff checks overlap and quota rules and stores the request. Like
// AddPermanentRequest it is serialized per employee.
func (s *Service) AddTimeOff(ctx context.Context, establishmentID string, req schedule.TimeOffRequest) (schedule.TimeOffRequest, error) {
	unlock := s.locks.lock(employeeKey(req.EmployeeID))
	defer unlock()

	var prepared schedule.TimeOffRequest
	err := s.repo.WithTx(ctx, func(repo schedule.Repository) error {
		if _, err := employeeOf(ctx, repo, establishmentID, req.EmployeeID); err != nil {
			return err
		}
		existing, err := repo.ListTimeOffRequests(ctx, establishmentID)
		if err != nil {
			return err
		}
		if prepared, err = timeoff.Prepare(req, existing); err != nil {
			return err
		}
		if prepared.ID == "" {
			prepared.ID = s.newID()
		}
		if err := repo.SaveTimeOffRequest(ctx, establishmentID, prepared); err != nil {
			return fmt.Errorf("failed to save time-off request: %w", err)
		}
		return nil
	})
	if err != nil {
		return schedule.TimeOffRequest{}, err
	}

	span, _ := prepared.Span()
	s.log.WithFields(logrus.Fields{
		"establishment_id": establishmentID,
		"employee_id":      prepared.EmployeeID,
		"type":             prepared.Type,
		"span":             span.String(),
	}).Info("time off added")
	return prepared, nil
}

// employeeOf loads an employee and checks it belongs to the establishment.
func employeeOf(ctx context.Context, repo schedule.Repository, establishmentID, employeeID string) (schedule.Employee, error) {
	emp, err := repo.GetEmployee(ctx, employeeID)
	if err != nil {
		return schedule.Employee{}, err
	}
	if emp.EstablishmentID != establishmentID {
		return schedule.Employee{}, fmt.Errorf("%w: employee %s in establishment %s", schedule.ErrNotFound, employeeID, establishmentID)
	}
	return emp, nil
}
