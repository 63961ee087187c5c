package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/warp/shift-engine/calendar"
	"github.com/warp/shift-engine/coverage"
	"github.com/warp/shift-engine/generator"
	"github.com/warp/shift-engine/hours"
	"github.com/warp/shift-engine/schedule"
	"github.com/warp/shift-engine/timeoff"
)

// weekInputs is everything the engine reads for one establishment week.
type weekInputs struct {
	settings  schedule.Settings
	employees []schedule.Employee
	permanent []schedule.PermanentRequest
	timeOff   []schedule.TimeOffRequest
}

func (s *Service) loadWeek(ctx context.Context, repo schedule.Repository, establishmentID string, weekStart calendar.Date) (weekInputs, error) {
	var in weekInputs
	settings, err := repo.GetSettings(ctx, establishmentID)
	switch {
	case errors.Is(err, schedule.ErrNotFound):
		in.settings = schedule.DefaultSettings()
	case err != nil:
		return in, fmt.Errorf("failed to load settings: %w", err)
	default:
		in.settings = settings.WithDefaults()
	}

	if in.employees, err = repo.ListEmployees(ctx, establishmentID); err != nil {
		return in, fmt.Errorf("failed to load employees: %w", err)
	}
	if in.permanent, err = repo.ListPermanentRequests(ctx, establishmentID); err != nil {
		return in, fmt.Errorf("failed to load permanent requests: %w", err)
	}
	all, err := repo.ListTimeOffRequests(ctx, establishmentID)
	if err != nil {
		return in, fmt.Errorf("failed to load time off: %w", err)
	}
	in.timeOff = timeoff.InRange(all, calendar.Week(weekStart))
	return in, nil
}

// =============================================================================
// GENERATE
// =============================================================================

// CreateSchedule generates the draft for the week containing weekStart. With
// force an unlocked existing schedule is rebuilt from scratch. The soft
// validation report is returned with the schedule.
func (s *Service) CreateSchedule(ctx context.Context, establishmentID string, weekStart calendar.Date, force bool) (*schedule.Schedule, Report, error) {
	if establishmentID == "" || weekStart.IsZero() {
		return nil, Report{}, fmt.Errorf("%w: establishment and week are required", schedule.ErrInvalidSchedule)
	}
	monday := calendar.WeekStart(weekStart)
	unlock := s.locks.lock(weekKey(establishmentID, monday))
	defer unlock()

	existing, err := s.repo.FindSchedule(ctx, establishmentID, monday)
	if err != nil {
		return nil, Report{}, fmt.Errorf("failed to look up existing schedule: %w", err)
	}
	in, err := s.loadWeek(ctx, s.repo, establishmentID, monday)
	if err != nil {
		return nil, Report{}, err
	}

	generated, err := generator.Generate(generator.Input{
		EstablishmentID: establishmentID,
		WeekStart:       monday,
		Employees:       in.employees,
		Settings:        in.settings,
		Restrictions:    in.permanent,
		Absences:        in.timeOff,
		Existing:        existing,
		Force:           force,
		NewID:           s.newID,
	})
	if err != nil {
		return nil, Report{}, err
	}
	if err := s.repo.SaveSchedule(ctx, generated); err != nil {
		return nil, Report{}, fmt.Errorf("failed to save schedule: %w", err)
	}

	report := buildReport(generated, in, coverage.ModeSoft)
	s.log.WithFields(logrus.Fields{
		"establishment_id": establishmentID,
		"week_start":       monday.String(),
		"schedule_id":      generated.ID,
		"shifts":           len(generated.Shifts),
		"forced":           existing != nil,
		"warnings":         len(report.All()),
	}).Info("schedule generated")
	return generated, report, nil
}

// =============================================================================
// READ
// =============================================================================

func (s *Service) GetSchedule(ctx context.Context, id string) (*schedule.Schedule, error) {
	return s.repo.GetSchedule(ctx, id)
}

// FindSchedule returns the schedule of a week or an ErrNotFound error.
func (s *Service) FindSchedule(ctx context.Context, establishmentID string, weekStart calendar.Date) (*schedule.Schedule, error) {
	sch, err := s.repo.FindSchedule(ctx, establishmentID, weekStart)
	if err != nil {
		return nil, err
	}
	if sch == nil {
		return nil, fmt.Errorf("%w: no schedule for establishment %s, week of %s",
			schedule.ErrNotFound, establishmentID, calendar.WeekStart(weekStart))
	}
	return sch, nil
}

// Validate runs the validators in the given mode.
func (s *Service) Validate(ctx context.Context, id string, mode coverage.Mode) (Report, error) {
	sch, err := s.repo.GetSchedule(ctx, id)
	if err != nil {
		return Report{}, err
	}
	in, err := s.loadWeek(ctx, s.repo, sch.EstablishmentID, sch.WeekStartDate)
	if err != nil {
		return Report{}, err
	}
	return buildReport(sch, in, mode), nil
}

// Balances reports worked vs target hours for every employee with shifts in
// the schedule.
func (s *Service) Balances(ctx context.Context, id string) ([]hours.Balance, error) {
	sch, err := s.repo.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	in, err := s.loadWeek(ctx, s.repo, sch.EstablishmentID, sch.WeekStartDate)
	if err != nil {
		return nil, err
	}
	return balances(sch, in), nil
}

func balances(sch *schedule.Schedule, in weekInputs) []hours.Balance {
	var out []hours.Balance
	for _, emp := range schedule.SortByPriority(in.employees) {
		if len(sch.ShiftsFor(emp.ID)) == 0 {
			continue
		}
		out = append(out, hours.ComputeWeeklyBalance(emp, sch.WeekStartDate, sch.Shifts, in.settings.Holidays, in.timeOff))
	}
	return out
}

// =============================================================================
// MUTATIONS
// =============================================================================

// mutate serializes fn on the schedule's week and saves what it returns.
func (s *Service) mutate(ctx context.Context, id string, fn func(current *schedule.Schedule) (*schedule.Schedule, error)) (*schedule.Schedule, error) {
	peek, err := s.repo.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.lock(weekKey(peek.EstablishmentID, peek.WeekStartDate))
	defer unlock()

	current, err := s.repo.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := fn(current)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SaveSchedule(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to save schedule: %w", err)
	}
	return next, nil
}

// UpdateShift applies a partial update to one shift of an unlocked schedule.
func (s *Service) UpdateShift(ctx context.Context, id, shiftID string, patch schedule.ShiftPatch) (*schedule.Schedule, error) {
	next, err := s.mutate(ctx, id, func(current *schedule.Schedule) (*schedule.Schedule, error) {
		return current.WithShift(shiftID, patch)
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"schedule_id": id,
		"shift_id":    shiftID,
	}).Info("shift updated")
	return next, nil
}

// Publish validates in publish mode. Outstanding violations block the
// publish unless acknowledged is set.
func (s *Service) Publish(ctx context.Context, id string, acknowledged bool) (*schedule.Schedule, Report, error) {
	var report Report
	next, err := s.mutate(ctx, id, func(current *schedule.Schedule) (*schedule.Schedule, error) {
		if current.IsLocked() {
			return current.Publish()
		}
		in, err := s.loadWeek(ctx, s.repo, current.EstablishmentID, current.WeekStartDate)
		if err != nil {
			return nil, err
		}
		report = buildReport(current, in, coverage.ModePublish)
		if !report.Empty() && !acknowledged {
			return nil, &schedule.PublishBlockedError{ScheduleID: current.ID, Violations: report.All()}
		}
		return current.Publish()
	})
	if err != nil {
		return nil, report, err
	}
	s.log.WithFields(logrus.Fields{
		"establishment_id": next.EstablishmentID,
		"week_start":       next.WeekStartDate.String(),
		"schedule_id":      id,
		"acknowledged":     len(report.All()),
	}).Info("schedule published")
	return next, report, nil
}

// DecideApproval records the supervisor decision. Approval applies the
// week's hours deltas to employee debt in the same transaction.
func (s *Service) DecideApproval(ctx context.Context, id string, approved bool, notes string) (*schedule.Schedule, error) {
	peek, err := s.repo.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.lock(weekKey(peek.EstablishmentID, peek.WeekStartDate))
	defer unlock()

	var next *schedule.Schedule
	var adjusted int
	err = s.repo.WithTx(ctx, func(repo schedule.Repository) error {
		current, err := repo.GetSchedule(ctx, id)
		if err != nil {
			return err
		}
		next, err = current.DecideApproval(approved, notes)
		if err != nil {
			return err
		}
		if approved {
			if adjusted, err = s.applyDebt(ctx, repo, next); err != nil {
				return fmt.Errorf("failed to apply hours debt: %w", err)
			}
		}
		return repo.SaveSchedule(ctx, next)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"establishment_id": next.EstablishmentID,
		"week_start":       next.WeekStartDate.String(),
		"schedule_id":      id,
		"approval":         next.ApprovalStatus,
		"employees":        adjusted,
	}).Info("schedule reviewed")
	return next, nil
}

// applyDebt credits each employee with their delta minus whatever an
// earlier approval of the same schedule already credited, and records the
// new deltas on sch. Returns how many employees changed.
func (s *Service) applyDebt(ctx context.Context, repo schedule.Repository, sch *schedule.Schedule) (int, error) {
	in, err := s.loadWeek(ctx, repo, sch.EstablishmentID, sch.WeekStartDate)
	if err != nil {
		return 0, err
	}

	target := make(map[string]decimal.Decimal)
	for _, b := range balances(sch, in) {
		target[b.EmployeeID] = b.Delta
	}
	for empID := range sch.AppliedDebt {
		if _, ok := target[empID]; !ok {
			target[empID] = decimal.Zero
		}
	}

	adjusted := 0
	applied := make(map[string]decimal.Decimal, len(target))
	for empID, delta := range target {
		diff := delta.Sub(sch.AppliedDebt[empID])
		if !delta.IsZero() {
			applied[empID] = delta
		}
		if diff.IsZero() {
			continue
		}
		emp, err := repo.GetEmployee(ctx, empID)
		if err != nil {
			return 0, err
		}
		emp.HoursDebt = emp.HoursDebt.Add(diff)
		if err := repo.SaveEmployee(ctx, emp); err != nil {
			return 0, err
		}
		adjusted++
	}
	sch.AppliedDebt = applied
	return adjusted, nil
}

// RequestModification asks to reopen an approved schedule.
func (s *Service) RequestModification(ctx context.Context, id string) (*schedule.Schedule, error) {
	next, err := s.mutate(ctx, id, func(current *schedule.Schedule) (*schedule.Schedule, error) {
		return current.RequestModification()
	})
	if err != nil {
		return nil, err
	}
	s.log.WithField("schedule_id", id).Info("modification requested")
	return next, nil
}

// DecideModification grants or denies a modification request.
func (s *Service) DecideModification(ctx context.Context, id string, approved bool) (*schedule.Schedule, error) {
	next, err := s.mutate(ctx, id, func(current *schedule.Schedule) (*schedule.Schedule, error) {
		return current.DecideModification(approved)
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"schedule_id":  id,
		"modification": next.ModificationStatus,
	}).Info("modification decided")
	return next, nil
}

// =============================================================================
// WEEKLY DRAFTS
// =============================================================================

// DraftRun summarizes one GenerateDrafts pass.
type DraftRun struct {
	WeekStart calendar.Date `json:"weekStart"`
	Created   []string      `json:"created"`
	Skipped   []string      `json:"skipped"`
	Failed    []string      `json:"failed"`
}

// GenerateDrafts creates the week's draft for every known establishment.
// Weeks that already have a schedule are skipped, never forced.
func (s *Service) GenerateDrafts(ctx context.Context, weekStart calendar.Date) (DraftRun, error) {
	run := DraftRun{WeekStart: calendar.WeekStart(weekStart)}
	establishments, err := s.repo.ListEstablishments(ctx)
	if err != nil {
		return run, fmt.Errorf("failed to list establishments: %w", err)
	}

	for _, est := range establishments {
		if err := ctx.Err(); err != nil {
			return run, err
		}
		_, _, err := s.CreateSchedule(ctx, est, run.WeekStart, false)
		switch {
		case err == nil:
			run.Created = append(run.Created, est)
		case errors.Is(err, schedule.ErrScheduleExists), errors.Is(err, schedule.ErrScheduleLocked):
			run.Skipped = append(run.Skipped, est)
		default:
			run.Failed = append(run.Failed, est)
			s.log.WithError(err).WithField("establishment_id", est).Error("draft generation failed")
		}
	}

	s.log.WithFields(logrus.Fields{
		"week_start": run.WeekStart.String(),
		"created":    len(run.Created),
		"skipped":    len(run.Skipped),
		"failed":     len(run.Failed),
	}).Info("weekly drafts generated")
	return run, nil
}
