// Package memory provides an in-memory schedule.TxRepository.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/shift-engine/calendar"
	"github.com/warp/shift-engine/schedule"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Store guards a state with a mutex. Values are copied on the way in and
// out so callers never share slices with the store.
type Store struct {
	mu sync.RWMutex
	st state
}

type state struct {
	settings  map[string]schedule.Settings
	employees map[string]schedule.Employee
	permanent map[string][]schedule.PermanentRequest // by establishment
	timeOff   map[string][]schedule.TimeOffRequest   // by establishment
	schedules map[string]*schedule.Schedule
}

func New() *Store {
	return &Store{st: newState()}
}

func newState() state {
	return state{
		settings:  make(map[string]schedule.Settings),
		employees: make(map[string]schedule.Employee),
		permanent: make(map[string][]schedule.PermanentRequest),
		timeOff:   make(map[string][]schedule.TimeOffRequest),
		schedules: make(map[string]*schedule.Schedule),
	}
}

func (m *Store) GetSettings(ctx context.Context, establishmentID string) (schedule.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.GetSettings(ctx, establishmentID)
}

func (m *Store) SaveSettings(ctx context.Context, establishmentID string, settings schedule.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.SaveSettings(ctx, establishmentID, settings)
}

func (m *Store) ListEstablishments(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.ListEstablishments(ctx)
}

func (m *Store) ListEmployees(ctx context.Context, establishmentID string) ([]schedule.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.ListEmployees(ctx, establishmentID)
}

func (m *Store) GetEmployee(ctx context.Context, id string) (schedule.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.GetEmployee(ctx, id)
}

func (m *Store) SaveEmployee(ctx context.Context, employee schedule.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.SaveEmployee(ctx, employee)
}

func (m *Store) ListPermanentRequests(ctx context.Context, establishmentID string) ([]schedule.PermanentRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.ListPermanentRequests(ctx, establishmentID)
}

func (m *Store) SavePermanentRequest(ctx context.Context, establishmentID string, request schedule.PermanentRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.SavePermanentRequest(ctx, establishmentID, request)
}

func (m *Store) ListTimeOffRequests(ctx context.Context, establishmentID string) ([]schedule.TimeOffRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.ListTimeOffRequests(ctx, establishmentID)
}

func (m *Store) SaveTimeOffRequest(ctx context.Context, establishmentID string, request schedule.TimeOffRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.SaveTimeOffRequest(ctx, establishmentID, request)
}

func (m *Store) FindSchedule(ctx context.Context, establishmentID string, weekStart calendar.Date) (*schedule.Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.FindSchedule(ctx, establishmentID, weekStart)
}

func (m *Store) GetSchedule(ctx context.Context, id string) (*schedule.Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.GetSchedule(ctx, id)
}

func (m *Store) SaveSchedule(ctx context.Context, s *schedule.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.SaveSchedule(ctx, s)
}

func (m *Store) DeleteSchedule(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.DeleteSchedule(ctx, id)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Store) WithTx(ctx context.Context, fn func(repo schedule.Repository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.st.snapshot()

	// The view writes straight into the state; the store lock is held.
	if err := fn(&m.st); err != nil {
		m.st = snapshot
		return err
	}
	return nil
}

func (st *state) snapshot() state {
	out := newState()
	for k, v := range st.settings {
		out.settings[k] = v
	}
	for k, v := range st.employees {
		out.employees[k] = v
	}
	for k, v := range st.permanent {
		out.permanent[k] = append([]schedule.PermanentRequest(nil), v...)
	}
	for k, v := range st.timeOff {
		out.timeOff[k] = append([]schedule.TimeOffRequest(nil), v...)
	}
	for k, v := range st.schedules {
		out.schedules[k] = v
	}
	return out
}

// =============================================================================
// STATE - unlocked Repository, used directly inside WithTx
// =============================================================================

func (st *state) GetSettings(_ context.Context, establishmentID string) (schedule.Settings, error) {
	s, ok := st.settings[establishmentID]
	if !ok {
		return schedule.Settings{}, fmt.Errorf("%w: settings for establishment %s", schedule.ErrNotFound, establishmentID)
	}
	return copySettings(s), nil
}

func (st *state) SaveSettings(_ context.Context, establishmentID string, settings schedule.Settings) error {
	st.settings[establishmentID] = copySettings(settings)
	return nil
}

// ListEstablishments returns every establishment with settings or staff.
func (st *state) ListEstablishments(_ context.Context) ([]string, error) {
	seen := make(map[string]bool)
	for id := range st.settings {
		seen[id] = true
	}
	for _, e := range st.employees {
		seen[e.EstablishmentID] = true
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (st *state) ListEmployees(_ context.Context, establishmentID string) ([]schedule.Employee, error) {
	var out []schedule.Employee
	for _, e := range st.employees {
		if e.EstablishmentID == establishmentID {
			out = append(out, copyEmployee(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (st *state) GetEmployee(_ context.Context, id string) (schedule.Employee, error) {
	e, ok := st.employees[id]
	if !ok {
		return schedule.Employee{}, fmt.Errorf("%w: employee %s", schedule.ErrNotFound, id)
	}
	return copyEmployee(e), nil
}

func (st *state) SaveEmployee(_ context.Context, employee schedule.Employee) error {
	st.employees[employee.ID] = copyEmployee(employee)
	return nil
}

func (st *state) ListPermanentRequests(_ context.Context, establishmentID string) ([]schedule.PermanentRequest, error) {
	var out []schedule.PermanentRequest
	for _, r := range st.permanent[establishmentID] {
		out = append(out, copyPermanent(r))
	}
	return out, nil
}

func (st *state) SavePermanentRequest(_ context.Context, establishmentID string, request schedule.PermanentRequest) error {
	list := st.permanent[establishmentID]
	for i, r := range list {
		if r.ID == request.ID {
			list[i] = copyPermanent(request)
			return nil
		}
	}
	st.permanent[establishmentID] = append(list, copyPermanent(request))
	return nil
}

func (st *state) ListTimeOffRequests(_ context.Context, establishmentID string) ([]schedule.TimeOffRequest, error) {
	var out []schedule.TimeOffRequest
	for _, r := range st.timeOff[establishmentID] {
		out = append(out, copyTimeOff(r))
	}
	return out, nil
}

func (st *state) SaveTimeOffRequest(_ context.Context, establishmentID string, request schedule.TimeOffRequest) error {
	list := st.timeOff[establishmentID]
	for i, r := range list {
		if r.ID == request.ID {
			list[i] = copyTimeOff(request)
			return nil
		}
	}
	st.timeOff[establishmentID] = append(list, copyTimeOff(request))
	return nil
}

// FindSchedule returns (nil, nil) when the week has none.
func (st *state) FindSchedule(_ context.Context, establishmentID string, weekStart calendar.Date) (*schedule.Schedule, error) {
	monday := calendar.WeekStart(weekStart)
	for _, s := range st.schedules {
		if s.EstablishmentID == establishmentID && s.WeekStartDate.Equal(monday) {
			return s.Clone(), nil
		}
	}
	return nil, nil
}

func (st *state) GetSchedule(_ context.Context, id string) (*schedule.Schedule, error) {
	s, ok := st.schedules[id]
	if !ok {
		return nil, fmt.Errorf("%w: schedule %s", schedule.ErrNotFound, id)
	}
	return s.Clone(), nil
}

// SaveSchedule replaces the schedule and all its shifts. A second schedule
// for the same establishment week is rejected.
func (st *state) SaveSchedule(_ context.Context, s *schedule.Schedule) error {
	for id, other := range st.schedules {
		if id != s.ID && other.EstablishmentID == s.EstablishmentID && other.WeekStartDate.Equal(s.WeekStartDate) {
			return &schedule.AlreadyExistsError{
				EstablishmentID: s.EstablishmentID,
				WeekStart:       s.WeekStartDate,
				ScheduleID:      id,
			}
		}
	}
	st.schedules[s.ID] = s.Clone()
	return nil
}

func (st *state) DeleteSchedule(_ context.Context, id string) error {
	if _, ok := st.schedules[id]; !ok {
		return fmt.Errorf("%w: schedule %s", schedule.ErrNotFound, id)
	}
	delete(st.schedules, id)
	return nil
}

// =============================================================================
// COPY HELPERS
// =============================================================================

func copySettings(s schedule.Settings) schedule.Settings {
	out := s
	out.Holidays = append([]schedule.Holiday(nil), s.Holidays...)
	out.OpenSundays = append([]calendar.Date(nil), s.OpenSundays...)
	if s.RoleSchedules != nil {
		out.RoleSchedules = make(map[schedule.Role]schedule.TimeTemplate, len(s.RoleSchedules))
		for k, v := range s.RoleSchedules {
			out.RoleSchedules[k] = v
		}
	}
	return out
}

func copyEmployee(e schedule.Employee) schedule.Employee {
	out := e
	out.HoursOverrides = append([]schedule.HoursOverride(nil), e.HoursOverrides...)
	out.History = append([]schedule.EmploymentEvent(nil), e.History...)
	return out
}

func copyPermanent(r schedule.PermanentRequest) schedule.PermanentRequest {
	out := r
	out.Days = append([]int(nil), r.Days...)
	out.CycleWeeks = make([]schedule.CycleWeek, len(r.CycleWeeks))
	for i, w := range r.CycleWeeks {
		out.CycleWeeks[i] = schedule.CycleWeek{Days: append([]int(nil), w.Days...)}
	}
	if r.CycleWeeks == nil {
		out.CycleWeeks = nil
	}
	return out
}

func copyTimeOff(r schedule.TimeOffRequest) schedule.TimeOffRequest {
	out := r
	out.Dates = append([]calendar.Date(nil), r.Dates...)
	return out
}
