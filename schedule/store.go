/*
store.go - Repository contract between the engine and persistence

PURPOSE:
  The engine itself is stateless: generator and validators take every entity
  as a parameter. The Repository is the boundary the service layer reads
  from and writes to. Implementations:
    - store/sqlite: database/sql + go-sqlite3
    - store/memory: in-memory, for tests and demos

AGGREGATE WRITES:
  A Schedule owns its shifts. SaveSchedule replaces the schedule row and ALL
  of its shifts in one write, so a schedule is never persisted half-updated.

TRANSACTIONS:
  TxRepository.WithTx runs fn against a transactional view. If fn returns an
  error nothing fn wrote is kept. Used when approving a schedule applies
  hours-debt changes to many employees at once.

NOT FOUND:
  Get* methods return an error wrapping ErrNotFound. FindSchedule returns
  (nil, nil) when the week has no schedule; that is the normal case before
  generation, not an error.
*/
package schedule

import (
	"context"

	"github.com/warp/shift-engine/calendar"
)

// Repository persists establishments' entities and schedules.
type Repository interface {
	// Settings
	GetSettings(ctx context.Context, establishmentID string) (Settings, error)
	SaveSettings(ctx context.Context, establishmentID string, settings Settings) error
	ListEstablishments(ctx context.Context) ([]string, error)

	// Employees
	ListEmployees(ctx context.Context, establishmentID string) ([]Employee, error)
	GetEmployee(ctx context.Context, id string) (Employee, error)
	SaveEmployee(ctx context.Context, employee Employee) error

	// Requests
	ListPermanentRequests(ctx context.Context, establishmentID string) ([]PermanentRequest, error)
	SavePermanentRequest(ctx context.Context, establishmentID string, request PermanentRequest) error
	ListTimeOffRequests(ctx context.Context, establishmentID string) ([]TimeOffRequest, error)
	SaveTimeOffRequest(ctx context.Context, establishmentID string, request TimeOffRequest) error

	// Schedules
	FindSchedule(ctx context.Context, establishmentID string, weekStart calendar.Date) (*Schedule, error)
	GetSchedule(ctx context.Context, id string) (*Schedule, error)
	SaveSchedule(ctx context.Context, s *Schedule) error
	DeleteSchedule(ctx context.Context, id string) error
}

// TxRepository adds all-or-nothing multi-write support.
type TxRepository interface {
	Repository

	// WithTx executes fn within a transaction.
	// If fn returns error, every write made through repo is rolled back.
	WithTx(ctx context.Context, fn func(repo Repository) error) error
}
