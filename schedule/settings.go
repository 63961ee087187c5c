/*
settings.go - Time & Settings Model (per-establishment configuration)

PURPOSE:
  Immutable configuration read by every engine component: opening hours per
  shift type, the holiday calendar, extra open Sundays, per-role time
  templates and the individual-meeting start time.

HOLIDAY NORMALIZATION:
  Stored and received holidays come in two JSON shapes:
    "2025-12-25"                                   -> full closure
    {"date": "2025-12-24", "type": "full"}          -> full closure
    {"date": "2025-12-24", "type": "afternoon"}     -> afternoon-only closure
    {"date": "2025-12-24", "type": "closed_afternoon"} -> afternoon-only closure
  Both are decoded once, here, into Holiday{Date, Kind}. Nothing downstream
  inspects raw JSON.

DEFAULTS:
  morning 10:00-14:00, afternoon 16:00-20:00, early morning start 09:00.

SEE ALSO:
  - hours/calculator.go: afternoon closures reduce 40h targets
  - coverage/validator.go: closed days are skipped
*/
package schedule

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/warp/shift-engine/calendar"
)

const (
	DefaultMorningStart      = "10:00"
	DefaultMorningEnd        = "14:00"
	DefaultAfternoonStart    = "16:00"
	DefaultAfternoonEnd      = "20:00"
	DefaultEarlyMorningStart = "09:00"

	// EarlyMorningBlockHours is the length of an early-morning shift.
	EarlyMorningBlockHours = 5
)

// =============================================================================
// HOLIDAY
// =============================================================================

type HolidayKind string

const (
	HolidayFull          HolidayKind = "full"
	HolidayAfternoonOnly HolidayKind = "afternoon"
)

type Holiday struct {
	Date calendar.Date `json:"date"`
	Kind HolidayKind   `json:"type"`
}

func (h *Holiday) UnmarshalJSON(b []byte) error {
	var plain string
	if err := json.Unmarshal(b, &plain); err == nil {
		d, err := calendar.ParseDate(plain)
		if err != nil {
			return err
		}
		*h = Holiday{Date: d, Kind: HolidayFull}
		return nil
	}

	var obj struct {
		Date calendar.Date `json:"date"`
		Type string        `json:"type"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("holiday must be a date string or {date,type}: %w", err)
	}
	if obj.Date.IsZero() {
		return fmt.Errorf("holiday is missing its date")
	}
	kind, err := parseHolidayKind(obj.Type)
	if err != nil {
		return err
	}
	*h = Holiday{Date: obj.Date, Kind: kind}
	return nil
}

func parseHolidayKind(s string) (HolidayKind, error) {
	switch s {
	case "", "full":
		return HolidayFull, nil
	case "afternoon", "closed_afternoon":
		return HolidayAfternoonOnly, nil
	}
	return "", fmt.Errorf("unknown holiday type %q", s)
}

// =============================================================================
// SETTINGS
// =============================================================================

type OpeningHours struct {
	MorningStart   string `json:"morningStart"`
	MorningEnd     string `json:"morningEnd"`
	AfternoonStart string `json:"afternoonStart"`
	AfternoonEnd   string `json:"afternoonEnd"`
}

// TimeTemplate gives the times used for a role. Split fields are optional.
type TimeTemplate struct {
	StartTime          string `json:"startTime"`
	EndTime            string `json:"endTime"`
	MorningEndTime     string `json:"morningEndTime,omitempty"`
	AfternoonStartTime string `json:"afternoonStartTime,omitempty"`
}

type Settings struct {
	OpeningHours               OpeningHours          `json:"openingHours"`
	Holidays                   []Holiday             `json:"holidays"`
	OpenSundays                []calendar.Date       `json:"openSundays"`
	RoleSchedules              map[Role]TimeTemplate `json:"roleSchedules,omitempty"`
	IndividualMeetingStartTime string                `json:"individualMeetingStartTime,omitempty"`
	EarlyMorningStart          string                `json:"earlyMorningStart,omitempty"`
}

// DefaultSettings is used for establishments that never saved settings.
func DefaultSettings() Settings {
	return Settings{}.WithDefaults()
}

// WithDefaults fills blank times.
func (s Settings) WithDefaults() Settings {
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&s.OpeningHours.MorningStart, DefaultMorningStart)
	fill(&s.OpeningHours.MorningEnd, DefaultMorningEnd)
	fill(&s.OpeningHours.AfternoonStart, DefaultAfternoonStart)
	fill(&s.OpeningHours.AfternoonEnd, DefaultAfternoonEnd)
	fill(&s.EarlyMorningStart, DefaultEarlyMorningStart)
	return s
}

// Validate checks that the opening hours are ordered and parseable.
func (s Settings) Validate() error {
	oh := s.WithDefaults().OpeningHours
	prev := -1
	for _, v := range []string{oh.MorningStart, oh.MorningEnd, oh.AfternoonStart, oh.AfternoonEnd} {
		m, err := calendar.ParseClock(v)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
		}
		if m <= prev {
			return fmt.Errorf("%w: opening hours out of order", ErrInvalidSettings)
		}
		prev = m
	}
	for role, tpl := range s.RoleSchedules {
		if !role.Valid() || role == RoleNone {
			return fmt.Errorf("%w: unknown role %q", ErrInvalidSettings, role)
		}
		if !calendar.ClockBefore(tpl.StartTime, tpl.EndTime) {
			return fmt.Errorf("%w: template for %s has start %q not before end %q", ErrInvalidSettings, role, tpl.StartTime, tpl.EndTime)
		}
	}
	return nil
}

// HolidayOn returns the holiday kind for d.
func (s Settings) HolidayOn(d calendar.Date) (HolidayKind, bool) {
	for _, h := range s.Holidays {
		if h.Date.Equal(d) {
			return h.Kind, true
		}
	}
	return "", false
}

func (s Settings) IsFullHoliday(d calendar.Date) bool {
	k, ok := s.HolidayOn(d)
	return ok && k == HolidayFull
}

func (s Settings) IsAfternoonClosure(d calendar.Date) bool {
	k, ok := s.HolidayOn(d)
	return ok && k == HolidayAfternoonOnly
}

func (s Settings) IsOpenSunday(d calendar.Date) bool {
	for _, x := range s.OpenSundays {
		if x.Equal(d) {
			return true
		}
	}
	return false
}

// IsClosed is true for full holidays and for Sundays not listed as open.
func (s Settings) IsClosed(d calendar.Date) bool {
	if d.IsSunday() && !s.IsOpenSunday(d) {
		return true
	}
	return s.IsFullHoliday(d)
}

// WithHoliday returns a copy with h added or replacing the same date.
func (s Settings) WithHoliday(h Holiday) Settings {
	out := s
	out.Holidays = make([]Holiday, 0, len(s.Holidays)+1)
	for _, x := range s.Holidays {
		if !x.Date.Equal(h.Date) {
			out.Holidays = append(out.Holidays, x)
		}
	}
	out.Holidays = append(out.Holidays, h)
	sort.Slice(out.Holidays, func(i, j int) bool { return out.Holidays[i].Date.Before(out.Holidays[j].Date) })
	return out
}

// WithoutHoliday returns a copy without any holiday on d.
func (s Settings) WithoutHoliday(d calendar.Date) Settings {
	out := s
	out.Holidays = make([]Holiday, 0, len(s.Holidays))
	for _, x := range s.Holidays {
		if !x.Date.Equal(d) {
			out.Holidays = append(out.Holidays, x)
		}
	}
	return out
}
