package entry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ticketCountManagement/internal/auth"
	"ticketCountManagement/internal/calendar"
	"ticketCountManagement/internal/catalog"
	"ticketCountManagement/models"
	"ticketCountManagement/repository"
)

// ErrUnknownUnit is returned when an editor is bound to a unit missing from the catalog.
var ErrUnknownUnit = errors.New("unit not in catalog")

// Scope returns the units p may edit: its own unit, or every member of the
// rural area for the rural editor.
func Scope(p auth.Principal, cat *catalog.Catalog) ([]models.Unit, error) {
	if !p.IsEditor() {
		return nil, auth.ErrForbidden
	}
	if catalog.IsRural(p.UnitID) {
		return cat.RuralMembers(), nil
	}
	u, ok := cat.Unit(p.UnitID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownUnit, p.UnitID)
	}
	return []models.Unit{u}, nil
}

// Result summarizes a save.
type Result struct {
	Month         string `json:"month"`
	Saved         int    `json:"saved"`
	SkippedLocked int    `json:"skipped_locked"`
}

// View is what an editor sees for one month.
type View struct {
	Month  string                           `json:"month"`
	Unit   models.Unit                      `json:"unit"`
	Units  []models.Unit                    `json:"units"`
	Days   []calendar.Day                   `json:"days"`
	Counts map[models.CountKey]models.Tally `json:"counts"`
	Locked map[string]bool                  `json:"locked"`
}

// Rural reports whether the view spans the rural members.
func (v *View) Rural() bool { return catalog.IsRural(v.Unit.ID) }

// Service applies editor submissions.
type Service struct {
	counts  repository.CountRepositoryI
	locks   repository.LockRepositoryI
	catalog *catalog.Catalog
	now     func() time.Time
}

func NewService(counts repository.CountRepositoryI, locks repository.LockRepositoryI, cat *catalog.Catalog) *Service {
	return &Service{counts: counts, locks: locks, catalog: cat, now: time.Now}
}

// View loads the editor grid of month ym (current month when empty).
func (s *Service) View(ctx context.Context, p auth.Principal, ym string) (*View, error) {
	ym, err := calendar.MonthOrCurrent(ym, s.now())
	if err != nil {
		return nil, err
	}
	units, err := Scope(p, s.catalog)
	if err != nil {
		return nil, err
	}
	days, err := calendar.DaysOfMonth(ym)
	if err != nil {
		return nil, err
	}
	stored, err := s.stored(ctx, ym, units)
	if err != nil {
		return nil, err
	}
	locked, err := s.locks.LockedSetForMonth(ctx, ym)
	if err != nil {
		return nil, fmt.Errorf("load locks: %w", err)
	}
	v := &View{Month: ym, Units: units, Days: days, Counts: stored, Locked: locked}
	if catalog.IsRural(p.UnitID) {
		v.Unit, _ = s.catalog.Unit(catalog.RuralUnitID)
	} else {
		v.Unit = units[0]
	}
	return v, nil
}

// Save merges f into the stored counts of its month. Locked days are skipped.
func (s *Service) Save(ctx context.Context, p auth.Principal, f *Form) (*Result, error) {
	ym, err := calendar.MonthOrCurrent(f.Month, s.now())
	if err != nil {
		return nil, err
	}
	units, err := Scope(p, s.catalog)
	if err != nil {
		return nil, err
	}
	days, err := calendar.DaysOfMonth(ym)
	if err != nil {
		return nil, err
	}
	scope := catalog.UnitIDs(units)
	if err := f.Validate(scope, days); err != nil {
		return nil, err
	}
	stored, err := s.stored(ctx, ym, units)
	if err != nil {
		return nil, err
	}
	locked, err := s.locks.LockedSetForMonth(ctx, ym)
	if err != nil {
		return nil, fmt.Errorf("load locks: %w", err)
	}
	rows := Merge(scope, days, stored, locked, f)
	saved, raced, err := s.counts.UpsertUnlocked(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("save counts: %w", err)
	}
	return &Result{Month: ym, Saved: saved, SkippedLocked: len(locked)*len(scope) + raced}, nil
}

func (s *Service) stored(ctx context.Context, ym string, units []models.Unit) (map[models.CountKey]models.Tally, error) {
	if len(units) == 1 {
		byDate, err := s.counts.ForUnitMonth(ctx, units[0].ID, ym)
		if err != nil {
			return nil, fmt.Errorf("load counts: %w", err)
		}
		out := make(map[models.CountKey]models.Tally, len(byDate))
		for date, t := range byDate {
			out[models.NewCountKey(units[0].ID, date)] = t
		}
		return out, nil
	}
	all, err := s.counts.ForMonth(ctx, ym)
	if err != nil {
		return nil, fmt.Errorf("load counts: %w", err)
	}
	in := make(map[int64]bool, len(units))
	for _, u := range units {
		in[u.ID] = true
	}
	out := map[models.CountKey]models.Tally{}
	for k, t := range all {
		if id, _, ok := k.Split(); ok && in[id] {
			out[k] = t
		}
	}
	return out, nil
}
