package grpcserver

import (
	"context"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"ticketCountManagement/internal/auth"
	"ticketCountManagement/internal/calendar"
	"ticketCountManagement/internal/catalog"
	"ticketCountManagement/internal/export"
	"ticketCountManagement/models"
	"ticketCountManagement/repository"
)

// ReportServer exposes monthly counts and lock state read-only.
type ReportServer struct {
	Store   *repository.Store
	Catalog *catalog.Catalog
	now     func() time.Time
}

func (s *ReportServer) month(in *structpb.Struct) (string, error) {
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	raw := ""
	if v, ok := in.GetFields()["month"]; ok {
		raw = v.GetStringValue()
	}
	ym, err := calendar.MonthOrCurrent(raw, now())
	if err != nil {
		return "", status.Errorf(codes.InvalidArgument, "invalid month %q", raw)
	}
	return ym, nil
}

// GetMonth returns per-unit and per-area totals for a month. Admin only.
func (s *ReportServer) GetMonth(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if _, err := auth.RequireAdmin(ctx, s.Store.Users); err != nil {
		return nil, err
	}
	ym, err := s.month(in)
	if err != nil {
		return nil, err
	}
	days, _ := calendar.DaysOfMonth(ym)
	counts, err := s.Store.Counts.ForMonth(ctx, ym)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "counts: %v", err)
	}

	perUnit := make(map[int64]models.Tally)
	for k, t := range counts {
		id, _, ok := k.Split()
		if !ok {
			continue
		}
		sum := perUnit[id]
		sum.Manual += t.Manual
		sum.Electronic += t.Electronic
		perUnit[id] = sum
	}

	var grand int64
	areas := make([]any, 0, len(s.Catalog.Areas))
	for _, a := range s.Catalog.Areas {
		units := make([]any, 0)
		for _, u := range s.Catalog.Units[a.ID] {
			if catalog.IsRural(u.ID) {
				continue
			}
			t := perUnit[u.ID]
			units = append(units, map[string]any{
				"id":         u.ID,
				"name":       u.Name,
				"manual":     t.Manual,
				"electronic": t.Electronic,
				"total":      t.Total(),
			})
		}
		totals := export.Totals(s.Catalog.Units[a.ID], days, counts)
		grand += totals.Grand
		areas = append(areas, map[string]any{
			"id":    a.ID,
			"name":  a.Name,
			"units": units,
			"total": totals.Grand,
		})
	}

	out, err := structpb.NewStruct(map[string]any{
		"month": ym,
		"days":  int64(len(days)),
		"areas": areas,
		"total": grand,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode: %v", err)
	}
	return out, nil
}

// GetLocks lists the locked dates of a month for any signed-in user.
func (s *ReportServer) GetLocks(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if _, err := auth.RequirePrincipal(ctx); err != nil {
		return nil, err
	}
	ym, err := s.month(in)
	if err != nil {
		return nil, err
	}
	dates, err := s.Store.Locks.LockedDatesForMonth(ctx, ym)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "locks: %v", err)
	}
	locked := make([]any, 0, len(dates))
	for _, d := range dates {
		locked = append(locked, d)
	}
	out, err := structpb.NewStruct(map[string]any{"month": ym, "locked": locked})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode: %v", err)
	}
	return out, nil
}
