package entry

import (
	"strconv"
	"strings"

	"ticketCountManagement/internal/calendar"
	"ticketCountManagement/models"
)

// ParseCount reads a submitted value. Leading whitespace is skipped and the
// leading integer is used; anything without one counts as 0, negatives clamp
// to 0 and values above models.MaxCount clamp to it.
func ParseCount(raw string) int64 {
	n, _ := parseLeading(raw)
	return n
}

// parseLeading is ParseCount that also reports whether the value was above
// models.MaxCount.
func parseLeading(raw string) (int64, bool) {
	s := strings.TrimSpace(raw)
	end := 0
	neg := false
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		neg = s[end] == '-'
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits || neg {
		return 0, false
	}
	// only ErrRange is possible on a run of digits
	n, err := strconv.ParseInt(s[digits:end], 10, 64)
	if err != nil || n > models.MaxCount {
		return models.MaxCount, true
	}
	return n, false
}

// Merge computes the rows to write for every unit in scope and every day.
// Locked days produce no rows. A submitted non-empty value replaces the stored
// one; a missing or empty value keeps it (0 when nothing is stored).
func Merge(scope []int64, days []calendar.Day, stored map[models.CountKey]models.Tally, locked map[string]bool, f *Form) []models.Count {
	out := make([]models.Count, 0, len(scope)*len(days))
	for _, unitID := range scope {
		for _, d := range days {
			if locked[d.ISO] {
				continue
			}
			prev := stored[models.NewCountKey(unitID, d.ISO)]
			out = append(out, models.Count{
				UnitID:     unitID,
				Date:       d.ISO,
				Manual:     pick(f, Manual, unitID, d.ISO, prev.Manual),
				Electronic: pick(f, Electronic, unitID, d.ISO, prev.Electronic),
			})
		}
	}
	return out
}

func pick(f *Form, k Kind, unitID int64, date string, prev int64) int64 {
	raw, ok := f.Lookup(k, unitID, date)
	if !ok || raw == "" {
		return prev
	}
	return ParseCount(raw)
}
