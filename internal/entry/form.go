// Package entry turns editor submissions into stored counts.
package entry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"ticketCountManagement/internal/calendar"
)

// ErrUnknownField is returned for submitted keys outside the editable
// unit/day universe.
var ErrUnknownField = errors.New("unknown field")

// ErrCountTooLarge is returned for submitted values above models.MaxCount.
var ErrCountTooLarge = errors.New("count too large")

// Kind is one of the two count types.
type Kind string

const (
	Manual     Kind = "manual"
	Electronic Kind = "electronic"
)

// Values holds raw submitted values keyed by "YYYY-MM-DD".
type Values map[string]string

// Form is an editor submission: raw values per unit per date for each kind.
type Form struct {
	Month      string
	Manual     map[int64]Values
	Electronic map[int64]Values
}

// NewForm returns an empty form for month.
func NewForm(month string) *Form {
	return &Form{Month: month, Manual: map[int64]Values{}, Electronic: map[int64]Values{}}
}

func (f *Form) values(k Kind) map[int64]Values {
	if k == Manual {
		return f.Manual
	}
	return f.Electronic
}

// Set records a raw value.
func (f *Form) Set(k Kind, unitID int64, date, raw string) {
	m := f.values(k)
	if m[unitID] == nil {
		m[unitID] = Values{}
	}
	m[unitID][date] = raw
}

// Lookup returns the raw value for (unitID, date) and whether it was submitted.
func (f *Form) Lookup(k Kind, unitID int64, date string) (string, bool) {
	v, ok := f.values(k)[unitID][date]
	return v, ok
}

// Empty reports whether the form carries no values.
func (f *Form) Empty() bool {
	return len(f.Manual) == 0 && len(f.Electronic) == 0
}

// Validate rejects units outside scope, dates outside days and values that
// cannot be stored.
func (f *Form) Validate(scope []int64, days []calendar.Day) error {
	units := make(map[int64]bool, len(scope))
	for _, id := range scope {
		units[id] = true
	}
	dates := make(map[string]bool, len(days))
	for _, d := range days {
		dates[d.ISO] = true
	}
	for _, k := range []Kind{Manual, Electronic} {
		for unitID, vals := range f.values(k) {
			if !units[unitID] {
				return fmt.Errorf("%w: %s unit %d", ErrUnknownField, k, unitID)
			}
			for date, raw := range vals {
				if !dates[date] {
					return fmt.Errorf("%w: %s date %q", ErrUnknownField, k, date)
				}
				if _, over := parseLeading(raw); over {
					return fmt.Errorf("%w: %s[%d][%s]", ErrCountTooLarge, k, unitID, date)
				}
			}
		}
	}
	return nil
}

// manual[2024-03-05] or manual[4001][2024-03-05]
var fieldRe = regexp.MustCompile(`^(manual|electronic)\[([^\[\]]+)\](?:\[([^\[\]]+)\])?$`)

// FromValues builds a form from urlencoded fields. Flat keys
// (manual[date]) belong to defaultUnit; nested keys name their unit.
// Fields other than month and the two count maps are ignored.
func FromValues(vals url.Values, defaultUnit int64) (*Form, error) {
	f := NewForm(strings.TrimSpace(vals.Get("month")))
	for key, vs := range vals {
		if !strings.HasPrefix(key, string(Manual)) && !strings.HasPrefix(key, string(Electronic)) {
			continue
		}
		m := fieldRe.FindStringSubmatch(key)
		if m == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, key)
		}
		kind := Kind(m[1])
		unitID := defaultUnit
		date := m[2]
		if m[3] != "" {
			id, err := strconv.ParseInt(m[2], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrUnknownField, key)
			}
			unitID, date = id, m[3]
		} else if defaultUnit == 0 {
			return nil, fmt.Errorf("%w: %q needs a unit", ErrUnknownField, key)
		}
		raw := ""
		if len(vs) > 0 {
			raw = vs[len(vs)-1]
		}
		f.Set(kind, unitID, date, raw)
	}
	return f, nil
}

type jsonForm struct {
	Month      string                     `json:"month"`
	Manual     map[string]json.RawMessage `json:"manual"`
	Electronic map[string]json.RawMessage `json:"electronic"`
}

// FromJSON builds a form from a JSON body of the form
//
//	{"month":"2024-03","manual":{"2024-03-05":5},"electronic":{"4001":{"2024-03-05":"2"}}}
//
// Values may be numbers, strings or null. Unknown top-level keys are rejected.
func FromJSON(r io.Reader, defaultUnit int64) (*Form, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var jf jsonForm
	if err := dec.Decode(&jf); err != nil {
		if strings.HasPrefix(err.Error(), "json: unknown field") {
			return nil, fmt.Errorf("%w: %v", ErrUnknownField, err)
		}
		return nil, fmt.Errorf("decode form: %w", err)
	}
	f := NewForm(strings.TrimSpace(jf.Month))
	for kind, entries := range map[Kind]map[string]json.RawMessage{Manual: jf.Manual, Electronic: jf.Electronic} {
		for key, raw := range entries {
			raw = bytes.TrimSpace(raw)
			if len(raw) > 0 && raw[0] == '{' {
				unitID, err := strconv.ParseInt(key, 10, 64)
				if err != nil {
					return nil, fmt.Errorf("%w: %s[%s]", ErrUnknownField, kind, key)
				}
				var nested map[string]json.RawMessage
				if err := json.Unmarshal(raw, &nested); err != nil {
					return nil, fmt.Errorf("decode form: %w", err)
				}
				for date, v := range nested {
					s, err := scalar(v)
					if err != nil {
						return nil, fmt.Errorf("%s[%s][%s]: %w", kind, key, date, err)
					}
					f.Set(kind, unitID, date, s)
				}
				continue
			}
			if defaultUnit == 0 {
				return nil, fmt.Errorf("%w: %s[%s] needs a unit", ErrUnknownField, kind, key)
			}
			s, err := scalar(raw)
			if err != nil {
				return nil, fmt.Errorf("%s[%s]: %w", kind, key, err)
			}
			f.Set(kind, defaultUnit, key, s)
		}
	}
	return f, nil
}

// scalar renders a JSON number, string or null as the raw form text.
func scalar(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("expected number or string")
	}
	return n.String(), nil
}
