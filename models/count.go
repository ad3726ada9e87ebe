package models

import (
	"math"
	"strconv"
	"strings"
)

// MaxCount is the largest manual or electronic value either backend stores;
// the postgres columns are INTEGER.
const MaxCount = math.MaxInt32

// Count is the pair of tickets recorded for one unit on one date.
// Date is the canonical "YYYY-MM-DD" storage key.
type Count struct {
	UnitID     int64  `db:"unit_id" json:"unit_id"`
	Date       string `db:"date" json:"date"`
	Manual     int64  `db:"manual" json:"manual"`
	Electronic int64  `db:"electronic" json:"electronic"`
}

// Tally is the stored value of a count without its key.
type Tally struct {
	Manual     int64 `json:"manual"`
	Electronic int64 `json:"electronic"`
}

// Total returns manual plus electronic.
func (t Tally) Total() int64 {
	return t.Manual + t.Electronic
}

// CountKey identifies a count row inside a month listing ("unit_id|date").
type CountKey string

// NewCountKey builds the "unit_id|date" key.
func NewCountKey(unitID int64, date string) CountKey {
	return CountKey(strconv.FormatInt(unitID, 10) + "|" + date)
}

// Split returns the unit id and date of the key.
func (k CountKey) Split() (unitID int64, date string, ok bool) {
	s := string(k)
	i := strings.IndexByte(s, '|')
	if i < 0 {
		return 0, "", false
	}
	id, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		return 0, "", false
	}
	return id, s[i+1:], true
}
