// Package export renders a month of counts as an xlsx workbook.
package export

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"ticketCountManagement/internal/calendar"
	"ticketCountManagement/internal/catalog"
	"ticketCountManagement/models"
)

const (
	// ContentType is the MIME type of the workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	maxSheetName = 31

	labelUnit       = "UNIDAD"
	labelType       = "TIPO"
	labelManual     = "MANUALES"
	labelElectronic = "ELECTRÓNICAS"
	labelTotal      = "TOTAL"
)

// Filename is the download name of the workbook for ym.
func Filename(ym string) string {
	return "boletas-" + ym + ".xlsx"
}

// ContentDisposition is the attachment header value for ym.
func ContentDisposition(ym string) string {
	return "attachment; filename=" + Filename(ym)
}

// AreaTotals aggregates one area over a month.
type AreaTotals struct {
	// Days holds manual+electronic of every non-rural unit, one entry per day.
	Days  []int64
	Grand int64
}

// Totals sums manual+electronic per day across units, leaving out the rural
// aggregate unit.
func Totals(units []models.Unit, days []calendar.Day, counts map[models.CountKey]models.Tally) AreaTotals {
	t := AreaTotals{Days: make([]int64, len(days))}
	for _, u := range units {
		if catalog.IsRural(u.ID) {
			continue
		}
		for i, d := range days {
			t.Days[i] += counts[models.NewCountKey(u.ID, d.ISO)].Total()
		}
	}
	for _, v := range t.Days {
		t.Grand += v
	}
	return t
}

// Build creates the workbook for ym: one sheet per area with a row per unit
// and count type, a trailing total column and a per-day TOTAL row.
func Build(ym string, cat *catalog.Catalog, counts map[models.CountKey]models.Tally) (*excelize.File, error) {
	days, err := calendar.DaysOfMonth(ym)
	if err != nil {
		return nil, err
	}
	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	used := map[string]bool{}
	first := ""
	for _, area := range cat.Areas {
		name := SheetName(area.Name, used)
		if first == "" {
			first = name
			if err := f.SetSheetName("Sheet1", name); err != nil {
				_ = f.Close()
				return nil, err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			_ = f.Close()
			return nil, err
		}
		if err := writeArea(f, name, bold, cat.Units[area.ID], days, counts); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("sheet %q: %w", name, err)
		}
	}
	return f, nil
}

func writeArea(f *excelize.File, sheet string, bold int, units []models.Unit, days []calendar.Day, counts map[models.CountKey]models.Tally) error {
	header := make([]any, 0, len(days)+3)
	header = append(header, labelUnit, labelType)
	for _, d := range days {
		header = append(header, d.Label)
	}
	header = append(header, labelTotal)
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	row := 2
	for _, u := range units {
		for _, kind := range []string{labelManual, labelElectronic} {
			cells := make([]any, 0, len(days)+3)
			cells = append(cells, u.Name, kind)
			var sum int64
			for _, d := range days {
				t := counts[models.NewCountKey(u.ID, d.ISO)]
				v := t.Manual
				if kind == labelElectronic {
					v = t.Electronic
				}
				sum += v
				cells = append(cells, v)
			}
			cells = append(cells, sum)
			if err := setRow(f, sheet, row, &cells); err != nil {
				return err
			}
			row++
		}
	}

	totals := Totals(units, days, counts)
	cells := make([]any, 0, len(days)+3)
	cells = append(cells, labelTotal, "")
	for _, v := range totals.Days {
		cells = append(cells, v)
	}
	cells = append(cells, totals.Grand)
	if err := setRow(f, sheet, row, &cells); err != nil {
		return err
	}

	last, err := excelize.CoordinatesToCellName(len(days)+3, 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return err
	}
	lastTotal, err := excelize.CoordinatesToCellName(len(days)+3, row)
	if err != nil {
		return err
	}
	firstTotal, _ := excelize.CoordinatesToCellName(1, row)
	if err := f.SetCellStyle(sheet, firstTotal, lastTotal, bold); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", "A", 32)
}

func setRow(f *excelize.File, sheet string, row int, cells *[]any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, cells)
}

// SheetName makes name a valid, unused sheet name: forbidden characters are
// replaced, the result is cut to 31 runes and suffixed when already used.
func SheetName(name string, used map[string]bool) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '-'
		}
		return r
	}, strings.TrimSpace(name))
	clean = strings.Trim(clean, "'")
	if clean == "" {
		clean = "AREA"
	}
	base := truncate(clean, maxSheetName)
	out := base
	for i := 2; used[strings.ToLower(out)]; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		out = truncate(base, maxSheetName-utf8.RuneCountInString(suffix)) + suffix
	}
	used[strings.ToLower(out)] = true
	return out
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
