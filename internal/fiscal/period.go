// Package fiscal resolves tax period selections into calendar ranges.
package fiscal

import (
	"fmt"
	"time"
)

// Kind discriminates period selection variants.
type Kind string

const (
	KindMonthly    Kind = "MONTHLY"
	KindSemiannual Kind = "SEMIANNUAL"
)

// Selection identifies a filing period as chosen by the taxpayer.
type Selection struct {
	Kind     Kind
	Year     int
	Month    time.Month
	Semester int
}

// Monthly builds a monthly selection.
func Monthly(year int, month time.Month) Selection {
	if month < time.January || month > time.December {
		panic(fmt.Sprintf("fiscal: month out of range: %d", month))
	}
	return Selection{Kind: KindMonthly, Year: year, Month: month}
}

// Semiannual builds a semiannual selection. Semester is 1 or 2.
func Semiannual(year, semester int) Selection {
	if semester != 1 && semester != 2 {
		panic(fmt.Sprintf("fiscal: semester out of range: %d", semester))
	}
	return Selection{Kind: KindSemiannual, Year: year, Semester: semester}
}

// Period is the resolved calendar window for a selection.
type Period struct {
	ID        string
	Label     string
	StartDate time.Time
	EndDate   time.Time
	DueDate   time.Time
}

var monthNames = [...]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// Resolve computes the calendar bounds, label, and filing due date for a
// selection. Bounds are whole calendar months, inclusive on both ends. The due
// date is the 12th of the month following the period end.
func Resolve(sel Selection) Period {
	switch sel.Kind {
	case KindMonthly:
		if sel.Month < time.January || sel.Month > time.December {
			panic(fmt.Sprintf("fiscal: month out of range: %d", sel.Month))
		}
		start := time.Date(sel.Year, sel.Month, 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, -1)
		return Period{
			ID:        fmt.Sprintf("%04d-%02d", sel.Year, int(sel.Month)),
			Label:     fmt.Sprintf("%s %d", monthNames[sel.Month-1], sel.Year),
			StartDate: start,
			EndDate:   end,
			DueDate:   dueDateAfter(end),
		}
	case KindSemiannual:
		if sel.Semester != 1 && sel.Semester != 2 {
			panic(fmt.Sprintf("fiscal: semester out of range: %d", sel.Semester))
		}
		firstMonth := time.January
		if sel.Semester == 2 {
			firstMonth = time.July
		}
		start := time.Date(sel.Year, firstMonth, 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 6, -1)
		return Period{
			ID:        fmt.Sprintf("%04d-S%d", sel.Year, sel.Semester),
			Label:     fmt.Sprintf("Semestre %d %d", sel.Semester, sel.Year),
			StartDate: start,
			EndDate:   end,
			DueDate:   dueDateAfter(end),
		}
	default:
		panic(fmt.Sprintf("fiscal: unknown selection kind %q", sel.Kind))
	}
}

// Previous returns the selection immediately preceding sel, wrapping across
// year boundaries.
func Previous(sel Selection) Selection {
	switch sel.Kind {
	case KindMonthly:
		if sel.Month == time.January {
			return Selection{Kind: KindMonthly, Year: sel.Year - 1, Month: time.December}
		}
		return Selection{Kind: KindMonthly, Year: sel.Year, Month: sel.Month - 1}
	case KindSemiannual:
		if sel.Semester == 1 {
			return Selection{Kind: KindSemiannual, Year: sel.Year - 1, Semester: 2}
		}
		return Selection{Kind: KindSemiannual, Year: sel.Year, Semester: 1}
	default:
		panic(fmt.Sprintf("fiscal: unknown selection kind %q", sel.Kind))
	}
}

// HasElapsed reports whether the period ended before the calendar month of the
// reference date. A period still running in the reference month cannot be
// liquidated.
func HasElapsed(p Period, reference time.Time) bool {
	monthStart := time.Date(reference.Year(), reference.Month(), 1, 0, 0, 0, 0, time.UTC)
	return p.EndDate.Before(monthStart)
}

func dueDateAfter(end time.Time) time.Time {
	next := end.AddDate(0, 0, 1)
	return time.Date(next.Year(), next.Month(), 12, 0, 0, 0, 0, time.UTC)
}
