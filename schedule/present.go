/*
present.go - Display-ready schedule rows

PURPOSE:
  Turns an installment list into sorted, render-ready rows for the web
  table and the PDF export. Sorting follows the description's ordinal
  ("1st payment" before "2nd payment"), then due date; formatting is
  display-only and never feeds back into stored values.
*/
package schedule

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// DisplayRow is one render-ready schedule line.
type DisplayRow struct {
	ID          string
	Description string
	DueDate     string // "Jan 2, 2006" or "-"
	Percentage  string // "50.00%"
	Amount      string // "$1,234.56"
	Status      string // "UNPAID"
	PaymentDate string // "Jan 2, 2006" or "Not set"
}

const displayDateLayout = "Jan 2, 2006"

// unparseable ordinals sort after everything with a real ordinal
const ordinalLast = 999

var ordinalPattern = regexp.MustCompile(`(\d+)(st|nd|rd|th)`)

func ordinalRank(description string) int {
	m := ordinalPattern.FindStringSubmatch(description)
	if m == nil {
		return ordinalLast
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return ordinalLast
	}
	return n
}

// SortForDisplay returns a copy sorted by description ordinal, then due
// date ascending. Installments without a due date sort after those with
// one.
func SortForDisplay(installments []Installment) []Installment {
	out := cloneInstallments(installments)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := ordinalRank(out[i].Description), ordinalRank(out[j].Description)
		if ri != rj {
			return ri < rj
		}
		di, dj := out[i].DueDate, out[j].DueDate
		if (di == "") != (dj == "") {
			return di != ""
		}
		return di < dj
	})
	return out
}

// DisplayRows formats installments (already sorted) into render rows.
func DisplayRows(installments []Installment, currencyCode string) []DisplayRow {
	rows := make([]DisplayRow, len(installments))
	for i, ins := range installments {
		rows[i] = DisplayRow{
			ID:          ins.ID,
			Description: ins.Description,
			DueDate:     formatDisplayDate(ins.DueDate, "-"),
			Percentage:  RoundPercentage(ins.Percentage).StringFixed(2) + "%",
			Amount:      FormatCurrency(RoundMoney(ins.Amount), currencyCode),
			Status:      strings.ToUpper(string(ins.Status)),
			PaymentDate: formatDisplayDate(ins.PaymentDate, "Not set"),
		}
	}
	return rows
}

func formatDisplayDate(isoDate, placeholder string) string {
	if isoDate == "" {
		return placeholder
	}
	t, err := ParseDate(isoDate)
	if err != nil {
		return isoDate
	}
	return t.Format(displayDateLayout)
}