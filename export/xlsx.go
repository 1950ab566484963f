// Package export renders engine timelines as spreadsheets.
package export

import (
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/warp/icl-engine/engine"
	"github.com/xuri/excelize/v2"
)

const (
	TimelineSheet = "Timeline"
	AccountSheet  = "Account"

	currencyFormat = `"₹" #,##0.00`
	dateFormat     = "dd/mm/yyyy"
	maxColumnWidth = 60
)

// Column order of the timeline sheet.
var timelineColumns = []string{
	"Date",
	"Description",
	"Amount Paid",
	"Amount Received",
	"Days",
	"Outstanding",
	"Interest @ %s%%",
	"TDS @ %s%%",
	"Net Interest",
}

type styles struct {
	header   int
	date     int
	currency int
	bold     int
}

// WriteTimeline writes an XLSX workbook with the timeline and an account
// summary sheet to w. Summary rows leave days, interest, TDS and net
// interest blank.
func WriteTimeline(w io.Writer, a engine.Account, tl engine.Timeline) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", TimelineSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	st, err := newStyles(f)
	if err != nil {
		return err
	}
	if err := writeTimelineSheet(f, st, a, tl); err != nil {
		return err
	}
	if err := writeAccountSheet(f, st, a, tl); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func newStyles(f *excelize.File) (styles, error) {
	var (
		st  styles
		err error
	)
	currency, date := currencyFormat, dateFormat

	st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	if err != nil {
		return st, fmt.Errorf("header style: %w", err)
	}
	if st.date, err = f.NewStyle(&excelize.Style{CustomNumFmt: &date}); err != nil {
		return st, fmt.Errorf("date style: %w", err)
	}
	if st.currency, err = f.NewStyle(&excelize.Style{CustomNumFmt: &currency}); err != nil {
		return st, fmt.Errorf("currency style: %w", err)
	}
	if st.bold, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return st, fmt.Errorf("bold style: %w", err)
	}
	return st, nil
}

// =============================================================================
// TIMELINE SHEET
// =============================================================================

func writeTimelineSheet(f *excelize.File, st styles, a engine.Account, tl engine.Timeline) error {
	sw := newSheetWriter(f, TimelineSheet, len(timelineColumns))

	for col, title := range timelineColumns {
		switch col {
		case 6:
			title = fmt.Sprintf(title, a.AnnualRate.String())
		case 7:
			title = fmt.Sprintf(title, a.TDSRate.String())
		}
		sw.set(col+1, 1, title, st.header)
	}

	for i, e := range tl.Entries {
		row := i + 2
		sw.set(1, row, e.Date.Time(), st.date)
		sw.set(2, row, e.Description, 0)
		sw.money(3, row, e.Paid, st.currency)
		sw.money(4, row, e.Received, st.currency)
		sw.money(6, row, e.Outstanding, st.currency)
		if e.IsSummary() {
			continue
		}
		sw.set(5, row, e.Days, 0)
		sw.money(7, row, e.TotalInterest, st.currency)
		sw.money(8, row, e.TDS, st.currency)
		sw.money(9, row, e.NetInterest, st.currency)
	}

	if sw.err != nil {
		return fmt.Errorf("timeline sheet: %w", sw.err)
	}
	if err := f.SetPanes(TimelineSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}
	return sw.fitColumns()
}

// =============================================================================
// ACCOUNT SHEET
// =============================================================================

func writeAccountSheet(f *excelize.File, st styles, a engine.Account, tl engine.Timeline) error {
	if _, err := f.NewSheet(AccountSheet); err != nil {
		return fmt.Errorf("account sheet: %w", err)
	}
	sw := newSheetWriter(f, AccountSheet, 2)

	end, closure := "Open-ended", ""
	if a.EndDate != nil {
		end = a.EndDate.Format("02/01/2006")
	}
	if a.ClosureDate != nil {
		closure = a.ClosureDate.Format("02/01/2006")
	}
	totals := tl.Totals()

	rows := []struct {
		label string
		value any
	}{
		{"Name", a.Name},
		{"Address", a.Address},
		{"Start Date", a.StartDate.Format("02/01/2006")},
		{"End Date", end},
		{"Annual Rate %", a.AnnualRate.String()},
		{"TDS Rate %", a.TDSRate.String()},
		{"Penalty Rate %", a.PenaltyRate.String()},
		{"Calculation", tl.Strategy},
		{"Repayment Convention", string(a.RepaymentConvention)},
		{"Grace Period (days)", a.GracePeriodDays},
		{"Status", string(tl.Status)},
		{"Overdue Days", tl.OverdueDays},
		{"Closure Date", closure},
		{"Total Paid", totals.Paid},
		{"Total Received", totals.Received},
		{"Total Interest", totals.TotalInterest},
		{"Total TDS", totals.TDS},
		{"Net Interest", totals.NetInterest},
		{"Closing Balance", tl.ClosingBalance()},
	}

	for i, r := range rows {
		row := i + 1
		sw.set(1, row, r.label, st.bold)
		if v, ok := r.value.(decimal.Decimal); ok {
			sw.money(2, row, v, st.currency)
			continue
		}
		sw.set(2, row, r.value, 0)
	}

	if sw.err != nil {
		return fmt.Errorf("account sheet: %w", sw.err)
	}
	return sw.fitColumns()
}

// =============================================================================
// SHEET WRITER
// =============================================================================

// sheetWriter keeps the first error and tracks column widths.
type sheetWriter struct {
	f      *excelize.File
	sheet  string
	widths []int
	err    error
}

func newSheetWriter(f *excelize.File, sheet string, cols int) *sheetWriter {
	return &sheetWriter{f: f, sheet: sheet, widths: make([]int, cols+1)}
}

func (sw *sheetWriter) set(col, row int, value any, style int) {
	if sw.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		sw.err = err
		return
	}
	if err := sw.f.SetCellValue(sw.sheet, cell, value); err != nil {
		sw.err = err
		return
	}
	if style != 0 {
		if err := sw.f.SetCellStyle(sw.sheet, cell, cell, style); err != nil {
			sw.err = err
			return
		}
	}
	sw.track(col, value)
}

func (sw *sheetWriter) money(col, row int, v decimal.Decimal, style int) {
	sw.set(col, row, v.Round(2).InexactFloat64(), style)
}

func (sw *sheetWriter) track(col int, value any) {
	var n int
	switch v := value.(type) {
	case string:
		n = utf8.RuneCountInString(v)
	case time.Time:
		n = len(dateFormat)
	case float64:
		// Currency symbol, separators and two decimals.
		n = len(fmt.Sprintf("%.2f", v)) + 4
	default:
		n = len(fmt.Sprint(v))
	}
	if col < len(sw.widths) && n > sw.widths[col] {
		sw.widths[col] = n
	}
}

func (sw *sheetWriter) fitColumns() error {
	for col := 1; col < len(sw.widths); col++ {
		name, err := excelize.ColumnNumberToName(col)
		if err != nil {
			return err
		}
		width := sw.widths[col] + 2
		if width < 10 {
			width = 10
		}
		if width > maxColumnWidth {
			width = maxColumnWidth
		}
		if err := sw.f.SetColWidth(sw.sheet, name, name, float64(width)); err != nil {
			return err
		}
	}
	return nil
}
