package export

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	sheets "google.golang.org/api/sheets/v4"

	"github.com/mtlprog/darkbear/internal/domain"
)

// historyCol describes one column in the HISTORY sheet.
type historyCol struct {
	header string
	value  func(domain.PortfolioValuation) any
}

// historyColumns are the data columns after the date column, in order.
var historyColumns = []historyCol{
	{"Total Value", func(v domain.PortfolioValuation) any { return toFloat(v.Stats.TotalValue) }},
	{"Total Invested", func(v domain.PortfolioValuation) any { return toFloat(v.Stats.TotalInvested) }},
	{"All-Time P/L", func(v domain.PortfolioValuation) any { return toFloat(v.Stats.AllTimePL) }},
	{"All-Time P/L %", func(v domain.PortfolioValuation) any { return toFloat(v.Stats.AllTimePLPercent.Round(2)) }},
	{"Today P/L", func(v domain.PortfolioValuation) any { return toFloat(v.Stats.TodayPL) }},
	{"Today P/L %", func(v domain.PortfolioValuation) any { return toFloat(v.Stats.TodayPLPercent.Round(2)) }},
	{"Positions", func(v domain.PortfolioValuation) any { return float64(len(v.Positions)) }},
	{"Stock %", classPercent(domain.AssetClassStock)},
	{"Gold %", classPercent(domain.AssetClassGold)},
	{"Crypto %", classPercent(domain.AssetClassCrypto)},
	{"Concentration", func(v domain.PortfolioValuation) any { return v.Analytics.Concentration }},
}

func classPercent(class domain.AssetClass) func(domain.PortfolioValuation) any {
	return func(v domain.PortfolioValuation) any {
		a, ok := lo.Find(v.Analytics.AllocationByClass, func(a domain.ClassAllocation) bool { return a.AssetClass == class })
		if !ok {
			return float64(0)
		}
		return toFloat(a.Percent.Round(2))
	}
}

// historyIntegerCols lists 0-based columns formatted as #,##0.
var historyIntegerCols = []int{1, 2, 3, 5}

// buildHistoryRows builds the header row and one data row for the HISTORY sheet.
func buildHistoryRows(val domain.PortfolioValuation, at time.Time) (header []any, data []any) {
	header = make([]any, 1+len(historyColumns))
	header[0] = "Date"
	data = make([]any, 1+len(historyColumns))
	data[0] = at.UTC().Format("02.01.2006")
	for i, col := range historyColumns {
		header[i+1] = col.header
		data[i+1] = col.value(val)
	}
	return header, data
}

// AppendHistory ensures the HISTORY sheet exists, writes the header row if the
// sheet is empty, then appends one row for val.
func (w *SheetsWriter) AppendHistory(ctx context.Context, val domain.PortfolioValuation, at time.Time) error {
	meta, err := w.ensureSheets(ctx, historySheet)
	if err != nil {
		return fmt.Errorf("ensuring %s sheet: %w", historySheet, err)
	}

	header, dataRow := buildHistoryRows(val, at)

	existing, err := w.svc.Spreadsheets.Values.Get(w.spreadsheetID, historySheet+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("reading %s header: %w", historySheet, err)
	}

	if len(existing.Values) == 0 {
		_, err = w.svc.Spreadsheets.Values.Update(
			w.spreadsheetID,
			historySheet+"!A1",
			&sheets.ValueRange{Values: [][]any{header}},
		).ValueInputOption("USER_ENTERED").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("writing %s header: %w", historySheet, err)
		}
	}

	_, err = w.svc.Spreadsheets.Values.Append(
		w.spreadsheetID,
		historySheet+"!A:L",
		&sheets.ValueRange{Values: [][]any{dataRow}},
	).ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("appending %s row: %w", historySheet, err)
	}

	if err := w.applyHistoryFormatting(ctx, meta[historySheet]); err != nil {
		return fmt.Errorf("formatting %s sheet: %w", historySheet, err)
	}

	return nil
}

// applyHistoryFormatting styles the header, freezes the first row and column
// and sets number formats.
func (w *SheetsWriter) applyHistoryFormatting(ctx context.Context, hist sheetMeta) error {
	// #D9EAD3
	lightGreen := &sheets.Color{Red: 0.851, Green: 0.918, Blue: 0.827}
	totalCols := int64(1 + len(historyColumns))

	var reqs []*sheets.Request

	reqs = append(reqs, cellFormatReq(hist.id, 0, 1, 0, totalCols,
		&sheets.CellFormat{
			BackgroundColor:     lightGreen,
			TextFormat:          &sheets.TextFormat{Bold: true, FontSize: 9},
			HorizontalAlignment: "CENTER",
			VerticalAlignment:   "MIDDLE",
			WrapStrategy:        "WRAP",
		},
		"userEnteredFormat(backgroundColor,textFormat,horizontalAlignment,verticalAlignment,wrapStrategy)"))

	reqs = append(reqs, &sheets.Request{
		UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
			Properties: &sheets.SheetProperties{
				SheetId: hist.id,
				GridProperties: &sheets.GridProperties{
					FrozenRowCount:    1,
					FrozenColumnCount: 1,
				},
			},
			Fields: "gridProperties.frozenRowCount,gridProperties.frozenColumnCount",
		},
	})

	reqs = append(reqs, cellFormatReq(hist.id, 1, 10000, 0, 1,
		&sheets.CellFormat{NumberFormat: &sheets.NumberFormat{Type: "DATE", Pattern: "d.m.yyyy"}},
		"userEnteredFormat.numberFormat"))

	for _, col := range historyIntegerCols {
		reqs = append(reqs, cellFormatReq(hist.id, 1, 10000, int64(col), int64(col+1),
			&sheets.CellFormat{NumberFormat: &sheets.NumberFormat{Type: "NUMBER", Pattern: "#,##0"}},
			"userEnteredFormat.numberFormat"))
	}

	for _, bid := range hist.bandingIDs {
		reqs = append(reqs, &sheets.Request{
			DeleteBanding: &sheets.DeleteBandingRequest{BandedRangeId: bid},
		})
	}

	reqs = append(reqs, &sheets.Request{
		UpdateDimensionProperties: &sheets.UpdateDimensionPropertiesRequest{
			Range: &sheets.DimensionRange{
				SheetId:    hist.id,
				Dimension:  "COLUMNS",
				StartIndex: 0,
				EndIndex:   totalCols,
			},
			Properties: &sheets.DimensionProperties{PixelSize: 110},
			Fields:     "pixelSize",
		},
	})

	_, err := w.svc.Spreadsheets.BatchUpdate(
		w.spreadsheetID,
		&sheets.BatchUpdateSpreadsheetRequest{Requests: reqs},
	).Context(ctx).Do()
	return err
}
