package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/mtlprog/darkbear/internal/domain"
	"github.com/mtlprog/darkbear/internal/indicator"
)

// Workbook sheet names, in tab order.
const (
	PositionsTab   = "Positions"
	SummaryTab     = "Summary"
	PerformanceTab = "Performance"
	JournalTab     = "Journal"
)

// WriteWorkbook renders val and txs as an .xlsx workbook to w.
func WriteWorkbook(w io.Writer, val domain.PortfolioValuation, txs []domain.Transaction, risk ...indicator.Indicator) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", PositionsTab); err != nil {
		return fmt.Errorf("renaming default sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9EAD3"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	numFmt := "#,##0.00"
	number, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return fmt.Errorf("creating number style: %w", err)
	}

	sheets := []struct {
		name    string
		rows    [][]any
		numCols [2]string
	}{
		{PositionsTab, buildPositionRows(val.Positions), [2]string{"D", "K"}},
		{SummaryTab, buildSummaryRows(val, risk), [2]string{"B", "B"}},
		{PerformanceTab, buildPerformanceRows(val.Analytics.Performance), [2]string{"B", "B"}},
		{JournalTab, buildJournalRows(txs), [2]string{"D", "E"}},
	}

	for _, s := range sheets {
		if s.name != PositionsTab {
			if _, err := f.NewSheet(s.name); err != nil {
				return fmt.Errorf("creating sheet %s: %w", s.name, err)
			}
		}
		if err := writeRows(f, s.name, s.rows); err != nil {
			return err
		}

		lastCol, err := excelize.ColumnNumberToName(len(s.rows[0]))
		if err != nil {
			return fmt.Errorf("resolving last column of %s: %w", s.name, err)
		}
		if err := f.SetCellStyle(s.name, "A1", lastCol+"1", header); err != nil {
			return fmt.Errorf("styling header of %s: %w", s.name, err)
		}
		if len(s.rows) > 1 {
			if err := f.SetCellStyle(s.name, s.numCols[0]+"2", fmt.Sprintf("%s%d", s.numCols[1], len(s.rows)), number); err != nil {
				return fmt.Errorf("styling numbers of %s: %w", s.name, err)
			}
		}
		if err := f.SetColWidth(s.name, "A", lastCol, 16); err != nil {
			return fmt.Errorf("sizing columns of %s: %w", s.name, err)
		}
		if err := f.SetPanes(s.name, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
			return fmt.Errorf("freezing header of %s: %w", s.name, err)
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("resolving cell for row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
