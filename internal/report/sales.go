// Package report renders back-office reports as spreadsheets.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const salesSheet = "Sales"

type SalesRow struct {
	DishID   uint
	DishName string
	Quantity int64
	Revenue  decimal.Decimal
}

var salesHeader = []any{"Dish ID", "Dish", "Quantity sold", "Revenue"}

// WriteSales writes one row per dish plus a totals row.
func WriteSales(w io.Writer, rows []SalesRow, generatedAt time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", salesSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetCellValue(salesSheet, "A1", "Generated at "+generatedAt.UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	if err := f.SetSheetRow(salesSheet, "A2", &salesHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	var (
		totalQty     int64
		totalRevenue = decimal.Zero
	)
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+3)
		revenue, _ := r.Revenue.Float64()
		values := []any{r.DishID, r.DishName, r.Quantity, revenue}
		if err := f.SetSheetRow(salesSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
		totalQty += r.Quantity
		totalRevenue = totalRevenue.Add(r.Revenue)
	}

	cell, _ := excelize.CoordinatesToCellName(1, len(rows)+3)
	total, _ := totalRevenue.Float64()
	totals := []any{"", "Total", totalQty, total}
	if err := f.SetSheetRow(salesSheet, cell, &totals); err != nil {
		return fmt.Errorf("write totals: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
