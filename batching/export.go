package batching

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/mmprintworks/printshop_backend/models"
	"github.com/xuri/excelize/v2"
)

// WriteCSV renders a batch as the human-readable purchase-order export:
// a header block, then GARMENTS and MATERIALS sections with one row per
// batch line, in snapshot order.
func WriteCSV(w io.Writer, batch *models.Batch) error {
	cw := csv.NewWriter(w)

	header := [][]string{
		{"Channel", batch.ShopChannel},
		{"Period Start", batch.PeriodStart.Format(time.RFC3339)},
		{"Period End", batch.PeriodEnd.Format(time.RFC3339)},
		{"Closed At", batch.ClosedAt.Format(time.RFC3339)},
		{"Orders", fmt.Sprint(batch.OrderCount)},
		{"Items Sold", fmt.Sprint(batch.TotalItemsSold)},
		{"Items Required", fmt.Sprint(batch.TotalItemsRequired)},
	}
	if batch.ClientId != "" {
		header = append(header,
			[]string{"Client", batch.ClientId},
			[]string{"Client Share %", batch.ClientSharePct.String()},
		)
	}
	for _, row := range header {
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	if err := cw.Write([]string{}); err != nil {
		return err
	}
	if err := cw.Write([]string{"GARMENTS"}); err != nil {
		return err
	}
	if err := cw.Write([]string{"SKU", "Size", "Sold", "Required"}); err != nil {
		return err
	}
	for _, line := range batch.Lines {
		if line.LineType != models.BatchLineGarment {
			continue
		}
		if err := cw.Write([]string{line.Sku, line.Size, line.SoldQty.String(), line.RequiredQty.String()}); err != nil {
			return err
		}
	}

	if err := cw.Write([]string{}); err != nil {
		return err
	}
	if err := cw.Write([]string{"MATERIALS"}); err != nil {
		return err
	}
	if err := cw.Write([]string{"SKU", "Production Type", "Sold", "Required"}); err != nil {
		return err
	}
	for _, line := range batch.Lines {
		if line.LineType != models.BatchLineMaterial {
			continue
		}
		if err := cw.Write([]string{line.Sku, line.ProductionType, line.SoldQty.String(), line.RequiredQty.String()}); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteXLSX renders the same purchase-order export as a spreadsheet, the
// format suppliers actually get mailed.
func WriteXLSX(w io.Writer, batch *models.Batch) error {
	f := excelize.NewFile()
	sheet := "Sheet1"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	row := 1
	setRow := func(values ...interface{}) {
		for i, v := range values {
			col, _ := excelize.ColumnNumberToName(i + 1)
			f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, row), v)
		}
		row++
	}

	setRow("Channel", batch.ShopChannel)
	setRow("Period Start", batch.PeriodStart.Format(time.RFC3339))
	setRow("Period End", batch.PeriodEnd.Format(time.RFC3339))
	setRow("Closed At", batch.ClosedAt.Format(time.RFC3339))
	setRow("Orders", batch.OrderCount)
	setRow("Items Sold", batch.TotalItemsSold)
	setRow("Items Required", batch.TotalItemsRequired)
	if batch.ClientId != "" {
		setRow("Client", batch.ClientId)
		setRow("Client Share %", batch.ClientSharePct.String())
	}

	row++
	setRow("GARMENTS")
	setRow("SKU", "Size", "Sold", "Required")
	for _, line := range batch.Lines {
		if line.LineType != models.BatchLineGarment {
			continue
		}
		setRow(line.Sku, line.Size, line.SoldQty.String(), line.RequiredQty.String())
	}

	row++
	setRow("MATERIALS")
	setRow("SKU", "Production Type", "Sold", "Required")
	for _, line := range batch.Lines {
		if line.LineType != models.BatchLineMaterial {
			continue
		}
		setRow(line.Sku, line.ProductionType, line.SoldQty.String(), line.RequiredQty.String())
	}

	return f.Write(w)
}
