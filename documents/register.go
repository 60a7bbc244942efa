package documents

import (
	"fmt"
	"io"
	"time"

	"freshdock/models"

	"github.com/xuri/excelize/v2"
)

const (
	registerSheet = "Dispatches"
	linesSheet    = "Lines"
)

var registerHeader = []string{
	"Dispatch", "Advice No", "Status", "Grower", "Grower Code", "Receiver",
	"Carrier", "Truck", "Con Note", "Dispatch Date", "Expected Arrival",
	"Zone", "Pallets", "Lines", "Quantity", "Weight (kg)", "Lot Number", "Created",
}

var linesHeader = []string{
	"Dispatch", "#", "Product", "Variety", "Size/Grade", "Pack", "Quantity", "Unit (kg)", "Total (kg)",
}

// WriteRegister writes an xlsx workbook with one row per dispatch and a
// second sheet listing every item line. names maps business ids to display
// names for the receiver column.
func WriteRegister(w io.Writer, dispatches []models.Dispatch, names map[uint]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", registerSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(linesSheet); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := writeHeader(f, registerSheet, registerHeader, bold); err != nil {
		return err
	}
	if err := writeHeader(f, linesSheet, linesHeader, bold); err != nil {
		return err
	}

	lineRow := 2
	for i := range dispatches {
		d := &dispatches[i]
		totals := ComputeTotals(d.Items)

		receiver := Placeholder
		if d.ReceiverBusinessID != nil {
			receiver = Dash(names[*d.ReceiverBusinessID])
		}

		weight := ""
		if totals.Weighed > 0 {
			weight = totals.Weight.StringFixed(1)
		}

		row := []any{
			d.DisplayID,
			d.DeliveryAdviceNo,
			string(models.DisplayStatus(d)),
			d.GrowerName,
			d.GrowerCode,
			receiver,
			d.Carrier,
			d.TruckNumber,
			d.ConNoteNumber,
			dateCell(d.DispatchDate),
			dateCell(d.ExpectedArrival),
			string(d.TemperatureZone),
			d.TotalPallets,
			len(d.Items),
			totals.Quantity,
			weight,
			d.LotNumber,
			d.CreatedAt.Format("2006-01-02 15:04"),
		}
		if err := writeRow(f, registerSheet, i+2, row); err != nil {
			return err
		}

		for n, item := range d.Items {
			unit, total := "", ""
			if item.UnitWeightKg.Valid {
				unit = item.UnitWeightKg.Decimal.StringFixed(2)
			}
			if lw, ok := LineWeight(item); ok {
				total = lw.StringFixed(1)
			}
			line := []any{
				d.DisplayID, n + 1, item.Product, item.Variety, item.SizeGrade,
				item.PackType, item.Quantity, unit, total,
			}
			if err := writeRow(f, linesSheet, lineRow, line); err != nil {
				return err
			}
			lineRow++
		}
	}

	if err := f.SetColWidth(registerSheet, "A", "R", 16); err != nil {
		return err
	}
	return f.Write(w)
}

func writeHeader(f *excelize.File, sheet string, titles []string, style int) error {
	row := make([]any, len(titles))
	for i, t := range titles {
		row[i] = t
	}
	if err := writeRow(f, sheet, 1, row); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(titles), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func dateCell(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
