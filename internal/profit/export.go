package profit

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const reportSheet = "Transactions"

var reportHeadings = []string{
	"Date", "Transaction", "Customer", "Currency", "Product", "Quantity",
	"Unit Price", "Purchase Price", "Floor Price", "Total", "Profit",
	"Surplus", "Allocated Overpayment", "Final Profit",
}

// WriteExcel renders the report as an .xlsx workbook: one sheet of lines
// and one of per-currency totals.
func (t *TransactionReport) WriteExcel(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return err
	}
	for i, h := range reportHeadings {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		f.SetCellValue(reportSheet, cell, h)
	}

	for i, r := range t.Rows {
		row := i + 2
		values := []any{
			r.Date.Format("2006-01-02 15:04"),
			r.TransactionID,
			r.CustomerName,
			string(r.Currency),
			r.ProductName,
			r.Quantity.InexactFloat64(),
			r.UnitPrice.InexactFloat64(),
			r.PurchasePrice.InexactFloat64(),
			r.FloorPrice.InexactFloat64(),
			r.TotalPrice.InexactFloat64(),
			r.Profit.InexactFloat64(),
			r.Surplus.InexactFloat64(),
			r.AllocatedOverpayment.InexactFloat64(),
			r.FinalProfit.InexactFloat64(),
		}
		if err := f.SetSheetRow(reportSheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return err
		}
	}

	const totalsSheet = "Totals"
	if _, err := f.NewSheet(totalsSheet); err != nil {
		return err
	}
	header := []any{"Currency", "Lines", "Revenue", "Profit", "Surplus", "Allocated Overpayment", "Final Profit"}
	if err := f.SetSheetRow(totalsSheet, "A1", &header); err != nil {
		return err
	}
	for i, tot := range t.Totals {
		values := []any{
			string(tot.Currency),
			tot.Lines,
			tot.Revenue.InexactFloat64(),
			tot.Profit.InexactFloat64(),
			tot.Surplus.InexactFloat64(),
			tot.Allocated.InexactFloat64(),
			tot.FinalProfit.InexactFloat64(),
		}
		if err := f.SetSheetRow(totalsSheet, fmt.Sprintf("A%d", i+2), &values); err != nil {
			return err
		}
	}

	return f.Write(w)
}
