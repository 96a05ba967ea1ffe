package reports

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/payables_backend/models"
	"bitbucket.org/mmdatafocus/payables_backend/utils"
	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatPDF   Format = "pdf"
	FormatExcel Format = "excel"
)

const (
	ContentTypePDF   = "application/pdf"
	ContentTypeExcel = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	sheetName = "Report"
)

var reportTables = []string{"suppliers", "transactions", "invoices"}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pdf":
		return FormatPDF, nil
	case "excel", "xlsx", "spreadsheet":
		return FormatExcel, nil
	}
	return "", utils.ValidationError("invalid report format %q", s)
}

func (f Format) ContentType() string {
	if f == FormatPDF {
		return ContentTypePDF
	}
	return ContentTypeExcel
}

func (f Format) Extension() string {
	if f == FormatPDF {
		return "pdf"
	}
	return "xlsx"
}

// ReportInput is the body of POST /reports.
type ReportInput struct {
	Table  string `json:"table" form:"table" binding:"required"`
	Format string `json:"format" form:"format" binding:"required"`
}

// Table is a report read into memory: a header and one row per record.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]interface{}
}

// Title is the table name with its first letter upper-cased.
func (t *Table) Title() string {
	if t.Name == "" {
		return ""
	}
	return strings.ToUpper(t.Name[:1]) + t.Name[1:]
}

func validTable(name string) bool {
	for _, t := range reportTables {
		if t == name {
			return true
		}
	}
	return false
}

// ReadTable loads every row of the named table ordered by id.
func ReadTable(ctx context.Context, name string) (*Table, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if !validTable(name) {
		return nil, utils.ValidationError("invalid report table %q", name)
	}

	table := Table{Name: name}
	switch name {
	case "suppliers":
		suppliers, err := models.ListSuppliers(ctx)
		if err != nil {
			return nil, err
		}
		table.Columns = []string{"id", "name", "phone", "opening_balance", "balance"}
		for _, s := range suppliers {
			table.Rows = append(table.Rows, []interface{}{s.ID, s.Name, s.Phone, s.OpeningBalance, s.Balance})
		}
	case "transactions":
		transactions, err := models.ListTransactions(ctx, nil)
		if err != nil {
			return nil, err
		}
		table.Columns = []string{"id", "supplier_id", "kind", "amount"}
		for _, t := range transactions {
			table.Rows = append(table.Rows, []interface{}{t.ID, t.SupplierId, string(t.Kind), t.Amount})
		}
	case "invoices":
		invoices, err := models.ListInvoices(ctx)
		if err != nil {
			return nil, err
		}
		table.Columns = []string{"id", "supplier_id", "amount", "description", "issue_date", "due_date"}
		for _, inv := range invoices {
			table.Rows = append(table.Rows, []interface{}{inv.ID, inv.SupplierId, inv.Amount, inv.Description, inv.IssueDate.String(), inv.DueDate.String()})
		}
	}
	return &table, nil
}

func formatCell(v interface{}) string {
	switch val := v.(type) {
	case decimal.Decimal:
		return val.StringFixed(2)
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

// excelCell writes money as a number, everything else as-is.
func excelCell(v interface{}) interface{} {
	if d, ok := v.(decimal.Decimal); ok {
		return d.InexactFloat64()
	}
	return v
}

// RowLine renders one row as "column: value - column: value".
func (t *Table) RowLine(row []interface{}) string {
	parts := make([]string, 0, len(row))
	for i, v := range row {
		col := ""
		if i < len(t.Columns) {
			col = t.Columns[i]
		}
		parts = append(parts, col+": "+formatCell(v))
	}
	return strings.Join(parts, " - ")
}

// PDF renders the table on A4 portrait pages. A non-zero createdAt is written as
// both creation and modification date so the same rows give the same bytes.
func (t *Table) PDF(createdAt time.Time) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCatalogSort(true)
	if !createdAt.IsZero() {
		pdf.SetCreationDate(createdAt)
		pdf.SetModificationDate(createdAt)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr("Report: "+t.Title()), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 10)
	for _, row := range t.Rows {
		pdf.MultiCell(0, 6, tr(t.RowLine(row)), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Excel writes a single "Report" sheet: header row, then the records.
func (t *Table) Excel() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	header := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, err
	}
	for i, row := range t.Rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = excelCell(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheetName, cell, &cells); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Export is a rendered report ready to be sent as an attachment.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

func ExportReport(ctx context.Context, input *ReportInput, createdAt time.Time) (*Export, error) {
	format, err := ParseFormat(input.Format)
	if err != nil {
		return nil, err
	}
	table, err := ReadTable(ctx, input.Table)
	if err != nil {
		return nil, err
	}

	var data []byte
	if format == FormatPDF {
		data, err = table.PDF(createdAt)
	} else {
		data, err = table.Excel()
	}
	if err != nil {
		return nil, err
	}
	return &Export{
		Filename:    fmt.Sprintf("report_%s.%s", table.Name, format.Extension()),
		ContentType: format.ContentType(),
		Data:        data,
	}, nil
}
