package reports_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/payables_backend/config"
	"bitbucket.org/mmdatafocus/payables_backend/models"
	"bitbucket.org/mmdatafocus/payables_backend/models/reports"
	"bitbucket.org/mmdatafocus/payables_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
)

func seededDB(t *testing.T) context.Context {
	t.Helper()
	t.Setenv("DB_MAX_OPEN_CONNS", "1")
	t.Setenv("DB_CONN_MAX_LIFETIME_SECONDS", "0")
	t.Setenv("DB_CONN_MAX_IDLE_TIME_SECONDS", "0")
	require.NoError(t, config.OpenDatabase(sqlite.Open(":memory:")))
	t.Cleanup(config.CloseDatabase)
	require.NoError(t, models.MigrateTable())
	ctx := context.Background()
	require.NoError(t, models.Seed(ctx))
	return ctx
}

func TestParseFormat(t *testing.T) {
	for in, expected := range map[string]reports.Format{
		"pdf":         reports.FormatPDF,
		"PDF":         reports.FormatPDF,
		"excel":       reports.FormatExcel,
		"xlsx":        reports.FormatExcel,
		"spreadsheet": reports.FormatExcel,
	} {
		got, err := reports.ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, expected, got, in)
	}
	_, err := reports.ParseFormat("csv")
	assert.True(t, utils.IsValidation(err))
}

func TestReadTable(t *testing.T) {
	ctx := seededDB(t)

	table, err := reports.ReadTable(ctx, "suppliers")
	require.NoError(t, err)
	assert.Equal(t, "Suppliers", table.Title())
	assert.Equal(t, []string{"id", "name", "phone", "opening_balance", "balance"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "id: 1 - name: Proveedor A - phone:  - opening_balance: 1100.00 - balance: 2600.00", table.RowLine(table.Rows[0]))

	invoices, err := reports.ReadTable(ctx, "invoices")
	require.NoError(t, err)
	require.Len(t, invoices.Rows, 2)
	assert.Equal(t, "2024-01-10", invoices.Rows[1][4])

	_, err = reports.ReadTable(ctx, "users")
	assert.True(t, utils.IsValidation(err))
}

func TestExportReport_PDFIsStable(t *testing.T) {
	ctx := seededDB(t)
	createdAt := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)

	first, err := reports.ExportReport(ctx, &reports.ReportInput{Table: "transactions", Format: "pdf"}, createdAt)
	require.NoError(t, err)
	second, err := reports.ExportReport(ctx, &reports.ReportInput{Table: "transactions", Format: "pdf"}, createdAt)
	require.NoError(t, err)

	assert.Equal(t, "report_transactions.pdf", first.Filename)
	assert.Equal(t, reports.ContentTypePDF, first.ContentType)
	assert.True(t, bytes.HasPrefix(first.Data, []byte("%PDF-")))
	assert.True(t, bytes.Equal(first.Data, second.Data), "same rows and date must give the same bytes")
}

func TestExportReport_Excel(t *testing.T) {
	ctx := seededDB(t)

	export, err := reports.ExportReport(ctx, &reports.ReportInput{Table: "suppliers", Format: "xlsx"}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "report_suppliers.xlsx", export.Filename)
	assert.Equal(t, reports.ContentTypeExcel, export.ContentType)

	f, err := excelize.OpenReader(bytes.NewReader(export.Data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Report"}, f.GetSheetList())
	rows, err := f.GetRows("Report")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"id", "name", "phone", "opening_balance", "balance"}, rows[0])
	assert.Equal(t, "Proveedor B", rows[2][1])
	assert.Equal(t, "3500", rows[2][4])

	cellType, err := f.GetCellType("Report", "E3")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, cellType)
}

func TestExportReport_InvalidInput(t *testing.T) {
	ctx := seededDB(t)

	_, err := reports.ExportReport(ctx, &reports.ReportInput{Table: "suppliers", Format: "docx"}, time.Time{})
	assert.True(t, utils.IsValidation(err))
	_, err = reports.ExportReport(ctx, &reports.ReportInput{Table: "payroll", Format: "pdf"}, time.Time{})
	assert.True(t, utils.IsValidation(err))
}
