package export

import (
	"bytes"
	"net/http/httptest"
	"testing"
	"time"

	"printshop-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func reopen(t *testing.T, f *excelize.File) *excelize.File {
	t.Helper()
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	out, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	return out
}

func TestStockWorkbook(t *testing.T) {
	items := []models.StockItem{
		{ID: 1, GSM: 300, CurrentQuantity: 1200, ReservedQuantity: 200,
			Party: models.Party{Name: "Acme Prints"}, PaperType: models.PaperType{Name: "Art Card"}},
		{ID: 2, GSM: 70, CurrentQuantity: -50,
			Party: models.Party{Name: "Bolt Traders"}, PaperType: models.PaperType{Name: "Maplitho"}},
	}
	f, err := StockWorkbook(items)
	if err != nil {
		t.Fatalf("StockWorkbook: %v", err)
	}
	rows, err := reopen(t, f).GetRows(StockSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("rows = %d: %v", len(rows), rows)
	}
	if rows[0][0] != "ID" || rows[0][7] != "Level" {
		t.Fatalf("header = %v", rows[0])
	}
	want := []string{"1", "Acme Prints", "Art Card", "300", "1200", "200", "1000", "normal"}
	for i, v := range want {
		if rows[1][i] != v {
			t.Fatalf("row 1 col %d = %q, want %q", i, rows[1][i], v)
		}
	}
	if rows[2][4] != "-50" || rows[2][7] != "debt" {
		t.Fatalf("debt row = %v", rows[2])
	}
	if rows[4][0] != "Total" || rows[4][4] != "1150" || rows[4][6] != "950" {
		t.Fatalf("footer = %v", rows[4])
	}
}

func TestPartyLedgerWorkbook(t *testing.T) {
	party := models.Party{Name: "Acme Prints", Balance: decimal.RequireFromString("750.5")}
	day := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	txs := []models.PartyTransaction{
		{Type: models.PartyTxOrder, Amount: decimal.NewFromInt(1000), BalanceAfter: decimal.NewFromInt(1000), Date: day, Description: "Brochures"},
		{Type: models.PartyTxPayment, Amount: decimal.RequireFromString("249.5"), BalanceAfter: decimal.RequireFromString("750.5"), Date: day},
		{Type: models.PartyTxPayment, Amount: decimal.NewFromInt(5), Date: day, SoftDelete: models.SoftDelete{IsDeleted: true, DeletedReason: "typo"}},
	}
	f, err := PartyLedgerWorkbook(party, txs)
	if err != nil {
		t.Fatalf("PartyLedgerWorkbook: %v", err)
	}
	rows, err := reopen(t, f).GetRows(LedgerSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if rows[0][1] != "Acme Prints" || rows[1][1] != "750.5" {
		t.Fatalf("header rows = %v %v", rows[0], rows[1])
	}
	if rows[3][0] != "Date" {
		t.Fatalf("column headers = %v", rows[3])
	}
	if rows[4][0] != "2026-05-02" || rows[4][1] != "order" || rows[4][2] != "Brochures" || rows[4][4] != "1000" {
		t.Fatalf("first tx = %v", rows[4])
	}
	if rows[6][5] != "yes: typo" {
		t.Fatalf("deleted tx = %v", rows[6])
	}
}

func TestSendSetsAttachmentHeaders(t *testing.T) {
	app := fiber.New()
	app.Get("/x", func(c *fiber.Ctx) error {
		f, err := StockWorkbook(nil)
		if err != nil {
			return err
		}
		return Send(c, f, "stock.xlsx")
	})
	resp, err := app.Test(httptest.NewRequest("GET", "/x", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get(fiber.HeaderContentDisposition); got != `attachment; filename="stock.xlsx"` {
		t.Fatalf("disposition = %q", got)
	}
}
