package inventory

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"printshop-backend/internal/config"
	"printshop-backend/internal/httputil"
	"printshop-backend/internal/ledger"
	"printshop-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

func TestUnitSize(t *testing.T) {
	cases := []struct {
		unit    models.UnitType
		given   int64
		want    int64
		wantErr bool
	}{
		{models.UnitSheets, 0, 1, false},
		{models.UnitSheets, 1, 1, false},
		{models.UnitSheets, 100, 0, true},
		{models.UnitReams, 0, SheetsPerReam, false},
		{models.UnitReams, 480, 480, false},
		{models.UnitReams, -1, 0, true},
		{models.UnitPackets, 0, 0, true},
		{models.UnitPackets, 100, 100, false},
		{models.UnitPackets, -100, 0, true},
		{"boxes", 10, 0, true},
	}
	for _, tc := range cases {
		got, err := UnitSize(tc.unit, tc.given)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Fatalf("UnitSize(%s, %d) = %d, %v", tc.unit, tc.given, got, err)
		}
	}
	if _, err := UnitSize(models.UnitPackets, -5); !errors.Is(err, ledger.ErrInvalidUnitSize) {
		t.Fatalf("negative packets: %v", err)
	}
}

func TestItemResponseDerivesAvailableAndLevel(t *testing.T) {
	r := toItemResponse(models.StockItem{
		CurrentQuantity:  500,
		ReservedQuantity: 120,
		Party:            models.Party{Name: "Acme Prints"},
		PaperType:        models.PaperType{Name: "Art Card"},
	})
	if r.AvailableQuantity != 380 || r.Level != ledger.LevelLow {
		t.Fatalf("response = %+v", r)
	}
	if r.PartyName != "Acme Prints" || r.PaperTypeName != "Art Card" {
		t.Fatalf("names = %q %q", r.PartyName, r.PaperTypeName)
	}
}

func testApp() *fiber.App {
	cfg := &config.Config{DeletePasscode: "letmein"}
	app := fiber.New(fiber.Config{ErrorHandler: httputil.ErrorHandler})
	app.Get("/inventory", ListItemsHandler())
	app.Get("/inventory/export.xlsx", ExportItemsHandler())
	app.Delete("/inventory/:id", DeleteItemHandler(cfg, nil))
	app.Post("/inventory/:id/reserve", ReserveHandler(nil))
	app.Post("/inventory/:id/release", ReleaseHandler(nil))
	app.Post("/transactions", CreateTransactionHandler(nil))
	app.Get("/transactions", ListTransactionsHandler())
	app.Delete("/transactions/:id", DeleteTransactionHandler(cfg, nil))
	app.Delete("/transactions/:id/hard", HardDeleteTransactionHandler(cfg, nil))
	app.Post("/paper-types", CreatePaperTypeHandler(nil))
	app.Delete("/paper-types/:id", DeletePaperTypeHandler(cfg, nil))
	return app
}

func send(t *testing.T, app *fiber.App, method, path, body string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func TestCreateTransactionValidation(t *testing.T) {
	app := testApp()
	base := `"party_id":1,"paper_type_id":2,"gsm":300`
	cases := []struct {
		body   string
		status int
		msg    string
	}{
		{`{"paper_type_id":2,"gsm":300,"type":"in","quantity":1,"unit_type":"sheets"}`, 400, "party_id is required"},
		{`{` + base + `,"type":"gift","quantity":1,"unit_type":"sheets"}`, 400, "type must be one of in out adjustment"},
		{`{` + base + `,"type":"in","quantity":1,"unit_type":"boxes"}`, 400, "unit_type must be one of"},
		{`{` + base + `,"type":"in","quantity":0,"unit_type":"sheets"}`, 400, "quantity must be a positive number"},
		{`{` + base + `,"type":"out","quantity":-2,"unit_type":"packets","unit_size":100}`, 400, "quantity must be a positive number"},
		{`{` + base + `,"type":"in","quantity":2,"unit_type":"packets"}`, 400, "unit_size is required for packets"},
		{`{` + base + `,"type":"in","quantity":2,"unit_type":"sheets","unit_size":5}`, 400, "unit_size must be 1"},
		{`{"party_id":1,"paper_type_id":2,"type":"in","quantity":1,"unit_type":"sheets"}`, 400, "gsm must be greater than 0"},
		// valid bodies reach the user check
		{`{` + base + `,"type":"adjustment","quantity":-40,"unit_type":"sheets"}`, 401, "User missing"},
		{`{` + base + `,"type":"out","quantity":2,"unit_type":"packets","unit_size":100}`, 401, "User missing"},
	}
	for _, tc := range cases {
		status, body := send(t, app, http.MethodPost, "/transactions", tc.body)
		if status != tc.status || !strings.Contains(body, tc.msg) {
			t.Fatalf("%s: got %d %s", tc.body, status, body)
		}
	}
}

func TestListFiltersAreValidated(t *testing.T) {
	app := testApp()
	paths := []string{
		"/inventory?level=huge",
		"/inventory?gsm=abc",
		"/inventory?gsm=-3",
		"/inventory?party_id=x",
		"/inventory/export.xlsx?level=huge",
		"/transactions?type=gift",
		"/transactions?range=century",
		"/transactions?deleted=some",
		"/transactions?stock_item_id=z",
	}
	for _, p := range paths {
		if status, body := send(t, app, http.MethodGet, p, ""); status != 400 {
			t.Fatalf("%s: %d %s", p, status, body)
		}
	}
}

func TestReservationValidation(t *testing.T) {
	app := testApp()
	for _, path := range []string{"/inventory/1/reserve", "/inventory/1/release"} {
		if status, body := send(t, app, http.MethodPost, path, `{"sheets":0}`); status != 400 || !strings.Contains(body, "sheets must be greater than 0") {
			t.Fatalf("%s: %d %s", path, status, body)
		}
	}
	if status, _ := send(t, app, http.MethodPost, "/inventory/abc/reserve", `{"sheets":5}`); status != 400 {
		t.Fatalf("bad id: %d", status)
	}
	if status, _ := send(t, app, http.MethodPost, "/inventory/1/reserve", `{"sheets":5}`); status != 401 {
		t.Fatalf("no user: %d", status)
	}
}

func TestDeletesRequirePasscode(t *testing.T) {
	app := testApp()
	cases := []struct {
		path, body string
		status     int
	}{
		{"/inventory/4", `{"passcode":"wrong"}`, 401},
		{"/transactions/4", `{"passcode":"letmein"}`, 400},
		{"/transactions/4", `{"passcode":"wrong","reason":"dup"}`, 401},
		{"/transactions/4/hard", `{"passcode":"wrong"}`, 401},
		{"/transactions/4/hard", `{"passcode":"letmein"}`, 401},
		{"/paper-types/4", `{"passcode":"wrong"}`, 401},
	}
	for _, tc := range cases {
		if status, body := send(t, app, http.MethodDelete, tc.path, tc.body); status != tc.status {
			t.Fatalf("%s %s: got %d %s, want %d", tc.path, tc.body, status, body, tc.status)
		}
	}
}

func TestCreatePaperTypeValidation(t *testing.T) {
	status, body := send(t, testApp(), http.MethodPost, "/paper-types", `{"description":"glossy"}`)
	if status != 400 || !strings.Contains(body, "name is required") {
		t.Fatalf("got %d %s", status, body)
	}
}
