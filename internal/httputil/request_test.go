package httputil

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"printshop-backend/internal/cache"
	"printshop-backend/internal/ledger"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type sampleRequest struct {
	Name     string `json:"name" validate:"required"`
	Kind     string `json:"kind" validate:"oneof=in out"`
	Quantity int64  `json:"quantity" validate:"gt=0"`
}

func newTestApp() *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(RequestID())
	app.Post("/bind", func(c *fiber.Ctx) error {
		var body sampleRequest
		if err := BindJSON(c, &body); err != nil {
			return err
		}
		return c.JSON(body)
	})
	app.Delete("/things/:id", func(c *fiber.Ctx) error {
		id, err := ParamID(c, "id")
		if err != nil {
			return err
		}
		if _, err := BindDelete(c, "secret", true); err != nil {
			return err
		}
		return c.SendString(fmt.Sprint(id))
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("database on fire")
	})
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, string, *http.Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b), resp
}

func TestBindJSON(t *testing.T) {
	app := newTestApp()
	cases := []struct {
		body   string
		status int
		msg    string
	}{
		{`{"name":"a","kind":"in","quantity":3}`, 200, `"name":"a"`},
		{`{"kind":"in","quantity":3}`, 400, "name is required"},
		{`{"name":"a","kind":"sideways","quantity":3}`, 400, "kind must be one of in out"},
		{`{"name":"a","kind":"in","quantity":0}`, 400, "quantity must be greater than 0"},
		{`{not json`, 400, "Invalid request body"},
	}
	for _, tc := range cases {
		status, body, _ := do(t, app, http.MethodPost, "/bind", tc.body)
		if status != tc.status || !strings.Contains(body, tc.msg) {
			t.Fatalf("body %s: got %d %s, want %d containing %q", tc.body, status, body, tc.status, tc.msg)
		}
	}
}

func TestBindDelete(t *testing.T) {
	app := newTestApp()
	cases := []struct {
		path, body string
		status     int
	}{
		{"/things/5", `{"passcode":"secret","reason":"duplicate"}`, 200},
		{"/things/5", `{"passcode":"wrong","reason":"duplicate"}`, 401},
		{"/things/5", `{"passcode":"secret","reason":"  "}`, 400},
		{"/things/5", `{"reason":"x"}`, 400},
		{"/things/abc", `{"passcode":"secret","reason":"x"}`, 400},
		{"/things/0", `{"passcode":"secret","reason":"x"}`, 400},
	}
	for _, tc := range cases {
		status, body, _ := do(t, app, http.MethodDelete, tc.path, tc.body)
		if status != tc.status {
			t.Fatalf("%s %s: got %d %s, want %d", tc.path, tc.body, status, body, tc.status)
		}
	}
}

func TestErrorHandlerHidesInternalErrors(t *testing.T) {
	status, body, resp := do(t, newTestApp(), http.MethodGet, "/boom", "")
	if status != 500 || strings.Contains(body, "fire") {
		t.Fatalf("got %d %s", status, body)
	}
	if resp.Header.Get(fiber.HeaderXRequestID) == "" {
		t.Fatal("missing request id header")
	}
}

func TestCheckPasscodeRejectsEmptyExpected(t *testing.T) {
	if err := CheckPasscode("", ""); err == nil {
		t.Fatal("empty configured passcode must never match")
	}
}

func TestParseDate(t *testing.T) {
	now := time.Date(2026, 10, 18, 15, 4, 5, 0, time.UTC)
	d, err := ParseDate("", now)
	if err != nil || !d.Equal(time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("empty date = %s, %v", d, err)
	}
	d, err = ParseDate("2026-02-03", now)
	if err != nil || d.Day() != 3 || d.Month() != time.February {
		t.Fatalf("parsed = %s, %v", d, err)
	}
	if _, err := ParseDate("03/02/2026", now); err == nil {
		t.Fatal("expected error")
	}
}

func TestMapError(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{ledger.ErrInsufficientAvailable, 400},
		{fmt.Errorf("wrapped: %w", ledger.ErrZeroAdjustment), 400},
		{cache.ErrLockBusy, 409},
		{gorm.ErrRecordNotFound, 404},
		{gorm.ErrDuplicatedKey, 409},
		{fiber.NewError(403, "nope"), 403},
		{errors.New("other"), 500},
	}
	for _, tc := range cases {
		var fe *fiber.Error
		if !errors.As(MapError(tc.err, "not found", "failed"), &fe) || fe.Code != tc.code {
			t.Fatalf("MapError(%v) = %v, want code %d", tc.err, fe, tc.code)
		}
	}
	if MapError(nil, "", "") != nil {
		t.Fatal("nil error should stay nil")
	}
}
