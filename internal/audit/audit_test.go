package audit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"printshop-backend/internal/auth"
	"printshop-backend/internal/httputil"
	"printshop-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

func TestToJSON(t *testing.T) {
	if got := toJSON(nil); got != "null" {
		t.Fatalf("nil = %q", got)
	}
	if got := toJSON(map[string]int{"a": 1}); got != `{"a":1}` {
		t.Fatalf("map = %q", got)
	}
	if got := toJSON(make(chan int)); got != "null" {
		t.Fatalf("unmarshalable = %q", got)
	}
}

func TestNewLogCopiesOptions(t *testing.T) {
	log := newLog(LogOptions{
		UserID:      3,
		UserName:    "Ravi",
		EntityType:  EntityPartyTransaction,
		EntityID:    9,
		Action:      models.AuditActionDelete,
		Description: "payment deleted",
		Before:      map[string]string{"type": "payment"},
	})
	if log.EntityType != EntityPartyTransaction || log.EntityID != 9 || log.UserName != "Ravi" {
		t.Fatalf("log = %+v", log)
	}
	if log.BeforeData != `{"type":"payment"}` || log.AfterData != "null" {
		t.Fatalf("data = %q / %q", log.BeforeData, log.AfterData)
	}
	if log.IsUndone {
		t.Fatal("fresh log must not be undone")
	}
}

func TestToResponseFormatsTimes(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	by := uint(2)
	r := toResponse(models.AuditLog{ID: 1, CreatedAt: at, UndoneAt: &at, UndoneBy: &by, IsUndone: true})
	if r.CreatedAt != "2026-03-04 05:06:07" || r.UndoneAt == nil || *r.UndoneAt != r.CreatedAt {
		t.Fatalf("response = %+v", r)
	}
	if toResponse(models.AuditLog{}).UndoneAt != nil {
		t.Fatal("undone_at should be nil when never undone")
	}
}

func TestUndoHandlerValidatesBeforeTouchingTheDatabase(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: httputil.ErrorHandler})
	app.Post("/logs/:id/undo", UndoAuditLogHandler(nil, Undoers{}))
	app.Post("/authed/logs/:id/undo", func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, uint(1))
		return c.Next()
	}, UndoAuditLogHandler(nil, Undoers{}))

	cases := []struct {
		path   string
		status int
	}{
		{"/logs/abc/undo", 400},
		{"/logs/5/undo", 401},
		{"/authed/logs/0/undo", 400},
	}
	for _, tc := range cases {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, tc.path, nil))
		if err != nil {
			t.Fatalf("%s: %v", tc.path, err)
		}
		if resp.StatusCode != tc.status {
			t.Fatalf("%s: got %d, want %d", tc.path, resp.StatusCode, tc.status)
		}
	}
}

func TestListRejectsBadQuery(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: httputil.ErrorHandler})
	app.Get("/logs", ListAuditLogsHandler())
	for _, q := range []string{"?entity_id=x", "?user_id=-1", "?limit=0", "?limit=5000"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/logs"+q, nil))
		if err != nil {
			t.Fatalf("%s: %v", q, err)
		}
		if resp.StatusCode != 400 {
			t.Fatalf("%s: got %d", q, resp.StatusCode)
		}
	}
}
