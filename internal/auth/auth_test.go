package auth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"printshop-backend/internal/config"
	"printshop-backend/internal/httputil"
	"printshop-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testConfig() *config.Config {
	return &config.Config{JWTSecret: testSecret, LoginRateLimit: "2-M"}
}

func testToken(t *testing.T, role models.UserRole) string {
	t.Helper()
	tok, err := GenerateToken(testSecret, &models.User{ID: 7, Name: "Dana", Email: "dana@example.com", Role: role})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return tok
}

func protectedApp(cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: httputil.ErrorHandler})
	api := app.Group("/api", JWTMiddleware(cfg))
	api.Get("/whoami", func(c *fiber.Ctx) error {
		id, name, err := CurrentUser(c)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"id": id, "name": name})
	})
	api.Get("/admin", RequireRole(models.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func call(t *testing.T, app *fiber.App, method, path, token, body string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func TestTokenRoundTrip(t *testing.T) {
	claims, err := ParseToken(testSecret, testToken(t, models.RoleStaff))
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID != 7 || claims.Role != models.RoleStaff || claims.Name != "Dana" {
		t.Fatalf("claims = %+v", claims)
	}
	if _, err := ParseToken("another-secret-another-secret-xx", testToken(t, models.RoleStaff)); err == nil {
		t.Fatal("token signed with a different secret must be rejected")
	}
}

func TestParseTokenRejectsExpiredAndForeignAlgorithms(t *testing.T) {
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &JWTCustomClaims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	s, _ := expired.SignedString([]byte(testSecret))
	if _, err := ParseToken(testSecret, s); err == nil {
		t.Fatal("expired token accepted")
	}

	hs512 := jwt.NewWithClaims(jwt.SigningMethodHS512, &JWTCustomClaims{UserID: 1})
	s, _ = hs512.SignedString([]byte(testSecret))
	if _, err := ParseToken(testSecret, s); err == nil {
		t.Fatal("HS512 token accepted")
	}
}

func TestJWTMiddleware(t *testing.T) {
	app := protectedApp(testConfig())

	if status, _ := call(t, app, http.MethodGet, "/api/whoami", "", ""); status != 401 {
		t.Fatalf("no header: %d", status)
	}
	if status, _ := call(t, app, http.MethodGet, "/api/whoami", "garbage", ""); status != 401 {
		t.Fatalf("bad token: %d", status)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	req.Header.Set("Authorization", "Token abc")
	resp, _ := app.Test(req)
	if resp.StatusCode != 401 {
		t.Fatalf("wrong scheme: %d", resp.StatusCode)
	}

	status, body := call(t, app, http.MethodGet, "/api/whoami", testToken(t, models.RoleStaff), "")
	if status != 200 || !strings.Contains(body, `"id":7`) || !strings.Contains(body, "Dana") {
		t.Fatalf("valid token: %d %s", status, body)
	}
}

func TestRequireRole(t *testing.T) {
	app := protectedApp(testConfig())
	if status, _ := call(t, app, http.MethodGet, "/api/admin", testToken(t, models.RoleStaff), ""); status != 403 {
		t.Fatalf("staff: %d", status)
	}
	if status, _ := call(t, app, http.MethodGet, "/api/admin", testToken(t, models.RoleAdmin), ""); status != 200 {
		t.Fatalf("admin: %d", status)
	}
}

func TestLoginRateLimiter(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: httputil.ErrorHandler})
	app.Post("/login", LoginRateLimiter("2-M"), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	for i := 0; i < 2; i++ {
		if status, _ := call(t, app, http.MethodPost, "/login", "", ""); status != 200 {
			t.Fatalf("attempt %d: %d", i+1, status)
		}
	}
	if status, _ := call(t, app, http.MethodPost, "/login", "", ""); status != 429 {
		t.Fatalf("third attempt: %d", status)
	}
}

func TestLoginRateLimiterFallsBackOnBadFormat(t *testing.T) {
	app := fiber.New()
	app.Post("/login", LoginRateLimiter("lots"), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != 200 {
		t.Fatalf("status %v, %v", resp, err)
	}
	if resp.Header.Get("X-RateLimit-Limit") != "10" {
		t.Fatalf("limit header = %q", resp.Header.Get("X-RateLimit-Limit"))
	}
}

func TestHandlersRejectInvalidBodiesBeforeTouchingTheDatabase(t *testing.T) {
	cfg := testConfig()
	app := fiber.New(fiber.Config{ErrorHandler: httputil.ErrorHandler})
	app.Post("/register-admin", RegisterAdminHandler())
	app.Post("/login", LoginHandler(cfg))
	app.Post("/users", CreateUserHandler())

	cases := []struct {
		path, body, msg string
	}{
		{"/register-admin", `{"name":"A","email":"not-an-email","password":"longenough"}`, "email"},
		{"/register-admin", `{"name":"A","email":"a@b.co","password":"short"}`, "password must be at least 8"},
		{"/login", `{"email":"a@b.co"}`, "password is required"},
		{"/users", `{"name":"B","email":"b@b.co","password":"longenough","role":"owner"}`, "role must be one of admin staff"},
	}
	for _, tc := range cases {
		status, body := call(t, app, http.MethodPost, tc.path, "", tc.body)
		if status != 400 || !strings.Contains(body, tc.msg) {
			t.Fatalf("%s %s: %d %s", tc.path, tc.body, status, body)
		}
	}
}
