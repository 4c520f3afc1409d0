package httputil

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"printshop-backend/internal/logger"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const DateLayout = "2006-01-02"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// BindJSON parses the body into dest and runs struct validation.
func BindJSON(c *fiber.Ctx, dest any) error {
	if err := c.BodyParser(dest); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := validate.Struct(dest); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, ValidationMessage(err))
	}
	return nil
}

// ValidationMessage renders every failed rule as a short sentence keyed by
// the json field name.
func ValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of %s", field, fe.Param()))
		case "gt":
			parts = append(parts, fmt.Sprintf("%s must be greater than %s", field, fe.Param()))
		case "gte", "min":
			parts = append(parts, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		case "max", "lte":
			parts = append(parts, fmt.Sprintf("%s must be at most %s", field, fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s is invalid (%s)", field, fe.Tag()))
		}
	}
	return strings.Join(parts, ", ")
}

// ParamID reads a positive numeric route parameter.
func ParamID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid "+name)
	}
	return uint(id), nil
}

// QueryID reads an optional numeric query parameter; missing means 0.
func QueryID(c *fiber.Ctx, name string) (uint, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, name+" is invalid")
	}
	return uint(id), nil
}

// ParseDate accepts "YYYY-MM-DD"; empty means today.
func ParseDate(s string, now time.Time) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), nil
	}
	d, err := time.ParseInLocation(DateLayout, s, now.Location())
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, "Date must be in YYYY-MM-DD format")
	}
	return d, nil
}

// DeleteRequest is the body of every soft or hard delete.
type DeleteRequest struct {
	Passcode string `json:"passcode" validate:"required"`
	Reason   string `json:"reason" validate:"max=255"`
}

// CheckPasscode compares in constant time.
func CheckPasscode(expected, given string) error {
	if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(given)) != 1 {
		return fiber.NewError(fiber.StatusUnauthorized, "Wrong deletion passcode")
	}
	return nil
}

// BindDelete parses a DeleteRequest and checks its passcode. requireReason
// is set for soft deletes.
func BindDelete(c *fiber.Ctx, passcode string, requireReason bool) (DeleteRequest, error) {
	var body DeleteRequest
	if err := BindJSON(c, &body); err != nil {
		return body, err
	}
	if err := CheckPasscode(passcode, body.Passcode); err != nil {
		return body, err
	}
	body.Reason = strings.TrimSpace(body.Reason)
	if requireReason && body.Reason == "" {
		return body, fiber.NewError(fiber.StatusBadRequest, "reason is required")
	}
	return body, nil
}

// RequestID tags each request with X-Request-ID, reusing the caller's.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(fiber.HeaderXRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(fiber.HeaderXRequestID, id)
		c.Locals(logger.CtxRequestIDKey, id)
		return c.Next()
	}
}

// ErrorHandler renders fiber errors as {"error": msg} and hides the rest.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var e *fiber.Error
	if errors.As(err, &e) {
		return c.Status(e.Code).JSON(fiber.Map{"error": e.Message})
	}
	logger.LogError("http", "ErrorHandler", c.Method()+" "+c.Path(), c.Locals(logger.CtxRequestIDKey), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Unexpected server error",
	})
}
