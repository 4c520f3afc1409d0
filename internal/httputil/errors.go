package httputil

import (
	"errors"

	"printshop-backend/internal/cache"
	"printshop-backend/internal/ledger"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

var domainErrors = []error{
	ledger.ErrInvalidQuantity,
	ledger.ErrZeroAdjustment,
	ledger.ErrInvalidUnitSize,
	ledger.ErrUnknownType,
	ledger.ErrInsufficientAvailable,
	ledger.ErrReleaseExceedsReserved,
	ledger.ErrInvalidAmount,
	ledger.ErrInvalidImpressions,
	ledger.ErrNegativeRate,
	ledger.ErrNegativeCharge,
	ledger.ErrUnknownJobType,
}

// MapError turns ledger, lock and gorm errors into fiber errors. fallback is
// the message used for anything unexpected.
func MapError(err error, notFound, fallback string) error {
	if err == nil {
		return nil
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe
	}
	for _, de := range domainErrors {
		if errors.Is(err, de) {
			return fiber.NewError(fiber.StatusBadRequest, de.Error())
		}
	}
	switch {
	case errors.Is(err, cache.ErrLockBusy):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fiber.NewError(fiber.StatusNotFound, notFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fiber.NewError(fiber.StatusConflict, "A record with the same key already exists")
	}
	return fiber.NewError(fiber.StatusInternalServerError, fallback)
}
