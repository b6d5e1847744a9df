package domain

import (
	"math"
	"time"

	"estate-backend/internal/pkg/apperror"
)

// MinSellingRatio is the lowest accepted selling price as a fraction of the expected price.
const MinSellingRatio = 0.9

var (
	ErrExpectedPriceNotPositive = apperror.Validation("Expected price must be positive.")
	ErrSellingPriceNegative     = apperror.Validation("Selling price must be positive.")
	ErrSellingPriceTooLow       = apperror.Validation("Selling price must be at least 90% of the expected price.")
	ErrOfferPriceNegative       = apperror.Validation("Offer price must be positive.")
)

// priceEpsilon absorbs float noise from decimal(18,2) round trips.
const priceEpsilon = 1e-6

// CheckPrices validates an expected/selling price pair. A zero selling price means "not yet set".
func CheckPrices(expected, selling float64) error {
	if expected <= 0 {
		return ErrExpectedPriceNotPositive
	}
	if selling < 0 {
		return ErrSellingPriceNegative
	}
	if selling > 0 && selling < expected*MinSellingRatio-priceEpsilon {
		return ErrSellingPriceTooLow
	}
	return nil
}

// RoundMoney rounds to cents.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// TruncateDay returns midnight UTC of t's calendar day.
func TruncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
