package entity

import (
	"fmt"
	"time"

	"github.com/damon-houk/forex-conversion-service/internal/domain/apperror"
	"github.com/shopspring/decimal"
)

const (
	// AmountScale is the number of fractional digits kept for amounts
	AmountScale int32 = 4

	// RateScale is the minimum number of fractional digits kept for rates
	RateScale int32 = 6

	// MaxAmountIntegerDigits bounds the whole part of an amount
	MaxAmountIntegerDigits int32 = 15

	// MaxAmountFractionDigits bounds the digits accepted after the decimal point
	MaxAmountFractionDigits int32 = 18
)

var amountCeiling = decimal.New(1, MaxAmountIntegerDigits)

// CheckAmountRange rejects amounts whose scale or magnitude falls outside
// what a transaction can hold. The exponent is checked before any arithmetic
// so an absurd exponent costs nothing.
func CheckAmountRange(amount decimal.Decimal) error {
	exp := amount.Exponent()
	if exp < -MaxAmountFractionDigits {
		return apperror.NewValidationError("amount", fmt.Sprintf("must have at most %d decimal places", MaxAmountFractionDigits))
	}
	if exp > MaxAmountIntegerDigits || amount.Abs().Cmp(amountCeiling) >= 0 {
		return apperror.NewValidationError("amount", fmt.Sprintf("must have at most %d integer digits", MaxAmountIntegerDigits))
	}
	return nil
}

// ValidateAmount requires a positive amount within range
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperror.NewValidationError("amount", "must be greater than zero")
	}
	return CheckAmountRange(amount)
}

// ConversionRequest asks to convert Amount from SourceCurrency into TargetCurrency
type ConversionRequest struct {
	SourceCurrency string
	TargetCurrency string
	Amount         decimal.Decimal
}

// Normalize validates the request and returns a copy with upper-cased codes
func (r ConversionRequest) Normalize() (ConversionRequest, error) {
	source, err := NormalizeCurrency("sourceCurrency", r.SourceCurrency)
	if err != nil {
		return ConversionRequest{}, err
	}

	target, err := NormalizeCurrency("targetCurrency", r.TargetCurrency)
	if err != nil {
		return ConversionRequest{}, err
	}

	if err := ValidateAmount(r.Amount); err != nil {
		return ConversionRequest{}, err
	}

	return ConversionRequest{
		SourceCurrency: source,
		TargetCurrency: target,
		Amount:         r.Amount,
	}, nil
}

// ConversionTransaction is the immutable record of one successful conversion
type ConversionTransaction struct {
	TransactionID   string          `json:"transaction_id"`
	SourceCurrency  string          `json:"source_currency"`
	TargetCurrency  string          `json:"target_currency"`
	OriginalAmount  decimal.Decimal `json:"original_amount"`
	ConvertedAmount decimal.Decimal `json:"converted_amount"`
	ExchangeRate    decimal.Decimal `json:"exchange_rate"`
	TransactionDate time.Time       `json:"transaction_date"`
}

// TransactionPage is one page of transactions ordered by transaction date
type TransactionPage struct {
	Items []*ConversionTransaction
	Page  int
	Size  int
	Total int
}
