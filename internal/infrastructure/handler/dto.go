package handler

import (
	"encoding/json"
	"time"

	"github.com/damon-houk/forex-conversion-service/internal/application/service"
	"github.com/damon-houk/forex-conversion-service/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// ConvertRequest represents the request body for the convert endpoint
type ConvertRequest struct {
	SourceCurrency string              `json:"sourceCurrency" validate:"required,len=3,alpha"`
	TargetCurrency string              `json:"targetCurrency" validate:"required,len=3,alpha"`
	Amount         decimal.NullDecimal `json:"amount" validate:"required,gte=0.01"`
}

// ExchangeRateResponse represents the response for the exchange-rate endpoint
type ExchangeRateResponse struct {
	SourceCurrency string      `json:"sourceCurrency"`
	TargetCurrency string      `json:"targetCurrency"`
	Rate           json.Number `json:"rate"`
}

// ConversionResponse represents one successful conversion
type ConversionResponse struct {
	TransactionID   string      `json:"transactionId"`
	SourceCurrency  string      `json:"sourceCurrency"`
	TargetCurrency  string      `json:"targetCurrency"`
	OriginalAmount  json.Number `json:"originalAmount"`
	ConvertedAmount json.Number `json:"convertedAmount"`
	ExchangeRate    json.Number `json:"exchangeRate"`
}

// HistoryResponse represents one recorded conversion
type HistoryResponse struct {
	TransactionID   string      `json:"transactionId"`
	SourceCurrency  string      `json:"sourceCurrency"`
	TargetCurrency  string      `json:"targetCurrency"`
	OriginalAmount  json.Number `json:"originalAmount"`
	ConvertedAmount json.Number `json:"convertedAmount"`
	ExchangeRate    json.Number `json:"exchangeRate"`
	TransactionDate time.Time   `json:"transactionDate"`
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error       string `json:"error"`
	Status      int    `json:"status"`
	Description string `json:"description,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}

// formatAmount renders an amount with exactly four fractional digits
func formatAmount(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(entity.AmountScale))
}

// formatRate renders a rate with at least six fractional digits and never drops precision
func formatRate(d decimal.Decimal) json.Number {
	places := entity.RateScale
	if exp := -d.Exponent(); exp > places {
		places = exp
	}
	return json.Number(d.StringFixed(places))
}

func toConversionResponse(res *service.ConversionResult) ConversionResponse {
	return ConversionResponse{
		TransactionID:   res.TransactionID,
		SourceCurrency:  res.SourceCurrency,
		TargetCurrency:  res.TargetCurrency,
		OriginalAmount:  formatAmount(res.OriginalAmount),
		ConvertedAmount: formatAmount(res.ConvertedAmount),
		ExchangeRate:    formatRate(res.ExchangeRate),
	}
}

func toHistoryResponse(tx *entity.ConversionTransaction) HistoryResponse {
	return HistoryResponse{
		TransactionID:   tx.TransactionID,
		SourceCurrency:  tx.SourceCurrency,
		TargetCurrency:  tx.TargetCurrency,
		OriginalAmount:  formatAmount(tx.OriginalAmount),
		ConvertedAmount: formatAmount(tx.ConvertedAmount),
		ExchangeRate:    formatRate(tx.ExchangeRate),
		TransactionDate: tx.TransactionDate.UTC(),
	}
}
