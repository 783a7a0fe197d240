// Package analytics derives affordability figures, city comparisons and
// recommendation text from already-fetched reports. It does no I/O.
package analytics

import (
	"math"

	"github.com/canre-io/canre/internal/source"
)

// Affordability policy constants.
const (
	DownPaymentThreshold = 500000.0
	HighDownPaymentRate  = 0.20
	LowDownPaymentRate   = 0.05
	AmortizationPayments = 30 * 12
	MaxHousingCostRatio  = 28.0
	FallbackMortgageRate = 6.0
)

// AffordabilityMetrics is the affordability breakdown for one city. The
// payment-derived fields are nil when the monthly rate is not positive and
// the amortization formula has no answer.
type AffordabilityMetrics struct {
	HouseholdIncome      float64  `json:"householdIncome"`
	AverageHomePrice     float64  `json:"averageHomePrice"`
	MonthlyPayment       *float64 `json:"monthlyPayment"`
	AffordabilityRatio   *float64 `json:"affordabilityRatio"`
	MaxAffordablePrice   *float64 `json:"maxAffordablePrice"`
	DownPaymentRequired  float64  `json:"downPaymentRequired"`
	QualifiesForMortgage bool     `json:"qualifiesForMortgage"`
}

// MortgageRate returns the 5-year mortgage rate in percent, or
// FallbackMortgageRate when it is missing or zero.
func MortgageRate(rates *source.BankRates) float64 {
	if rates == nil || rates.MortgageRate5Year == nil || *rates.MortgageRate5Year == 0 {
		return FallbackMortgageRate
	}
	return *rates.MortgageRate5Year
}

// Affordability computes the metrics for a home at price, an annual
// household income and an annual mortgage rate in percent, over a 30-year
// amortization.
func Affordability(price, income, ratePercent float64) AffordabilityMetrics {
	m := AffordabilityMetrics{
		HouseholdIncome:  income,
		AverageHomePrice: price,
	}

	downRate := LowDownPaymentRate
	if price > DownPaymentThreshold {
		downRate = HighDownPaymentRate
	}
	m.DownPaymentRequired = math.Round(price * downRate)

	monthlyRate := ratePercent / 100 / 12
	if monthlyRate <= 0 || income <= 0 {
		return m
	}

	principal := price - m.DownPaymentRequired
	growth := math.Pow(1+monthlyRate, AmortizationPayments)
	payment := math.Round(principal * monthlyRate * growth / (growth - 1))
	ratio := math.Round(payment * 12 / income * 100)
	maxPrice := math.Round(income * MaxHousingCostRatio / 100 / 12 / monthlyRate *
		(1 - math.Pow(1+monthlyRate, -AmortizationPayments)))

	m.MonthlyPayment = &payment
	m.AffordabilityRatio = &ratio
	m.MaxAffordablePrice = &maxPrice
	m.QualifiesForMortgage = ratio <= MaxHousingCostRatio
	return m
}

// RentalYield returns the gross annual yield in percent of a two-bedroom
// rent against averagePrice, rounded to two decimals. A zero price is
// replaced by 1 so the division is always defined.
func RentalYield(twoBedroomRent, averagePrice float64) float64 {
	if averagePrice == 0 {
		averagePrice = 1
	}
	return math.Round(twoBedroomRent*12/averagePrice*100*100) / 100
}
