// Package market estimates fair value for a listing. The heuristic
// implementation depreciates the listed price by category and
// condition; a data-backed analyzer can replace it behind the same
// port.
package market

import (
	"context"
	"strings"

	"github.com/dealsense/negotiator/internal/core/domain"
	"github.com/dealsense/negotiator/internal/core/ports"
)

// Heuristic is the built-in market analyzer.
type Heuristic struct{}

// New returns the heuristic analyzer.
func New() *Heuristic { return &Heuristic{} }

var _ ports.MarketAnalyzer = (*Heuristic)(nil)

// categoryDepreciation is the annual depreciation rate per category.
// Listings without a recognizable category use the default rate.
var categoryDepreciation = map[string]float64{
	"mobile phones":       0.20,
	"laptops & computers": 0.25,
	"cars":                0.15,
	"vehicles":            0.18,
	"electronics":         0.30,
	"gaming":              0.20,
	"home & garden":       0.10,
}

const defaultDepreciation = 0.20

// conditionFactor scales the depreciated value by the stated condition.
func conditionFactor(condition string) float64 {
	switch strings.ToLower(strings.TrimSpace(condition)) {
	case "new", "brand new", "sealed":
		return 1.10
	case "like new", "excellent":
		return 1.00
	case "fair", "used - fair":
		return 0.85
	case "poor", "for parts":
		return 0.70
	default:
		return 0.95
	}
}

// Analyze implements ports.MarketAnalyzer. Estimated value assumes a
// typical two-year-old used item at the category's depreciation rate.
func (h *Heuristic) Analyze(ctx context.Context, product domain.ProductData, targetPrice, maxBudget int) (domain.MarketAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return domain.MarketAnalysis{}, err
	}
	if product.Price <= 0 {
		return domain.MarketAnalysis{MarketPosition: domain.PositionUnknown, NegotiationPotential: 0.15}, nil
	}

	rate, ok := categoryDepreciation[strings.ToLower(strings.TrimSpace(product.Category))]
	if !ok {
		rate = defaultDepreciation
	}
	depreciated := 1 - minF(rate*2, 0.8)
	estimated := int(float64(product.Price) * depreciated * conditionFactor(product.Condition))
	if estimated <= 0 {
		estimated = product.Price
	}

	ratio := float64(product.Price) / float64(estimated)
	position := domain.PositionMarketRate
	switch {
	case ratio > 1.2:
		position = domain.PositionOverpriced
	case ratio < 0.8:
		position = domain.PositionUnderpriced
	}

	overpricing := maxF(0, float64(product.Price-estimated)/float64(estimated))
	potential := minF(0.1+overpricing*0.5, 0.3)

	return domain.MarketAnalysis{
		EstimatedValue:       estimated,
		NegotiationPotential: potential,
		MarketPosition:       position,
	}, nil
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
