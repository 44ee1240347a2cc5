package analyzer

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Plausible price window for a marketplace listing, in rupees. Numbers
// outside it (listing ids, phone numbers) are never treated as prices.
const (
	minPlausiblePrice = 100
	maxPlausiblePrice = 10_000_000
)

var (
	// ₹12,500 / Rs 12500 / Rs. 12,500 / INR 12500
	currencyRe = regexp.MustCompile(`(?i)(?:₹|rs\.?|inr)\s*([0-9][0-9,]*)`)

	// 1.2 lakh / 2 lakhs / 1 crore / 50k
	unitRe = regexp.MustCompile(`(?i)\b([0-9]+(?:\.[0-9]+)?)\s*(lakh|lakhs|lac|crore|crores|k)\b`)

	// Bare amounts like "maybe 9000", kept only when plausible.
	bareRe = regexp.MustCompile(`\b[0-9][0-9,]{2,}\b`)
)

type priceHit struct {
	start, end int
	value      int
}

// ExtractPrices returns every plausible price mentioned in text, in
// order of appearance. Missing or unparsable prices yield an empty
// slice, never an error.
func ExtractPrices(text string) []int {
	var hits []priceHit

	for _, m := range currencyRe.FindAllStringSubmatchIndex(text, -1) {
		if v, ok := parseAmount(text[m[2]:m[3]]); ok {
			hits = append(hits, priceHit{m[0], m[1], v})
		}
	}
	for _, m := range unitRe.FindAllStringSubmatchIndex(text, -1) {
		if v, ok := parseUnitAmount(text[m[2]:m[3]], text[m[4]:m[5]]); ok {
			hits = append(hits, priceHit{m[0], m[1], v})
		}
	}
	for _, m := range bareRe.FindAllStringIndex(text, -1) {
		if overlapsAny(hits, m[0], m[1]) {
			continue
		}
		if v, ok := parseAmount(text[m[0]:m[1]]); ok {
			hits = append(hits, priceHit{m[0], m[1], v})
		}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].start < hits[j].start })
	prices := make([]int, 0, len(hits))
	for _, h := range hits {
		prices = append(prices, h.value)
	}
	return prices
}

// LatestPrice returns the last plausible price in text, or nil.
func LatestPrice(text string) *int {
	prices := ExtractPrices(text)
	if len(prices) == 0 {
		return nil
	}
	p := prices[len(prices)-1]
	return &p
}

func overlapsAny(hits []priceHit, start, end int) bool {
	for _, h := range hits {
		if start < h.end && end > h.start {
			return true
		}
	}
	return false
}

func parseAmount(raw string) (int, bool) {
	v, err := strconv.Atoi(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		return 0, false
	}
	return v, plausible(v)
}

func parseUnitAmount(raw, unit string) (int, bool) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	switch strings.ToLower(unit) {
	case "lakh", "lakhs", "lac":
		f *= 100_000
	case "crore", "crores":
		f *= 10_000_000
	case "k":
		f *= 1_000
	}
	v := int(f + 0.5)
	return v, plausible(v)
}

func plausible(v int) bool {
	return v >= minPlausiblePrice && v <= maxPlausiblePrice
}
