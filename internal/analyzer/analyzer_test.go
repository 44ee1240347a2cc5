package analyzer

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/dealsense/negotiator/internal/core/domain"
)

func sellerMsg(content string) domain.ChatMessage {
	return domain.ChatMessage{
		Sender:    domain.SenderSeller,
		Content:   content,
		Timestamp: time.Now(),
		Kind:      domain.KindNormal,
	}
}

func TestAnalyzeSentiment(t *testing.T) {
	a := New()
	tests := []struct {
		name    string
		message string
		want    domain.Sentiment
	}{
		{"positive words dominate", "Great, that sounds good to me", domain.SentimentPositive},
		{"negative words dominate", "No, I refuse, that is impossible", domain.SentimentNegative},
		{"no signal words", "Let me think about it", domain.SentimentNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Analyze(tt.message, nil)
			if got.Sentiment != tt.want {
				t.Errorf("sentiment = %s, want %s", got.Sentiment, tt.want)
			}
		})
	}
}

func TestAnalyzeFlexibility(t *testing.T) {
	a := New()
	tests := []struct {
		name    string
		message string
		want    float64
	}{
		{"neutral", "Let me think about it", 0.5},
		{"one flexible word", "I can negotiate on this", 0.7},
		{"one firm word", "The amount is fixed", 0.2},
		{"clamped at zero", "Firm, fixed, final, non-negotiable", 0.0},
		{"clamped at one", "We can negotiate, discuss, consider, maybe something flexible", 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Analyze(tt.message, nil)
			if diff := got.Flexibility - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("flexibility = %v, want %v", got.Flexibility, tt.want)
			}
		})
	}
}

func TestAnalyzeUrgencyAndPoliteness(t *testing.T) {
	a := New()

	if got := a.Analyze("I need this sold today", nil); got.Urgency != domain.UrgencyHigh {
		t.Errorf("urgency = %s, want high", got.Urgency)
	}
	if got := a.Analyze("Come by whenever, anytime works", nil); got.Urgency != domain.UrgencyLow {
		t.Errorf("urgency = %s, want low", got.Urgency)
	}
	if got := a.Analyze("Let me check with my wife", nil); got.Urgency != domain.UrgencyMedium {
		t.Errorf("urgency = %s, want medium", got.Urgency)
	}

	polite := a.Analyze("Please understand, I appreciate the interest", nil)
	if polite.Politeness < 0.85 {
		t.Errorf("politeness = %v, want >= 0.85", polite.Politeness)
	}
	rude := a.Analyze("No way, that offer is ridiculous", nil)
	if rude.Politeness > 0.25 {
		t.Errorf("politeness = %v, want <= 0.25", rude.Politeness)
	}
}

func TestAnalyzePersonality(t *testing.T) {
	a := New()
	tests := []struct {
		name    string
		message string
		history []domain.ChatMessage
		want    domain.Personality
	}{
		{"firm tell wins", "The amount is firm", nil, domain.PersonalityFirm},
		{"flexible tell", "Happy to negotiate", nil, domain.PersonalityFlexible},
		{"rude means aggressive", "That is ridiculous", nil, domain.PersonalityAggressive},
		{"short messages read eager", "9000 ok?", nil, domain.PersonalityEager},
		{
			"long messages read hesitant",
			strings.Repeat("I am really not sure about this at all. ", 5),
			nil,
			domain.PersonalityHesitant,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Analyze(tt.message, tt.history)
			if got.Personality != tt.want {
				t.Errorf("personality = %s, want %s", got.Personality, tt.want)
			}
		})
	}
}

func TestAnalyzePriceTrend(t *testing.T) {
	a := New()
	history := []domain.ChatMessage{
		sellerMsg("I want ₹10,000 for it"),
	}

	down := a.Analyze("Fine, ₹9,000 then", history)
	if down.PriceTrend != domain.TrendDecreasing {
		t.Errorf("trend = %s, want decreasing", down.PriceTrend)
	}
	up := a.Analyze("Actually I want ₹11,000 now", history)
	if up.PriceTrend != domain.TrendIncreasing {
		t.Errorf("trend = %s, want increasing", up.PriceTrend)
	}
	flat := a.Analyze("Still ₹10,000", history)
	if flat.PriceTrend != domain.TrendStable {
		t.Errorf("trend = %s, want stable", flat.PriceTrend)
	}
	noPrice := a.Analyze("What do you think?", history)
	if noPrice.PriceTrend != domain.TrendStable {
		t.Errorf("trend with no quote = %s, want stable", noPrice.PriceTrend)
	}
}

func TestAnalyzeObjectionsAndSignals(t *testing.T) {
	a := New()

	got := a.Analyze("That is too low, minimum 9000. Where do you want to meet? Cash only.", nil)
	if !got.HasObjection(domain.ObjectionPriceTooLow) {
		t.Error("expected price_too_low objection")
	}
	if !got.HasSignal(domain.SignalLogisticsDiscussion) {
		t.Error("expected logistics_discussion signal")
	}
	if !got.HasSignal(domain.SignalPaymentDiscussion) {
		t.Error("expected payment_discussion signal")
	}
}

func TestAnalyzeEmptyMessage(t *testing.T) {
	a := New()
	got := a.Analyze("", nil)
	if !reflect.DeepEqual(got, domain.NeutralAnalysis()) {
		t.Errorf("empty message = %+v, want neutral analysis", got)
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	a := New()
	msg := "Too low. Condition is perfect, I can discuss ₹9,500 if you pay cash and pickup today."
	first := a.Analyze(msg, nil)
	for i := 0; i < 10; i++ {
		if got := a.Analyze(msg, nil); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differed: %+v vs %+v", i, got, first)
		}
	}
}

func TestExtractPrices(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []int
	}{
		{"currency symbol", "I want ₹12,500 for it", []int{12500}},
		{"rs prefix", "Rs. 5,000 is my price", []int{5000}},
		{"inr prefix", "INR 7500 final", []int{7500}},
		{"lakh unit", "asking 1.2 lakh", []int{120000}},
		{"k unit", "how about 50k", []int{50000}},
		{"bare amount", "maybe 9000 works", []int{9000}},
		{"multiple in order", "listed at ₹10,000 but I can do 9500", []int{10000, 9500}},
		{"phone number ignored", "call me at 9876543210", nil},
		{"small number ignored", "I have 2 of them", nil},
		{"no numbers", "what is your best price", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractPrices(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				if len(got) == 0 && len(tt.want) == 0 {
					return
				}
				t.Errorf("ExtractPrices(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestLatestPrice(t *testing.T) {
	if p := LatestPrice("₹10,000 no wait, 9000"); p == nil || *p != 9000 {
		t.Errorf("LatestPrice = %v, want 9000", p)
	}
	if p := LatestPrice("no price here"); p != nil {
		t.Errorf("LatestPrice = %v, want nil", *p)
	}
}
