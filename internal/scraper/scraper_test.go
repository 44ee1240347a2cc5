package scraper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dealsense/negotiator/internal/core/domain"
)

func TestScrape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("url"); got != "https://market.example/item/42" {
			t.Errorf("url param = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":                   "42",
			"title":                "iPhone 13 128GB",
			"price":                42000,
			"category":             "Mobile Phones",
			"condition":            "like new",
			"description":          "Barely used",
			"scraped_successfully": true,
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	got, err := c.Scrape(context.Background(), "https://market.example/item/42")
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}

	want := domain.ProductData{
		ID:          "42",
		URL:         "https://market.example/item/42",
		Title:       "iPhone 13 128GB",
		Price:       42000,
		Category:    "Mobile Phones",
		Condition:   "like new",
		Description: "Barely used",
	}
	if got != want {
		t.Errorf("product = %+v, want %+v", got, want)
	}
}

func TestScrapeFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			"service error status",
			func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		},
		{
			"scrape unsuccessful",
			func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{
					"scraped_successfully": false,
					"error":                "blocked by anti-bot",
				})
			},
		},
		{
			"missing price",
			func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{
					"title":                "mystery item",
					"scraped_successfully": true,
				})
			},
		},
		{
			"garbage body",
			func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>not json</html>"))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := New(srv.URL).Scrape(context.Background(), "https://market.example/item/1")
			if !domain.IsKind(err, domain.KindCollaborator) {
				t.Errorf("err = %v, want collaborator kind", err)
			}
		})
	}
}

func TestScrapeContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(srv.URL).Scrape(ctx, "https://market.example/item/1"); err == nil {
		t.Error("expected error from cancelled context")
	}
}
