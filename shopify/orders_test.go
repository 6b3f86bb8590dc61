package shopify

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testSource(t *testing.T, handler http.Handler) *Source {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	t.Setenv("SHOPIFY_API_BASE_URL", server.URL)
	t.Setenv("SHOPIFY_ACCESS_TOKEN", "test-token")
	t.Setenv("SHOPIFY_RATE_LIMIT_PER_MIN", "600000")

	source, err := NewSource()
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	return source
}

func TestOrderPager_PaginatesAndFilters(t *testing.T) {
	var cursors []string
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/orders", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Shopify-Access-Token"); got != "test-token" {
			t.Errorf("missing access token header, got %q", got)
		}
		cursor := r.URL.Query().Get("cursor")
		cursors = append(cursors, cursor)

		if cursor == "" {
			fmt.Fprint(w, `{
				"data": [
					{"id":"o-1","created_at":"2024-09-02T10:00:00Z","line_items":[
						{"variant_id":"v-1","quantity":2,"product_collections":["fall-drop"]},
						{"variant_id":"v-9","quantity":5,"product_collections":["other-shop"]}
					]}
				],
				"has_more": true,
				"next_cursor": "c2"
			}`)
			return
		}
		fmt.Fprint(w, `{
			"data": [
				{"id":"o-2","created_at":"2024-09-20T10:00:00Z","line_items":[
					{"variant_id":"v-1","quantity":1,"product_collections":["fall-drop"]}
				]},
				{"id":"o-3","created_at":"2024-09-10T10:00:00Z","line_items":[
					{"variant_id":"v-2","quantity":3,"product_collections":["fall-drop","other-shop"]}
				]}
			],
			"has_more": false,
			"next_cursor": null
		}`)
	})

	source := testSource(t, mux)

	start, _ := time.Parse(time.RFC3339, "2024-09-01T00:00:00Z")
	end, _ := time.Parse(time.RFC3339, "2024-09-15T00:00:00Z")
	pager, err := source.Orders(context.Background(), "fall-drop", start, end)
	if err != nil {
		t.Fatalf("Orders: %v", err)
	}

	page1, hasMore, err := pager.Next(context.Background())
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if !hasMore {
		t.Fatal("expected a second page")
	}
	if len(page1) != 1 || page1[0].ID != "o-1" {
		t.Fatalf("unexpected page 1: %+v", page1)
	}
	// The other-shop line item is filtered out client-side.
	if len(page1[0].LineItems) != 1 || page1[0].LineItems[0].Quantity != 2 {
		t.Fatalf("unexpected line items: %+v", page1[0].LineItems)
	}

	page2, hasMore, err := pager.Next(context.Background())
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if hasMore {
		t.Fatal("expected final page")
	}
	// o-2 falls outside [start, end) and is dropped.
	if len(page2) != 1 || page2[0].ID != "o-3" {
		t.Fatalf("unexpected page 2: %+v", page2)
	}

	if len(cursors) != 2 || cursors[0] != "" || cursors[1] != "c2" {
		t.Fatalf("cursor advance mismatch: %v", cursors)
	}

	// Exhausted pager keeps reporting done without further requests.
	extra, hasMore, err := pager.Next(context.Background())
	if err != nil || hasMore || extra != nil {
		t.Fatalf("exhausted pager misbehaved: %v %v %v", extra, hasMore, err)
	}
}

func TestOrderPager_ErrorAbortsChannel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/orders", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})
	source := testSource(t, mux)

	start, _ := time.Parse(time.RFC3339, "2024-09-01T00:00:00Z")
	end, _ := time.Parse(time.RFC3339, "2024-09-15T00:00:00Z")
	pager, _ := source.Orders(context.Background(), "fall-drop", start, end)

	if _, _, err := pager.Next(context.Background()); err == nil {
		t.Fatal("expected pagination error after retries")
	}
}
