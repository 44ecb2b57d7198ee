//go:build integration

package integration

import (
	"context"
	"net/http"
	"strings"
	"testing"
)

func TestRequestID_GeneratedOnPayment(t *testing.T) {
	resp := doPost(t, "/payment", paymentRequest{PaymentProcessor: "paypal", Price: 100})
	defer resp.Body.Close()

	if requestID := resp.Header.Get("X-Request-ID"); requestID == "" {
		t.Fatal("X-Request-ID header not present")
	}
}

func TestRequestID_EchoedOnCalculation(t *testing.T) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, baseURL+"/calculation",
		strings.NewReader(`{"product": 1, "count": 1, "taxNumber": "DE123456789"}`))
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "checkout-req-42")

	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("X-Request-ID"); got != "checkout-req-42" {
		t.Errorf("X-Request-ID: got %q, want %q", got, "checkout-req-42")
	}
}

func TestCORS_PaymentPreflight(t *testing.T) {
	for _, path := range []string{"/payment", "/calculation"} {
		t.Run(path, func(t *testing.T) {
			req, err := http.NewRequestWithContext(context.Background(), http.MethodOptions, baseURL+path, nil)
			if err != nil {
				t.Fatalf("create request: %v", err)
			}
			req.Header.Set("Origin", "http://shop.example.com")
			req.Header.Set("Access-Control-Request-Method", "POST")
			req.Header.Set("Access-Control-Request-Headers", "Content-Type")

			resp, err := httpClient.Do(req)
			if err != nil {
				t.Fatalf("do request: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusNoContent {
				t.Fatalf("expected 204, got %d", resp.StatusCode)
			}
			if acao := resp.Header.Get("Access-Control-Allow-Origin"); acao == "" {
				t.Error("Access-Control-Allow-Origin header not present")
			}
			if acam := resp.Header.Get("Access-Control-Allow-Methods"); !strings.Contains(acam, "POST") {
				t.Errorf("Access-Control-Allow-Methods: got %q, want POST", acam)
			}
		})
	}
}

func TestCORS_ExposesRequestID(t *testing.T) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, baseURL+"/payment",
		strings.NewReader(`{"paymentProcessor": "stripe", "price": 100}`))
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://shop.example.com")

	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if acao := resp.Header.Get("Access-Control-Allow-Origin"); acao == "" {
		t.Error("Access-Control-Allow-Origin header not present")
	}
	if exposed := resp.Header.Get("Access-Control-Expose-Headers"); !strings.Contains(exposed, "X-Request-ID") {
		t.Errorf("Access-Control-Expose-Headers: got %q, want X-Request-ID", exposed)
	}
}

func TestRateLimit_HeadersOnCalculation(t *testing.T) {
	resp := doPost(t, "/calculation", calculationRequest{Product: 1, Count: 1, TaxNumber: "DE123456789"})
	defer resp.Body.Close()

	if limit := resp.Header.Get("X-RateLimit-Limit"); limit != "1000" {
		t.Errorf("X-RateLimit-Limit: got %q, want the configured burst 1000", limit)
	}
	if remaining := resp.Header.Get("X-RateLimit-Remaining"); remaining == "" {
		t.Error("X-RateLimit-Remaining header not present")
	}
}
