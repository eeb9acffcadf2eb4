package smsgateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTTPGatewaySendSMS(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			t.Errorf("Expected bearer token, got %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Failed to decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messageId":"abc-123"}`))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "key", "PRIZES")
	id, err := gw.SendSMS(context.Background(), "8801700000000", "You won")
	if err != nil {
		t.Fatalf("SendSMS failed: %v", err)
	}
	if id != "abc-123" {
		t.Errorf("Expected message id abc-123, got %q", id)
	}
	if got["phoneNumber"] != "8801700000000" || got["senderId"] != "PRIZES" {
		t.Errorf("Unexpected request body: %v", got)
	}
}

func TestHTTPGatewayReportsFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "key", "PRIZES")
	if _, err := gw.SendSMS(context.Background(), "1", "x"); err == nil {
		t.Fatal("Expected error for 502 response")
	}
}

func TestMockGatewayRecordsMessages(t *testing.T) {
	gw := NewMockGateway("test")
	if _, err := gw.SendSMS(context.Background(), "1", "hello"); err != nil {
		t.Fatalf("SendSMS failed: %v", err)
	}
	msgs := gw.Messages()
	if len(msgs) != 1 || msgs[0].Message != "hello" {
		t.Errorf("Unexpected messages: %+v", msgs)
	}
}
