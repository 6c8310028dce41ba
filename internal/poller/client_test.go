package poller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/http/httptrace"
	"strings"
	"testing"
	"time"
)

func TestClient_SendsHeadersAndRequestID(t *testing.T) {
	var gotID, gotCookie, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get(RequestIDHeader)
		gotCookie = r.Header.Get("Cookie")
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte(`{"status":"running"}`))
	}))
	defer server.Close()

	resp := NewClient().Fetch(context.Background(), server.URL, map[string]string{"Cookie": "session=abc"}, time.Second)
	if resp.Error != nil {
		t.Fatalf("Fetch() error = %v", resp.Error)
	}
	if gotID == "" || gotID != resp.RequestID {
		t.Errorf("request id header = %q, response RequestID = %q", gotID, resp.RequestID)
	}
	if gotCookie != "session=abc" {
		t.Errorf("Cookie = %q, want session=abc", gotCookie)
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q, want application/json", gotAccept)
	}
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	resp := NewClient().Fetch(context.Background(), server.URL, nil, 50*time.Millisecond)
	if resp.Error == nil {
		t.Fatal("Fetch() error = nil, want timeout")
	}
	if resp.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0", resp.StatusCode)
	}
}

func TestClient_BodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", maxResponseBodySize+100)))
	}))
	defer server.Close()

	resp := NewClient().Fetch(context.Background(), server.URL, nil, time.Second)
	if resp.Error != nil {
		t.Fatalf("Fetch() error = %v", resp.Error)
	}
	if len(resp.Body) != maxResponseBodySize {
		t.Errorf("len(Body) = %d, want %d", len(resp.Body), maxResponseBodySize)
	}
}

func TestClient_InvalidURL(t *testing.T) {
	resp := NewClient().Fetch(context.Background(), "://bad", nil, time.Second)
	if resp.Error == nil {
		t.Error("Fetch() with invalid URL should fail")
	}
}

// TestClient_ConnectionReuse verifies keep-alive pooling across sequential polls.
func TestClient_ConnectionReuse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := NewClient()
	var reused int
	trace := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			if info.Reused {
				reused++
			}
		},
	}

	const n = 5
	for i := 0; i < n; i++ {
		ctx := httptrace.WithClientTrace(context.Background(), trace)
		if resp := client.Fetch(ctx, server.URL, nil, 5*time.Second); resp.Error != nil {
			t.Fatalf("request %d failed: %v", i, resp.Error)
		}
	}

	if reused < n-2 {
		t.Errorf("reused connections = %d, want at least %d", reused, n-2)
	}
}

func TestClient_Close_NilClient(t *testing.T) {
	var client *Client
	client.Close()
	NewClient().Close()
}
