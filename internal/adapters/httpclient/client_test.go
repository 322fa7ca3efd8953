package httpclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"estate_distribution/internal/adapters/httpclient"
)

func TestClient_GetJSON_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "k" {
			t.Errorf("missing api key header")
		}
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			// two transient failures
			w.WriteHeader(503)
		default:
			if r.URL.Query().Get("q") != "x y" {
				t.Errorf("query not forwarded: %s", r.URL.RawQuery)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"id": 123.0})
		}
	}))
	defer ts.Close()

	cl, err := httpclient.New(ts.URL, httpclient.Options{RPS: 100, Headers: map[string]string{"X-Api-Key": "k"}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var got map[string]any
	if err := cl.GetJSON(ctx, "thing", "/things", url.Values{"q": {"x y"}}, &got); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if id, ok := got["id"].(float64); !ok || int(id) != 123 {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if atomic.LoadInt32(&hits) != 3 {
		t.Fatalf("expected 3 calls due to retries, got %d", hits)
	}
}

func TestClient_StatusMapping(t *testing.T) {
	cases := map[int]error{
		http.StatusNotFound:     httpclient.ErrNotFound,
		http.StatusUnauthorized: httpclient.ErrUnauthorized,
		http.StatusForbidden:    httpclient.ErrForbidden,
	}
	for code, want := range cases {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(code) }))
		cl, _ := httpclient.New(ts.URL, httpclient.Options{RPS: 100})
		err := cl.GetJSON(context.Background(), "x", "/", nil, &struct{}{})
		ts.Close()
		if !errors.Is(err, want) {
			t.Fatalf("status %d: got %v want %v", code, err, want)
		}
	}
}

func TestClient_BadRequestIsNotRetried(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer ts.Close()

	cl, _ := httpclient.New(ts.URL, httpclient.Options{RPS: 100})
	err := cl.SendJSON(context.Background(), http.MethodPatch, "x", "/r/1", map[string]any{"a": 1}, nil)
	var se *httpclient.StatusError
	if !errors.As(err, &se) || se.Code != 400 || se.Transient() {
		t.Fatalf("expected non-transient 400 StatusError, got %v", err)
	}
	if hits != 1 {
		t.Fatalf("expected a single call, got %d", hits)
	}
}

func TestClient_SendJSON_PostsBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected request %s %s", r.Method, r.Header.Get("Content-Type"))
		}
		var in map[string]any
		_ = json.NewDecoder(r.Body).Decode(&in)
		_ = json.NewEncoder(w).Encode(map[string]any{"echo": in["a"]})
	}))
	defer ts.Close()

	cl, _ := httpclient.New(ts.URL, httpclient.Options{RPS: 100})
	var out map[string]any
	if err := cl.SendJSON(context.Background(), http.MethodPatch, "x", "/r/1", map[string]any{"a": "b"}, &out); err != nil {
		t.Fatalf("SendJSON: %v", err)
	}
	if out["echo"] != "b" {
		t.Fatalf("unexpected echo %+v", out)
	}
}

func TestNew_RequiresBase(t *testing.T) {
	if _, err := httpclient.New(" ", httpclient.Options{}); err == nil {
		t.Fatalf("expected error for empty base")
	}
}
