package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/todmy/stoneweight/pkg/models"
)

func TestClient_LoginStoresToken(t *testing.T) {
	var authHeaders []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeaders = append(authHeaders, r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/api/auth/login":
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["username"] != "mercan" {
				t.Errorf("unexpected login body %v", body)
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"token": "tok-1",
				"user":  map[string]string{"id": "u1", "username": "mercan"},
			})
		case "/api/stones":
			json.NewEncoder(w).Encode([]map[string]interface{}{
				{"id": "s1", "name": "Zircon", "count_per_gram": "10.5"},
			})
		}
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL + "/"))

	resp, err := c.Login(context.Background(), "mercan", "Mercan@123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.User.Username != "mercan" || c.Token() != "tok-1" {
		t.Errorf("unexpected login result %+v token=%s", resp, c.Token())
	}

	stones, err := c.ListStones(context.Background())
	if err != nil {
		t.Fatalf("list stones: %v", err)
	}
	if len(stones) != 1 || stones[0].CountPerGram != 10.5 {
		t.Errorf("unexpected stones %+v", stones)
	}

	if authHeaders[0] != "" {
		t.Errorf("login must not send a bearer token, got %q", authHeaders[0])
	}
	if authHeaders[1] != "Bearer tok-1" {
		t.Errorf("expected bearer token, got %q", authHeaders[1])
	}
}

func TestClient_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL), WithToken("expired"))

	_, err := c.ListModels(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestClient_LoginFailureIsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid credentials"}`))
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL))

	_, err := c.Login(context.Background(), "mercan", "wrong")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnauthorized || apiErr.Message != "invalid credentials" {
		t.Errorf("unexpected error %+v", apiErr)
	}
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"name is required"}`))
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL), WithToken("t"))

	_, err := c.CreateStone(context.Background(), models.Stone{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Message != "name is required" {
		t.Errorf("unexpected error %+v", apiErr)
	}
}

func TestClient_UpdateAndDelete(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		var m models.Model
		json.NewDecoder(r.Body).Decode(&m)
		json.NewEncoder(w).Encode(m)
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL), WithToken("t"))

	updated, err := c.UpdateModel(context.Background(), models.Model{ID: "m1", Name: "Ring", Stones: []models.StoneQuantity{{StoneID: "s1", Quantity: 2}}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Ring" || len(updated.Stones) != 1 {
		t.Errorf("unexpected model %+v", updated)
	}

	if err := c.DeleteModel(context.Background(), "m1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	want := []string{"PUT /api/models/m1", "DELETE /api/models/m1"}
	for i, w := range want {
		if calls[i] != w {
			t.Errorf("call %d: expected %s, got %s", i, w, calls[i])
		}
	}
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL), WithTimeout(20*time.Millisecond))

	if _, err := c.ListStoneSets(context.Background()); err == nil {
		t.Error("expected timeout error")
	}
}
