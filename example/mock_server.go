package main

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// mockMarketplace is an in-process stand-in for the remote API: login
// issuing tokens, a favorites list that changes over time, and an
// app-version sink. A 403 burst can be injected to exercise the
// cooldown behavior.
type mockMarketplace struct {
	mu         sync.Mutex
	tokens     map[string]bool
	favorites  []map[string]any
	forbidden  int // remaining 403 responses to serve
	loginCount int
}

func newMockMarketplace() *mockMarketplace {
	return &mockMarketplace{
		tokens: make(map[string]bool),
		favorites: []map[string]any{
			{"id": "biz-001", "name": "Corner Bakery", "rating": 4.7},
			{"id": "biz-002", "name": "Harbor Records", "rating": 4.2},
		},
	}
}

// inject403Burst makes the next n favorites requests answer 403.
func (m *mockMarketplace) inject403Burst(n int) {
	m.mu.Lock()
	m.forbidden = n
	m.mu.Unlock()
	slog.Info("injected 403 burst", "responses", n)
}

// churn randomly adds or removes a favorite to make batches vary.
func (m *mockMarketplace) churn() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rand.Intn(2) == 0 && len(m.favorites) > 1 {
		m.favorites = m.favorites[:len(m.favorites)-1]
		return
	}
	m.favorites = append(m.favorites, map[string]any{
		"id":     "biz-" + time.Now().Format("150405"),
		"name":   "Pop-up Stand",
		"rating": 3.0 + rand.Float64()*2,
	})
}

// Start runs the mock API on addr. Call in a goroutine.
func (m *mockMarketplace) Start(addr string) {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
			http.Error(w, `{"message":"bad credentials payload"}`, http.StatusBadRequest)
			return
		}

		token := "tok-" + time.Now().Format("150405.000000")
		m.mu.Lock()
		m.tokens[token] = true
		m.loginCount++
		count := m.loginCount
		m.mu.Unlock()

		slog.Info("mock login", "email", req.Email, "logins", count)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"token": token})
	})

	mux.HandleFunc("GET /api/v1/favorites/businesses", func(w http.ResponseWriter, r *http.Request) {
		if !m.authorized(r) {
			http.Error(w, `{"message":"missing or unknown token"}`, http.StatusUnauthorized)
			return
		}

		m.mu.Lock()
		if m.forbidden > 0 {
			m.forbidden--
			m.mu.Unlock()
			http.Error(w, `{"message":"rate limited"}`, http.StatusForbidden)
			return
		}
		items := make([]map[string]any, len(m.favorites))
		copy(items, m.favorites)
		m.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"items": items})
	})

	mux.HandleFunc("POST /api/v1/app/version", func(w http.ResponseWriter, r *http.Request) {
		if !m.authorized(r) {
			http.Error(w, `{"message":"missing or unknown token"}`, http.StatusUnauthorized)
			return
		}
		var req struct {
			Version string `json:"version"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		slog.Info("mock app-version report", "version", req.Version)
		w.WriteHeader(http.StatusNoContent)
	})

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("mock server error", "error", err)
	}
}

func (m *mockMarketplace) authorized(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	if len(auth) < 8 || auth[:7] != "Bearer " {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[auth[7:]]
}
