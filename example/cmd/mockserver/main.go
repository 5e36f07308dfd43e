// Standalone mock marketplace API for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/favwatch watch -c example/config.yaml
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"
)

func main() {
	fmt.Println("Mock marketplace API starting on :9999")
	fmt.Println("Login with any email/password; favorites change every minute")
	fmt.Println("POST /debug/forbid?n=3 to make the next 3 favorites calls 403")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	var (
		mu        sync.Mutex
		tokens    = make(map[string]bool)
		forbidden int
	)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
			http.Error(w, `{"message":"bad credentials payload"}`, http.StatusBadRequest)
			return
		}
		token := "tok-" + time.Now().Format("150405.000000")
		mu.Lock()
		tokens[token] = true
		mu.Unlock()
		slog.Info("login", "email", req.Email)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"token": token})
	})

	mux.HandleFunc("GET /api/v1/favorites/businesses", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		if forbidden > 0 {
			forbidden--
			mu.Unlock()
			http.Error(w, `{"message":"rate limited"}`, http.StatusForbidden)
			return
		}
		mu.Unlock()

		// rotate the list each minute so consecutive polls see changes
		n := 1 + time.Now().Minute()%3
		items := make([]map[string]any, n)
		for i := range items {
			items[i] = map[string]any{
				"id":   fmt.Sprintf("biz-%03d", i+1),
				"name": fmt.Sprintf("Listing %d", i+1),
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"items": items})
	})

	mux.HandleFunc("POST /api/v1/app/version", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Version string `json:"version"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		slog.Info("app-version report", "version", req.Version)
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /debug/forbid", func(w http.ResponseWriter, r *http.Request) {
		n := 3
		if v := r.URL.Query().Get("n"); v != "" {
			_, _ = fmt.Sscanf(v, "%d", &n)
		}
		mu.Lock()
		forbidden = n
		mu.Unlock()
		slog.Info("injected 403 burst", "responses", n)
		w.WriteHeader(http.StatusNoContent)
	})

	if err := http.ListenAndServe(":9999", mux); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
