package utils

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter constructs the base router with CORS and the health endpoint.
func NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(CORSMiddleware)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"streamseek"}`))
	}).Methods(http.MethodGet)

	return r
}
