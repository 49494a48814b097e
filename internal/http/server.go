package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ignatij/gostage/internal/log"
	"github.com/ignatij/gostage/pkg/models"
)

// RecordLister is the read surface the server exposes; both the postgres
// store and the in-memory recorder satisfy it.
type RecordLister interface {
	List(limit int) ([]models.TaskRecord, error)
}

func StartServer(port string, store RecordLister) error {
	mux := NewMux(store)
	log.GetLogger().Infof("Starting gostage record server on :%s", port)
	return http.ListenAndServe(":"+port, mux)
}

// NewMux builds the route table; split out so tests can drive it with
// httptest.
func NewMux(store RecordLister) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/records", recordsHandler(store))
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "gostage record server is running")
}

func recordsHandler(store RecordLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				http.Error(w, "Invalid 'limit' parameter", http.StatusBadRequest)
				return
			}
			limit = n
		}
		recs, err := store.List(limit)
		if err != nil {
			log.GetLogger().Errorf("Failed to list task records: %v", err)
			http.Error(w, fmt.Sprintf("Failed to list task records: %v", err), http.StatusInternalServerError)
			return
		}
		if recs == nil {
			recs = []models.TaskRecord{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(recs); err != nil {
			log.GetLogger().Errorf("Failed to encode task records: %v", err)
		}
	}
}
