package status

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/LilVoxy/sales_warehouse/ETL/models"
	"github.com/LilVoxy/sales_warehouse/ETL/summary"
	"github.com/LilVoxy/sales_warehouse/ETL/utils"
)

// StateProvider возвращает сводное состояние журнала запусков
type StateProvider interface {
	GetETLStateMonitor(ctx context.Context) (*models.ETLStateMonitor, error)
}

// SummaryStore хранит сводку последнего успешно зафиксированного запуска
type SummaryStore struct {
	mu   sync.RWMutex
	last *summary.Summary
}

// Set сохраняет сводку
func (s *SummaryStore) Set(sum *summary.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = sum
}

// Get возвращает последнюю сводку или nil
func (s *SummaryStore) Get() *summary.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// SetupRoutes настраивает маршруты статуса ETL
func SetupRoutes(router *mux.Router, state StateProvider, summaries *SummaryStore, logger *utils.ETLLogger) {
	router.HandleFunc("/health", HealthHandler()).Methods(http.MethodGet)
	router.HandleFunc("/etl/status", StatusHandler(state, logger)).Methods(http.MethodGet)
	router.HandleFunc("/etl/summary", SummaryHandler(summaries)).Methods(http.MethodGet)
}

// NewServer создает HTTP-сервер статуса
func NewServer(addr string, state StateProvider, summaries *SummaryStore, logger *utils.ETLLogger) *http.Server {
	router := mux.NewRouter()
	SetupRoutes(router, state, summaries, logger)

	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		// Ошибки net/http идут в общий лог ETL
		ErrorLog:          slog.NewLogLogger(logger.Slog().Handler(), slog.LevelError),
	}
}

// HealthHandler отвечает, что процесс жив
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// StatusHandler возвращает состояние журнала запусков
func StatusHandler(state StateProvider, logger *utils.ETLLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		monitor, err := state.GetETLStateMonitor(r.Context())
		if err != nil {
			logger.Error("Ошибка при получении состояния ETL", "error", err)
			http.Error(w, "Ошибка при получении состояния ETL", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, monitor)
	}
}

// SummaryHandler возвращает сводку последнего запуска
func SummaryHandler(summaries *SummaryStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sum := summaries.Get()
		if sum == nil {
			http.Error(w, "Сводка еще не сформирована", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, sum)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
