package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Kelvintronic/inhabited/internal/engine"
	"github.com/Kelvintronic/inhabited/internal/infrastructure/storage"
)

// StateSource - то, откуда debug-роуты берут данные. Реализуется
// engine.Service.
type StateSource interface {
	Snapshot() engine.DebugSnapshot
	TopScores(ctx context.Context) ([]storage.ScoreRow, error)
}

// DebugHandler предоставляет доступ к внутреннему состоянию движка
type DebugHandler struct {
	State StateSource
}

func NewDebugHandler(s StateSource) *DebugHandler {
	return &DebugHandler{State: s}
}

// RegisterRoutes регистрирует debug-эндпоинты
func (h *DebugHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/debug/players", h.handlePlayers)
	mux.HandleFunc("/debug/objects", h.handleObjects)
	mux.HandleFunc("/debug/search", h.handleSearch)
	mux.HandleFunc("/debug/scores", h.handleScores)
	mux.HandleFunc("/debug/map", h.handleMap)
}

func (h *DebugHandler) handlePlayers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.State.Snapshot().Players)
}

// /debug/objects?type=17 - только объекты одного типа
func (h *DebugHandler) handleObjects(w http.ResponseWriter, r *http.Request) {
	objects := h.State.Snapshot().Objects
	if kind := r.URL.Query().Get("type"); kind != "" {
		filtered := objects[:0:0]
		for _, o := range objects {
			if kind == o.Type.String() || kind == strconv.Itoa(int(o.Type)) {
				filtered = append(filtered, o)
			}
		}
		objects = filtered
	}
	writeJSON(w, objects)
}

func (h *DebugHandler) handleSearch(w http.ResponseWriter, r *http.Request) {
	snap := h.State.Snapshot()
	writeJSON(w, map[string]any{
		"tick":         snap.Tick,
		"queued":       snap.Search.Queued,
		"finished":     snap.Search.Finished,
		"running":      snap.Search.Running,
		"searchesDone": snap.SearchesDone,
	})
}

func (h *DebugHandler) handleScores(w http.ResponseWriter, r *http.Request) {
	rows, err := h.State.TopScores(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, rows)
}

// /debug/map - текущая карта глифами, строка на ряд
func (h *DebugHandler) handleMap(w http.ResponseWriter, r *http.Request) {
	snap := h.State.Snapshot()
	writeJSON(w, map[string]any{
		"map":  snap.Map,
		"name": snap.MapName,
		"rows": snap.Rows,
	})
}

func writeJSON(w http.ResponseWriter, data any) {
	// Разрешаем запросы с любого источника (нужно для локального debug-клиента)
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	w.Header().Set("Content-Type", "application/json")

	_ = json.NewEncoder(w).Encode(data)
}
