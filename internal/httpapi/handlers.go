package httpapi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/DoyleJ11/seabattle-server/internal/accounts"
	"github.com/DoyleJ11/seabattle-server/internal/hub"
)

type roomJSON struct {
	RoomID    string   `json:"roomId"`
	Occupants []string `json:"occupants"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ListRooms returns rooms still waiting for a second player.
func ListRooms(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, err := h.ListAvailableRooms()
		if err != nil {
			log.Error("list rooms", zap.Error(err))
			http.Error(w, "failed to list rooms", http.StatusServiceUnavailable)
			return
		}
		out := make([]roomJSON, len(rooms))
		for i, rm := range rooms {
			out[i] = roomJSON{RoomID: rm.ID, Occupants: append([]string{}, rm.Occupants...)}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func Winners(store accounts.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		winners, err := store.Winners(r.Context())
		if err != nil {
			log.Error("list winners", zap.Error(err))
			http.Error(w, "failed to list winners", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, winners)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
