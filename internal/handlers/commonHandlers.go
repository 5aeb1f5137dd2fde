package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"finlead/internal/database"
)

type CommonHandler struct {
	db database.Service
}

func NewCommonHandler(db database.Service) *CommonHandler {
	return &CommonHandler{db: db}
}

func (h *CommonHandler) RootHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"service": "finlead-auth"}

	jsonResp, err := json.Marshal(resp)
	if err != nil {
		log.Error().Err(err).Msg("Error marshalling JSON response for RootHandler")
		return
	}

	_, _ = w.Write(jsonResp)
}

func (h *CommonHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	jsonResp, err := json.Marshal(h.db.Health())

	if err != nil {
		log.Error().Err(err).Msg("Error marshalling JSON response for HealthHandler")
		return
	}

	_, _ = w.Write(jsonResp)
}
