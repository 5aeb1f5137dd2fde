package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"finlead/internal/services"
	"finlead/internal/utils"
)

const (
	msgAccountNotFound   = "Nie znaleziono konta dla podanego numeru telefonu."
	msgCodeGone          = "Kod wygasł lub nie został wysłany. Poproś o nowy kod."
	msgCodeMismatch      = "Nieprawidłowy kod. Spróbuj ponownie."
	msgTooManyAttempts   = "Przekroczono liczbę prób. Poproś o nowy kod."
	msgMockSend          = "Tryb testowy: SMS nie został wysłany, kod został zapisany."
	msgSendFailed        = "Nie udało się wysłać wiadomości SMS."
	msgInternal          = "Wystąpił błąd. Spróbuj ponownie później."
	msgPhoneRequired     = "Numer telefonu jest wymagany."
	msgPhoneCodeRequired = "Numer telefonu i kod są wymagane."
)

type AuthHandler struct {
	otpService services.OTPService
}

func NewAuthHandler(otpService services.OTPService) *AuthHandler {
	return &AuthHandler{otpService: otpService}
}

type requestCodeInput struct {
	PhoneNumber string `json:"phoneNumber"`
}

type verifyCodeInput struct {
	PhoneNumber string `json:"phoneNumber"`
	Code        string `json:"code"`
}

func (a *AuthHandler) RequestCode(w http.ResponseWriter, r *http.Request) {
	var input requestCodeInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.PhoneNumber == "" {
		utils.SendJSONError(w, msgPhoneRequired, http.StatusBadRequest)
		return
	}

	result, err := a.otpService.RequestCode(r.Context(), input.PhoneNumber)
	if err != nil {
		var gwErr *services.GatewayError
		switch {
		case errors.Is(err, services.ErrAccountNotFound):
			utils.SendJSONError(w, msgAccountNotFound, http.StatusNotFound)
		case errors.As(err, &gwErr):
			utils.RespondWithJSON(w, http.StatusInternalServerError, map[string]string{
				"error":   msgSendFailed,
				"details": gwErr.Details,
			})
		default:
			log.Error().Err(err).Str("phone_number", input.PhoneNumber).Msg("Code request failed")
			utils.SendJSONError(w, msgInternal, http.StatusInternalServerError)
		}
		return
	}

	if result.Mock {
		utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"mock":    true,
			"message": msgMockSend,
		})
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (a *AuthHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var input verifyCodeInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.PhoneNumber == "" || input.Code == "" {
		utils.SendJSONError(w, msgPhoneCodeRequired, http.StatusBadRequest)
		return
	}

	token, err := a.otpService.VerifyCode(r.Context(), input.PhoneNumber, input.Code)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCodeNotFound), errors.Is(err, services.ErrCodeExpired):
			utils.SendJSONError(w, msgCodeGone, http.StatusBadRequest)
		case errors.Is(err, services.ErrCodeMismatch):
			utils.SendJSONError(w, msgCodeMismatch, http.StatusBadRequest)
		case errors.Is(err, services.ErrAttemptsExhausted):
			utils.SendJSONError(w, msgTooManyAttempts, http.StatusBadRequest)
		case errors.Is(err, services.ErrAccountNotFound):
			utils.SendJSONError(w, msgAccountNotFound, http.StatusNotFound)
		default:
			log.Error().Err(err).Str("phone_number", input.PhoneNumber).Msg("Code verification failed")
			utils.SendJSONError(w, msgInternal, http.StatusInternalServerError)
		}
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"token":   token,
	})
}
