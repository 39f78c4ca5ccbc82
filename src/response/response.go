package response

import (
	"encoding/json"
	"net/http"

	logger "github.com/sirupsen/logrus"
)

// Envelope is the body shape shared by every endpoint. Code mirrors the
// HTTP status so clients can branch without reaching for the transport.
type Envelope struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type Paginated struct {
	Envelope
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

func write(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.WithError(err).Error("error encoding response")
	}
}

func OK(w http.ResponseWriter, data interface{}) {
	write(w, http.StatusOK, Envelope{Code: http.StatusOK, Message: "success", Data: data})
}

func Created(w http.ResponseWriter, data interface{}) {
	write(w, http.StatusCreated, Envelope{Code: http.StatusCreated, Message: "success", Data: data})
}

func Message(w http.ResponseWriter, message string) {
	write(w, http.StatusOK, Envelope{Code: http.StatusOK, Message: message})
}

func Page(w http.ResponseWriter, data interface{}, total int64, page, limit int) {
	write(w, http.StatusOK, Paginated{
		Envelope: Envelope{Code: http.StatusOK, Message: "success", Data: data},
		Total:    total,
		Page:     page,
		Limit:    limit,
	})
}

func Error(w http.ResponseWriter, status int, message string) {
	write(w, status, Envelope{Code: status, Message: message})
}
