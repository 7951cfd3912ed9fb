package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var errBadRequest = errors.New("bad request")

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

type createUserRequest struct {
	Handle string `json:"handle" validate:"required,max=128"`
	Name   string `json:"name" validate:"max=128"`
}

type transactionRequest struct {
	Amount      *int64 `json:"amount" validate:"required"`
	Source      string `json:"source" validate:"omitempty,max=64"`
	Description string `json:"description" validate:"max=512"`
}

type checkInRequest struct {
	Energy     *float64 `json:"energy"`
	Mood       *float64 `json:"mood"`
	Urges      *float64 `json:"urges"`
	Stress     *float64 `json:"stress"`
	Focus      *float64 `json:"focus"`
	Exercised  bool     `json:"exercised"`
	Meditated  bool     `json:"meditated"`
	ColdShower bool     `json:"cold_shower"`
	Triggers   []string `json:"triggers" validate:"max=20,dive,max=64"`
	RawMessage string   `json:"raw_message" validate:"max=4096"`
}

type eventRequest struct {
	EventType string   `json:"event_type" validate:"required,max=64"`
	Context   string   `json:"context" validate:"max=1024"`
	Triggers  []string `json:"triggers" validate:"max=20,dive,max=64"`
}

type dayRequest struct {
	Day string `json:"day" validate:"omitempty,datetime=2006-01-02"`
}

type goalRequest struct {
	Title string `json:"title" validate:"required,max=256"`
}

type goalStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active completed abandoned"`
}

// decode reads a JSON body into v and validates it. An empty body decodes
// as the zero value when optional is set.
func (s *Server) decode(r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if !(optional && errors.Is(err, io.EOF)) {
			return fmt.Errorf("%w: invalid json: %v", errBadRequest, err)
		}
	}
	return s.validate.Struct(v)
}
