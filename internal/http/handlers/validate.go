package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/veris-salud/agenda-web/internal/validation"
	"github.com/veris-salud/agenda-web/pkg/logging"
)

// maxFormBytes bounds a validation request body.
const maxFormBytes = 16 << 10

var profileFieldIDs = []string{
	validation.FieldRole,
	validation.FieldProfileName,
	validation.FieldName,
	validation.FieldCedula,
	validation.FieldAge,
	validation.FieldGender,
	validation.FieldHeight,
	validation.FieldWeight,
}

// ValidationObserver records validation outcomes.
type ValidationObserver interface {
	ObserveValidation(gate string, valid bool)
}

// ValidationResponse is the JSON body returned by the validation endpoints.
type ValidationResponse struct {
	Valid      bool              `json:"valid"`
	Field      string            `json:"field,omitempty"`
	Message    string            `json:"message,omitempty"`
	Normalized map[string]string `json:"normalized,omitempty"`
}

// ValidationHandler runs the profile form gates for pages that post forms
// without the runtime socket.
type ValidationHandler struct {
	observer ValidationObserver
	logger   *logging.Logger
}

func NewValidationHandler(observer ValidationObserver, logger *logging.Logger) *ValidationHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ValidationHandler{observer: observer, logger: logger}
}

// Validate handles POST /api/validate/{gate} with a form-encoded body.
func (h *ValidationHandler) Validate(w http.ResponseWriter, r *http.Request) {
	gate := validation.Gate(strings.ToLower(chi.URLParam(r, "gate")))
	if gate != validation.GatePatient && gate != validation.GateDoctor {
		http.Error(w, "unknown validation gate", http.StatusNotFound)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	fields := validation.Fields{}
	for _, id := range profileFieldIDs {
		if _, ok := r.PostForm[id]; ok {
			fields[id] = r.PostForm.Get(id)
		}
	}

	resp := ValidationResponse{Valid: true, Normalized: normalizeFields(gate, fields)}
	if err := validation.ValidateForm(fields, gate); err != nil {
		var fe *validation.FieldError
		if !errors.As(err, &fe) {
			h.logger.Error("validation failed unexpectedly", "gate", gate, "error", err)
			http.Error(w, "validation error", http.StatusInternalServerError)
			return
		}
		resp.Valid = false
		resp.Field = fe.Field
		resp.Message = fe.Message
	}
	if h.observer != nil {
		h.observer.ObserveValidation(string(gate), resp.Valid)
	}
	writeJSON(w, http.StatusOK, resp)
}

// normalizeFields returns the canonical form of the name and cédula inputs
// for the gate, as the page would show them after editing.
func normalizeFields(gate validation.Gate, f validation.Fields) map[string]string {
	out := map[string]string{}
	if id, v, ok := f.NameField(); ok {
		switch {
		case gate == validation.GateDoctor && validation.DoctorRulesApply(f):
			out[id] = validation.NormalizeDoctorName(v, false)
		case gate == validation.GatePatient && validation.PatientRulesApply(f):
			out[id] = validation.NormalizePatientName(v, false)
		}
	}
	if v, ok := f.Lookup(validation.FieldCedula); ok && gate == validation.GatePatient {
		out[validation.FieldCedula] = validation.SanitizeCedulaInput(v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Health returns a simple health check response. sessions may be nil.
func Health(sessions func() int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{"status": "ok"}
		if sessions != nil {
			body["sessions"] = sessions()
		}
		writeJSON(w, http.StatusOK, body)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
