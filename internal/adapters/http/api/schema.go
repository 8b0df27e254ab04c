package api

import (
	"net/http"

	"github.com/okian/gradelens/internal/domain/flagging"
	"github.com/okian/gradelens/internal/domain/schema"
	"github.com/okian/gradelens/internal/domain/weights"
)

// SchemaProvider exposes the canonical fields and effective defaults.
type SchemaProvider interface {
	Schema() *schema.Schema
	Defaults() (weights.Map, flagging.Thresholds)
}

// SchemaHandler serves the canonical schema.
type SchemaHandler struct {
	provider SchemaProvider
}

// NewSchemaHandler creates a new schema handler.
func NewSchemaHandler(p SchemaProvider) *SchemaHandler {
	return &SchemaHandler{provider: p}
}

type schemaResponse struct {
	Fields     []schema.Field      `json:"fields"`
	Weights    weights.Map         `json:"weights"`
	Thresholds flagging.Thresholds `json:"thresholds"`
	Semesters  schema.Semesters    `json:"semesters"`
}

// HandleGetSchema handles GET /schema. Weights and thresholds are the
// service defaults, which may differ from the schema document's.
func (h *SchemaHandler) HandleGetSchema(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	sc := h.provider.Schema()
	wts, th := h.provider.Defaults()
	writeJSON(w, http.StatusOK, schemaResponse{
		Fields:     sc.Fields,
		Weights:    wts,
		Thresholds: th,
		Semesters:  sc.Semesters,
	})
}
