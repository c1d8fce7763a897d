package graphql

import (
	"encoding/json"
	"net/http"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
)

// Request is the POST body: a query plus optional variables.
type Request struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

// Response carries data and errors. Errors keep their locations and path so
// clients can point at the failing field.
type Response struct {
	Data   any                        `json:"data,omitempty"`
	Errors []gqlerrors.FormattedError `json:"errors,omitempty"`
}

// Handler executes queries against the layout schema with a depth limit.
type Handler struct {
	schema   graphql.Schema
	maxDepth int
}

// NewHandler wraps schema. maxDepth <= 0 uses DefaultMaxDepth.
func NewHandler(schema graphql.Schema, maxDepth int) *Handler {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Handler{schema: schema, maxDepth: maxDepth}
}

// ServeHTTP answers 200 for every executed query, including ones that failed
// validation; only transport problems get other codes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result := Execute(r.Context(), h.schema, req, h.maxDepth)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(Response{Data: result.Data, Errors: result.Errors})
}
