package validation

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// Request limits for the layout API
	MaxNodes     = 5000
	MaxEdges     = 50000
	MaxIDLength  = 256
	MaxBatchSize = 1000
	MinBatchSize = 1

	idPattern = regexp.MustCompile(`^[^\s\x00]+$`)
)

func init() {
	validate = validator.New()
}

// NodeRequest is a node as submitted to the layout API
type NodeRequest struct {
	ID    string  `json:"id" validate:"required,max=256"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Fixed bool    `json:"fixed,omitempty"`
}

// EdgeRequest is an edge as submitted to the layout API
type EdgeRequest struct {
	ID     string `json:"id" validate:"omitempty,max=256"`
	Source string `json:"source" validate:"required,max=256"`
	Target string `json:"target" validate:"required,max=256"`
}

// GraphRequest is the graph half of a layout request
type GraphRequest struct {
	Nodes []NodeRequest `json:"nodes" validate:"dive"`
	Edges []EdgeRequest `json:"edges" validate:"dive"`
}

// Struct validates v against its `validate` tags and returns the first
// failure in a readable form.
func Struct(v any) error {
	if v == nil {
		return errors.New("value cannot be nil")
	}
	return formatValidationError(validate.Struct(v))
}

// ValidateGraphRequest checks size limits and field shapes. Whether edges
// point at existing nodes is checked later, when the snapshot is built.
func ValidateGraphRequest(req *GraphRequest) error {
	if req == nil {
		return errors.New("graph request cannot be nil")
	}
	if len(req.Nodes) > MaxNodes {
		return fmt.Errorf("Nodes: maximum %d nodes allowed, got %d", MaxNodes, len(req.Nodes))
	}
	if len(req.Edges) > MaxEdges {
		return fmt.Errorf("Edges: maximum %d edges allowed, got %d", MaxEdges, len(req.Edges))
	}
	if err := Struct(req); err != nil {
		return err
	}
	for i, n := range req.Nodes {
		if err := ValidateID(n.ID); err != nil {
			return fmt.Errorf("Nodes[%d]: %w", i, err)
		}
	}
	return nil
}

// ValidateBatchSize validates an iteration batch size
func ValidateBatchSize(size int) error {
	if size < MinBatchSize {
		return fmt.Errorf("batch size must be at least %d, got %d", MinBatchSize, size)
	}
	if size > MaxBatchSize {
		return fmt.Errorf("batch size must not exceed %d, got %d", MaxBatchSize, size)
	}
	return nil
}

// ValidateID validates a node or edge identifier
func ValidateID(id string) error {
	if id == "" {
		return errors.New("id cannot be empty")
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("id '%.16s...' exceeds maximum length of %d characters", id, MaxIDLength)
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("id %q must not contain whitespace", id)
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	for _, e := range validationErrs {
		field := e.Namespace()
		param := e.Param()

		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min", "gte":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max", "lte":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "gt":
			return fmt.Errorf("%s: must be greater than %s", field, param)
		case "lt":
			return fmt.Errorf("%s: must be less than %s", field, param)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}

	return err
}
