package domain

// APIError is the failure form of the response envelope:
// {"success": false, "error": "...", "type": "...", "errors": {...}}
type APIError struct {
	Success bool              `json:"success"`
	Message string            `json:"error"`
	Type    string            `json:"type"`
	Errors  map[string]string `json:"errors,omitempty"`
	// Degraded marks a response served while an upstream source is unavailable
	Degraded bool `json:"degraded,omitempty"`
}

// DegradedSearchResponse is returned when search cannot reach its source.
// Leads is always empty, never substituted data.
type DegradedSearchResponse struct {
	APIError
	Leads []LeadDTO `json:"leads"`
}

// NewDegradedSearchResponse builds the unavailable search body
func NewDegradedSearchResponse(message string) DegradedSearchResponse {
	return DegradedSearchResponse{
		APIError: APIError{
			Message:  message,
			Type:     ErrorTypeUnavailable,
			Degraded: true,
		},
		Leads: []LeadDTO{},
	}
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// ValidationMessages maps validator tags to user-facing messages
var ValidationMessages = map[string]string{
	"required": "This field is required",
	"email":    "Must be a valid email address",
	"max":      "Exceeds maximum length",
	"min":      "Below minimum length",
	"gte":      "Must be greater than or equal to minimum value",
	"gt":       "Must be greater than minimum value",
	"lte":      "Must be less than or equal to maximum value",
	"lt":       "Must be less than maximum value",
	"uuid":     "Must be a valid UUID",
	"url":      "Must be a valid URL",
	"oneof":    "Must be one of the allowed values",
	"numeric":  "Must be a numeric value",
	"len":      "Must be exactly the specified length",
	"hexcolor": "Must be a hex color such as #3b82f6",
	"cnpj":     "Must be a CNPJ with 14 digits",
	"stage":    "Must be a valid pipeline stage",
}

// GetValidationMessage returns a human-readable message for a validation tag
func GetValidationMessage(tag string) string {
	if msg, ok := ValidationMessages[tag]; ok {
		return msg
	}
	return "Validation failed: " + tag
}

const (
	ErrorTypeValidation   = "validation_error"
	ErrorTypeNotFound     = "not_found"
	ErrorTypeBadRequest   = "bad_request"
	ErrorTypeConflict     = "conflict"
	ErrorTypeUnauthorized = "unauthorized"
	ErrorTypeForbidden    = "forbidden"
	ErrorTypeRateLimited  = "rate_limited"
	ErrorTypeUpstream     = "upstream_error"
	ErrorTypeUnavailable  = "unavailable"
	ErrorTypeInternal     = "internal_error"
)
