// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

// Category tags every failure so clients can branch without parsing messages.
type Category string

const (
	CategoryValidation          Category = "VALIDATION"
	CategoryIdentifierExhausted Category = "IDENTIFIER_EXHAUSTED"
	CategoryDuplicate           Category = "DUPLICATE"
	CategoryInvalidReference    Category = "INVALID_REFERENCE"
	CategoryMissingFields       Category = "MISSING_FIELDS"
	CategoryNotFound            Category = "NOT_FOUND"
	CategoryInvalidTransition   Category = "INVALID_TRANSITION"
	CategoryUnauthorized        Category = "UNAUTHORIZED"
	CategoryForbidden           Category = "FORBIDDEN"
	CategoryRateLimited         Category = "RATE_LIMITED"
	CategoryInternal            Category = "INTERNAL"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Category Category          `json:"category"`
	Detail   string            `json:"detail"`
	Fields   map[string]string `json:"fields,omitempty"`
	Debug    string            `json:"debug,omitempty"`
}

func New(category Category, msg string) *APIError {
	return &APIError{Category: category, Detail: msg}
}

// NewValidation wraps multiple field errors.
func NewValidation(fields map[string]string) *APIError {
	return &APIError{Category: CategoryValidation, Detail: "Erreur de validation", Fields: fields}
}

// Internal is the generic 500 body; it never carries the cause.
func Internal() *APIError {
	return New(CategoryInternal, "Erreur interne du serveur")
}

// WithDebug attaches the underlying error text. Callers only do so outside production.
func (e *APIError) WithDebug(detail string) *APIError {
	e.Debug = detail
	return e
}
