package models

// SuccessResponse wraps every successful API payload.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

// ErrorResponse is returned for every failed request. Validation failures
// fill Errors, everything else fills Error.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   string       `json:"error,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// FieldError names one request field that failed validation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AttemptList is the paginated response of GET /api/v1/payments.
type AttemptList struct {
	Data       []PaymentAttempt `json:"data"`
	Pagination Pagination       `json:"pagination"`
}

// Pagination describes where a page of attempts sits in the full result.
type Pagination struct {
	Total       int `json:"total"`
	TotalPages  int `json:"total_pages"`
	CurrentPage int `json:"current_page"`
}
