package dto

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Status    int    `json:"status"`
	RequestID string `json:"request_id,omitempty"`
}

func NewErrorResponse(kind, message string, status int, requestID string) *ErrorResponse {
	return &ErrorResponse{
		Error:     kind,
		Message:   message,
		Status:    status,
		RequestID: requestID,
	}
}
