package dto

// Response is the envelope every portal endpoint returns. Successful
// responses carry the payload in Body; failures carry a human-readable
// Message plus structured Error details.
type Response struct {
	Body    any        `json:"body,omitempty"`
	Message string     `json:"message,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo represents error details
type ErrorInfo struct {
	Code      string        `json:"code"`
	RequestID string        `json:"request_id,omitempty"`
	Fields    []FieldDetail `json:"fields,omitempty"`
}

// FieldDetail describes a single invalid field in a validation failure
type FieldDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewSuccessResponse creates a success envelope
func NewSuccessResponse(body any) Response {
	return Response{Body: body}
}

// NewSuccessResponseWithMessage creates a success envelope with an
// informational message
func NewSuccessResponseWithMessage(body any, message string) Response {
	return Response{Body: body, Message: message}
}

// NewErrorResponse creates an error envelope
func NewErrorResponse(code, message string) Response {
	return Response{
		Message: message,
		Error:   &ErrorInfo{Code: code},
	}
}

// NewErrorResponseWithRequestID creates an error envelope carrying the
// request ID for correlation
func NewErrorResponseWithRequestID(code, message, requestID string) Response {
	return Response{
		Message: message,
		Error:   &ErrorInfo{Code: code, RequestID: requestID},
	}
}

// NewValidationErrorResponse creates a validation error envelope with
// per-field details
func NewValidationErrorResponse(message, requestID string, fields []FieldDetail) Response {
	return Response{
		Message: message,
		Error: &ErrorInfo{
			Code:      ErrCodeValidation,
			RequestID: requestID,
			Fields:    fields,
		},
	}
}

// IDRequest represents a request with an ID path parameter. Order ids
// are assigned upstream and carry no format guarantee, so the id is
// only required to be present.
type IDRequest struct {
	ID string `uri:"id" binding:"required"`
}
