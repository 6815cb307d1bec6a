package models

// APIError is the error shape inside the response envelope.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIMeta carries pagination metadata for list-shaped responses.
type APIMeta struct {
	Total int `json:"total,omitempty"`
	Page  int `json:"page,omitempty"`
	Limit int `json:"limit,omitempty"`
}

// APIResponse is the envelope every engine HTTP response uses.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *APIMeta  `json:"meta,omitempty"`
}

// OK wraps a successful payload.
func OK(data any) APIResponse {
	return APIResponse{Success: true, Data: data}
}

// OKWithMeta wraps a successful payload with pagination metadata.
func OKWithMeta(data any, meta APIMeta) APIResponse {
	return APIResponse{Success: true, Data: data, Meta: &meta}
}

// Fail wraps an error code/message pair.
func Fail(code, message string) APIResponse {
	return APIResponse{Success: false, Error: &APIError{Code: code, Message: message}}
}
