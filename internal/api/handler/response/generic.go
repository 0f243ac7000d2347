package response

type APIError struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func NewAPIError(message, details string) APIError {
	return APIError{Success: false, Error: message, Details: details}
}
