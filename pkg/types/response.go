package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// TrackResult is the flat body returned by the public tracking endpoint.
// The storefront reads success and contact_id directly, so it is not wrapped.
type TrackResult struct {
	Success   bool   `json:"success"`
	ContactID string `json:"contact_id,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}
