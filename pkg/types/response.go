package types

// SuccessEnvelope is what the storefront facade writes on success.
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

// UpstreamStatus is the loose {success, message} pair most Dwayee API answers carry.
type UpstreamStatus struct {
	Success *bool  `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
}

// Succeeded reports an explicit success flag.
func (u UpstreamStatus) Succeeded() bool {
	return u.Success != nil && *u.Success
}
