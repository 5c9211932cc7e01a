package response

// Envelope is the uniform API response shape. Status carries the
// registration outcome ("enrolled", "waitlisted", "success") or "error";
// Code holds the machine-readable error code on failures.
type Envelope struct {
	Success bool        `json:"success"`
	Status  string      `json:"status"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}
