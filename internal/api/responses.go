package api

type ErrorResponse struct {
	Error   string       `json:"error" example:"something went wrong"`
	Code    string       `json:"code,omitempty" example:"conflict"`
	Details []FieldError `json:"details,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message" example:"ok"`
}

type HealthResponse struct {
	Status   string `json:"status" example:"ok"`
	Database string `json:"database" example:"ok"`
	Redis    string `json:"redis" example:"ok"`
}
