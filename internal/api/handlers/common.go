package handlers

// ErrorResponse is the body of every 4xx/5xx reply.
type ErrorResponse struct {
	Error string `json:"error" example:"image is required"`
}

type SuccessResponse struct {
	Message string `json:"message" example:"ok"`
}
