package dto

// ErrorBody тело ошибки со стабильным кодом.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse стандартный ответ с ошибкой.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// SuccessResponse стандартный успешный ответ.
type SuccessResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}
