package handler

// APIError 携带HTTP状态码的业务错误，路由层据此决定响应状态
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError 创建业务错误
func NewAPIError(status int, message string) *APIError {
	return &APIError{Status: status, Message: message}
}
