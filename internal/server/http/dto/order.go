package dto

// ErrorResponse carries a user-facing error message.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CountResponse reports how many orders a bulk action touched.
type CountResponse struct {
	Count int `json:"count"`
}
