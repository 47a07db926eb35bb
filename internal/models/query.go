// internal/models/query.go
package models

// QueryRequest is the inbound conversational query.
type QueryRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// QueryResponse is the assembled answer for one user message: the
// conversational reply plus the page of products it refers to.
type QueryResponse struct {
	InterpretedQuery string    `json:"interpreted_query"`
	Reply            string    `json:"ai_message"`
	IsCategoryList   bool      `json:"is_category_list"`
	HasMore          bool      `json:"has_more"`
	ServerBusy       bool      `json:"server_busy"`
	Products         []Product `json:"products"`
}
