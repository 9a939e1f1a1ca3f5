package models

// OutboundMessageRequest is a text notification sent to an operator.
type OutboundMessageRequest struct {
	To         string `json:"to" binding:"required"`
	Message    string `json:"message" binding:"required"`
	PreviewURL bool   `json:"preview_url"`
}

// AlertRequest is an operator alert: a title followed by one line per finding.
type AlertRequest struct {
	To    string
	Title string
	Lines []string
}
