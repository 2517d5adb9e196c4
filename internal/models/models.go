package models

// HealthResponse is the /health endpoint payload
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// StatusResponse is the /status endpoint payload
type StatusResponse struct {
	Status             string `json:"status"`
	CyclesRun          int64  `json:"cycles_run"`
	MessagesDispatched int64  `json:"messages_dispatched"`
	RowsDropped        int64  `json:"rows_dropped"`
	GroupsWatched      int    `json:"groups_watched"`
	LastCycleAt        string `json:"last_cycle_at,omitempty"`
	MessagesCaptured   int64  `json:"messages_captured"`
}

// SendMessageRequest is the /send request body
type SendMessageRequest struct {
	Group   string `json:"group"`
	Message string `json:"message"`
}

// SendMessageResponse is the /send response payload
type SendMessageResponse struct {
	Status    string `json:"status"`
	Group     string `json:"group"`
	Timestamp int64  `json:"timestamp"`
}

// NoticeRequest is the /webhook/notice request body: a push-style
// outbound notice to be posted on the next poll cycle.
type NoticeRequest struct {
	ID      string `json:"id"`
	SBC     string `json:"sbc"`
	Context string `json:"context"`
}

// ErrorResponse is the error payload shape for all endpoints
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
