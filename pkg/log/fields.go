package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor
	FieldUserID   = "user_id"
	FieldUsername = "username"

	// Realtime protocol
	FieldEvent     = "event"
	FieldClientID  = "client_id"
	FieldChatID    = "chat_id"
	FieldMessageID = "message_id"
)
