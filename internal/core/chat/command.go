package chat

// Command names accepted by the dispatcher.
const (
	CommandLogin       = "LOGIN"
	CommandHeartbeat   = "HEARTBEAT"
	CommandMsg         = "MSG"
	CommandQueryActive = "QUERY_ACTIVE"
	CommandLogout      = "LOGOUT"
)

// Request is the wire payload of a chat command.
type Request struct {
	Command  string `json:"command"`
	Username string `json:"username"`
	Text     string `json:"text,omitempty"`
	Query    string `json:"query,omitempty"`
}

// Status values returned for commands without a display payload.
const (
	StatusOK        = "ok"
	StatusSent      = "sent"
	StatusLoggedOut = "logged out"
)

// Reply is the outcome of a successfully executed command. LOGIN and
// QUERY_ACTIVE replies are rendered for display; the others carry a Status.
type Reply struct {
	Command  string
	Username string
	Status   string
	// Active holds the sorted active users for QUERY_ACTIVE.
	Active []string
}

// StatusResponse is the JSON body for status replies.
type StatusResponse struct {
	Status string `json:"status"`
}
