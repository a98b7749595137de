package request

// CreateGuestRequest is the request body for creating a guest player
type CreateGuestRequest struct {
	Nick    string `json:"nick"`
	Avatar  string `json:"avatar,omitempty"`
	Faction string `json:"faction,omitempty"`
}

// RegisterRequest is the request body for registering a player.
// Nick defaults to the username.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Nick     string `json:"nick,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	Faction  string `json:"faction,omitempty"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// JoinQueueRequest is the request body for joining a matchmaking queue
type JoinQueueRequest struct {
	Mode string `json:"mode"`
}

// SendInviteRequest is the request body for inviting a player by nick
type SendInviteRequest struct {
	Nick string `json:"nick"`
}

// RespondInviteRequest answers the invite sent by Nick
type RespondInviteRequest struct {
	Nick   string `json:"nick"`
	Action string `json:"action"`
}
