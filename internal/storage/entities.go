package storage

import "time"

// ChatType is a closed variant: a chat is personal, a group or a channel.
type ChatType string

const (
	ChatPersonal ChatType = "personal"
	ChatGroup    ChatType = "group"
	ChatChannel  ChatType = "channel"
)

// User is an identity record. PasswordHash is persisted in snapshots but
// stripped from anything sent to clients, see Response.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	FullName     string `json:"fullName"`
	Avatar       string `json:"avatar"`
	Email        string `json:"email"`
	PasswordHash []byte `json:"passwordHash,omitempty"`
	IsOnline     bool   `json:"isOnline,omitempty"`
}

// UserResponse is the client-facing shape of a User.
type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
	Email    string `json:"email"`
	IsOnline bool   `json:"isOnline,omitempty"`
}

// Response strips credential material from a User.
func (u User) Response() UserResponse {
	return UserResponse{
		ID:       u.ID,
		Username: u.Username,
		FullName: u.FullName,
		Avatar:   u.Avatar,
		Email:    u.Email,
		IsOnline: u.IsOnline,
	}
}

// Message is immutable once created and only ever appended to a chat.
type Message struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"senderId"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	IsRead    bool      `json:"isRead,omitempty"`
}

// Chat is a conversation container. Messages is append-only and
// LastMessage always equals its final element after any append.
type Chat struct {
	ID           string    `json:"id"`
	Type         ChatType  `json:"type"`
	Name         string    `json:"name"`
	Avatar       string    `json:"avatar"`
	Participants []string  `json:"participants"`
	Messages     []Message `json:"messages"`
	LastMessage  *Message  `json:"lastMessage,omitempty"`
	UnreadCount  int       `json:"unreadCount"`
	AdminID      string    `json:"adminId,omitempty"`
}

// Story is an ephemeral image post. It is never deleted, only excluded
// from views once the clock passes ExpiresAt.
type Story struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ImageURL  string    `json:"imageUrl"`
	Timestamp time.Time `json:"timestamp"`
	ExpiresAt time.Time `json:"expiresAt"`
	Views     []string  `json:"views"`
}

// ChatSpec carries caller-supplied fields for CreateChat.
type ChatSpec struct {
	Type         ChatType
	Name         string
	Avatar       string
	Participants []string
	AdminID      string
}

// UserSpec carries caller-supplied fields for RegisterUser.
type UserSpec struct {
	Username string
	FullName string
	Avatar   string
	Email    string
	Password string
}
