package domain

// DefaultUsername is used when a user payload carries neither a username nor a name.
const DefaultUsername = "Usuario"

// User represents a user of the chat backend as seen by the client.
type User struct {
	ID                int64   `json:"id"                            yaml:"id"`
	Email             string  `json:"email"                         yaml:"email"`
	Username          string  `json:"username"                      yaml:"username"`
	ProfilePictureURL *string `json:"profile_picture_url,omitempty" yaml:"profile_picture_url,omitempty"`
}
