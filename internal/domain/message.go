package domain

// Message is a single chat message. At least one of AudioURL, MediaURL and
// TextNote is normally set, but this is not enforced.
type Message struct {
	ID         int64   `json:"id"                   yaml:"id"`
	SenderID   int64   `json:"sender_id"            yaml:"sender_id"`
	ReceiverID int64   `json:"receiver_id"          yaml:"receiver_id"`
	AudioURL   *string `json:"audio_url,omitempty"  yaml:"audio_url,omitempty"`
	MediaURL   *string `json:"media_url,omitempty"  yaml:"media_url,omitempty"`
	TextNote   *string `json:"text_note,omitempty"  yaml:"text_note,omitempty"`
	Timestamp  *string `json:"timestamp,omitempty"  yaml:"timestamp,omitempty"`
}
