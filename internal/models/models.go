package models

import (
	"strings"
	"time"
)

// Identity is one stored wallet session the client can act as. The bearer
// token is a JWT issued by the remote authentication endpoint; Address and
// ExpiresAt are extracted from its claims at store time.
type Identity struct {
	Address     string    `json:"address"`
	Token       string    `json:"token"`
	DisplayName string    `json:"display_name,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the identity's token is past its expiry.
func (i Identity) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}

// Holding is one purchased key: access to the chat room of the target
// address, plus the display and price metadata the list renders. Entries are
// rebuilt from the portfolio endpoint on every load and mutated in place by
// incoming message events.
type Holding struct {
	ChatRoomID      string `json:"chatRoomId"`
	Name            string `json:"name"`
	PfpURL          string `json:"pfpUrl"`
	Price           string `json:"price"`
	Balance         int    `json:"balance"`
	BalanceEthValue string `json:"balanceEthValue"`
	LastOnline      int64  `json:"lastOnline"`

	LastMessageName string `json:"lastMessageName"`
	LastMessageText string `json:"lastMessageText"`
	LastMessageTime int64  `json:"lastMessageTime"`

	// LastRead is maintained locally, not by the API.
	LastRead int64 `json:"-"`
}

// Unread reports whether the last message arrived after the local read mark.
func (h Holding) Unread() bool {
	return h.LastMessageTime > h.LastRead
}

// Online reports whether the holder was seen within the last three minutes,
// matching the list's online indicator.
func (h Holding) Online(now time.Time) bool {
	return now.UnixMilli()-h.LastOnline <= 3*60*1000
}

// ReplyPreview is the embedded partial message a reply points at.
type ReplyPreview struct {
	MessageID string `json:"messageId"`
	Name      string `json:"twitterName,omitempty"`
	Text      string `json:"text"`
}

// Message is one chat message as rendered in a room's feed.
type Message struct {
	ClientMessageID string        `json:"clientMessageId,omitempty"`
	MessageID       string        `json:"messageId,omitempty"`
	ChatRoomID      string        `json:"chatRoomId"`
	SendingUserID   string        `json:"sendingUserId"`
	Name            string        `json:"twitterName,omitempty"`
	PfpURL          string        `json:"twitterPfpUrl,omitempty"`
	Text            string        `json:"text"`
	ImageURLs       []string      `json:"imageUrls,omitempty"`
	ReplyingTo      *ReplyPreview `json:"replyingToMessage,omitempty"`
	Timestamp       int64         `json:"timestamp"`
	ReadBy          int           `json:"readByCount,omitempty"`
}

// Mine reports whether the message was sent by the given address.
func (m Message) Mine(address string) bool {
	return m.SendingUserID == address
}

// UserProfile is the per-room metadata the profile header shows. Display
// only; every field may be missing on partial failures.
type UserProfile struct {
	Address      string `json:"address"`
	Name         string `json:"twitterName"`
	Username     string `json:"twitterUsername"`
	PfpURL       string `json:"twitterPfpUrl"`
	DisplayPrice string `json:"displayPrice"`
	ShareSupply  int    `json:"shareSupply"`
	HolderCount  int    `json:"holderCount"`
	HoldingCount int    `json:"holdingCount"`
	LastOnline   int64  `json:"lastOnline"`
}

// Attachment is one staged image, held per room until send time. Data is the
// data-URL-encoded image; the storage path only exists after upload.
type Attachment struct {
	Name string
	Data string
}

// Draft is the in-progress composer state for one room: text, staged
// attachments and an optional reply pointer, kept together so switching
// rooms and back preserves all three.
type Draft struct {
	Text        string
	Attachments []Attachment
	ReplyingTo  *ReplyPreview
}

// Empty reports whether sending the draft would be a no-op.
func (d Draft) Empty() bool {
	return strings.TrimSpace(d.Text) == "" && len(d.Attachments) == 0
}
