package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Client -> server socket actions.

const (
	ActionPing            = "ping"
	ActionRequestMessages = "requestMessages"
	ActionSendMessage     = "sendMessage"
)

// PingAction is the liveness heartbeat; no payload beyond the action tag.
type PingAction struct {
	Action string `json:"action"`
}

func NewPing() PingAction { return PingAction{Action: ActionPing} }

// RequestMessagesAction asks for one page of room history. PageStart is nil
// for the most recent page, otherwise the cursor from the previous response.
type RequestMessagesAction struct {
	Action     string  `json:"action"`
	ChatRoomID string  `json:"chatRoomId"`
	PageStart  *string `json:"pageStart"`
}

func NewRequestMessages(chatRoomID string, pageStart *string) RequestMessagesAction {
	return RequestMessagesAction{Action: ActionRequestMessages, ChatRoomID: chatRoomID, PageStart: pageStart}
}

// SendMessageAction carries one outgoing message. ImagePaths are the storage
// paths returned by the upload endpoint, never raw image data.
type SendMessageAction struct {
	Action              string   `json:"action"`
	Text                string   `json:"text"`
	ImagePaths          []string `json:"imagePaths"`
	ChatRoomID          string   `json:"chatRoomId"`
	ReplyingToMessageID string   `json:"replyingToMessageId,omitempty"`
	ClientMessageID     string   `json:"clientMessageId"`
}

// Server -> client socket frames, decoded once at the socket boundary into a
// tagged union. Everything past the boundary switches on the Frame type, not
// on raw maps.

const (
	FrameMessages        = "messages"
	FrameReceivedMessage = "receivedMessage"
	FrameSendAck         = "chatMessageResponse"
)

// Frame is one decoded server frame.
type Frame interface {
	frameType() string
}

// MessagesFrame is a history page: an ordered batch plus the cursor for the
// next older page (nil when no earlier page exists).
type MessagesFrame struct {
	Messages      []Message `json:"messages"`
	NextPageStart *string   `json:"nextPageStart"`
}

func (MessagesFrame) frameType() string { return FrameMessages }

// ChatRoomID returns the room the page belongs to, taken from the batch.
// An empty batch has no room; callers treat that as an end-of-history page
// for whichever request is outstanding.
func (f MessagesFrame) ChatRoomID() string {
	if len(f.Messages) == 0 {
		return ""
	}
	return f.Messages[0].ChatRoomID
}

// ReceivedMessageFrame is one live pushed message.
type ReceivedMessageFrame struct {
	Message
}

func (ReceivedMessageFrame) frameType() string { return FrameReceivedMessage }

// SendAckFrame acknowledges a sendMessage action.
type SendAckFrame struct {
	Status          string `json:"status"`
	Message         string `json:"message,omitempty"`
	ClientMessageID string `json:"clientMessageId,omitempty"`
}

func (SendAckFrame) frameType() string { return FrameSendAck }

// OK reports whether the server accepted the send.
func (f SendAckFrame) OK() bool { return f.Status == "success" }

// ErrUnknownFrame is returned for frame types this client does not handle;
// callers skip those rather than failing the connection.
var ErrUnknownFrame = errors.New("unknown frame type")

// DecodeFrame decodes one raw socket frame into the tagged union.
func DecodeFrame(data []byte) (Frame, error) {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("failed to decode frame envelope: %w", err)
	}

	switch tag.Type {
	case FrameMessages:
		var f MessagesFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to decode messages frame: %w", err)
		}
		return f, nil
	case FrameReceivedMessage:
		var f ReceivedMessageFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to decode receivedMessage frame: %w", err)
		}
		return f, nil
	case FrameSendAck:
		var f SendAckFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to decode chatMessageResponse frame: %w", err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFrame, tag.Type)
	}
}
