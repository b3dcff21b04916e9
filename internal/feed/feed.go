// Package feed is the message feed controller: the one piece of the client
// with real state transitions. It mediates between the socket, the paginated
// history, and the rendered list for exactly one selected room at a time,
// and owns the pagination cursor, drafts, the send pipeline, and the
// composer gate.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/ahitposter/Brovado/internal/models"
)

// Sender is the open socket's outgoing half.
type Sender interface {
	Send(action any) error
}

// Uploader pushes one staged attachment and returns its storage path.
type Uploader interface {
	UploadImage(ctx context.Context, att models.Attachment) (string, error)
}

// Change tells the view what a frame did to the list, so it can anchor or
// follow the scroll position accordingly.
type Change int

const (
	NoChange Change = iota
	InitialLoaded
	OlderPrepended
	MessageAppended
	SendAcked
	SendRejected
)

type requestKind int

const (
	requestInitial requestKind = iota
	requestOlder
)

// ErrEmptyDraft is returned when a send would carry nothing.
var ErrEmptyDraft = errors.New("empty message")

// ErrComposerLocked is returned while the anti-spam gate is on.
var ErrComposerLocked = errors.New("composer locked")

type pendingSend struct {
	clientMessageID string
	room            string
	draft           models.Draft
}

// historyRequest records one in-flight history request. The server answers
// them in issue order and responses carry no request id, so the queue is
// what lets a response be matched back to the room and kind it was asked
// for.
type historyRequest struct {
	room string
	kind requestKind
}

type Controller struct {
	self     string
	sender   Sender
	uploader Uploader

	room     string
	ready    bool
	messages []models.Message

	cursor        *string
	lastRequested *string
	requests      []historyRequest

	loading       bool
	pendingImages int

	drafts   *Drafts
	inFlight []pendingSend
}

func NewController(self string, sender Sender, uploader Uploader) *Controller {
	return &Controller{
		self:     self,
		sender:   sender,
		uploader: uploader,
		drafts:   NewDrafts(),
	}
}

// Room returns the currently selected room id, empty if none.
func (c *Controller) Room() string { return c.room }

// Messages returns the rendered list, oldest first.
func (c *Controller) Messages() []models.Message { return c.messages }

// Loading reports whether the view should show the loading indicator: a
// history request is outstanding, or a loaded batch still has images
// pending.
func (c *Controller) Loading() bool {
	return c.loading || c.pendingImages > 0
}

// HasMore reports whether an earlier page exists.
func (c *Controller) HasMore() bool { return c.cursor != nil }

// Sending reports whether any send is awaiting its acknowledgement.
func (c *Controller) Sending() bool { return len(c.inFlight) > 0 }

// SetReady tells the controller the socket's readiness. Becoming ready with
// a room selected restarts that room's feed from scratch. Losing readiness
// drops the request queue: requests sent on a dead connection get no answer.
func (c *Controller) SetReady(ready bool) {
	c.ready = ready
	if !ready {
		c.requests = nil
		return
	}
	if c.room != "" {
		c.restart()
	}
}

// SelectRoom switches the live room. The previous room's subscription state
// is discarded entirely; its draft survives in the draft store.
func (c *Controller) SelectRoom(room string) {
	c.room = room
	c.restart()
}

func (c *Controller) restart() {
	c.messages = nil
	c.cursor = nil
	c.lastRequested = nil
	c.pendingImages = 0
	c.loading = false

	if c.room == "" || !c.ready {
		return
	}

	if err := c.sender.Send(models.NewRequestMessages(c.room, nil)); err != nil {
		return
	}
	c.loading = true
	c.requests = append(c.requests, historyRequest{room: c.room, kind: requestInitial})
}

// LoadOlder asks for the next older page. It fires only at most once per
// cursor value: the scroll trigger can fire repeatedly before the response
// arrives, and requesting the same cursor twice must be suppressed.
func (c *Controller) LoadOlder() bool {
	if c.room == "" || !c.ready || c.cursor == nil {
		return false
	}
	if c.lastRequested != nil && *c.lastRequested == *c.cursor {
		return false
	}
	if err := c.sender.Send(models.NewRequestMessages(c.room, c.cursor)); err != nil {
		return false
	}
	cur := *c.cursor
	c.lastRequested = &cur
	c.requests = append(c.requests, historyRequest{room: c.room, kind: requestOlder})
	return true
}

// HandleFrame applies one decoded socket frame. Frames for other rooms never
// touch the list: routing is by the frame's room id, not by whatever room
// happened to be selected when a handler was installed.
func (c *Controller) HandleFrame(frame models.Frame) (Change, error) {
	switch f := frame.(type) {
	case models.MessagesFrame:
		return c.handleHistory(f), nil
	case models.ReceivedMessageFrame:
		if f.ChatRoomID != c.room {
			return NoChange, nil
		}
		msg := f.Message
		msg.Text = NormalizeText(msg.Text)
		c.messages = append(c.messages, msg)
		return MessageAppended, nil
	case models.SendAckFrame:
		return c.handleAck(f)
	default:
		return NoChange, nil
	}
}

func (c *Controller) handleHistory(f models.MessagesFrame) Change {
	if len(c.requests) == 0 {
		return NoChange
	}
	// A non-empty batch for a different room answers a request issued
	// before the current room was selected. It consumes that request's
	// queue slot when one is still pending, and never leaks into the list.
	if room := f.ChatRoomID(); room != "" && room != c.room {
		if c.requests[0].room == room {
			c.requests = c.requests[1:]
		}
		return NoChange
	}

	req := c.requests[0]
	c.requests = c.requests[1:]
	// An empty page carries no room id. Responses arrive in issue order,
	// so it answers the queue head; a head issued for a previously
	// selected room is discarded without touching the current feed.
	if req.room != c.room {
		return NoChange
	}

	batch := make([]models.Message, len(f.Messages))
	copy(batch, f.Messages)
	sort.SliceStable(batch, func(i, j int) bool {
		return batch[i].Timestamp < batch[j].Timestamp
	})
	for i := range batch {
		batch[i].Text = NormalizeText(batch[i].Text)
	}

	c.cursor = f.NextPageStart
	c.loading = false
	c.pendingImages = countImages(batch)

	if req.kind == requestInitial {
		c.messages = batch
		return InitialLoaded
	}
	c.messages = append(batch, c.messages...)
	return OlderPrepended
}

func (c *Controller) handleAck(f models.SendAckFrame) (Change, error) {
	if len(c.inFlight) == 0 {
		return NoChange, nil
	}
	idx := 0
	if f.ClientMessageID != "" {
		idx = -1
		for i, p := range c.inFlight {
			if p.clientMessageID == f.ClientMessageID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return NoChange, nil
		}
	}
	pending := c.inFlight[idx]
	c.inFlight = append(c.inFlight[:idx], c.inFlight[idx+1:]...)

	if f.OK() {
		return SendAcked, nil
	}

	// The draft was cleared optimistically at dispatch; an explicit
	// rejection restores it to the room it was typed in, which may no
	// longer be the selected one.
	if c.drafts.Get(pending.room).Empty() {
		c.drafts.Set(pending.room, pending.draft)
	}
	msg := f.Message
	if msg == "" {
		msg = "send rejected"
	}
	return SendRejected, fmt.Errorf("send rejected: %s", msg)
}

// PendingImages returns how many images from the last loaded batch are
// still waiting on NoteImageLoaded.
func (c *Controller) PendingImages() int { return c.pendingImages }

// NoteImageLoaded reports one image from the last loaded batch finished
// loading; the indicator clears when the whole batch has.
func (c *Controller) NoteImageLoaded() {
	if c.pendingImages > 0 {
		c.pendingImages--
	}
}

// ComposerLocked reports whether the anti-spam gate is on: the viewer does
// not own the room and their own last three consecutive messages have had no
// reply from anyone else. Client-side courtesy only; the authoritative
// limit, if any, is the server's.
func (c *Controller) ComposerLocked() bool {
	if c.room == "" || c.room == c.self {
		return false
	}
	if len(c.messages) < 3 {
		return false
	}
	for _, m := range c.messages[len(c.messages)-3:] {
		if !m.Mine(c.self) {
			return false
		}
	}
	return true
}

// Send composes the room's draft into one outgoing message: staged images
// are uploaded first (any failure aborts the whole send with the draft
// intact), then the action is dispatched and the draft cleared
// optimistically. The sending indicator stays on until the acknowledgement
// frame arrives.
func (c *Controller) Send(ctx context.Context) error {
	if c.room == "" {
		return ErrEmptyDraft
	}
	draft := c.drafts.Get(c.room)
	if draft.Empty() {
		return ErrEmptyDraft
	}
	if c.ComposerLocked() {
		return ErrComposerLocked
	}

	imagePaths := make([]string, 0, len(draft.Attachments))
	for _, att := range draft.Attachments {
		path, err := c.uploader.UploadImage(ctx, att)
		if err != nil {
			return fmt.Errorf("failed to upload image: %w", err)
		}
		imagePaths = append(imagePaths, path)
	}

	action := models.SendMessageAction{
		Action:          models.ActionSendMessage,
		Text:            draft.Text,
		ImagePaths:      imagePaths,
		ChatRoomID:      c.room,
		ClientMessageID: uuid.NewString(),
	}
	if draft.ReplyingTo != nil {
		action.ReplyingToMessageID = draft.ReplyingTo.MessageID
	}

	if err := c.sender.Send(action); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	c.inFlight = append(c.inFlight, pendingSend{
		clientMessageID: action.ClientMessageID,
		room:            c.room,
		draft:           draft,
	})
	c.drafts.Clear(c.room)
	return nil
}

// Draft access for the composer; everything is keyed by the selected room.

func (c *Controller) Draft() models.Draft { return c.drafts.Get(c.room) }

func (c *Controller) SetText(text string) { c.drafts.SetText(c.room, text) }

func (c *Controller) SetReply(r *models.ReplyPreview) { c.drafts.SetReply(c.room, r) }

func (c *Controller) ClearReply() { c.drafts.SetReply(c.room, nil) }

func (c *Controller) StageAttachment(att models.Attachment) {
	c.drafts.StageAttachment(c.room, att)
}

func (c *Controller) RemoveAttachment(index int) {
	c.drafts.RemoveAttachment(c.room, index)
}

func countImages(batch []models.Message) int {
	n := 0
	for _, m := range batch {
		n += len(m.ImageURLs)
	}
	return n
}
