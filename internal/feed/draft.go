package feed

import "github.com/ahitposter/Brovado/internal/models"

// Drafts maps room ids to their in-progress composer state. Text, staged
// attachments and the reply pointer live in one value per room, so switching
// rooms and back restores all of it at once.
type Drafts struct {
	byRoom map[string]models.Draft
}

func NewDrafts() *Drafts {
	return &Drafts{byRoom: map[string]models.Draft{}}
}

func (d *Drafts) Get(room string) models.Draft {
	return d.byRoom[room]
}

func (d *Drafts) Set(room string, draft models.Draft) {
	if room == "" {
		return
	}
	d.byRoom[room] = draft
}

func (d *Drafts) Clear(room string) {
	delete(d.byRoom, room)
}

func (d *Drafts) SetText(room, text string) {
	draft := d.byRoom[room]
	draft.Text = text
	d.Set(room, draft)
}

func (d *Drafts) SetReply(room string, r *models.ReplyPreview) {
	draft := d.byRoom[room]
	draft.ReplyingTo = r
	d.Set(room, draft)
}

func (d *Drafts) StageAttachment(room string, att models.Attachment) {
	draft := d.byRoom[room]
	draft.Attachments = append(draft.Attachments, att)
	d.Set(room, draft)
}

// RemoveAttachment drops the staged image at index, preserving the relative
// order of the rest. Out-of-range indexes are ignored.
func (d *Drafts) RemoveAttachment(room string, index int) {
	draft := d.byRoom[room]
	if index < 0 || index >= len(draft.Attachments) {
		return
	}
	draft.Attachments = append(draft.Attachments[:index], draft.Attachments[index+1:]...)
	d.Set(room, draft)
}
