package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/textinput"

	"github.com/ahitposter/Brovado/internal/feed"
	"github.com/ahitposter/Brovado/internal/holdings"
	"github.com/ahitposter/Brovado/internal/models"
	"github.com/ahitposter/Brovado/internal/session"
)

const (
	testSelf  = "0xaa00000000000000000000000000000000000000"
	testRoomA = "0xbb00000000000000000000000000000000000000"
	testRoomB = "0xcc00000000000000000000000000000000000000"
)

type nopSender struct{}

func (nopSender) Send(any) error { return nil }

type nopUploader struct{}

func (nopUploader) UploadImage(context.Context, models.Attachment) (string, error) {
	return "", nil
}

func newTestModel(t *testing.T) *model {
	t.Helper()
	store, err := session.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	m := &model{
		store:    store,
		identity: models.Identity{Address: testSelf},
		feed:     feed.NewController(testSelf, nopSender{}, nopUploader{}),
		panel:    holdings.NewPanel(),
		composer: textinput.New(),
	}
	m.feed.SetReady(true)
	return m
}

func TestAnchorOffset(t *testing.T) {
	// 15 older messages render as 30 lines prepended above the anchor.
	if got := anchorOffset(0, 40, 70); got != 30 {
		t.Fatalf("anchorOffset = %d, want 30", got)
	}
	if got := anchorOffset(5, 40, 70); got != 35 {
		t.Fatalf("anchorOffset = %d, want 35", got)
	}
	// Shrinking content never yields a negative offset.
	if got := anchorOffset(2, 40, 10); got != 0 {
		t.Fatalf("anchorOffset = %d, want 0", got)
	}
}

func TestRoomSwitchKeepsComposerText(t *testing.T) {
	m := newTestModel(t)
	m.selectRoom(models.Holding{ChatRoomID: testRoomA})
	m.composer.SetValue("half-typed thought")

	m.selectRoom(models.Holding{ChatRoomID: testRoomB})
	if got := m.composer.Value(); got != "" {
		t.Fatalf("room B composer = %q, want empty", got)
	}

	m.selectRoom(models.Holding{ChatRoomID: testRoomA})
	if got := m.composer.Value(); got != "half-typed thought" {
		t.Fatalf("room A composer = %q, want the parked text back", got)
	}
}

func TestRejectedSendRefillsComposer(t *testing.T) {
	m := newTestModel(t)
	m.selectRoom(models.Holding{ChatRoomID: testRoomA})

	// Enter moves the line from the composer into the draft before the
	// dispatch, so a rejection finds the composer empty.
	m.feed.SetText("doomed")
	m.composer.SetValue("")
	if err := m.feed.Send(context.Background()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	m.applyFrame(models.SendAckFrame{Status: "error", Message: "room closed"})
	if got := m.composer.Value(); got != "doomed" {
		t.Fatalf("composer = %q, want the rejected text back", got)
	}
}

func TestImageBatchDoesNotWedgeLoading(t *testing.T) {
	m := newTestModel(t)
	m.selectRoom(models.Holding{ChatRoomID: testRoomA})

	m.applyFrame(models.MessagesFrame{Messages: []models.Message{{
		ChatRoomID: testRoomA,
		Timestamp:  1000,
		ImageURLs:  []string{"/images/a.png", "/images/b.png"},
	}}})

	if len(m.feed.Messages()) != 1 {
		t.Fatalf("len(messages) = %d, want 1", len(m.feed.Messages()))
	}
	if m.feed.Loading() {
		t.Fatalf("loading indicator stuck after an image batch")
	}
}

func TestLoadAttachment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pic.png")
	payload := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	att, err := loadAttachment(path)
	if err != nil {
		t.Fatalf("loadAttachment: %v", err)
	}
	if att.Name != "pic.png" {
		t.Fatalf("name = %q", att.Name)
	}
	if !strings.HasPrefix(att.Data, "data:image/png;base64,") {
		t.Fatalf("data url = %q", att.Data[:40])
	}
}

func TestLoadAttachmentRejectsNonImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("plain text, not pixels"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if _, err := loadAttachment(path); err == nil {
		t.Fatalf("text file must be rejected")
	}
}

func TestLoadAttachmentMissingFile(t *testing.T) {
	if _, err := loadAttachment(filepath.Join(t.TempDir(), "nope.png")); err == nil {
		t.Fatalf("missing file must be rejected")
	}
}
