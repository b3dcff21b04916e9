package models

import (
	"testing"
	"time"
)

func TestMessageMine(t *testing.T) {
	m := Message{ChatRoomID: "0xsomeoneelse", SendingUserID: "0xme"}
	if !m.Mine("0xme") {
		t.Fatalf("message from my address is mine regardless of room")
	}
	if m.Mine("0xother") {
		t.Fatalf("message from another address is not mine")
	}
}

func TestHoldingOnlineWindow(t *testing.T) {
	now := time.Now()
	recent := Holding{LastOnline: now.Add(-2 * time.Minute).UnixMilli()}
	stale := Holding{LastOnline: now.Add(-4 * time.Minute).UnixMilli()}

	if !recent.Online(now) {
		t.Fatalf("seen 2m ago counts as online")
	}
	if stale.Online(now) {
		t.Fatalf("seen 4m ago counts as offline")
	}
}

func TestHoldingUnread(t *testing.T) {
	h := Holding{LastMessageTime: 200, LastRead: 100}
	if !h.Unread() {
		t.Fatalf("message past the read mark is unread")
	}
	h.LastRead = 200
	if h.Unread() {
		t.Fatalf("read mark at the message clears unread")
	}
}

func TestIdentityExpired(t *testing.T) {
	now := time.Now()
	expired := Identity{ExpiresAt: now.Add(-time.Minute)}
	valid := Identity{ExpiresAt: now.Add(time.Hour)}
	unknown := Identity{}

	if !expired.Expired(now) {
		t.Fatalf("past expiry is expired")
	}
	if valid.Expired(now) {
		t.Fatalf("future expiry is not expired")
	}
	if unknown.Expired(now) {
		t.Fatalf("zero expiry is treated as not expired")
	}
}

func TestDraftEmpty(t *testing.T) {
	if !(Draft{}).Empty() {
		t.Fatalf("zero draft is empty")
	}
	if !(Draft{Text: "  \t "}).Empty() {
		t.Fatalf("whitespace text is empty")
	}
	if (Draft{Text: "hi"}).Empty() {
		t.Fatalf("text makes the draft sendable")
	}
	if (Draft{Attachments: []Attachment{{Name: "a.png"}}}).Empty() {
		t.Fatalf("an attachment makes the draft sendable")
	}
}
