package holdings

import (
	"testing"

	"github.com/ahitposter/Brovado/internal/models"
)

func testHoldings() []models.Holding {
	return []models.Holding{
		{ChatRoomID: "0xaaa", Name: "alice", BalanceEthValue: "50000000000000000", LastMessageTime: 100},
		{ChatRoomID: "0xbbb", Name: "Bob", BalanceEthValue: "200000000000000000", LastMessageTime: 300},
		{ChatRoomID: "0xccc", Name: "carol", BalanceEthValue: "10000000000000000", LastMessageTime: 200},
	}
}

func rooms(items []models.Holding) []string {
	out := make([]string, len(items))
	for i, h := range items {
		out[i] = h.ChatRoomID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSortOrders(t *testing.T) {
	p := NewPanel()
	p.Reset(testHoldings())

	cases := []struct {
		order string
		want  []string
	}{
		{SortLastMessage, []string{"0xbbb", "0xccc", "0xaaa"}},
		{SortName, []string{"0xaaa", "0xbbb", "0xccc"}},
		{SortValue, []string{"0xbbb", "0xaaa", "0xccc"}},
	}
	for _, tc := range cases {
		p.SetSortOrder(tc.order)
		if got := rooms(p.Items()); !equal(got, tc.want) {
			t.Fatalf("sort %s: got %v, want %v", tc.order, got, tc.want)
		}
	}
}

func TestFavoritesPinFirst(t *testing.T) {
	p := NewPanel()
	p.Reset(testHoldings())
	p.SetSortOrder(SortLastMessage)

	if on := p.ToggleFavorite("0xaaa"); !on {
		t.Fatalf("first toggle should favorite")
	}
	if got := rooms(p.Items()); !equal(got, []string{"0xaaa", "0xbbb", "0xccc"}) {
		t.Fatalf("favorite not pinned: %v", got)
	}

	if on := p.ToggleFavorite("0xaaa"); on {
		t.Fatalf("second toggle should unfavorite")
	}
	if got := rooms(p.Items()); !equal(got, []string{"0xbbb", "0xccc", "0xaaa"}) {
		t.Fatalf("unfavorite did not restore order: %v", got)
	}
}

func TestFilterMatchesNameCaseInsensitive(t *testing.T) {
	p := NewPanel()
	p.Reset(testHoldings())

	p.SetFilter("BOB")
	if got := rooms(p.Items()); !equal(got, []string{"0xbbb"}) {
		t.Fatalf("filter BOB: %v", got)
	}

	p.SetFilter("")
	if len(p.Items()) != 3 {
		t.Fatalf("clearing the filter should restore the full list")
	}
}

func TestApplyMessageUpdatesPreview(t *testing.T) {
	p := NewPanel()
	p.Reset(testHoldings())

	applied := p.ApplyMessage(models.Message{
		ChatRoomID: "0xaaa",
		Name:       "alice",
		Text:       "latest",
		Timestamp:  999,
	})
	if !applied {
		t.Fatalf("message for a listed room must apply")
	}

	h, ok := p.Find("0xaaa")
	if !ok {
		t.Fatalf("room 0xaaa missing")
	}
	if h.LastMessageText != "latest" || h.LastMessageTime != 999 {
		t.Fatalf("preview not updated: %+v", h)
	}

	// Newest preview floats to the top of the default sort.
	p.SetSortOrder(SortLastMessage)
	if got := rooms(p.Items()); got[0] != "0xaaa" {
		t.Fatalf("updated room should sort first: %v", got)
	}

	if p.ApplyMessage(models.Message{ChatRoomID: "0xzzz", Text: "x"}) {
		t.Fatalf("message for an unlisted room must be dropped")
	}
}

func TestReadMarksAndUnread(t *testing.T) {
	p := NewPanel()
	p.Reset(testHoldings())

	if got := p.UnreadCount(); got != 3 {
		t.Fatalf("UnreadCount = %d, want 3 with no marks", got)
	}

	p.SetReadMark("0xbbb", 300)
	if got := p.UnreadCount(); got != 2 {
		t.Fatalf("UnreadCount = %d, want 2 after reading 0xbbb", got)
	}

	// Marks only move forward.
	p.SetReadMark("0xbbb", 100)
	h, _ := p.Find("0xbbb")
	if h.LastRead != 300 {
		t.Fatalf("read mark regressed to %d", h.LastRead)
	}

	p.ApplyMessage(models.Message{ChatRoomID: "0xbbb", Text: "new", Timestamp: 400})
	if got := p.UnreadCount(); got != 3 {
		t.Fatalf("UnreadCount = %d, want 3 after a fresh message", got)
	}
}

func TestUnknownSortOrderFallsBack(t *testing.T) {
	p := NewPanel()
	p.SetSortOrder("garbage")
	if got := p.SortOrder(); got != SortLastMessage {
		t.Fatalf("SortOrder = %q, want %q", got, SortLastMessage)
	}
}
