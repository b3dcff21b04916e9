// Package holdings keeps the client-side room list: a snapshot fetched from
// the portfolio endpoint, mutated in place by incoming message events, with
// sort, filter and favorite ordering applied on read.
package holdings

import (
	"math/big"
	"sort"
	"strings"

	"github.com/ahitposter/Brovado/internal/models"
)

// Sort orders for the room list. The value is what gets persisted as the
// preference, so these must stay stable.
const (
	SortLastMessage = "lastMessage"
	SortName        = "name"
	SortValue       = "value"
)

// Panel owns the in-memory room list for the active identity. It is not
// safe for concurrent use; the event loop is the only caller.
type Panel struct {
	items     []models.Holding
	sortOrder string
	filter    string
	favorites map[string]bool
}

func NewPanel() *Panel {
	return &Panel{
		sortOrder: SortLastMessage,
		favorites: make(map[string]bool),
	}
}

// Reset replaces the snapshot, usually after a fresh portfolio fetch.
// Local read marks are reapplied by the caller via SetReadMark.
func (p *Panel) Reset(items []models.Holding) {
	p.items = make([]models.Holding, len(items))
	copy(p.items, items)
}

func (p *Panel) SetSortOrder(order string) {
	switch order {
	case SortLastMessage, SortName, SortValue:
		p.sortOrder = order
	default:
		p.sortOrder = SortLastMessage
	}
}

func (p *Panel) SortOrder() string { return p.sortOrder }

func (p *Panel) SetFilter(filter string) { p.filter = filter }

// SetFavorites replaces the favorite set, typically from the session store.
func (p *Panel) SetFavorites(favorites map[string]bool) {
	p.favorites = make(map[string]bool)
	for room, on := range favorites {
		if on {
			p.favorites[room] = true
		}
	}
}

func (p *Panel) ToggleFavorite(room string) bool {
	if p.favorites[room] {
		delete(p.favorites, room)
		return false
	}
	p.favorites[room] = true
	return true
}

func (p *Panel) Favorite(room string) bool { return p.favorites[room] }

// ApplyMessage folds one pushed message into the matching entry's preview
// fields. Messages for rooms not in the list are dropped; the next snapshot
// refresh will pick the room up.
func (p *Panel) ApplyMessage(msg models.Message) bool {
	for i := range p.items {
		if p.items[i].ChatRoomID != msg.ChatRoomID {
			continue
		}
		p.items[i].LastMessageName = msg.Name
		p.items[i].LastMessageText = msg.Text
		p.items[i].LastMessageTime = msg.Timestamp
		return true
	}
	return false
}

// SetReadMark records the local read acknowledgement for one room. Marks
// only move forward.
func (p *Panel) SetReadMark(room string, ts int64) {
	for i := range p.items {
		if p.items[i].ChatRoomID == room && ts > p.items[i].LastRead {
			p.items[i].LastRead = ts
		}
	}
}

// Find returns the entry for a room, if present.
func (p *Panel) Find(room string) (models.Holding, bool) {
	for _, h := range p.items {
		if h.ChatRoomID == room {
			return h, true
		}
	}
	return models.Holding{}, false
}

// UnreadCount returns how many rooms have messages past their read mark.
func (p *Panel) UnreadCount() int {
	n := 0
	for _, h := range p.items {
		if h.Unread() {
			n++
		}
	}
	return n
}

// Items returns the list as rendered: filtered by name, favorites pinned
// first, then ordered by the active sort.
func (p *Panel) Items() []models.Holding {
	out := make([]models.Holding, 0, len(p.items))
	needle := strings.ToLower(strings.TrimSpace(p.filter))
	for _, h := range p.items {
		if needle != "" && !strings.Contains(strings.ToLower(h.Name), needle) {
			continue
		}
		out = append(out, h)
	}

	sort.SliceStable(out, func(i, j int) bool {
		fi, fj := p.favorites[out[i].ChatRoomID], p.favorites[out[j].ChatRoomID]
		if fi != fj {
			return fi
		}
		switch p.sortOrder {
		case SortName:
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		case SortValue:
			return compareWei(out[i].BalanceEthValue, out[j].BalanceEthValue) > 0
		default:
			return out[i].LastMessageTime > out[j].LastMessageTime
		}
	})
	return out
}

// compareWei compares two decimal wei strings numerically. Malformed values
// sort as zero.
func compareWei(a, b string) int {
	return weiValue(a).Cmp(weiValue(b))
}

func weiValue(s string) *big.Int {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return big.NewInt(0)
	}
	return v
}
