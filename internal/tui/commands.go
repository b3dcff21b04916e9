package tui

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ahitposter/Brovado/internal/models"
)

const maxAttachmentBytes = 5 << 20

func (m *model) handleCommand(line string) tea.Cmd {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}

	switch parts[0] {
	case "/help":
		return m.showBanner("/attach <file>, /unattach <n>, /reply <n>, /cancel, /filter <text>, /quit")

	case "/attach":
		if len(parts) < 2 {
			return m.showBanner("usage: /attach <file>")
		}
		att, err := loadAttachment(strings.Join(parts[1:], " "))
		if err != nil {
			return m.showBanner(err.Error())
		}
		m.feed.StageAttachment(att)
		return m.showBanner("staged " + att.Name)

	case "/unattach":
		if len(parts) < 2 {
			return m.showBanner("usage: /unattach <n>")
		}
		n, err := strconv.Atoi(parts[1])
		if err != nil || n < 1 {
			return m.showBanner("usage: /unattach <n>")
		}
		m.feed.RemoveAttachment(n - 1)
		return nil

	case "/reply":
		if len(parts) < 2 {
			return m.showBanner("usage: /reply <n>  (1 = latest message)")
		}
		n, err := strconv.Atoi(parts[1])
		if err != nil || n < 1 {
			return m.showBanner("usage: /reply <n>  (1 = latest message)")
		}
		msgs := m.feed.Messages()
		if n > len(msgs) {
			return m.showBanner("no such message")
		}
		target := msgs[len(msgs)-n]
		m.feed.SetReply(&models.ReplyPreview{
			MessageID: target.MessageID,
			Name:      target.Name,
			Text:      target.Text,
		})
		return nil

	case "/cancel":
		m.feed.ClearReply()
		return nil

	case "/filter":
		filter := ""
		if len(parts) > 1 {
			filter = strings.Join(parts[1:], " ")
		}
		m.panel.SetFilter(filter)
		m.selected = 0
		return nil

	case "/quit":
		return tea.Quit

	default:
		return m.showBanner("unknown command " + parts[0])
	}
}

// loadAttachment reads an image file into the data-URL form staged drafts
// carry until upload.
func loadAttachment(path string) (models.Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("attach failed: %w", err)
	}
	if info.Size() > maxAttachmentBytes {
		return models.Attachment{}, fmt.Errorf("attach failed: %s is larger than 5MB", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("attach failed: %w", err)
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return models.Attachment{}, fmt.Errorf("attach failed: %s is not an image", filepath.Base(path))
	}

	return models.Attachment{
		Name: filepath.Base(path),
		Data: "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data),
	}, nil
}
