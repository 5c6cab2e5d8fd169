// Package share hands text to the user's clipboard, the terminal's stand-in
// for a share sheet.
package share

import (
	"strings"

	"github.com/atotto/clipboard"

	"studia/internal/logging"
)

const (
	InviteURL     = "https://example.com"
	InviteMessage = "Come study with me on Studia! " + InviteURL
)

// Payload mirrors a share sheet request; any field may be empty.
type Payload struct {
	URL     string
	Message string
	Title   string
}

// Text joins the non-empty fields, title first.
func (p Payload) Text() string {
	var parts []string
	for _, s := range []string{p.Title, p.Message, p.URL} {
		s = strings.TrimSpace(s)
		if s != "" && !strings.Contains(strings.Join(parts, "\n"), s) {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

func Invite() Payload {
	return Payload{Message: InviteMessage}
}

type Sharer interface {
	Share(p Payload) error
}

type Clipboard struct {
	write func(string) error
	log   *logging.Logger
}

func NewClipboard(log *logging.Logger) *Clipboard {
	if log == nil {
		log = logging.Nop()
	}
	return &Clipboard{write: clipboard.WriteAll, log: log.WithComponent("share")}
}

// Share is fire-and-forget for callers; the error is returned and logged.
func (c *Clipboard) Share(p Payload) error {
	if err := c.write(p.Text()); err != nil {
		c.log.Warnw("share failed", "title", p.Title, "error", err)
		return err
	}
	c.log.Debugw("shared", "title", p.Title)
	return nil
}
