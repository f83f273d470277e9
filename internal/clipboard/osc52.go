// Package clipboard copies text to the user's clipboard through the terminal.
package clipboard

import (
	"encoding/base64"
	"fmt"
	"io"
	"sync"
)

// maxPayload is the largest text most terminals accept in one OSC 52 sequence.
const maxPayload = 74994

// OSC52 writes the OSC 52 "set clipboard" escape sequence to a terminal.
// It works over SSH and inside tmux when set-clipboard is enabled.
type OSC52 struct {
	mu  sync.Mutex
	out io.Writer
}

// NewOSC52 returns a clipboard that writes escape sequences to out.
func NewOSC52(out io.Writer) *OSC52 {
	return &OSC52{out: out}
}

// WriteText copies text. Text longer than the terminal limit is truncated.
func (c *OSC52) WriteText(text string) error {
	if len(text) > maxPayload {
		text = text[:maxPayload]
	}
	seq := "\x1b]52;c;" + base64.StdEncoding.EncodeToString([]byte(text)) + "\x07"
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := io.WriteString(c.out, seq); err != nil {
		return fmt.Errorf("clipboard: write: %w", err)
	}
	return nil
}
