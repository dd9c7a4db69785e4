// Package messaging provides the outbound message delivery abstraction for
// OrderGate and its provider implementations.
package messaging

import (
	"context"
	"fmt"
	"strings"
)

// MaxButtons is the WhatsApp interactive-button limit per message.
const MaxButtons = 3

// Button is one reply button on an interactive message.
type Button struct {
	ID    string
	Title string
}

// ListRow is one selectable row of an interactive list.
type ListRow struct {
	ID          string
	Title       string
	Description string
}

// ListSection groups rows under a title in an interactive list.
type ListSection struct {
	Title string
	Rows  []ListRow
}

// Service defines a pluggable message delivery abstraction. Providers that
// cannot render native interactive messages degrade them to numbered text.
type Service interface {
	// SendText sends a plain text message.
	SendText(ctx context.Context, businessID, phone, text string) error

	// SendInteractiveButtons sends a body with up to MaxButtons reply
	// buttons and an optional footer.
	SendInteractiveButtons(ctx context.Context, businessID, phone, body string, buttons []Button, footer string) error

	// SendInteractiveList sends a body with a list opener button and
	// selectable sections.
	SendInteractiveList(ctx context.Context, businessID, phone, body, buttonLabel string, sections []ListSection) error
}

// renderButtonsAsText degrades an interactive button message to numbered
// text for providers without interactive support.
func renderButtonsAsText(body string, buttons []Button, footer string) string {
	var b strings.Builder
	b.WriteString(body)
	for i, btn := range buttons {
		fmt.Fprintf(&b, "\n%d. %s", i+1, btn.Title)
	}
	if footer != "" {
		b.WriteString("\n\n")
		b.WriteString(footer)
	}
	return b.String()
}

// renderListAsText degrades an interactive list message to numbered text.
func renderListAsText(body string, sections []ListSection) string {
	var b strings.Builder
	b.WriteString(body)
	n := 0
	for _, sec := range sections {
		if sec.Title != "" {
			b.WriteString("\n\n*")
			b.WriteString(sec.Title)
			b.WriteString("*")
		}
		for _, row := range sec.Rows {
			n++
			fmt.Fprintf(&b, "\n%d. %s", n, row.Title)
			if row.Description != "" {
				fmt.Fprintf(&b, " - %s", row.Description)
			}
		}
	}
	return b.String()
}
