package messaging

import (
	"strings"
	"testing"
)

func TestRenderButtonsAsText(t *testing.T) {
	got := renderButtonsAsText("Ready to place your order?", []Button{
		{ID: "confirm_order", Title: "Confirm"},
		{ID: "edit_order", Title: "Edit"},
	}, "Type \"discount\" to apply a code.")

	want := "Ready to place your order?\n1. Confirm\n2. Edit\n\nType \"discount\" to apply a code."
	if got != want {
		t.Errorf("renderButtonsAsText = %q, want %q", got, want)
	}
}

func TestRenderButtonsAsTextNoFooter(t *testing.T) {
	got := renderButtonsAsText("Pickup or delivery?", []Button{{ID: "method_pickup", Title: "Pickup"}}, "")
	if strings.HasSuffix(got, "\n\n") {
		t.Errorf("no footer should leave no trailing blank lines: %q", got)
	}
	if got != "Pickup or delivery?\n1. Pickup" {
		t.Errorf("renderButtonsAsText = %q", got)
	}
}

func TestRenderListAsText(t *testing.T) {
	got := renderListAsText("What would you like to order?", []ListSection{
		{Title: "Mains", Rows: []ListRow{
			{ID: "item_rice", Title: "Jollof Rice", Description: "500.00"},
			{ID: "item_beans", Title: "Beans"},
		}},
		{Title: "Drinks", Rows: []ListRow{
			{ID: "item_water", Title: "Water", Description: "100.00"},
		}},
	})

	for _, want := range []string{
		"*Mains*",
		"*Drinks*",
		"1. Jollof Rice - 500.00",
		"2. Beans",
		"3. Water - 100.00",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("renderListAsText missing %q in %q", want, got)
		}
	}
}
