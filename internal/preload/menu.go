package preload

import "fmt"

// Action is a context-menu command.
type Action int

// Context-menu actions.
const (
	ActionReloadConfig Action = iota + 1
	ActionSettings
	ActionHighlightBorder
	ActionDuplicate
	ActionDeleteDuplicate
)

var actionLabels = map[Action]string{
	ActionReloadConfig:    "Reload Config",
	ActionSettings:        "Settings",
	ActionHighlightBorder: "Highlight Border",
	ActionDuplicate:       "Duplicate",
	ActionDeleteDuplicate: "Delete Duplicate",
}

// String returns the menu label.
func (a Action) String() string {
	if label, ok := actionLabels[a]; ok {
		return label
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// ParseAction parses a menu label.
func ParseAction(label string) (Action, error) {
	for a, l := range actionLabels {
		if l == label {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown menu action %q", label)
}

// MenuItem is one context-menu entry.
type MenuItem struct {
	Action Action
}

// Label returns the text shown for the item.
func (m MenuItem) Label() string {
	return m.Action.String()
}

// Labels returns the labels of items in order.
func Labels(items []MenuItem) []string {
	labels := make([]string, len(items))
	for i, item := range items {
		labels[i] = item.Label()
	}
	return labels
}
