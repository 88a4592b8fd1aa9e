package plugin

import (
	"errors"
	"testing"
)

func TestKindNames(t *testing.T) {
	tests := []struct {
		kind   Kind
		name   string
		group  string
		symbol string
	}{
		{KindWindow, "Window", "windows", "createWindow"},
		{KindWidget, "Widget", "widgets", "createWidget"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.name {
			t.Errorf("String() = %q, want %q", got, tt.name)
		}
		if got := tt.kind.Group(); got != tt.group {
			t.Errorf("Group() = %q, want %q", got, tt.group)
		}
		if got := tt.kind.FactorySymbol(); got != tt.symbol {
			t.Errorf("FactorySymbol() = %q, want %q", got, tt.symbol)
		}
		if !tt.kind.Valid() {
			t.Errorf("%v.Valid() = false", tt.kind)
		}
	}

	if Kind(0).Valid() {
		t.Error("zero Kind should not be valid")
	}
}

func TestParseKind(t *testing.T) {
	for _, s := range []string{"Window", "windows"} {
		k, err := ParseKind(s)
		if err != nil || k != KindWindow {
			t.Errorf("ParseKind(%q) = %v, %v", s, k, err)
		}
	}

	_, err := ParseKind("worker")
	if !errors.Is(err, ErrUnknownKind) {
		t.Errorf("ParseKind(worker) error = %v, want ErrUnknownKind", err)
	}
}

func TestKindSetSorted(t *testing.T) {
	set := KindSet{KindWidget: true, KindWindow: true}
	got := set.Sorted()
	if len(got) != 2 || got[0] != KindWindow || got[1] != KindWidget {
		t.Errorf("Sorted() = %v", got)
	}
	if (KindSet{KindWidget: false}).Has(KindWidget) {
		t.Error("false entry should not count")
	}
}
