package chrome

import (
	"strings"
	"testing"
)

func TestOnElementQuotesXPath(t *testing.T) {
	expr := onElement(`//a[text()="say \"hi\""]`, "return true;")
	if !strings.Contains(expr, `"//a[text()=\"say \\\"hi\\\"\"]"`) {
		t.Fatalf("xpath not JSON-quoted:\n%s", expr)
	}
	if !strings.Contains(expr, "if (!el) return null;") {
		t.Fatalf("missing absence guard:\n%s", expr)
	}
}

func TestAutoScrollsOverlays(t *testing.T) {
	d := &Driver{opts: Options{ManualOverlayScroll: true}}
	if d.AutoScrollsOverlays() {
		t.Fatal("manual scroll driver reports auto scroll")
	}
	if !(&Driver{}).AutoScrollsOverlays() {
		t.Fatal("default driver should auto scroll")
	}
}

func TestAlertState(t *testing.T) {
	d := &Driver{}
	if _, open, _ := d.Alert(t.Context()); open {
		t.Fatal("alert open on fresh driver")
	}
	msg := "Are you sure?"
	d.dialog = &msg
	text, open, err := d.Alert(t.Context())
	if err != nil || !open || text != msg {
		t.Fatalf("Alert() = %q, %v, %v", text, open, err)
	}
}
