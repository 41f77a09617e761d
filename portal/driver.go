package portal

import "context"

// Handle is an opaque reference to a located element. Handles are only
// meaningful to the Driver that returned them.
type Handle string

// Driver is the browser boundary. Workflow code drives the portal only
// through this interface so it can run against a real browser or a
// scripted double.
//
// Lookups never fail on absence: FindAll returns an empty slice when the
// locator matches nothing and Displayed reports false for stale handles.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	FindAll(ctx context.Context, loc Locator) ([]Handle, error)

	Displayed(ctx context.Context, h Handle) (bool, error)
	Enabled(ctx context.Context, h Handle) (bool, error)
	Selected(ctx context.Context, h Handle) (bool, error)
	// Attribute reads the live property first and falls back to the
	// markup attribute. ok is false when neither exists.
	Attribute(ctx context.Context, h Handle, name string) (value string, ok bool, err error)

	Click(ctx context.Context, h Handle) error
	// HoverClick moves the pointer onto the element before clicking, for
	// widgets that only react to real pointer events.
	HoverClick(ctx context.Context, h Handle) error
	Clear(ctx context.Context, h Handle) error
	SendKeys(ctx context.Context, h Handle, text string) error

	// SelectByText and SelectByValue pick an option of a select element.
	// They report false when no option matches.
	SelectByText(ctx context.Context, h Handle, text string) (bool, error)
	SelectByValue(ctx context.Context, h Handle, value string) (bool, error)

	ScrollIntoView(ctx context.Context, h Handle) error
	// AutoScrollsOverlays reports whether the browser scrolls overlay list
	// items into view on its own before pointer actions.
	AutoScrollsOverlays() bool

	// Alert reports the text of an open native dialog.
	Alert(ctx context.Context) (text string, open bool, err error)
	AcceptAlert(ctx context.Context) error
	DismissAlert(ctx context.Context) error

	// OpenPopup clicks trigger and returns a Driver bound to the window it
	// opens. Closing the returned driver switches back to the opener.
	OpenPopup(ctx context.Context, trigger Handle) (Driver, error)

	Close() error
}
