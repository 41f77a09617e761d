package portal

import "time"

// Timeouts bounds every wait of the workflow.
type Timeouts struct {
	// Alert bounds waits for native dialogs after login, plot and delete.
	Alert time.Duration
	// Overlay is the progress overlay before login and between steps.
	Overlay time.Duration
	// LoginForm covers the login trigger and form fields.
	LoginForm time.Duration
	// LoginSubmit is the overlay after credentials are submitted.
	LoginSubmit time.Duration
	// Logout covers the reappearance of the login form after logout.
	Logout time.Duration
	// Widget covers pickers, popups and single controls.
	Widget time.Duration
	// Calendar is the date picker container.
	Calendar time.Duration
	// SearchResults is the variable results table.
	SearchResults time.Duration
	// PlotButton is the plot trigger.
	PlotButton time.Duration
	// Computation is the progress overlay after the plot is triggered.
	Computation time.Duration
	// ProgressBar is the plot computation progress bar.
	ProgressBar time.Duration
	// Results covers the results tree and its download links.
	Results time.Duration
}

// DefaultTimeouts returns the portal's observed worst cases.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Alert:         5 * time.Second,
		Overlay:       30 * time.Second,
		LoginForm:     30 * time.Second,
		LoginSubmit:   50 * time.Second,
		Logout:        20 * time.Second,
		Widget:        20 * time.Second,
		Calendar:      30 * time.Second,
		SearchResults: 50 * time.Second,
		PlotButton:    50 * time.Second,
		Computation:   50 * time.Second,
		ProgressBar:   300 * time.Second,
		Results:       30 * time.Second,
	}
}

// WithDefaults fills zero fields from DefaultTimeouts.
func (t Timeouts) WithDefaults() Timeouts {
	d := DefaultTimeouts()
	fill := func(v *time.Duration, def time.Duration) {
		if *v <= 0 {
			*v = def
		}
	}
	fill(&t.Alert, d.Alert)
	fill(&t.Overlay, d.Overlay)
	fill(&t.LoginForm, d.LoginForm)
	fill(&t.LoginSubmit, d.LoginSubmit)
	fill(&t.Logout, d.Logout)
	fill(&t.Widget, d.Widget)
	fill(&t.Calendar, d.Calendar)
	fill(&t.SearchResults, d.SearchResults)
	fill(&t.PlotButton, d.PlotButton)
	fill(&t.Computation, d.Computation)
	fill(&t.ProgressBar, d.ProgressBar)
	fill(&t.Results, d.Results)
	return t
}
