package portal

import (
	"fmt"
	"strconv"
)

// DefaultPortalURL is the portal landing page.
const DefaultPortalURL = "https://giovanni.gsfc.nasa.gov/giovanni/"

const (
	// loginAlertFragment is matched case-insensitively against the
	// post-login dialog.
	loginAlertFragment = "giovanni"
	sortAscendingTitle = "Click to sort ascending"
	deleteConfirmText  = "Are you sure you want to permanently delete this plot?"
)

var (
	progressOverlay = ByID("progressModal")
	progressBar     = ByID("progressBar")

	logoutLink    = ByID("logoutLink")
	loginTrigger  = ByID("loginButton")
	usernameField = ByID("username")
	passwordField = ByID("password")
	staySignedIn  = ByID("stay_in")
	loginSubmit   = ByAttribute("input", Attr("name", "commit"))

	plotTypePicker = ByID("serviceSelect-button")

	extentField     = ByID("sessionDataSelBbPkbbox")
	shapePickerLink = ByID("sessionDataSelBbPkshapeLink")
	popupClose      = ByLinkText("Close")

	variableSearch       = ByID("facetedSearchBarInput")
	variableSearchButton = ByID("facetedSearchButton")
	variableSortHeader   = ByAttribute("a", Attr("href", "yui-dt0-href-varName"))
	variableCheckbox     = ByAttribute("input", Attr("type", "checkbox"), AttrPrefix("title", "Select "))

	plotButton      = ByID("sessionDataSelToolbarplotBTN-button")
	workspaceExpand = ByID("sessionWorkspaceExpand")
	resultNode      = ByXPathTemplate("result-node",
		"//div[contains(@class, 'ygtvitem') and @id='ygtv1']/div[contains(@class, 'ygtvchildren')]/div[contains(@class, 'ygtvitem')]",
	).Nth(1)
	downloadsToggle = ByXPathTemplate("text", ".//*[text()=%s]", "Downloads").Within(resultNode)
	csvLink         = ByLinkText("CSV")
	deletePlot      = ByAttribute("i", Attr("title", "Delete plot")).Within(resultNode)
)

func portalHomeLink(url string) Locator {
	return ByAttribute("a", Attr("href", url))
}

func plotTypeOption(p PlotType) Locator {
	return ByID(string(p))
}

// Calendar widgets are keyed by "start" or "end".
func calendarTrigger(prefix string) Locator {
	return ByXPathTemplate("calendar-trigger",
		"//*[@id=%s]/*[contains(concat(' ', normalize-space(@class), ' '), ' fa ')]",
		prefix+"DateCalendarLink")
}

func calendarContainer(prefix string) Locator {
	return ByID(prefix + "DateCalendar_t")
}

func yearSelect(prefix string) Locator {
	return ByIDPrefix("select", "yearCalendar").Within(calendarContainer(prefix))
}

func monthSelect(prefix string) Locator {
	return ByIDPrefix("select", "monthCalendar").Within(calendarContainer(prefix))
}

func dayCell(prefix string, day int) Locator {
	return ByID(fmt.Sprintf("%sDateCalendar_t_cell%d", prefix, day))
}

func dayLink(prefix string, day int) Locator {
	return ByLinkText(strconv.Itoa(day)).Within(calendarContainer(prefix))
}

func shapeGroupToggle(g ShapeGroup) Locator {
	return ByLabelProximity("span", string(g))
}

func shapeOption(name string) Locator {
	return ByXPathTemplate("shape-option",
		"//ul[@style='display: block;']/li[@class='select2-results__option' and text()=%s]", name)
}
