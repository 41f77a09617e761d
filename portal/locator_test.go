package portal

import (
	"context"
	"errors"
	"testing"
)

func TestLocatorXPath(t *testing.T) {
	tests := []struct {
		name string
		loc  Locator
		want string
	}{
		{"id", ByID("loginButton"), "//*[@id='loginButton']"},
		{"id prefix", ByIDPrefix("select", "yearCalendar"), "//select[starts-with(@id, 'yearCalendar')]"},
		{
			"label proximity",
			ByLabelProximity("span", "US States"),
			"//span[starts-with(text(), 'US States')]/preceding-sibling::span",
		},
		{
			"attributes",
			ByAttribute("input", Attr("type", "checkbox"), AttrPrefix("title", "Select ")),
			"//input[@type='checkbox' and starts-with(@title, 'Select ')]",
		},
		{"link text", ByLinkText("CSV"), "//a[normalize-space(.)='CSV']"},
		{
			"scoped",
			ByIDPrefix("select", "monthCalendar").Within(ByID("endDateCalendar_t")),
			"//*[@id='endDateCalendar_t']//select[starts-with(@id, 'monthCalendar')]",
		},
		{
			"template relative within nth",
			ByXPathTemplate("text", ".//*[text()=%s]", "Downloads").Within(ByXPathTemplate("node", "//div[@class='n']").Nth(1)),
			"(//div[@class='n'])[1]//*[text()='Downloads']",
		},
		{
			"template quotes argument",
			ByXPathTemplate("opt", "//li[text()=%s]", "Cote d'Ivoire"),
			`//li[text()="Cote d'Ivoire"]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.loc.XPath(); got != tt.want {
				t.Fatalf("XPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLocatorString(t *testing.T) {
	tests := []struct {
		loc  Locator
		want string
	}{
		{ByID("loginButton"), "id=loginButton"},
		{yearSelect("start"), "id=startDateCalendar_t >> select[id^=yearCalendar]"},
		{dayLink("end", 9), "id=endDateCalendar_t >> link=9"},
		{shapeOption("Iowa"), "xpath:shape-option(Iowa)"},
		{deletePlot, "xpath:result-node@1 >> attr:i[title=Delete plot]"},
	}
	for _, tt := range tests {
		if got := tt.loc.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestXPathLiteral(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "'plain'"},
		{"it's", `"it's"`},
		{`a'b"c`, `concat('a', "'", 'b"c')`},
	}
	for _, tt := range tests {
		if got := XPathLiteral(tt.in); got != tt.want {
			t.Errorf("XPathLiteral(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestDatePickerRequiresMonthBeforeDay(t *testing.T) {
	p := &datePicker{prefix: "start", stage: pickerOpen}
	err := p.setDay(context.Background(), 15)
	if !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("setDay before month: got %v, want ErrOutOfOrder", err)
	}
	p.stage = pickerClosed
	if err := p.setYear(context.Background(), 2020); !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("setYear on closed picker: got %v, want ErrOutOfOrder", err)
	}
}
