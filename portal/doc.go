// Package portal drives the Giovanni visualization portal through a
// browser Driver: it authenticates a Session, walks the plot wizard with
// a Controller and locates the CSV download of the finished plot.
//
// All knowledge of the portal's DOM lives in dom.go. Drivers only see
// Locators, which compile to XPath for real browsers and render as
// stable keys for test doubles.
package portal
