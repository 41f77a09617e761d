package portal

import (
	"fmt"
	"strconv"
	"strings"
)

// LocatorKind tags the variant held by a Locator.
type LocatorKind int

const (
	// KindID matches an element id, exactly or by prefix.
	KindID LocatorKind = iota
	// KindLabelProximity matches the sibling preceding a label element.
	KindLabelProximity
	// KindAttribute matches a tag by one or more attribute predicates.
	KindAttribute
	// KindLinkText matches an anchor by its visible text.
	KindLinkText
	// KindXPathTemplate is a raw XPath expression with quoted arguments.
	KindXPathTemplate
)

func (k LocatorKind) String() string {
	switch k {
	case KindID:
		return "id"
	case KindLabelProximity:
		return "label"
	case KindAttribute:
		return "attr"
	case KindLinkText:
		return "link"
	case KindXPathTemplate:
		return "xpath"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// AttrMatch is one attribute predicate of a KindAttribute locator.
type AttrMatch struct {
	Name   string
	Value  string
	Prefix bool
}

// Attr matches an attribute value exactly.
func Attr(name, value string) AttrMatch { return AttrMatch{Name: name, Value: value} }

// AttrPrefix matches attributes whose value starts with prefix.
func AttrPrefix(name, prefix string) AttrMatch {
	return AttrMatch{Name: name, Value: prefix, Prefix: true}
}

// Locator is a logical reference to an element of the portal page.
// Workflow code only ever builds locators; drivers decide how to query them.
type Locator struct {
	Kind LocatorKind
	// Tag restricts the element name. Empty means any element.
	Tag string
	// Value is the id, id prefix, label text or link text.
	Value string
	// Prefix turns KindID and KindLabelProximity into prefix matches.
	Prefix bool
	// Attrs holds the predicates of a KindAttribute locator.
	Attrs []AttrMatch
	// Name labels a KindXPathTemplate locator in logs.
	Name string
	// Template is the KindXPathTemplate expression. Each %s is replaced by
	// the matching entry of Args rendered as an XPath string literal.
	Template string
	Args     []string
	// Index selects the n-th match (1-based). Zero means all matches.
	Index int
	// Scope restricts matching to descendants of another locator.
	Scope *Locator
}

// ByID matches the element with the given id.
func ByID(id string) Locator {
	return Locator{Kind: KindID, Value: id}
}

// ByIDPrefix matches tag elements whose id starts with prefix. Used for
// widgets whose ids carry a generated numeric suffix.
func ByIDPrefix(tag, prefix string) Locator {
	return Locator{Kind: KindID, Tag: tag, Value: prefix, Prefix: true}
}

// ByLabelProximity matches the tag element immediately preceding a sibling
// tag element whose text starts with label.
func ByLabelProximity(tag, label string) Locator {
	return Locator{Kind: KindLabelProximity, Tag: tag, Value: label, Prefix: true}
}

// ByAttribute matches tag elements satisfying every predicate.
func ByAttribute(tag string, attrs ...AttrMatch) Locator {
	return Locator{Kind: KindAttribute, Tag: tag, Attrs: attrs}
}

// ByLinkText matches anchors whose normalized text equals text.
func ByLinkText(text string) Locator {
	return Locator{Kind: KindLinkText, Tag: "a", Value: text}
}

// ByXPathTemplate wraps a raw expression. Arguments are quoted before
// substitution so callers never splice untrusted text into XPath.
func ByXPathTemplate(name, template string, args ...string) Locator {
	return Locator{Kind: KindXPathTemplate, Name: name, Template: template, Args: args}
}

// Within scopes l to descendants of scope.
func (l Locator) Within(scope Locator) Locator {
	l.Scope = &scope
	return l
}

// Nth selects the n-th match, counting from 1.
func (l Locator) Nth(n int) Locator {
	l.Index = n
	return l
}

// String renders a stable, human-readable key for logs and test doubles.
func (l Locator) String() string {
	var b strings.Builder
	if l.Scope != nil {
		b.WriteString(l.Scope.String())
		b.WriteString(" >> ")
	}
	switch l.Kind {
	case KindID:
		op := "="
		if l.Prefix {
			op = "^="
		}
		if l.Tag != "" {
			fmt.Fprintf(&b, "%s[id%s%s]", l.Tag, op, l.Value)
		} else {
			b.WriteString("id" + op + l.Value)
		}
	case KindLabelProximity:
		fmt.Fprintf(&b, "label:%s^=%s", l.Tag, l.Value)
	case KindAttribute:
		b.WriteString("attr:")
		b.WriteString(l.Tag)
		for _, a := range l.Attrs {
			op := "="
			if a.Prefix {
				op = "^="
			}
			fmt.Fprintf(&b, "[%s%s%s]", a.Name, op, a.Value)
		}
	case KindLinkText:
		b.WriteString("link=")
		b.WriteString(l.Value)
	case KindXPathTemplate:
		b.WriteString("xpath:")
		b.WriteString(l.Name)
		if len(l.Args) > 0 {
			fmt.Fprintf(&b, "(%s)", strings.Join(l.Args, ","))
		}
	default:
		b.WriteString(l.Kind.String())
	}
	if l.Index > 0 {
		fmt.Fprintf(&b, "@%d", l.Index)
	}
	return b.String()
}

// XPath compiles the locator to an XPath 1.0 expression.
func (l Locator) XPath() string {
	expr := l.ownXPath()
	if l.Scope != nil {
		expr = l.Scope.XPath() + expr
	}
	if l.Index > 0 {
		expr = "(" + expr + ")[" + strconv.Itoa(l.Index) + "]"
	}
	return expr
}

func (l Locator) ownXPath() string {
	tag := l.Tag
	if tag == "" {
		tag = "*"
	}
	switch l.Kind {
	case KindID:
		if l.Prefix {
			return fmt.Sprintf("//%s[starts-with(@id, %s)]", tag, XPathLiteral(l.Value))
		}
		return fmt.Sprintf("//%s[@id=%s]", tag, XPathLiteral(l.Value))
	case KindLabelProximity:
		return fmt.Sprintf("//%s[starts-with(text(), %s)]/preceding-sibling::%s", tag, XPathLiteral(l.Value), tag)
	case KindAttribute:
		preds := make([]string, 0, len(l.Attrs))
		for _, a := range l.Attrs {
			if a.Prefix {
				preds = append(preds, fmt.Sprintf("starts-with(@%s, %s)", a.Name, XPathLiteral(a.Value)))
			} else {
				preds = append(preds, fmt.Sprintf("@%s=%s", a.Name, XPathLiteral(a.Value)))
			}
		}
		if len(preds) == 0 {
			return "//" + tag
		}
		return fmt.Sprintf("//%s[%s]", tag, strings.Join(preds, " and "))
	case KindLinkText:
		return fmt.Sprintf("//a[normalize-space(.)=%s]", XPathLiteral(strings.TrimSpace(l.Value)))
	case KindXPathTemplate:
		quoted := make([]any, len(l.Args))
		for i, a := range l.Args {
			quoted[i] = XPathLiteral(a)
		}
		expr := fmt.Sprintf(l.Template, quoted...)
		return strings.TrimPrefix(expr, ".")
	default:
		return "//*[false()]"
	}
}

// XPathLiteral quotes s as an XPath 1.0 string literal. Strings holding both
// quote characters are assembled with concat().
func XPathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	args := make([]string, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 {
			args = append(args, `"'"`)
		}
		if p != "" {
			args = append(args, "'"+p+"'")
		}
	}
	return "concat(" + strings.Join(args, ", ") + ")"
}
