package xml

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Common XML tag names used in CalDAV
const (
	TagMultistatus = "multistatus"
	TagResponse    = "response"
	TagHref        = "href"
	TagPropstat    = "propstat"
	TagProp        = "prop"
	TagStatus      = "status"
	TagError       = "error"
)

// Property is a single property element from a multistatus body.
// Namespace holds the resolved namespace URI, not the prefix.
type Property struct {
	Name        string
	Namespace   string
	TextContent string
	Children    []Property
}

// FromElement populates a Property from an etree.Element
func (p *Property) FromElement(elem *etree.Element) {
	p.Name = elem.Tag
	p.Namespace = elem.NamespaceURI()
	p.TextContent = strings.TrimSpace(elem.Text())
	p.Children = nil

	for _, child := range elem.ChildElements() {
		childProp := Property{}
		childProp.FromElement(child)
		p.Children = append(p.Children, childProp)
	}
}

// Is reports whether the property has the qualified name n.
func (p Property) Is(n Name) bool {
	return p.Name == n.Local && p.Namespace == n.Space
}

// HasChild reports whether a direct child named n exists.
func (p Property) HasChild(n Name) bool {
	for _, c := range p.Children {
		if c.Is(n) {
			return true
		}
	}
	return false
}

// Href returns the text of the first DAV:href child, as used by
// current-user-principal and calendar-home-set.
func (p Property) Href() string {
	for _, c := range p.Children {
		if c.Is(Name{DAV, TagHref}) {
			return c.TextContent
		}
	}
	return ""
}

// StatusCode extracts the numeric code from a status line such as
// "HTTP/1.1 200 OK". It returns 0 when the line is malformed.
func StatusCode(line string) int {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0
	}
	return code
}
