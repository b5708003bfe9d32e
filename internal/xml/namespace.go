package xml

import "github.com/beevik/etree"

// Namespace definitions for CalDAV and WebDAV
const (
	// DAV is the WebDAV namespace
	DAV = "DAV:"
	// CalDAV is the CalDAV namespace
	CalDAV = "urn:ietf:params:xml:ns:caldav"
	// CalendarServer is the Calendar Server namespace (getctag)
	CalendarServer = "http://calendarserver.org/ns/"
	// AppleICal carries calendar-color and calendar-order
	AppleICal = "http://apple.com/ns/ical/"
)

// prefixes maps each namespace to the prefix used in request bodies.
var prefixes = map[string]string{
	DAV:            "d",
	CalDAV:         "c",
	CalendarServer: "cs",
	AppleICal:      "ic",
}

// Name is a namespace-qualified element name.
type Name struct {
	Space string
	Local string
}

// Properties requested or set by the client.
var (
	PropResourceType          = Name{DAV, "resourcetype"}
	PropDisplayName           = Name{DAV, "displayname"}
	PropGetETag               = Name{DAV, "getetag"}
	PropCurrentUserPrincipal  = Name{DAV, "current-user-principal"}
	PropCalendarHomeSet       = Name{CalDAV, "calendar-home-set"}
	PropCalendarDescription   = Name{CalDAV, "calendar-description"}
	PropCalendarData          = Name{CalDAV, "calendar-data"}
	PropSupportedComponentSet = Name{CalDAV, "supported-calendar-component-set"}
	PropCalendarColor         = Name{AppleICal, "calendar-color"}
	PropGetCTag               = Name{CalendarServer, "getctag"}
)

// qualified returns the prefixed tag for n, e.g. "d:displayname".
func (n Name) qualified() string {
	if p, ok := prefixes[n.Space]; ok {
		return p + ":" + n.Local
	}
	return n.Local
}

// AddNamespaces declares every known namespace on the document root.
func AddNamespaces(doc *etree.Document) {
	root := doc.Root()
	if root == nil {
		return
	}
	for _, ns := range []string{DAV, CalDAV, CalendarServer, AppleICal} {
		root.CreateAttr("xmlns:"+prefixes[ns], ns)
	}
}
