package xml

import (
	"time"

	"github.com/beevik/etree"
)

// TimeFormat is the UTC form used in CalDAV time-range attributes.
const TimeFormat = "20060102T150405Z"

// PropValue is a property with a text value, used by MKCALENDAR and
// PROPPATCH bodies.
type PropValue struct {
	Name  Name
	Value string
}

func newDocument(root Name) (*etree.Document, *etree.Element) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	elem := doc.CreateElement(root.qualified())
	AddNamespaces(doc)
	return doc, elem
}

// NewPropfind builds a PROPFIND body requesting props.
func NewPropfind(props ...Name) *etree.Document {
	doc, root := newDocument(Name{DAV, "propfind"})
	prop := root.CreateElement("d:" + TagProp)
	for _, p := range props {
		prop.CreateElement(p.qualified())
	}
	return doc
}

// NewCalendarQuery builds a calendar-query REPORT for VEVENTs returning
// getetag and calendar-data. A nil bound is left off the time-range; when
// both are nil no time-range is emitted.
func NewCalendarQuery(start, end *time.Time) *etree.Document {
	doc, root := newDocument(Name{CalDAV, "calendar-query"})

	prop := root.CreateElement("d:" + TagProp)
	prop.CreateElement(PropGetETag.qualified())
	prop.CreateElement(PropCalendarData.qualified())

	filter := root.CreateElement("c:filter")
	vcal := filter.CreateElement("c:comp-filter")
	vcal.CreateAttr("name", "VCALENDAR")
	vevent := vcal.CreateElement("c:comp-filter")
	vevent.CreateAttr("name", "VEVENT")

	if start != nil || end != nil {
		tr := vevent.CreateElement("c:time-range")
		if start != nil {
			tr.CreateAttr("start", start.UTC().Format(TimeFormat))
		}
		if end != nil {
			tr.CreateAttr("end", end.UTC().Format(TimeFormat))
		}
	}
	return doc
}

// NewMkcalendar builds an MKCALENDAR body setting props and restricting
// the collection to VEVENT components.
func NewMkcalendar(props ...PropValue) *etree.Document {
	doc, root := newDocument(Name{CalDAV, "mkcalendar"})
	prop := root.CreateElement("d:set").CreateElement("d:" + TagProp)
	for _, p := range props {
		prop.CreateElement(p.Name.qualified()).SetText(p.Value)
	}
	comp := prop.CreateElement(PropSupportedComponentSet.qualified()).CreateElement("c:comp")
	comp.CreateAttr("name", "VEVENT")
	return doc
}

// NewPropertyUpdate builds a PROPPATCH body setting props.
func NewPropertyUpdate(props ...PropValue) *etree.Document {
	doc, root := newDocument(Name{DAV, "propertyupdate"})
	prop := root.CreateElement("d:set").CreateElement("d:" + TagProp)
	for _, p := range props {
		prop.CreateElement(p.Name.qualified()).SetText(p.Value)
	}
	return doc
}
