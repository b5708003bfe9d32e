package xml

import (
	"fmt"
	"net/http"

	"github.com/beevik/etree"
)

// MultistatusResponse represents a multistatus response
type MultistatusResponse struct {
	Responses []Response
}

// Response represents a single response within a multistatus
type Response struct {
	Href      string
	PropStats []PropStat
	Status    string
}

// PropStat represents property status in a response
type PropStat struct {
	Props  []Property
	Status string
}

// OK reports whether the propstat carries a 2xx status.
func (ps PropStat) OK() bool {
	code := StatusCode(ps.Status)
	return code >= 200 && code < 300
}

// OKProps returns the properties of every successful propstat.
func (r Response) OKProps() []Property {
	var props []Property
	for _, ps := range r.PropStats {
		if ps.OK() {
			props = append(props, ps.Props...)
		}
	}
	return props
}

// Prop finds a successfully returned property by qualified name.
func (r Response) Prop(n Name) (Property, bool) {
	for _, p := range r.OKProps() {
		if p.Is(n) {
			return p, true
		}
	}
	return Property{}, false
}

// Failed returns the properties whose propstat status is not 2xx, keyed
// by local name, mapped to the status code.
func (r Response) Failed() map[string]int {
	failed := make(map[string]int)
	for _, ps := range r.PropStats {
		if ps.OK() {
			continue
		}
		for _, p := range ps.Props {
			failed[p.Name] = StatusCode(ps.Status)
		}
	}
	return failed
}

// StatusCode returns the response-level status, defaulting to 200 when
// only propstats are present.
func (r Response) StatusCode() int {
	if r.Status == "" {
		return http.StatusOK
	}
	return StatusCode(r.Status)
}

// ParseMultistatus reads a multistatus body.
func ParseMultistatus(data []byte) (*MultistatusResponse, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to parse XML response: %w", err)
	}
	var m MultistatusResponse
	if err := m.Parse(doc); err != nil {
		return nil, err
	}
	return &m, nil
}

// Parse parses a multistatus response from an XML document
func (m *MultistatusResponse) Parse(doc *etree.Document) error {
	if doc == nil || doc.Root() == nil {
		return fmt.Errorf("empty document")
	}

	root := doc.Root()
	if root.Tag != TagMultistatus {
		return fmt.Errorf("invalid root tag: %s", root.Tag)
	}

	m.Responses = nil

	for _, respElem := range root.SelectElements(TagResponse) {
		resp := Response{}

		if hrefElem := respElem.SelectElement(TagHref); hrefElem != nil {
			resp.Href = hrefElem.Text()
		}
		if statusElem := respElem.SelectElement(TagStatus); statusElem != nil {
			resp.Status = statusElem.Text()
		}

		for _, propstatElem := range respElem.SelectElements(TagPropstat) {
			propstat := PropStat{}

			if propElem := propstatElem.SelectElement(TagProp); propElem != nil {
				for _, prop := range propElem.ChildElements() {
					property := Property{}
					property.FromElement(prop)
					propstat.Props = append(propstat.Props, property)
				}
			}

			if statusElem := propstatElem.SelectElement(TagStatus); statusElem != nil {
				propstat.Status = statusElem.Text()
			}

			resp.PropStats = append(resp.PropStats, propstat)
		}

		m.Responses = append(m.Responses, resp)
	}

	return nil
}

// ToXML converts a MultistatusResponse to an XML document. Property
// namespaces must be one of the known ones.
func (m *MultistatusResponse) ToXML() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	root := doc.CreateElement("d:" + TagMultistatus)
	AddNamespaces(doc)

	for _, resp := range m.Responses {
		response := root.CreateElement("d:" + TagResponse)
		response.CreateElement("d:" + TagHref).SetText(resp.Href)

		if resp.Status != "" {
			response.CreateElement("d:" + TagStatus).SetText(resp.Status)
			continue
		}
		for _, propstat := range resp.PropStats {
			ps := response.CreateElement("d:" + TagPropstat)
			prop := ps.CreateElement("d:" + TagProp)
			for _, p := range propstat.Props {
				prop.AddChild(p.toElement())
			}
			ps.CreateElement("d:" + TagStatus).SetText(propstat.Status)
		}
	}

	return doc
}

func (p Property) toElement() *etree.Element {
	elem := etree.NewElement(Name{p.Namespace, p.Name}.qualified())
	if p.TextContent != "" {
		elem.SetText(p.TextContent)
	}
	for _, child := range p.Children {
		elem.AddChild(child.toElement())
	}
	return elem
}
