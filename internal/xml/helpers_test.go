package xml

import (
	"regexp"
	"strings"

	"github.com/beevik/etree"
)

// normalizeXML removes whitespace differences and the XML declaration for
// test comparisons.
func normalizeXML(s string) string {
	s = regexp.MustCompile(`<\?xml[^>]*\?>`).ReplaceAllString(s, "")
	s = regexp.MustCompile(`>\s+<`).ReplaceAllString(s, "><")
	return strings.TrimSpace(s)
}

// docString serializes doc for test comparisons.
func docString(doc *etree.Document) string {
	s, _ := doc.WriteToString()
	return normalizeXML(s)
}
