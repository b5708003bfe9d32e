package xml

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const calendarHomeResponse = `<?xml version="1.0"?>
<d:multistatus xmlns:d="DAV:" xmlns:s="http://sabredav.org/ns" xmlns:cal="urn:ietf:params:xml:ns:caldav" xmlns:cs="http://calendarserver.org/ns/" xmlns:x1="http://apple.com/ns/ical/">
 <d:response>
  <d:href>/remote.php/dav/calendars/alice/</d:href>
  <d:propstat>
   <d:prop>
    <d:resourcetype><d:collection/></d:resourcetype>
   </d:prop>
   <d:status>HTTP/1.1 200 OK</d:status>
  </d:propstat>
 </d:response>
 <d:response>
  <d:href>/remote.php/dav/calendars/alice/personal/</d:href>
  <d:propstat>
   <d:prop>
    <d:displayname>Personal</d:displayname>
    <d:resourcetype><d:collection/><cal:calendar/></d:resourcetype>
    <x1:calendar-color>#0082c9</x1:calendar-color>
    <cs:getctag>http://sabre.io/ns/sync/7</cs:getctag>
   </d:prop>
   <d:status>HTTP/1.1 200 OK</d:status>
  </d:propstat>
  <d:propstat>
   <d:prop>
    <cal:calendar-description/>
   </d:prop>
   <d:status>HTTP/1.1 404 Not Found</d:status>
  </d:propstat>
 </d:response>
 <d:response>
  <d:href>/remote.php/dav/calendars/alice/gone/</d:href>
  <d:status>HTTP/1.1 404 Not Found</d:status>
 </d:response>
</d:multistatus>`

func TestParseMultistatus(t *testing.T) {
	ms, err := ParseMultistatus([]byte(calendarHomeResponse))
	require.NoError(t, err)
	require.Len(t, ms.Responses, 3)

	home := ms.Responses[0]
	rt, ok := home.Prop(PropResourceType)
	require.True(t, ok)
	assert.False(t, rt.HasChild(Name{CalDAV, "calendar"}))

	personal := ms.Responses[1]
	assert.Equal(t, "/remote.php/dav/calendars/alice/personal/", personal.Href)
	assert.Equal(t, http.StatusOK, personal.StatusCode())

	rt, ok = personal.Prop(PropResourceType)
	require.True(t, ok)
	assert.True(t, rt.HasChild(Name{CalDAV, "calendar"}))

	name, ok := personal.Prop(PropDisplayName)
	require.True(t, ok)
	assert.Equal(t, "Personal", name.TextContent)

	color, ok := personal.Prop(PropCalendarColor)
	require.True(t, ok)
	assert.Equal(t, "#0082c9", color.TextContent)

	_, ok = personal.Prop(PropCalendarDescription)
	assert.False(t, ok, "404 propstat must not be reported as present")
	assert.Equal(t, map[string]int{"calendar-description": 404}, personal.Failed())

	assert.Equal(t, http.StatusNotFound, ms.Responses[2].StatusCode())
}

func TestParseMultistatusErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "empty", data: ""},
		{name: "not xml", data: "<<<"},
		{name: "wrong root", data: `<d:error xmlns:d="DAV:"/>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseMultistatus([]byte(tt.data)); err == nil {
				t.Errorf("ParseMultistatus() error = nil, want error")
			}
		})
	}
}

func TestPropertyHref(t *testing.T) {
	data := `<d:multistatus xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav"><d:response><d:href>/p/</d:href><d:propstat><d:prop>` +
		`<d:current-user-principal><d:href>/principals/users/alice/</d:href></d:current-user-principal>` +
		`<c:calendar-home-set><d:href>/calendars/alice/</d:href></c:calendar-home-set>` +
		`</d:prop><d:status>HTTP/1.1 200 OK</d:status></d:propstat></d:response></d:multistatus>`

	ms, err := ParseMultistatus([]byte(data))
	require.NoError(t, err)

	p, ok := ms.Responses[0].Prop(PropCurrentUserPrincipal)
	require.True(t, ok)
	assert.Equal(t, "/principals/users/alice/", p.Href())

	h, ok := ms.Responses[0].Prop(PropCalendarHomeSet)
	require.True(t, ok)
	assert.Equal(t, "/calendars/alice/", h.Href())
}

func TestMultistatusToXMLRoundTrip(t *testing.T) {
	in := MultistatusResponse{Responses: []Response{{
		Href: "/cal/a.ics",
		PropStats: []PropStat{{
			Props: []Property{
				{Name: "getetag", Namespace: DAV, TextContent: `"abc"`},
				{Name: "calendar-data", Namespace: CalDAV, TextContent: "BEGIN:VCALENDAR"},
			},
			Status: "HTTP/1.1 200 OK",
		}},
	}}}

	data, err := in.ToXML().WriteToBytes()
	require.NoError(t, err)

	out, err := ParseMultistatus(data)
	require.NoError(t, err)
	require.Len(t, out.Responses, 1)

	etag, ok := out.Responses[0].Prop(PropGetETag)
	require.True(t, ok)
	assert.Equal(t, `"abc"`, etag.TextContent)
	cd, ok := out.Responses[0].Prop(PropCalendarData)
	require.True(t, ok)
	assert.Equal(t, "BEGIN:VCALENDAR", cd.TextContent)
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, 200, StatusCode("HTTP/1.1 200 OK"))
	assert.Equal(t, 404, StatusCode("HTTP/1.1 404 Not Found"))
	assert.Equal(t, 0, StatusCode("garbage"))
}
