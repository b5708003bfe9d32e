// Package davtest runs an in-memory CalDAV server for tests. It lays out
// calendars the way Nextcloud does and honours If-Match / If-None-Match on
// object writes.
package davtest

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/beevik/etree"
	"github.com/cyp0633/calplanner/event"
	"github.com/cyp0633/calplanner/internal/xml"
	"github.com/google/uuid"
)

const (
	statusOK       = "HTTP/1.1 200 OK"
	statusNotFound = "HTTP/1.1 404 Not Found"
)

type object struct {
	data []byte
	etag string
}

type calendar struct {
	displayName string
	description string
	color       string
	ctag        int
	objects     map[string]*object
}

// Server is an httptest.Server backed by an in-memory calendar home.
type Server struct {
	*httptest.Server

	Username string

	mu        sync.Mutex
	calendars map[string]*calendar
	failures  map[string]int
	requests  map[string]int
	omitETag  bool
}

// New starts a server for username. Close it when done.
func New(username string) *Server {
	s := &Server{
		Username:  username,
		calendars: make(map[string]*calendar),
		failures:  make(map[string]int),
		requests:  make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	return s
}

// Home is the calendar home collection path.
func (s *Server) Home() string {
	return "/remote.php/dav/calendars/" + s.Username + "/"
}

// Principal is the principal collection path.
func (s *Server) Principal() string {
	return "/remote.php/dav/principals/users/" + s.Username + "/"
}

// AddCalendar creates an empty calendar.
func (s *Server) AddCalendar(name, displayName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calendars[name] = &calendar{displayName: displayName, objects: make(map[string]*object)}
}

// PutRaw stores data as <uid>.ics in a calendar, bypassing preconditions,
// and returns the new etag.
func (s *Server) PutRaw(cal, uid string, data []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calendars[cal]
	if !ok {
		c = &calendar{displayName: cal, objects: make(map[string]*object)}
		s.calendars[cal] = c
	}
	etag := newETag()
	c.objects[uid] = &object{data: append([]byte(nil), data...), etag: etag}
	c.ctag++
	return etag
}

// Object returns the stored data and etag of an object.
func (s *Server) Object(cal, uid string) ([]byte, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calendars[cal]
	if !ok {
		return nil, "", false
	}
	o, ok := c.objects[uid]
	if !ok {
		return nil, "", false
	}
	return o.data, o.etag, true
}

// UIDs lists the objects of a calendar in sorted order.
func (s *Server) UIDs(cal string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var uids []string
	if c, ok := s.calendars[cal]; ok {
		for uid := range c.objects {
			uids = append(uids, uid)
		}
	}
	sort.Strings(uids)
	return uids
}

// Remove deletes an object out of band.
func (s *Server) Remove(cal, uid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.calendars[cal]; ok {
		delete(c.objects, uid)
	}
}

// Touch gives an object a new etag, as a concurrent writer would.
func (s *Server) Touch(cal, uid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.calendars[cal]; ok {
		if o, ok := c.objects[uid]; ok {
			o.etag = newETag()
		}
	}
}

// CalendarProps returns the display name, description and color.
func (s *Server) CalendarProps(cal string) (displayName, description, color string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calendars[cal]
	if !ok {
		return "", "", "", false
	}
	return c.displayName, c.description, c.color, true
}

// FailOn makes every method request to path answer with status.
func (s *Server) FailOn(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = status
}

// OmitWriteETag stops PUT responses from carrying an ETag header, as some
// servers do when they rewrite the stored data.
func (s *Server) OmitWriteETag(omit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.omitETag = omit
}

// Requests returns how many requests with method were served.
func (s *Server) Requests(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[method]
}

func newETag() string {
	return `"` + uuid.NewString() + `"`
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests[r.Method]++
	if status, ok := s.failures[r.Method+" "+r.URL.Path]; ok {
		http.Error(w, http.StatusText(status), status)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusInternalServerError)
		return
	}

	path := r.URL.Path
	switch {
	case path == "/" || path == "/.well-known/caldav" || path == "/remote.php/dav/":
		s.handleRoot(w, r)
	case path == s.Principal():
		s.handlePrincipal(w, r)
	case path == s.Home():
		s.handleHome(w, r)
	case strings.HasPrefix(path, s.Home()):
		rest := strings.TrimPrefix(path, s.Home())
		cal, file, _ := strings.Cut(rest, "/")
		if file == "" {
			s.handleCalendar(w, r, cal, body)
			return
		}
		s.handleObject(w, r, cal, strings.TrimSuffix(file, ".ics"), body)
	default:
		http.NotFound(w, r)
	}
}

func writeMultistatus(w http.ResponseWriter, ms *xml.MultistatusResponse) {
	data, err := ms.ToXML().WriteToBytes()
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusMultiStatus)
	_, _ = w.Write(data)
}

func hrefProp(n xml.Name, href string) xml.Property {
	return xml.Property{Name: n.Local, Namespace: n.Space, Children: []xml.Property{
		{Name: xml.TagHref, Namespace: xml.DAV, TextContent: href},
	}}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != "PROPFIND" {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	writeMultistatus(w, &xml.MultistatusResponse{Responses: []xml.Response{{
		Href: r.URL.Path,
		PropStats: []xml.PropStat{{
			Props:  []xml.Property{hrefProp(xml.PropCurrentUserPrincipal, s.Principal())},
			Status: statusOK,
		}},
	}}})
}

func (s *Server) handlePrincipal(w http.ResponseWriter, r *http.Request) {
	if r.Method != "PROPFIND" {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	writeMultistatus(w, &xml.MultistatusResponse{Responses: []xml.Response{{
		Href: s.Principal(),
		PropStats: []xml.PropStat{{
			Props:  []xml.Property{hrefProp(xml.PropCalendarHomeSet, s.Home())},
			Status: statusOK,
		}},
	}}})
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.Method != "PROPFIND" {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	ms := &xml.MultistatusResponse{}
	ms.Responses = append(ms.Responses, xml.Response{
		Href: s.Home(),
		PropStats: []xml.PropStat{{
			Props: []xml.Property{{Name: "resourcetype", Namespace: xml.DAV, Children: []xml.Property{
				{Name: "collection", Namespace: xml.DAV},
			}}},
			Status: statusOK,
		}},
	})

	if r.Header.Get("Depth") != "0" {
		names := make([]string, 0, len(s.calendars))
		for name := range s.calendars {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			ms.Responses = append(ms.Responses, s.calendarResponse(name))
		}
	}
	writeMultistatus(w, ms)
}

func (s *Server) calendarResponse(name string) xml.Response {
	c := s.calendars[name]
	found := []xml.Property{
		{Name: "resourcetype", Namespace: xml.DAV, Children: []xml.Property{
			{Name: "collection", Namespace: xml.DAV},
			{Name: "calendar", Namespace: xml.CalDAV},
		}},
		{Name: "displayname", Namespace: xml.DAV, TextContent: c.displayName},
		{Name: "getctag", Namespace: xml.CalendarServer, TextContent: fmt.Sprintf("ctag-%d", c.ctag)},
	}
	var missing []xml.Property
	if c.color != "" {
		found = append(found, xml.Property{Name: "calendar-color", Namespace: xml.AppleICal, TextContent: c.color})
	} else {
		missing = append(missing, xml.Property{Name: "calendar-color", Namespace: xml.AppleICal})
	}
	if c.description != "" {
		found = append(found, xml.Property{Name: "calendar-description", Namespace: xml.CalDAV, TextContent: c.description})
	} else {
		missing = append(missing, xml.Property{Name: "calendar-description", Namespace: xml.CalDAV})
	}

	resp := xml.Response{
		Href:      s.Home() + name + "/",
		PropStats: []xml.PropStat{{Props: found, Status: statusOK}},
	}
	if len(missing) > 0 {
		resp.PropStats = append(resp.PropStats, xml.PropStat{Props: missing, Status: statusNotFound})
	}
	return resp
}

func parseBody(body []byte) *etree.Document {
	doc := etree.NewDocument()
	if len(body) == 0 || doc.ReadFromBytes(body) != nil {
		return nil
	}
	return doc
}

func findText(doc *etree.Document, tag string) (string, bool) {
	if doc == nil {
		return "", false
	}
	elem := doc.FindElement("//" + tag)
	if elem == nil {
		return "", false
	}
	return elem.Text(), true
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request, name string, body []byte) {
	c, exists := s.calendars[name]

	switch r.Method {
	case "MKCALENDAR":
		if exists {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		doc := parseBody(body)
		c = &calendar{displayName: name, objects: make(map[string]*object)}
		if v, ok := findText(doc, "displayname"); ok {
			c.displayName = v
		}
		c.description, _ = findText(doc, "calendar-description")
		c.color, _ = findText(doc, "calendar-color")
		s.calendars[name] = c
		w.WriteHeader(http.StatusCreated)
		return
	}

	if !exists {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodDelete:
		delete(s.calendars, name)
		w.WriteHeader(http.StatusNoContent)
	case "PROPFIND":
		writeMultistatus(w, &xml.MultistatusResponse{Responses: []xml.Response{s.calendarResponse(name)}})
	case "PROPPATCH":
		s.handleProppatch(w, r, c, body)
	case "REPORT":
		s.handleReport(w, r, c, body)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleProppatch(w http.ResponseWriter, r *http.Request, c *calendar, body []byte) {
	doc := parseBody(body)
	if doc == nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	prop := doc.FindElement("//set/prop")
	if prop == nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	ps := xml.PropStat{Status: statusOK}
	var forbidden []xml.Property
	for _, elem := range prop.ChildElements() {
		p := xml.Property{Name: elem.Tag, Namespace: elem.NamespaceURI()}
		switch elem.Tag {
		case "displayname":
			c.displayName = elem.Text()
		case "calendar-description":
			c.description = elem.Text()
		case "calendar-color":
			c.color = elem.Text()
		default:
			forbidden = append(forbidden, p)
			continue
		}
		ps.Props = append(ps.Props, p)
	}

	resp := xml.Response{Href: r.URL.Path, PropStats: []xml.PropStat{ps}}
	if len(forbidden) > 0 {
		resp.PropStats = append(resp.PropStats, xml.PropStat{Props: forbidden, Status: "HTTP/1.1 403 Forbidden"})
	}
	writeMultistatus(w, &xml.MultistatusResponse{Responses: []xml.Response{resp}})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request, c *calendar, body []byte) {
	doc := parseBody(body)
	if doc == nil || doc.Root() == nil || doc.Root().Tag != "calendar-query" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	var start, end time.Time
	if tr := doc.FindElement("//time-range"); tr != nil {
		start, _ = time.Parse(xml.TimeFormat, tr.SelectAttrValue("start", ""))
		end, _ = time.Parse(xml.TimeFormat, tr.SelectAttrValue("end", ""))
	}

	uids := make([]string, 0, len(c.objects))
	for uid := range c.objects {
		uids = append(uids, uid)
	}
	sort.Strings(uids)

	ms := &xml.MultistatusResponse{}
	for _, uid := range uids {
		o := c.objects[uid]
		if !inRange(o.data, start, end) {
			continue
		}
		ms.Responses = append(ms.Responses, xml.Response{
			Href: r.URL.Path + uid + ".ics",
			PropStats: []xml.PropStat{{
				Props: []xml.Property{
					{Name: "getetag", Namespace: xml.DAV, TextContent: o.etag},
					{Name: "calendar-data", Namespace: xml.CalDAV, TextContent: string(o.data)},
				},
				Status: statusOK,
			}},
		})
	}
	writeMultistatus(w, ms)
}

// inRange applies the time-range overlap test. Objects that do not decode
// are always returned, leaving the client to cope with them.
func inRange(data []byte, start, end time.Time) bool {
	ev, err := event.Decode(data)
	if err != nil || ev.Start.IsZero() {
		return true
	}
	evEnd := ev.End
	if evEnd.IsZero() {
		evEnd = ev.Start
		if ev.AllDay {
			evEnd = ev.Start.AddDate(0, 0, 1)
		}
	}
	if !end.IsZero() && !ev.Start.Before(end) {
		return false
	}
	if !start.IsZero() && !evEnd.After(start) && !ev.Start.Equal(start) {
		return false
	}
	return true
}

func (s *Server) handleObject(w http.ResponseWriter, r *http.Request, cal, uid string, body []byte) {
	c, calExists := s.calendars[cal]
	var obj *object
	if calExists {
		obj = c.objects[uid]
	}

	switch r.Method {
	case http.MethodGet:
		if obj == nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("ETag", obj.etag)
		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		_, _ = w.Write(obj.data)

	case http.MethodPut:
		if !calExists {
			http.Error(w, "Conflict", http.StatusConflict)
			return
		}
		ifMatch := r.Header.Get("If-Match")
		ifNone := r.Header.Get("If-None-Match")
		if obj != nil && (ifNone == "*" || (ifMatch != "" && ifMatch != obj.etag)) {
			http.Error(w, "Precondition Failed", http.StatusPreconditionFailed)
			return
		}
		if obj == nil && ifMatch != "" {
			http.Error(w, "Precondition Failed", http.StatusPreconditionFailed)
			return
		}
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "text/calendar") {
			http.Error(w, "Unsupported Media Type", http.StatusUnsupportedMediaType)
			return
		}
		if _, err := event.Decode(body); err != nil {
			http.Error(w, "Invalid iCalendar data", http.StatusBadRequest)
			return
		}

		etag := newETag()
		c.objects[uid] = &object{data: body, etag: etag}
		c.ctag++
		if !s.omitETag {
			w.Header().Set("ETag", etag)
		}
		if obj == nil {
			w.Header().Set("Location", r.URL.Path)
			w.WriteHeader(http.StatusCreated)
		} else {
			w.WriteHeader(http.StatusNoContent)
		}

	case http.MethodDelete:
		if obj == nil {
			http.NotFound(w, r)
			return
		}
		if ifMatch := r.Header.Get("If-Match"); ifMatch != "" && ifMatch != obj.etag {
			http.Error(w, "Precondition Failed", http.StatusPreconditionFailed)
			return
		}
		delete(c.objects, uid)
		c.ctag++
		w.WriteHeader(http.StatusNoContent)

	case "PROPFIND":
		if obj == nil {
			http.NotFound(w, r)
			return
		}
		writeMultistatus(w, &xml.MultistatusResponse{Responses: []xml.Response{{
			Href: r.URL.Path,
			PropStats: []xml.PropStat{{
				Props:  []xml.Property{{Name: "getetag", Namespace: xml.DAV, TextContent: obj.etag}},
				Status: statusOK,
			}},
		}}})

	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}
