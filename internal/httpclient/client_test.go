package httpclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/cyp0633/calplanner/internal/xml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWrapper(t *testing.T, handler http.HandlerFunc) HttpClientWrapper {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	baseURL, err := url.Parse(server.URL)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w, err := NewHttpClientWrapper(server.Client(), *baseURL, logger)
	require.NoError(t, err)
	return w
}

func TestNewHttpClientWrapperRequiresLogger(t *testing.T) {
	_, err := NewHttpClientWrapper(http.DefaultClient, url.URL{}, nil)
	assert.Error(t, err)
}

func TestDoPROPFIND(t *testing.T) {
	w := newTestWrapper(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PROPFIND", r.Method)
		assert.Equal(t, "1", r.Header.Get("Depth"))
		assert.Equal(t, "/calendars/alice/", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "displayname")

		w.WriteHeader(http.StatusMultiStatus)
		_, _ = w.Write([]byte(`<d:multistatus xmlns:d="DAV:"><d:response><d:href>/calendars/alice/work/</d:href>` +
			`<d:propstat><d:prop><d:displayname>Work</d:displayname></d:prop><d:status>HTTP/1.1 200 OK</d:status></d:propstat>` +
			`</d:response></d:multistatus>`))
	})

	ms, err := w.DoPROPFIND(context.Background(), "/calendars/alice/", 1, xml.NewPropfind(xml.PropDisplayName))
	require.NoError(t, err)
	require.Len(t, ms.Responses, 1)

	p, ok := ms.Responses[0].Prop(xml.PropDisplayName)
	require.True(t, ok)
	assert.Equal(t, "Work", p.TextContent)
}

func TestDoPROPFINDRejectsNonMultistatus(t *testing.T) {
	w := newTestWrapper(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := w.DoPROPFIND(context.Background(), "/calendars/alice/", 0, xml.NewPropfind(xml.PropGetETag))
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "PROPFIND", se.Method)
}

func TestDoPUTPreconditions(t *testing.T) {
	tests := []struct {
		name            string
		cond            Precondition
		status          int
		wantIfMatch     string
		wantIfNoneMatch string
		wantEtag        string
		wantErr         bool
	}{
		{
			name:            "create",
			cond:            Precondition{IfNoneMatchAny: true},
			status:          http.StatusCreated,
			wantIfNoneMatch: "*",
			wantEtag:        `"new"`,
		},
		{
			name:        "update",
			cond:        Precondition{IfMatch: `"old"`},
			status:      http.StatusNoContent,
			wantIfMatch: `"old"`,
			wantEtag:    `"new"`,
		},
		{
			name:        "stale etag",
			cond:        Precondition{IfMatch: `"stale"`},
			status:      http.StatusPreconditionFailed,
			wantIfMatch: `"stale"`,
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWrapper(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPut, r.Method)
				assert.Equal(t, "text/calendar; charset=utf-8", r.Header.Get("Content-Type"))
				assert.Equal(t, tt.wantIfMatch, r.Header.Get("If-Match"))
				assert.Equal(t, tt.wantIfNoneMatch, r.Header.Get("If-None-Match"))
				if tt.status < 300 {
					w.Header().Set("ETag", `"new"`)
				}
				w.WriteHeader(tt.status)
			})

			etag, status, err := w.DoPUT(context.Background(), "/cal/a.ics", []byte("BEGIN:VCALENDAR"), tt.cond)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DoPUT() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				assert.True(t, IsPreconditionFailed(err))
				return
			}
			assert.Equal(t, tt.wantEtag, etag)
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestDoGET(t *testing.T) {
	w := newTestWrapper(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/cal/missing.ics" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		assert.Equal(t, "text/calendar", r.Header.Get("Accept"))
		w.Header().Set("ETag", `"e1"`)
		_, _ = w.Write([]byte("BEGIN:VCALENDAR"))
	})

	data, etag, err := w.DoGET(context.Background(), "/cal/a.ics")
	require.NoError(t, err)
	assert.Equal(t, "BEGIN:VCALENDAR", string(data))
	assert.Equal(t, `"e1"`, etag)

	_, _, err = w.DoGET(context.Background(), "/cal/missing.ics")
	assert.True(t, IsNotFound(err))
}

func TestDoDELETE(t *testing.T) {
	w := newTestWrapper(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		switch r.URL.Path {
		case "/cal/a.ics":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	status, err := w.DoDELETE(context.Background(), "/cal/a.ics", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, status)

	_, err = w.DoDELETE(context.Background(), "/cal/b.ics", "")
	assert.True(t, IsNotFound(err))
}

func TestDoMKCALENDAR(t *testing.T) {
	w := newTestWrapper(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "MKCALENDAR", r.Method)
		if r.URL.Path == "/cal/exists/" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})

	require.NoError(t, w.DoMKCALENDAR(context.Background(), "/cal/new/", xml.NewMkcalendar()))
	assert.True(t, IsStatus(w.DoMKCALENDAR(context.Background(), "/cal/exists/", xml.NewMkcalendar()), http.StatusMethodNotAllowed))
}

func TestDoREPORTCanceledContext(t *testing.T) {
	w := newTestWrapper(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMultiStatus)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := w.DoREPORT(ctx, "/cal/", 1, xml.NewCalendarQuery(nil, nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
