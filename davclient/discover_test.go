package davclient

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"testing"

	"github.com/cyp0633/calplanner/internal/davtest"
	"github.com/cyp0633/calplanner/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockResolver implements a mock DNS resolver for testing
type mockResolver struct {
	srvRecords map[string][]*net.SRV
	txtRecords map[string][]string
}

func (r *mockResolver) LookupSRV(ctx context.Context, service, proto, name string) (cname string, addrs []*net.SRV, err error) {
	addrs, ok := r.srvRecords[name]
	if !ok {
		return "", nil, &net.DNSError{
			Err:        "no such host",
			Name:       name,
			IsNotFound: true,
		}
	}
	return "", addrs, nil
}

func (r *mockResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	records, ok := r.txtRecords[name]
	if !ok {
		return nil, &net.DNSError{
			Err:        "no such host",
			Name:       name,
			IsNotFound: true,
		}
	}
	return records, nil
}

func discoveryConfig(srv *davtest.Server, resolver DNSResolver) DiscoveryConfig {
	return DiscoveryConfig{
		Resolver: resolver,
		Client:   srv.Client(),
		Logger:   logging.Discard(),
	}
}

func TestDiscoverCalendarHome(t *testing.T) {
	srv := davtest.New("alice")
	defer srv.Close()

	tests := []struct {
		name     string
		location string
	}{
		{name: "server root", location: srv.URL},
		{name: "dav endpoint", location: srv.URL + "/remote.php/dav/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home, err := DiscoverCalendarHome(context.Background(), tt.location, "alice", "secret",
				discoveryConfig(srv, &mockResolver{}))
			require.NoError(t, err)
			assert.Equal(t, srv.URL+srv.Home(), home)
		})
	}
}

func TestDiscoverCalendarHomeFallsBackToWellKnown(t *testing.T) {
	srv := davtest.New("alice")
	defer srv.Close()
	srv.FailOn("PROPFIND", "/custom/", http.StatusNotFound)

	home, err := DiscoverCalendarHome(context.Background(), srv.URL+"/custom/", "alice", "secret",
		discoveryConfig(srv, &mockResolver{}))
	require.NoError(t, err)
	assert.Equal(t, srv.URL+srv.Home(), home)
}

func TestCandidateLocationsFromSRV(t *testing.T) {
	srv := davtest.New("alice")
	defer srv.Close()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	resolver := &mockResolver{
		srvRecords: map[string][]*net.SRV{
			"_caldav._tcp.calendar.example": {{Target: u.Hostname() + ".", Port: uint16(port)}},
		},
		txtRecords: map[string][]string{
			"_caldav._tcp.calendar.example": {"path=/remote.php/dav/"},
		},
	}

	locations := candidateLocations(context.Background(), &url.URL{Scheme: "https", Host: "calendar.example"}, resolver)
	assert.Equal(t, []string{
		"http://" + u.Host + "/remote.php/dav/",
		"https://calendar.example/.well-known/caldav",
		"https://calendar.example/",
	}, locations)
}

func TestDiscoverCalendarHomeErrors(t *testing.T) {
	srv := davtest.New("alice")
	defer srv.Close()

	tests := []struct {
		name     string
		location string
		setup    func()
	}{
		{name: "invalid URL", location: "not-a-url"},
		{name: "empty URL", location: ""},
		{
			name:     "no principal anywhere",
			location: srv.URL,
			setup: func() {
				srv.FailOn("PROPFIND", "/", http.StatusUnauthorized)
				srv.FailOn("PROPFIND", "/.well-known/caldav", http.StatusUnauthorized)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			_, err := DiscoverCalendarHome(context.Background(), tt.location, "alice", "secret",
				discoveryConfig(srv, &mockResolver{}))
			assert.Error(t, err)
		})
	}
}
