package davclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/cyp0633/calplanner/internal/httpclient"
	"github.com/cyp0633/calplanner/internal/xml"
)

// DNSResolver interface for mocking DNS lookups in tests
type DNSResolver interface {
	LookupSRV(ctx context.Context, service, proto, name string) (cname string, addrs []*net.SRV, err error)
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// DiscoveryConfig holds what DiscoverCalendarHome needs besides credentials.
type DiscoveryConfig struct {
	Resolver DNSResolver
	Client   *http.Client
	Logger   *slog.Logger
}

// DiscoverCalendarHome finds the calendar home of username starting from
// location. Candidates are tried in order: location itself when it has a
// path, DNS SRV/TXT records, /.well-known/caldav, then the server root. The
// first one answering with current-user-principal wins, and the principal
// is asked for calendar-home-set. The result is an absolute URL.
func DiscoverCalendarHome(ctx context.Context, location, username, password string, cfg DiscoveryConfig) (string, error) {
	if location == "" {
		return "", fmt.Errorf("invalid URL")
	}
	baseURL, err := url.Parse(location)
	if err != nil || baseURL.Host == "" || (baseURL.Scheme != "http" && baseURL.Scheme != "https") {
		return "", fmt.Errorf("invalid URL")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = &net.Resolver{}
	}

	client := &http.Client{Timeout: defaultTimeout}
	if cfg.Client != nil {
		c := *cfg.Client
		client = &c
	}
	client.Transport = httpclient.NewBasicAuthTransport(username, password, client.Transport, logger)

	wrapper, err := httpclient.NewHttpClientWrapper(client, *baseURL, logger)
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP client wrapper: %w", err)
	}

	var principalURL string
	for _, candidate := range candidateLocations(ctx, baseURL, resolver) {
		ms, err := wrapper.DoPROPFIND(ctx, candidate, 0, xml.NewPropfind(xml.PropCurrentUserPrincipal))
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			var se *httpclient.StatusError
			if !errors.As(err, &se) {
				logger.Debug("discovery candidate unreachable", "url", candidate, "error", err)
			}
			continue
		}

		if href := firstHref(ms, xml.PropCurrentUserPrincipal); href != "" {
			principalURL = resolveAgainst(candidate, href)
			logger.Debug("found principal", "candidate", candidate, "principal", principalURL)
			break
		}
	}
	if principalURL == "" {
		return "", fmt.Errorf("could not find current-user-principal")
	}

	ms, err := wrapper.DoPROPFIND(ctx, principalURL, 0, xml.NewPropfind(xml.PropCalendarHomeSet))
	if err != nil {
		return "", fmt.Errorf("failed to get calendar-home-set: %w", err)
	}
	home := firstHref(ms, xml.PropCalendarHomeSet)
	if home == "" {
		return "", fmt.Errorf("no calendar-home-set found")
	}
	return resolveAgainst(principalURL, home), nil
}

// candidateLocations lists discovery URLs, following Thunderbird's order.
func candidateLocations(ctx context.Context, baseURL *url.URL, resolver DNSResolver) []string {
	var locations []string

	if baseURL.Path != "/" && baseURL.Path != "" {
		locations = append(locations, baseURL.String())
	}

	// SRV records only exist for domain names.
	srvPrefixes := []string{"_caldavs._tcp.", "_caldav._tcp."}
	if net.ParseIP(baseURL.Hostname()) != nil {
		srvPrefixes = nil
	}
	for _, prefix := range srvPrefixes {
		host := prefix + baseURL.Hostname()
		_, addrs, err := resolver.LookupSRV(ctx, "", "", host)
		if err != nil {
			continue
		}

		var path string
		txts, _ := resolver.LookupTXT(ctx, host)
		for _, txt := range txts {
			if p, ok := strings.CutPrefix(txt, "path="); ok && p != "" {
				path = p
				break
			}
		}

		scheme := "http"
		if prefix == "_caldavs._tcp." {
			scheme = "https"
		}
		for _, addr := range addrs {
			target := strings.TrimSuffix(addr.Target, ".")
			locations = append(locations, fmt.Sprintf("%s://%s:%d%s", scheme, target, addr.Port, path))
		}
	}

	root := &url.URL{Scheme: baseURL.Scheme, Host: baseURL.Host}
	locations = append(locations,
		root.JoinPath(".well-known", "caldav").String(),
		root.JoinPath("/").String(),
	)
	return locations
}

func firstHref(ms *xml.MultistatusResponse, n xml.Name) string {
	for _, resp := range ms.Responses {
		if p, ok := resp.Prop(n); ok {
			if href := p.Href(); href != "" {
				return href
			}
		}
	}
	return ""
}

// resolveAgainst makes ref absolute relative to base.
func resolveAgainst(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
