// Package urlsafe provides the URL and path primitives shared by the explorer,
// the synthesizer and generated programs: target normalization, optional
// private-address rejection, href resolution, artifact naming and bounded reads.
package urlsafe

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"path/filepath"
	"strings"
)

// MaxBody is the default cap for HTTP response body reads (10 MiB).
const MaxBody int64 = 10 << 20

// ErrUnsupportedScheme is returned when a URL uses a non-HTTP(S) scheme.
var ErrUnsupportedScheme = errors.New("urlsafe: only http and https schemes are allowed")

// ErrNoHost is returned when a URL has no hostname.
var ErrNoHost = errors.New("urlsafe: URL has no host")

// ErrPrivateAddress is returned when a URL targets a private or loopback address.
var ErrPrivateAddress = errors.New("urlsafe: URL targets a private or loopback address")

// ErrPathTraversal is returned when a file name escapes its base directory.
var ErrPathTraversal = errors.New("urlsafe: path traversal detected")

// Normalize parses a user-supplied target. A missing scheme defaults to https.
func Normalize(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("urlsafe: empty URL")
	}
	lower := strings.ToLower(raw)
	if !strings.Contains(lower, "://") && !strings.HasPrefix(lower, "javascript:") && !strings.HasPrefix(lower, "mailto:") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("urlsafe: invalid URL: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, ErrUnsupportedScheme
	}
	u.Scheme = scheme
	if u.Hostname() == "" {
		return nil, ErrNoHost
	}
	return u, nil
}

// RejectPrivate returns ErrPrivateAddress when u is a literal private IP or a
// hostname resolving to one. DNS failures are let through; the fetch will
// report them.
func RejectPrivate(u *url.URL) error {
	host := u.Hostname()
	if ip := net.ParseIP(host); ip != nil {
		if isPrivateIP(ip) {
			return ErrPrivateAddress
		}
		return nil
	}
	addrs, err := net.LookupHost(host)
	if err != nil {
		return nil
	}
	for _, a := range addrs {
		if ip := net.ParseIP(a); ip != nil && isPrivateIP(ip) {
			return ErrPrivateAddress
		}
	}
	return nil
}

// Resolve makes href absolute against base. Fragment-only, javascript: and
// mailto: links are rejected.
func Resolve(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "tel:") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if base == nil {
		return ref.String(), ref.IsAbs()
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	return abs.String(), true
}

// Origin returns scheme://host[:port] for u.
func Origin(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}

// DomainSlug turns a host into the {domain} part of artifact names:
// "www." is stripped, dots and colons become underscores.
func DomainSlug(u *url.URL) string {
	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")
	host = strings.NewReplacer(".", "_", ":", "_").Replace(host)
	if host == "" {
		return "unknown"
	}
	return host
}

// SafePath joins base and name and verifies the result stays under base.
func SafePath(base, name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrPathTraversal
	}
	cleaned := filepath.Join(base, filepath.Clean("/"+name))
	if !strings.HasPrefix(cleaned, filepath.Clean(base)+string(filepath.Separator)) &&
		cleaned != filepath.Clean(base) {
		return "", ErrPathTraversal
	}
	return cleaned, nil
}

// LimitedReadAll reads at most maxBytes from r and fails beyond that.
func LimitedReadAll(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("urlsafe: response exceeds %d bytes", maxBytes)
	}
	return data, nil
}

var privateRanges = mustCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"fc00::/7",
	"169.254.0.0/16",
	"::1/128",
)

func mustCIDRs(cidrs ...string) []*net.IPNet {
	out := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		out = append(out, n)
	}
	return out
}

func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return true
	}
	for _, n := range privateRanges {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
