package blocklist

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/miekg/dns"
)

// NormalizedURL holds the dedup key of a list URL and the form written to the
// output document.
type NormalizedURL struct {
	Key     string
	Display string
}

// NormalizeURL maps textually different spellings of the same list location
// to one key:
//
//   - surrounding whitespace is trimmed
//   - http and https are default schemes and are left out of the key; other
//     schemes stay in it
//   - the host is lower-cased, its trailing dot and a default port (80 for
//     http, 443 for https) are removed
//   - trailing slashes are removed from the path, path case is kept
//   - the query is kept, the fragment is dropped
//
// Display keeps the scheme when the input carried one and otherwise equals Key.
func NormalizeURL(raw string) (NormalizedURL, error) {
	trimmed := strings.TrimSpace(stripBOM(raw))
	if trimmed == "" {
		return NormalizedURL{}, errors.New("empty url")
	}
	if strings.ContainsAny(trimmed, " \t") {
		return NormalizedURL{}, errors.New("url contains whitespace")
	}
	if strings.HasPrefix(strings.ToLower(trimmed), "file:") {
		return normalizeFileURL(trimmed)
	}

	candidate := trimmed
	explicitScheme := hasScheme(trimmed)
	if !explicitScheme {
		candidate = "http://" + trimmed
	}

	u, err := url.Parse(candidate)
	if err != nil {
		return NormalizedURL{}, fmt.Errorf("parse url: %w", err)
	}
	if u.User != nil {
		return NormalizedURL{}, errors.New("credentials in url are not supported")
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme == "" {
		return NormalizedURL{}, errors.New("missing scheme")
	}

	host, err := normalizeHost(u.Hostname())
	if err != nil {
		return NormalizedURL{}, err
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port := u.Port(); port != "" && !isDefaultPort(scheme, port) {
		host = host + ":" + port
	}

	body := host + strings.TrimRight(u.EscapedPath(), "/")
	if u.RawQuery != "" {
		body += "?" + u.RawQuery
	}

	key := body
	if !isDefaultScheme(scheme) {
		key = scheme + "://" + body
	}
	display := body
	if explicitScheme {
		display = scheme + "://" + body
	}
	return NormalizedURL{Key: key, Display: display}, nil
}

func normalizeFileURL(raw string) (NormalizedURL, error) {
	path := raw[len("file:"):]
	if strings.HasPrefix(path, "//") {
		path = strings.TrimPrefix(path, "//")
	}
	path = strings.TrimRight(path, "/")
	if path == "" {
		return NormalizedURL{}, errors.New("empty file path")
	}
	key := "file:" + path
	return NormalizedURL{Key: key, Display: key}, nil
}

func normalizeHost(host string) (string, error) {
	lower := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(host), "."))
	if lower == "" {
		return "", errors.New("missing host")
	}
	if ip := net.ParseIP(lower); ip != nil {
		return ip.String(), nil
	}
	if _, ok := dns.IsDomainName(lower); !ok {
		return "", fmt.Errorf("invalid host %q", host)
	}
	if strings.Contains(lower, "*") {
		return "", fmt.Errorf("invalid host %q", host)
	}
	return lower, nil
}

func hasScheme(raw string) bool {
	i := strings.Index(raw, "://")
	if i <= 0 {
		return false
	}
	for j, r := range raw[:i] {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case j > 0 && (r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}

func isDefaultScheme(scheme string) bool {
	return scheme == "http" || scheme == "https"
}

func isDefaultPort(scheme, port string) bool {
	return (scheme == "http" && port == "80") || (scheme == "https" && port == "443")
}

func stripBOM(line string) string {
	return strings.TrimPrefix(line, "\ufeff")
}
