// Package cdxj reads, writes and merges CDXJ capture indexes.
package cdxj

import (
	"fmt"
	"net"
	"path"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/idna"
)

var (
	wwwPrefix    = regexp.MustCompile(`^www\d*\.`)
	defaultPorts = map[string]string{"http": "80", "https": "443", "ftp": "21"}
)

// Canonicalize returns the SURT form of rawURL, e.g.
// "http://www.Example.com/A?b=1&a=2" becomes "com,example)/a?a=2&b=1".
// Percent-escapes in the path and query are decoded, then only control
// bytes, space, '#', non-ASCII and a '%' that would read as an escape are
// escaped again. URLs without an authority ("dns:...") are returned
// lowercased.
func Canonicalize(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}
	scheme, rest, ok := strings.Cut(s, "://")
	if !ok || scheme == "" {
		return strings.ToLower(s)
	}

	authority, tail := rest, ""
	if i := strings.IndexAny(rest, "/?"); i >= 0 {
		authority, tail = rest[:i], rest[i:]
	}
	if i := strings.LastIndexByte(authority, '@'); i >= 0 {
		authority = authority[i+1:]
	}
	host, port := splitHostPort(authority)

	var b strings.Builder
	b.WriteString(surtHost(canonicalHost(host)))
	if port != "" && port != defaultPorts[strings.ToLower(scheme)] {
		b.WriteByte(':')
		b.WriteString(port)
	}
	b.WriteByte(')')

	p, q, hasQuery := strings.Cut(tail, "?")
	b.WriteString(strings.ToLower(canonicalPath(p)))
	if hasQuery {
		if q = sortQuery(strings.ToLower(minimalEscape(unescapeRepeatedly(q)))); q != "" {
			b.WriteByte('?')
			b.WriteString(q)
		}
	}
	return b.String()
}

// splitHostPort separates a trailing numeric port. Bracketed IPv6 hosts
// keep their brackets.
func splitHostPort(authority string) (string, string) {
	if strings.HasPrefix(authority, "[") {
		if end := strings.IndexByte(authority, ']'); end >= 0 {
			host, rest := authority[:end+1], authority[end+1:]
			return host, strings.TrimPrefix(rest, ":")
		}
	}
	i := strings.LastIndexByte(authority, ':')
	if i < 0 || !allDigits(authority[i+1:]) {
		return authority, ""
	}
	return authority[:i], authority[i+1:]
}

func canonicalHost(host string) string {
	host = strings.ToLower(unescapeRepeatedly(host))
	for strings.Contains(host, "..") {
		host = strings.ReplaceAll(host, "..", ".")
	}
	host = strings.Trim(host, ".")
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		host = ascii
	}
	return wwwPrefix.ReplaceAllString(host, "")
}

// canonicalPath resolves dot segments and repeated slashes, keeping a
// trailing slash.
func canonicalPath(p string) string {
	p = unescapeRepeatedly(p)
	if p == "" {
		return "/"
	}
	cleaned := path.Clean(p)
	if strings.HasSuffix(p, "/") && cleaned != "/" {
		cleaned += "/"
	}
	return minimalEscape(cleaned)
}

// surtHost reverses the labels of a domain name. IP addresses are left as is.
func surtHost(host string) string {
	if ip := net.ParseIP(strings.Trim(host, "[]")); ip != nil {
		return host
	}
	labels := strings.Split(host, ".")
	for i, j := 0, len(labels)-1; i < j; i, j = i+1, j-1 {
		labels[i], labels[j] = labels[j], labels[i]
	}
	return strings.Join(labels, ",")
}

func sortQuery(q string) string {
	if q == "" {
		return ""
	}
	args := strings.Split(q, "&")
	sort.Strings(args)
	return strings.Join(args, "&")
}

// unescapeRepeatedly decodes %XX escapes until none are left. Malformed
// escapes such as "%zz" stay as they are.
func unescapeRepeatedly(s string) string {
	for {
		next := unescapeOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func unescapeOnce(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && isEscape(s, i) {
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func minimalEscape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c <= ' ' || c >= 0x7f || c == '#' || (c == '%' && isEscape(s, i)) {
			fmt.Fprintf(&b, "%%%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// isEscape reports whether s[i:] starts with '%' and two hex digits.
func isEscape(s string, i int) bool {
	return i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2])
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case c >= 'a':
		return c - 'a' + 10
	case c >= 'A':
		return c - 'A' + 10
	}
	return c - '0'
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
