package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

var trackingParams = []string{"utm_source", "utm_medium", "utm_campaign", "ref"}

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
	"ws":    "80",
	"wss":   "443",
	"ftp":   "21",
}

const upperHex = "0123456789ABCDEF"

// NormalizeURL lowercases the host, drops the default port, the fragment and
// tracking parameters, sorts the query by key and strips one trailing slash.
// The query is serialized with form encoding so fingerprints match those
// computed by browser URL implementations. Unparseable input is returned unchanged.
func NormalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() {
		return raw
	}

	u.Host = strings.ToLower(u.Host)
	if port := u.Port(); port != "" && defaultPorts[u.Scheme] == port {
		u.Host = strings.TrimSuffix(u.Host, ":"+port)
	}
	u.Fragment = ""
	u.RawFragment = ""

	query, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return raw
	}
	for _, param := range trackingParams {
		query.Del(param)
	}
	u.RawQuery = encodeSorted(query)
	u.ForceQuery = false

	normalized := u.String()
	return strings.TrimSuffix(normalized, "/")
}

// Fingerprint is the SHA-256 hex digest of the normalized URL.
func Fingerprint(raw string) string {
	sum := sha256.Sum256([]byte(NormalizeURL(raw)))
	return hex.EncodeToString(sum[:])
}

// encodeSorted serializes the query with keys sorted and repeated values kept in order.
func encodeSorted(query url.Values) string {
	if len(query) == 0 {
		return ""
	}

	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		for _, v := range query[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			formEscape(&b, k)
			b.WriteByte('=')
			formEscape(&b, v)
		}
	}
	return b.String()
}

// formEscape writes s in application/x-www-form-urlencoded form: only
// alphanumerics and "*-._" stay literal, space becomes '+'.
func formEscape(b *strings.Builder, s string) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9',
			c == '*', c == '-', c == '.', c == '_':
			b.WriteByte(c)
		case c == ' ':
			b.WriteByte('+')
		default:
			b.WriteByte('%')
			b.WriteByte(upperHex[c>>4])
			b.WriteByte(upperHex[c&0x0F])
		}
	}
}
