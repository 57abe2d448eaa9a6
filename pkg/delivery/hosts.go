package delivery

import (
	"fmt"
	"net"
	"strings"

	"golang.org/x/net/idna"
)

// asciiHost uses the lookup mapping with strict checks relaxed so hosts with
// underscores or other registration quirks still normalize.
var asciiHost = idna.New(idna.MapForLookup(), idna.StrictDomainName(false))

// normalizeHost lowercases a hostname and converts internationalized names
// to their ASCII form. IP literals pass through unchanged.
func normalizeHost(host string) (string, error) {
	h := strings.TrimSpace(host)
	if h == "" {
		return "", fmt.Errorf("host cannot be empty")
	}
	if net.ParseIP(h) != nil {
		return h, nil
	}
	ascii, err := asciiHost.ToASCII(strings.ToLower(h))
	if err != nil {
		return "", fmt.Errorf("invalid host %q: %w", host, err)
	}
	return ascii, nil
}
