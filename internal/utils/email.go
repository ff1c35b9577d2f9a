package utils

import (
	"strings"
)

// SplitAddressList splits a comma separated header value ("a@x.com, B <b@y.com>")
// into trimmed entries, dropping empties.
func SplitAddressList(headerValue string) []string {
	if strings.TrimSpace(headerValue) == "" {
		return nil
	}
	parts := strings.Split(headerValue, ",")
	addresses := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			addresses = append(addresses, p)
		}
	}
	return addresses
}

// ContainsLabel reports whether a Gmail label id is present in the list.
func ContainsLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}
