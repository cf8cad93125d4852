package security

import (
	"strconv"
	"strings"
)

// MatchIP reports whether ip is covered by entry. An entry containing "/" is
// an IPv4 network/prefix; anything else must equal ip exactly. Malformed
// input never matches.
func MatchIP(ip, entry string) bool {
	if !strings.Contains(entry, "/") {
		return ip != "" && ip == entry
	}

	network, bits, ok := parseCIDR(entry)
	if !ok {
		return false
	}
	addr, ok := parseIPv4(ip)
	if !ok {
		return false
	}

	mask := prefixMask(bits)
	return addr&mask == network&mask
}

// MatchAny reports whether ip matches at least one entry.
func MatchAny(ip string, entries []string) bool {
	for _, e := range entries {
		if MatchIP(ip, strings.TrimSpace(e)) {
			return true
		}
	}
	return false
}

// ValidEntry reports whether s is an IPv4 literal or an IPv4 CIDR block.
func ValidEntry(s string) bool {
	if strings.Contains(s, "/") {
		_, _, ok := parseCIDR(s)
		return ok
	}
	_, ok := parseIPv4(s)
	return ok
}

// SplitEntries parses a comma separated list of allowlist entries, dropping blanks.
func SplitEntries(list string) []string {
	var out []string
	for _, p := range strings.Split(list, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseCIDR(s string) (uint32, int, bool) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return 0, 0, false
	}
	network, ok := parseIPv4(parts[0])
	if !ok {
		return 0, 0, false
	}
	if !allDigits(parts[1], 2) {
		return 0, 0, false
	}
	bits, err := strconv.Atoi(parts[1])
	if err != nil || bits > 32 {
		return 0, 0, false
	}
	return network, bits, true
}

// parseIPv4 converts a dotted quad to its big-endian integer form.
func parseIPv4(s string) (uint32, bool) {
	octets := strings.Split(s, ".")
	if len(octets) != 4 {
		return 0, false
	}
	var out uint32
	for _, o := range octets {
		if !allDigits(o, 3) {
			return 0, false
		}
		n, err := strconv.Atoi(o)
		if err != nil || n > 255 {
			return 0, false
		}
		out = out<<8 | uint32(n)
	}
	return out, true
}

// allDigits reports whether s is 1 to maxLen ASCII digits. strconv.Atoi alone
// would also take a sign.
func allDigits(s string, maxLen int) bool {
	if s == "" || len(s) > maxLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func prefixMask(bits int) uint32 {
	if bits == 0 {
		return 0
	}
	return ^uint32(0) << (32 - bits)
}
