package netlink

import "strings"

// Value extracts a field from a uevent payload. Kernel broadcast uevents
// separate fields with NUL bytes; sysfs uevent files use newlines — the
// delimiter is inferred from the payload. name "@" returns the devpath from
// the "action@/devpath" header line. A field without a trailing delimiter is
// treated as absent.
func Value(payload []byte, name string) (string, bool) {
	s := string(payload)

	delim := "\n"
	if strings.Contains(s, "\x00") {
		delim = "\x00"
	}

	target := name + "="
	if name == "@" {
		target = "@"
	}

	idx := strings.Index(s, target)
	if idx < 0 {
		return "", false
	}
	rest := s[idx+len(target):]

	end := strings.Index(rest, delim)
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

// Subsystem returns the SUBSYSTEM field of a uevent payload.
func Subsystem(payload []byte) (string, bool) {
	return Value(payload, "SUBSYSTEM")
}
