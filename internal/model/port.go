package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ExposedPort represents a port declared by a build file EXPOSE stanza.
type ExposedPort struct {
	Port     int
	Protocol string // tcp or udp
}

// String returns a human-readable port declaration.
func (p ExposedPort) String() string {
	if p.Protocol == "" || p.Protocol == "tcp" {
		return strconv.Itoa(p.Port)
	}
	return fmt.Sprintf("%d/%s", p.Port, p.Protocol)
}

// ParseExposedPort parses an EXPOSE argument like "8080" or "8080/udp".
// Variable references and ranges are rejected.
func ParseExposedPort(s string) (ExposedPort, bool) {
	ep := ExposedPort{Protocol: "tcp"}

	// Split protocol
	if idx := strings.Index(s, "/"); idx != -1 {
		ep.Protocol = strings.ToLower(s[idx+1:])
		s = s[:idx]
	}

	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || port < 1 || port > 65535 {
		return ExposedPort{}, false
	}
	ep.Port = port
	return ep, true
}
