package validate

import (
	"regexp"
	"strings"
)

var envKeyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// envForbidden are sequences that perform substitution or chaining when a
// value reaches a shell, or that break out of a compose ${VAR:-default}.
var envForbidden = []string{"$(", "${", "`", ";", "&&", "||", "|", "}", "\n", "\r", "\x00"}

// commandOperators chain or substitute commands.
var commandOperators = []string{"|", ";", "&", "`", "$(", "${", "\n", "\r", "\x00"}

// destructiveCommands match commands that wipe or disable the host.
var destructiveCommands = []*regexp.Regexp{
	regexp.MustCompile(`\brm\s+(-[a-zA-Z]*\s+)*-[a-zA-Z]*[rR][a-zA-Z]*\s+(-[a-zA-Z]*\s+)*(/|/\*|~|~/|\*|\.)(\s|$)`),
	regexp.MustCompile(`\bmkfs(\.[a-z0-9]+)?\b`),
	regexp.MustCompile(`\bdd\b.*\bof=/dev/`),
	regexp.MustCompile(`:\(\)\s*\{`),
	regexp.MustCompile(`\bchmod\s+(-[a-zA-Z]+\s+)*0?777\s+/(\s|$)`),
	regexp.MustCompile(`\bchown\s+(-[a-zA-Z]+\s+)*\S+\s+/(\s|$)`),
	regexp.MustCompile(`>\s*/dev/(sd|hd|nvme|disk)`),
	regexp.MustCompile(`\b(shutdown|reboot|halt|poweroff)\b`),
}

// EnvValue checks an environment variable destined for the manifest.
func EnvValue(key, value string) error {
	if !envKeyPattern.MatchString(key) {
		return fail("env", key, "variable names must match [A-Za-z_][A-Za-z0-9_]*")
	}
	for _, seq := range envForbidden {
		if strings.Contains(value, seq) {
			return fail("env."+key, value, "contains forbidden sequence "+printable(seq))
		}
	}
	return nil
}

// Command checks a free-form command string such as a health check.
func Command(cmd string) error {
	if strings.TrimSpace(cmd) == "" {
		return fail("command", cmd, "must not be empty")
	}
	for _, op := range commandOperators {
		if strings.Contains(cmd, op) {
			return fail("command", cmd, "contains chaining or substitution operator "+printable(op))
		}
	}
	for _, re := range destructiveCommands {
		if re.MatchString(cmd) {
			return fail("command", cmd, "matches a destructive command signature")
		}
	}
	return nil
}

func printable(seq string) string {
	switch seq {
	case "\n":
		return `\n`
	case "\r":
		return `\r`
	case "\x00":
		return `\0`
	}
	return seq
}
