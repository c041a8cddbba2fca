package usecase

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxCommandNameLen = 32
	maxURLArgLen      = 2048
	maxPhoneArgLen    = 20
	maxGeneralArgLen  = 256
)

var (
	commandNamePattern = regexp.MustCompile(`^[a-z0-9_-]{1,32}$`)
	urlPattern         = regexp.MustCompile(`^https?://[^\s]+$`)
	phonePattern       = regexp.MustCompile(`^\+?[0-9][0-9 ().-]{4,19}$`)
	generalPattern     = regexp.MustCompile(`^[^\x00-\x08\x0b-\x1f\x7f]+$`)
)

// shellMetachars are stripped from every argument before a handler sees
// it; none of these ever have a legitimate place in chat command input.
const shellMetachars = ";&|`$(){}[]\\<>"

// ValidationError is a user-facing input rejection. It aborts dispatch
// before any handler runs.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid command: " + e.Reason
}

// ParsedCommand is the raw result of splitting command text
type ParsedCommand struct {
	Name string
	Args []string
}

// ParseCommand extracts a command invocation from message text. Only the
// first line is interpreted; later lines starting with '!' must not be
// treated as separate commands.
func ParseCommand(text string) (*ParsedCommand, bool) {
	firstLine := text
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		firstLine = text[:idx]
	}
	firstLine = strings.TrimSpace(firstLine)
	if len(firstLine) < 2 || firstLine[0] != '!' {
		return nil, false
	}

	fields := strings.Fields(firstLine[1:])
	if len(fields) == 0 {
		return nil, false
	}

	return &ParsedCommand{
		Name: strings.ToLower(fields[0]),
		Args: fields[1:],
	}, true
}

// ValidateCommand checks the command name and classifies each argument
// against a per-class pattern and length bound. Any failure rejects the
// whole invocation; a handler never sees partially valid input.
func ValidateCommand(cmd *ParsedCommand) error {
	if !commandNamePattern.MatchString(cmd.Name) {
		return &ValidationError{Reason: "command name must be 1-32 letters, digits, _ or -"}
	}

	for i, arg := range cmd.Args {
		if err := validateArg(arg); err != nil {
			return &ValidationError{Reason: fmt.Sprintf("argument %d: %v", i+1, err)}
		}
	}
	return nil
}

func validateArg(arg string) error {
	switch {
	case strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://"):
		if len(arg) > maxURLArgLen {
			return fmt.Errorf("url too long (max %d)", maxURLArgLen)
		}
		if !urlPattern.MatchString(arg) {
			return fmt.Errorf("malformed url")
		}
	case looksLikePhone(arg):
		if len(arg) > maxPhoneArgLen {
			return fmt.Errorf("number too long (max %d)", maxPhoneArgLen)
		}
		if !phonePattern.MatchString(arg) {
			return fmt.Errorf("malformed number")
		}
	default:
		if len(arg) > maxGeneralArgLen {
			return fmt.Errorf("argument too long (max %d)", maxGeneralArgLen)
		}
		if !generalPattern.MatchString(arg) {
			return fmt.Errorf("argument contains control characters")
		}
	}
	return nil
}

func looksLikePhone(arg string) bool {
	if arg == "" {
		return false
	}
	c := arg[0]
	return c == '+' && len(arg) > 1 && arg[1] >= '0' && arg[1] <= '9'
}

// SanitizeArgs strips shell metacharacters and path-traversal sequences
// from each argument and truncates to the general length bound. Arguments
// that end up empty are dropped. keepMentions preserves '@' for the few
// commands whose arguments are mention placeholders.
func SanitizeArgs(args []string, keepMentions bool) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		s := sanitizeArg(arg, keepMentions)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func sanitizeArg(arg string, keepMentions bool) string {
	var b strings.Builder
	for _, r := range arg {
		if r < 128 && strings.ContainsRune(shellMetachars, r) {
			continue
		}
		if r == '@' && !keepMentions {
			continue
		}
		b.WriteRune(r)
	}
	s := b.String()

	// Traversal removal runs after metacharacter stripping: removing a
	// metacharacter can itself expose a ../ sequence (e.g. "..;/").
	for strings.Contains(s, "../") {
		s = strings.ReplaceAll(s, "../", "")
	}

	return strings.TrimSpace(truncateArg(s))
}

// truncateArg bounds an argument to the same class-specific limit
// validation enforced; a URL that validated at 2048 bytes must not come
// out of sanitization cut down to the general bound. Cuts land on rune
// boundaries so truncation never produces invalid UTF-8.
func truncateArg(s string) string {
	limit := maxGeneralArgLen
	switch {
	case strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://"):
		limit = maxURLArgLen
	case looksLikePhone(s):
		limit = maxPhoneArgLen
	}
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
