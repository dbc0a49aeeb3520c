package util

import (
	"strings"
)

// FilterOSArgs returns args with the values of every flag not on allowed masked. Both
// "--flag value" and "--flag=value" forms are recognised.
func FilterOSArgs(args []string, allowed []string) []string {
	var (
		sanitized     = make([]string, len(args))
		sanitizeNext  = false
		allowedByName = make(map[string]struct{}, len(allowed))
	)
	for _, name := range allowed {
		allowedByName[name] = struct{}{}
	}
	for i, arg := range args {
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			if sanitizeNext {
				sanitized[i] = strings.Repeat("*", len(arg))
			} else {
				sanitized[i] = arg
			}
			sanitizeNext = false
			continue
		}
		name := strings.ToLower(strings.TrimLeft(arg, "-"))
		value, hasValue := "", false
		if idx := strings.Index(name, "="); idx >= 0 {
			value, hasValue = arg[len(arg)-len(name)+idx+1:], true
			name = name[:idx]
		}
		_, ok := allowedByName[strings.ReplaceAll(name, "-", "_")]
		switch {
		case ok:
			sanitized[i] = arg
			sanitizeNext = false
		case hasValue:
			sanitized[i] = arg[:len(arg)-len(value)] + strings.Repeat("*", len(value))
			sanitizeNext = false
		default:
			sanitized[i] = arg
			sanitizeNext = true
		}
	}
	return sanitized
}
