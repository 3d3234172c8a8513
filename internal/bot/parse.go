package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const varsSeparator = " - "

// ParseVarsArgs parses the arguments of /vars.
// Format: <name> - <value>
func ParseVarsArgs(args string) (string, string, error) {
	args = strings.TrimSpace(args)
	if args == "" {
		return "", "", errors.New("Usage: /vars variable-name - variable-value")
	}
	name, value, ok := strings.Cut(args, varsSeparator)
	if !ok {
		return "", "", errors.New("Separator ' - ' not found.\nUsage: /vars variable-name - variable-value")
	}
	name, value = strings.TrimSpace(name), strings.TrimSpace(value)
	if name == "" || value == "" {
		return "", "", errors.New("Empty name or value.")
	}
	return name, value, nil
}

// ParseUserID parses a numeric user ID.
func ParseUserID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user ID %q", s)
	}
	return id, nil
}
