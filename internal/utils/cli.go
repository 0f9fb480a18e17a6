package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
)

var ErrEmptyCommand = errors.New("empty command")

// SplitCommandLine splits an interactive input line into a command name and
// up to two arguments using POSIX shell quoting, so values with spaces can be
// written as `set city "new york"`.
func SplitCommandLine(line string) (cmd, key, value string, err error) {
	words, err := shellquote.Split(line)
	if err != nil {
		return "", "", "", err
	}

	switch len(words) {
	case 0:
		return "", "", "", ErrEmptyCommand
	case 1:
		return strings.ToLower(words[0]), "", "", nil
	case 2:
		return strings.ToLower(words[0]), words[1], "", nil
	case 3:
		return strings.ToLower(words[0]), words[1], words[2], nil
	default:
		return "", "", "", fmt.Errorf("too many arguments: got %d, want at most 2", len(words)-1)
	}
}
