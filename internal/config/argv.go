package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// splitCommand turns a command string such as `wl-copy --type text/plain`
// into argv. Quotes group words, a backslash escapes one rune, and an
// unquoted leading `~/` on the program word expands to the home directory.
// A string starting with `#` is a disabled command and yields nil.
func splitCommand(input string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" || strings.HasPrefix(input, "#") {
		return nil, nil
	}

	var (
		words   []string
		word    strings.Builder
		started bool
		quoted  bool
		quote   rune
		escape  bool
	)

	emit := func() {
		if !started {
			return
		}
		w := word.String()
		if len(words) == 0 && !quoted {
			w = expandHome(w)
		}
		words = append(words, w)
		word.Reset()
		started, quoted = false, false
	}

	for _, r := range input {
		switch {
		case escape:
			word.WriteRune(r)
			escape = false
		case r == '\\' && quote != '\'':
			escape, started = true, true
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			word.WriteRune(r)
		case r == '\'' || r == '"':
			quote, started, quoted = r, true, true
		case unicode.IsSpace(r):
			emit()
		default:
			word.WriteRune(r)
			started = true
		}
	}

	switch {
	case escape:
		return nil, fmt.Errorf("command %q: dangling backslash", input)
	case quote != 0:
		return nil, fmt.Errorf("command %q: unterminated %c quote", input, quote)
	}

	emit()
	return words, nil
}

func expandHome(word string) string {
	if word != "~" && !strings.HasPrefix(word, "~/") {
		return word
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return word
	}
	return filepath.Join(home, strings.TrimPrefix(word[1:], "/"))
}

// commandOf builds a CommandConfig from a literal known to be valid.
func commandOf(raw string) CommandConfig {
	argv, err := splitCommand(raw)
	if err != nil {
		panic(err)
	}
	return CommandConfig{Raw: raw, Argv: argv}
}
