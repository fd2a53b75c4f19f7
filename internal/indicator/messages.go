package indicator

import (
	"fmt"
	"os"
	"strings"

	"github.com/rbright/caret/internal/inject"
)

type locale string

const (
	localeEnglish locale = "en"
)

type messages struct {
	activeWindow string
	failed       string
	typed        string
}

func indicatorMessagesFromEnv() messages {
	return indicatorMessages(resolveLocale(os.Getenv("LANG")))
}

func resolveLocale(raw string) locale {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(raw, "en") {
		return localeEnglish
	}
	return localeEnglish
}

func indicatorMessages(tag locale) messages {
	switch tag {
	case localeEnglish:
		fallthrough
	default:
		return messages{
			activeWindow: "active window",
			failed:       "Could not type into %s (%s)",
			typed:        "Typed into %s via %s",
		}
	}
}

func (m messages) target(outcome inject.Outcome) string {
	if outcome.Target == "" {
		return m.activeWindow
	}
	return outcome.Target
}

func (m messages) failure(outcome inject.Outcome) string {
	kind := strings.ReplaceAll(string(outcome.Kind), "_", " ")
	if kind == "" {
		kind = "unknown error"
	}
	return fmt.Sprintf(m.failed, m.target(outcome), kind)
}

func (m messages) success(outcome inject.Outcome) string {
	return fmt.Sprintf(m.typed, m.target(outcome), outcome.Method)
}
