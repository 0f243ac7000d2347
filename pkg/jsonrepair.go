package pkg

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnrecoverable is matched by every error a JSONRepairer returns when the
// text cannot be salvaged.
var ErrUnrecoverable = errors.New("response cannot be repaired")

// TruncatedResponseError marks a generation answer that was cut off in a way
// brace balancing cannot fix.
type TruncatedResponseError struct {
	Signature string
}

func (e *TruncatedResponseError) Error() string {
	return fmt.Sprintf("Response was truncated - flow is too complex. Try with fewer tasks or simpler components. (%s)", e.Signature)
}

func (e *TruncatedResponseError) Is(target error) bool {
	return target == ErrUnrecoverable
}

// JSONRepairer turns a possibly truncated JSON text into parseable text, or
// fails with an error matching ErrUnrecoverable.
type JSONRepairer interface {
	Repair(text string) (string, error)
}

var (
	leadingFence       = regexp.MustCompile("^```[A-Za-z0-9_+-]*[ \t]*\r?\n?")
	trailingFence      = regexp.MustCompile("\r?\n?[ \t]*```$")
	danglingComponent  = regexp.MustCompile(`"componentId"\s*:\s*"[^"]*$`)
	componentIDLiteral = regexp.MustCompile(`"componentId"\s*:\s*"([^"]*)"`)
)

// StripCodeFences removes a leading and a trailing markdown fence, with or
// without a language tag, and the surrounding whitespace.
func StripCodeFences(text string) string {
	out := strings.TrimSpace(text)
	out = leadingFence.ReplaceAllString(out, "")
	out = trailingFence.ReplaceAllString(strings.TrimSpace(out), "")
	return strings.TrimSpace(out)
}

// DetectTruncation reports the signature of a cut-off answer: the text does
// not end with a closing brace and either stops inside a componentId string or
// carries one of the known partial component ids as a componentId value.
func DetectTruncation(text string, knownPartialIDs []string) (string, bool) {
	if strings.HasSuffix(text, "}") {
		return "", false
	}
	if danglingComponent.MatchString(text) {
		return "dangling componentId string", true
	}
	if len(knownPartialIDs) == 0 {
		return "", false
	}
	for _, m := range componentIDLiteral.FindAllStringSubmatch(text, -1) {
		for _, partial := range knownPartialIDs {
			if m[1] == partial {
				return fmt.Sprintf("partial componentId %q", partial), true
			}
		}
	}
	return "", false
}

// BraceBalanceRepairer appends the missing closing braces of a text that was
// cut off mid-object. It counts every brace, including those inside strings,
// so it is a best-effort heuristic.
type BraceBalanceRepairer struct {
	KnownPartialIDs []string
}

func (r BraceBalanceRepairer) Repair(text string) (string, error) {
	if signature, truncated := DetectTruncation(text, r.KnownPartialIDs); truncated {
		return "", &TruncatedResponseError{Signature: signature}
	}
	if strings.HasSuffix(text, "}") {
		return text, nil
	}
	missing := strings.Count(text, "{") - strings.Count(text, "}")
	if missing > 0 {
		return text + strings.Repeat("}", missing), nil
	}
	return text, nil
}
