package security

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxLenientLength = 1000
	maxStrictLength  = 100
)

// lenient stripping passes, applied in order to free text headed for
// email bodies.
var (
	angleBracketRe = regexp.MustCompile(`[<>]`)
	uriSchemeRe    = regexp.MustCompile(`(?i)(javascript|data|vbscript)\s*:`)
	eventHandlerRe = regexp.MustCompile(`(?i)\bon\w+\s*=`)
	sqlKeywordRe   = regexp.MustCompile(`(?i)\b(union|select|insert|update|delete|drop|truncate|alter|create|exec(ute)?|eval|expression|pg_sleep|sleep|benchmark|waitfor|delay|xp_cmdshell|powershell|from|where)\b`)
	sqlMetaRe      = regexp.MustCompile(`['";=]|--|/\*|\*/|#`)
	nosqlSigilRe   = regexp.MustCompile(`\$\w+`)
	traversalRe    = regexp.MustCompile(`\.\.`)
	pathSepRe      = regexp.MustCompile(`[/\\]`)
	shellMetaRe    = regexp.MustCompile("[`|&;]|\\$\\(")
	templateRe     = regexp.MustCompile(`\{\{|\}\}|\$\{|<%|%>|[{}]`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

// strict-mode cleanup passes.
var (
	hexRunRe       = regexp.MustCompile(`(?i)(0x)?[0-9a-f]{4,}`)
	encodedSeqRe   = regexp.MustCompile(`(?i)(&#x?[0-9a-f]+;?|%[0-9a-f]{2}|\\x[0-9a-f]{2}|\\u[0-9a-f]{4})`)
	strictAllowRe  = regexp.MustCompile(`[^\w\s\-.(),]`)
	strictVerifyRe = regexp.MustCompile(`^[\w\s\-.(),]*$`)
)

// SanitizeInput is the lenient transform for free-text fields. It strips
// the substrings the catalog matches in raw form, collapses whitespace and
// truncates. Best-effort cleaning: ambiguous input comes out mangled, not
// rejected.
func SanitizeInput(input string) string {
	if input == "" {
		return ""
	}

	// stripping runs to a fixpoint so removals cannot splice two halves of
	// a dangerous token back together
	out := input
	for {
		prev := out
		// template delimiters first: stripping brackets before <% %>
		// would orphan the percent signs
		out = templateRe.ReplaceAllString(out, "")
		out = angleBracketRe.ReplaceAllString(out, "")
		out = uriSchemeRe.ReplaceAllString(out, "")
		out = eventHandlerRe.ReplaceAllString(out, "")
		out = sqlKeywordRe.ReplaceAllString(out, "")
		out = sqlMetaRe.ReplaceAllString(out, "")
		out = nosqlSigilRe.ReplaceAllString(out, "")
		out = traversalRe.ReplaceAllString(out, "")
		out = pathSepRe.ReplaceAllString(out, "")
		out = shellMetaRe.ReplaceAllString(out, "")
		if out == prev {
			break
		}
	}

	out = whitespaceRe.ReplaceAllString(out, " ")
	out = strings.TrimSpace(out)

	return truncateRuneSafe(out, maxLenientLength)
}

// truncateRuneSafe cuts at max bytes without splitting a multi-byte rune;
// accented text at the boundary must not come out as invalid UTF-8.
func truncateRuneSafe(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// SanitizeStrictInput is the transform for identity fields (names,
// company names). Ambiguity resolves to rejection: if the decoded form
// trips the detector the result is empty, not a best-effort clean.
func SanitizeStrictInput(input string) string {
	if input == "" {
		return ""
	}

	decoded := DecodeInput(input)
	if IsSuspicious(decoded) {
		return ""
	}

	out := decoded
	out = hexRunRe.ReplaceAllString(out, "")
	out = encodedSeqRe.ReplaceAllString(out, "")
	out = strictAllowRe.ReplaceAllString(out, "")

	out = whitespaceRe.ReplaceAllString(out, " ")
	out = strings.TrimSpace(out)

	return truncateRuneSafe(out, maxStrictLength)
}

// StrictOutputValid reports whether s is inside the strict character
// class. Exposed for the pipeline's defense-in-depth check and tests.
func StrictOutputValid(s string) bool {
	return len(s) <= maxStrictLength && strictVerifyRe.MatchString(s)
}
