package security

import (
	"html"
	"net/url"
	"regexp"
	"strings"
)

// Signature is one entry of the injection catalog. Keeping the catalog as
// a table rather than one opaque boolean makes coverage auditable and
// testable per-signature.
type Signature struct {
	ID       string
	Category string
	Pattern  *regexp.Regexp
}

const (
	CategoryXSS       = "xss"
	CategoryEncoded   = "encoded"
	CategoryTraversal = "traversal"
	CategorySQLi      = "sqli"
	CategoryNoSQL     = "nosql"
	CategoryCommand   = "command"
	CategoryTemplate  = "template"
	CategoryLDAP      = "ldap"
)

var signatures = []Signature{
	// Script/tag injection
	{ID: "xss-script-tag", Category: CategoryXSS, Pattern: regexp.MustCompile(`(?i)<\s*script`)},
	{ID: "xss-iframe", Category: CategoryXSS, Pattern: regexp.MustCompile(`(?i)<\s*iframe`)},
	{ID: "xss-event-handler", Category: CategoryXSS, Pattern: regexp.MustCompile(`(?i)\bon(error|load|click|mouseover|mouseout|keydown|keyup|keypress|focus|blur|change|submit)\s*=`)},
	{ID: "xss-js-scheme", Category: CategoryXSS, Pattern: regexp.MustCompile(`(?i)(javascript|vbscript)\s*:`)},
	{ID: "xss-eval", Category: CategoryXSS, Pattern: regexp.MustCompile(`(?i)\beval\s*\(`)},
	{ID: "xss-css-expression", Category: CategoryXSS, Pattern: regexp.MustCompile(`(?i)\bexpression\s*\(`)},

	// Encoded-tag variants that survive naive bracket stripping
	{ID: "enc-script-percent", Category: CategoryEncoded, Pattern: regexp.MustCompile(`(?i)%3c\s*/?\s*script`)},
	{ID: "enc-script-entity", Category: CategoryEncoded, Pattern: regexp.MustCompile(`(?i)(&#x3c;|&#60;|&lt;)\s*/?\s*script`)},
	{ID: "enc-escape-bracket", Category: CategoryEncoded, Pattern: regexp.MustCompile(`(?i)(\\x3c|\\u003c)`)},

	// Path traversal
	{ID: "trav-dotdot", Category: CategoryTraversal, Pattern: regexp.MustCompile(`\.\./|\.\.\\`)},
	{ID: "trav-encoded", Category: CategoryEncoded, Pattern: regexp.MustCompile(`(?i)(%2e%2e%2f|%2e%2e/|\.\.%2f|%2e%2e%5c|\.\.%5c)`)},

	// SQL injection
	{ID: "sqli-keywords", Category: CategorySQLi, Pattern: regexp.MustCompile(`(?i)\b(union(\s+all)?\s+select|select\s+.+\s+from|insert\s+into|update\s+\w+\s+set|delete\s+from|drop\s+(table|database)|truncate\s+table|alter\s+table|create\s+table)\b`)},
	{ID: "sqli-boolean", Category: CategorySQLi, Pattern: regexp.MustCompile(`(?i)\b(or|and)\s+'?\d+'?\s*=\s*'?\d+`)},
	{ID: "sqli-quote-boolean", Category: CategorySQLi, Pattern: regexp.MustCompile(`(?i)'\s*(or|and)\s+'[^']*'\s*=\s*'`)},
	// No `;#` arm: partially peeled entities leave `;#60` residue which
	// is indistinguishable from a hash comment. Hash-comment payloads
	// carry a boolean clause and match sqli-boolean instead.
	{ID: "sqli-comment", Category: CategorySQLi, Pattern: regexp.MustCompile(`(--|/\*[\s\S]*\*/)`)},
	{ID: "sqli-time-blind", Category: CategorySQLi, Pattern: regexp.MustCompile(`(?i)\b(sleep|benchmark|pg_sleep)\s*\(|waitfor\s+delay`)},
	{ID: "sqli-cmdshell", Category: CategorySQLi, Pattern: regexp.MustCompile(`(?i)\bxp_cmdshell`)},

	// NoSQL operators
	{ID: "nosql-operator", Category: CategoryNoSQL, Pattern: regexp.MustCompile(`(?i)\$(where|ne|gt|gte|lt|lte|regex|exists|in|nin)\b`)},

	// Command injection
	{ID: "cmd-exec", Category: CategoryCommand, Pattern: regexp.MustCompile(`(?i)\bexec\s*\(`)},
	{ID: "cmd-chained", Category: CategoryCommand, Pattern: regexp.MustCompile(`(?i)(;|\|\||&&)\s*(rm|ls|cat|id|whoami|wget|curl|nc|netcat|bash|sh)\b`)},
	{ID: "cmd-substitution", Category: CategoryCommand, Pattern: regexp.MustCompile("`[^`]+`|\\$\\(")},
	{ID: "cmd-download", Category: CategoryCommand, Pattern: regexp.MustCompile(`(?i)\b(wget|curl)\s+https?://`)},
	{ID: "cmd-powershell", Category: CategoryCommand, Pattern: regexp.MustCompile(`(?i)\bpowershell\b`)},
	{ID: "cmd-pipe-nc", Category: CategoryCommand, Pattern: regexp.MustCompile(`(?i)\|\s*(nc|netcat)\b`)},

	// Template injection
	{ID: "tpl-mustache", Category: CategoryTemplate, Pattern: regexp.MustCompile(`\{\{[\s\S]*\}\}`)},
	{ID: "tpl-dollar", Category: CategoryTemplate, Pattern: regexp.MustCompile(`\$\{[^}]*\}`)},
	{ID: "tpl-erb", Category: CategoryTemplate, Pattern: regexp.MustCompile(`<%[\s\S]*%>`)},

	// LDAP injection
	{ID: "ldap-filter-close", Category: CategoryLDAP, Pattern: regexp.MustCompile(`\)\s*\(\s*[|&]`)},
	{ID: "ldap-filter-open", Category: CategoryLDAP, Pattern: regexp.MustCompile(`\(\s*[|&]\s*\(`)},
}

// Signatures exposes the catalog for per-signature tests.
func Signatures() []Signature {
	return signatures
}

// maxDecodeRounds bounds the decode loop. Three rounds catch the encodings
// seen in the wild; a payload nested four or more rounds deep evades this
// detector. The bound is deliberate: an unbounded loop on adversarial
// input is a denial-of-service vector.
const maxDecodeRounds = 3

// hex tokens substituted case-insensitively during decoding. Attackers
// smuggle brackets and quotes as bare two-digit hex with the percent sign
// stripped.
var hexReplacer = strings.NewReplacer(
	"3C", "<", "3c", "<",
	"3E", ">", "3e", ">",
	"2F", "/", "2f", "/",
	"22", `"`,
	"27", "'",
	"28", "(",
	"29", ")",
	"3A", ":", "3a", ":",
	"3B", ";", "3b", ";",
)

// DecodeInput runs up to maxDecodeRounds of progressive decoding: HTML
// entities, percent-encoding (with + as space) and the hex substitution
// pass. A decode failure keeps the last successfully decoded value; the
// function never fails.
func DecodeInput(text string) string {
	decoded := text
	for i := 0; i < maxDecodeRounds; i++ {
		prev := decoded

		decoded = html.UnescapeString(decoded)
		if unescaped, err := url.QueryUnescape(decoded); err == nil {
			decoded = unescaped
		}
		decoded = hexReplacer.Replace(decoded)

		if decoded == prev {
			break
		}
	}
	return decoded
}

// IsSuspicious reports whether text matches any catalog signature, in raw
// or decoded form. Both forms are tested on purpose: some upstream filters
// strip raw brackets but not their encodings, and vice versa.
func IsSuspicious(text string) bool {
	if text == "" {
		return false
	}
	decoded := DecodeInput(text)

	for _, sig := range signatures {
		if sig.Pattern.MatchString(text) || sig.Pattern.MatchString(decoded) {
			return true
		}
	}
	return false
}

// MatchSignatures returns the IDs of every signature matching text in raw
// or decoded form. Used for audit detail, never echoed to clients.
func MatchSignatures(text string) []string {
	decoded := DecodeInput(text)

	var matched []string
	for _, sig := range signatures {
		if sig.Pattern.MatchString(text) || sig.Pattern.MatchString(decoded) {
			matched = append(matched, sig.ID)
		}
	}
	return matched
}
