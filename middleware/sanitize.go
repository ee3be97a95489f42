package middleware

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/assurea/courtier_api/model"
	"github.com/assurea/courtier_api/security"
)

// FieldRule classifies one top-level body field. Identity fields (person
// and company names) take the strict sanitizer path; everything else is
// lenient. Email and phone get a format check after sanitization.
type FieldRule struct {
	Required bool
	Strict   bool
	Email    bool
	Phone    bool
}

// endpointSchemas is the closed-world field allow-list per endpoint. A
// key absent from the schema is a validation error, not a pass-through.
var endpointSchemas = map[model.Endpoint]map[string]FieldRule{
	model.EndpointContact: {
		"prenom":    {Required: true, Strict: true},
		"nom":       {Required: true, Strict: true},
		"email":     {Required: true, Email: true},
		"telephone": {Required: true, Phone: true},
		"message":   {},
	},
	model.EndpointDevis: {
		"prenom":        {Required: true, Strict: true},
		"nom":           {Required: true, Strict: true},
		"email":         {Required: true, Email: true},
		"telephone":     {Required: true, Phone: true},
		"typeAssurance": {Required: true},
		"entreprise":    {Strict: true},
		"message":       {},
	},
	model.EndpointRappel: {
		"prenom":    {Required: true, Strict: true},
		"nom":       {Required: true, Strict: true},
		"telephone": {Required: true, Phone: true},
		"creneau":   {},
	},
	model.EndpointNewsletter: {
		"email": {Required: true, Email: true},
	},
}

// SchemaFor returns the field schema for the endpoint.
func SchemaFor(endpoint model.Endpoint) (map[string]FieldRule, bool) {
	schema, ok := endpointSchemas[endpoint]
	return schema, ok
}

// SanitizeResult is the pipeline verdict for one request body.
type SanitizeResult struct {
	Valid      bool
	Suspicious bool
	Data       map[string]string
	Errors     []string
}

var (
	emailRe      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe      = regexp.MustCompile(`^0[1-9][0-9]{8}$`)
	phoneSepRe   = regexp.MustCompile(`[\s.\-]`)
	errSuspicion = "Le contenu de la requête n'a pas pu être traité."
)

// SanitizeRequest validates and sanitizes one parsed JSON body.
//
// The serialized body is tested against the threat detector before any
// per-field work; this catches payloads split across field boundaries or
// hidden in field names. Then required-field presence is checked, all
// missing fields reported together, with no sanitization attempted on a
// body that fails presence. Remaining fields go through the strict or
// lenient sanitizer per their rule, plus email and phone format checks.
func SanitizeRequest(rawBody []byte, fields map[string]interface{}, endpoint model.Endpoint) *SanitizeResult {
	if security.IsSuspicious(string(rawBody)) {
		return &SanitizeResult{
			Suspicious: true,
			Errors:     []string{errSuspicion},
		}
	}

	schema, ok := endpointSchemas[endpoint]
	if !ok {
		// Endpoints without a JSON schema pass every string field
		// through the lenient sanitizer.
		data := make(map[string]string, len(fields))
		for key, value := range fields {
			if s, isString := value.(string); isString {
				data[key] = security.SanitizeInput(s)
			}
		}
		return &SanitizeResult{Valid: true, Data: data}
	}

	var missing []string
	for name, rule := range schema {
		if !rule.Required {
			continue
		}
		value, present := fields[name]
		s, isString := value.(string)
		if !present || value == nil || (isString && strings.TrimSpace(s) == "") {
			missing = append(missing, fmt.Sprintf("Le champ %s est requis.", name))
		}
	}
	if len(missing) > 0 {
		return &SanitizeResult{Errors: missing}
	}

	result := &SanitizeResult{Data: make(map[string]string, len(fields))}

	for key := range fields {
		if _, known := schema[key]; !known {
			result.Errors = append(result.Errors, fmt.Sprintf("Le champ %s n'est pas reconnu.", key))
		}
	}

	for name, rule := range schema {
		value, present := fields[name]
		if !present || value == nil {
			continue
		}

		raw, isString := value.(string)
		if !isString {
			result.Errors = append(result.Errors, fmt.Sprintf("Le champ %s est invalide.", name))
			continue
		}

		var sanitized string
		if rule.Strict {
			sanitized = security.SanitizeStrictInput(raw)
			if sanitized == "" && strings.TrimSpace(raw) != "" {
				result.Errors = append(result.Errors, fmt.Sprintf("Le champ %s contient des caractères non autorisés.", name))
				continue
			}
		} else {
			sanitized = security.SanitizeInput(raw)
		}

		if rule.Email && !emailRe.MatchString(sanitized) {
			result.Errors = append(result.Errors, "L'adresse email est invalide.")
			continue
		}

		if rule.Phone {
			sanitized = phoneSepRe.ReplaceAllString(sanitized, "")
			if !phoneRe.MatchString(sanitized) {
				result.Errors = append(result.Errors, "Le numéro de téléphone est invalide.")
				continue
			}
		}

		result.Data[name] = sanitized
	}

	result.Valid = len(result.Errors) == 0
	return result
}
