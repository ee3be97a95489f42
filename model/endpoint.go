package model

import "time"

// Endpoint identifies a protected form route. Route registration and the
// rate-limit table share these constants so a typo between the two fails
// to compile instead of silently falling through to defaults.
type Endpoint string

const (
	EndpointContact        Endpoint = "contact"
	EndpointDevis          Endpoint = "devis"
	EndpointRappel         Endpoint = "rappel"
	EndpointDevisDocuments Endpoint = "devis_documents"
	EndpointNewsletter     Endpoint = "newsletter"
	EndpointBlog           Endpoint = "blog"
)

// Cross-cutting scopes checked for every request in addition to the
// endpoint's own counter.
const (
	ScopeGlobal = "global"
	ScopeBurst  = "burst"
)

type RateLimitConfig struct {
	Endpoint    Endpoint
	MaxRequests int
	Window      time.Duration
	Description string
	Public      bool
}

// RateLimitConfigs is the single authoritative limits table. The numbers
// are the stricter enforcement values; there is no second table.
func RateLimitConfigs() map[Endpoint]*RateLimitConfig {
	return map[Endpoint]*RateLimitConfig{
		EndpointContact: {
			Endpoint:    EndpointContact,
			MaxRequests: 5,
			Window:      15 * time.Minute,
			Description: "Formulaire de contact",
		},
		EndpointDevis: {
			Endpoint:    EndpointDevis,
			MaxRequests: 3,
			Window:      15 * time.Minute,
			Description: "Demande de devis",
		},
		EndpointRappel: {
			Endpoint:    EndpointRappel,
			MaxRequests: 5,
			Window:      15 * time.Minute,
			Description: "Demande de rappel",
		},
		EndpointDevisDocuments: {
			Endpoint:    EndpointDevisDocuments,
			MaxRequests: 3,
			Window:      time.Hour,
			Description: "Documents justificatifs",
		},
		EndpointNewsletter: {
			Endpoint:    EndpointNewsletter,
			MaxRequests: 5,
			Window:      time.Hour,
			Description: "Inscription newsletter",
		},
		EndpointBlog: {
			Endpoint:    EndpointBlog,
			MaxRequests: 0,
			Window:      0,
			Description: "Articles du blog",
			Public:      true,
		},
	}
}

type ScopeConfig struct {
	MaxRequests int
	Window      time.Duration
}

// ScopeConfigs returns the global and burst limits applied to every
// non-public request regardless of endpoint.
func ScopeConfigs() map[string]ScopeConfig {
	return map[string]ScopeConfig{
		ScopeGlobal: {MaxRequests: 100, Window: 15 * time.Minute},
		ScopeBurst:  {MaxRequests: 10, Window: time.Minute},
	}
}

// WhitelistedIPs are never rate-limited or blocked (loopback and internal
// build agents).
var WhitelistedIPs = map[string]bool{
	"127.0.0.1": true,
	"::1":       true,
	"localhost": true,
	"10.0.0.5":  true,
}
