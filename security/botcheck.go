package security

import "strings"

type BotType string

const (
	BotTypeSearch    BotType = "search"
	BotTypeSocial    BotType = "social"
	BotTypeMalicious BotType = "malicious"
	BotTypeScraper   BotType = "scraper"
	BotTypeUnknown   BotType = "unknown"
)

// BotVerdict is the classification of one request's user-agent and
// headers. Only BotTypeMalicious is hard-blocked downstream: search and
// social crawlers must pass or the site loses SEO and link previews.
type BotVerdict struct {
	IsBot      bool
	BotType    BotType
	Confidence int
}

// Legitimate crawlers and social preview fetchers, never blocked.
var legitimateBotSignatures = []string{
	"googlebot",
	"bingbot",
	"slurp",
	"duckduckbot",
	"baiduspider",
	"yandexbot",
	"applebot",
	"facebookexternalhit",
	"twitterbot",
	"linkedinbot",
	"whatsapp",
	"telegrambot",
	"discordbot",
	"pinterestbot",
}

// Scraping and automation tooling, blocked on sight.
var maliciousBotSignatures = []string{
	"headlesschrome",
	"phantomjs",
	"selenium",
	"puppeteer",
	"playwright",
	"python-requests",
	"python-urllib",
	"go-http-client",
	"java/",
	"libwww-perl",
	"scrapy",
	"httpclient",
	"okhttp",
	"curl/",
	"wget/",
	"masscan",
	"nmap",
	"nikto",
	"sqlmap",
	"bot",
	"crawler",
	"spider",
	"scraper",
}

var headlessSignatures = []string{
	"headlesschrome",
	"phantomjs",
	"electron",
}

// ClassifyBot scores the request headers into a verdict. Signature lists
// take priority over behavioral scoring.
func ClassifyBot(header HeaderLookup) BotVerdict {
	userAgent := header("User-Agent")
	uaLower := strings.ToLower(userAgent)

	for _, sig := range legitimateBotSignatures {
		if strings.Contains(uaLower, sig) {
			return BotVerdict{IsBot: true, BotType: BotTypeSearch, Confidence: 90}
		}
	}

	for _, sig := range maliciousBotSignatures {
		if strings.Contains(uaLower, sig) {
			return BotVerdict{IsBot: true, BotType: BotTypeMalicious, Confidence: 95}
		}
	}

	confidence := 0

	if header("Accept-Language") == "" {
		confidence += 20
	}
	if header("Accept-Encoding") == "" {
		confidence += 15
	}
	if accept := header("Accept"); !strings.Contains(accept, "text/html") && !strings.Contains(accept, "*/*") {
		confidence += 15
	}

	if len(userAgent) < 20 || !strings.Contains(userAgent, "Mozilla") {
		confidence += 25
	}
	if strings.Contains(userAgent, "bot") || strings.Contains(userAgent, "Bot") {
		confidence += 30
	}

	for _, sig := range headlessSignatures {
		if strings.Contains(uaLower, sig) {
			return BotVerdict{IsBot: true, BotType: BotTypeScraper, Confidence: 100}
		}
	}

	if header("Referer") == "" && !strings.Contains(uaLower, "mobile") {
		confidence += 10
	}

	if confidence > 60 {
		botType := BotTypeMalicious
		if confidence > 80 {
			botType = BotTypeScraper
		}
		return BotVerdict{IsBot: true, BotType: botType, Confidence: confidence}
	}

	return BotVerdict{IsBot: false, BotType: BotTypeUnknown, Confidence: confidence}
}
