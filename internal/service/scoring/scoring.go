package scoring

import (
	"net/url"
	"strings"
)

const (
	categoryContact  = "contact_completeness"
	categoryWebsite  = "website_quality"
	categorySocial   = "social_presence"
	categoryBusiness = "business_profile"
)

var freeHostingDomains = []string{
	"wordpress.com",
	"blogspot.com",
	"wixsite.com",
	"weebly.com",
	"squarespace.com",
	"medium.com",
	"substack.com",
	"godaddysites.com",
	"notion.site",
	"googlepages.com",
}

var freeMailDomains = map[string]struct{}{
	"gmail.com":      {},
	"googlemail.com": {},
	"yahoo.com":      {},
	"hotmail.com":    {},
	"outlook.com":    {},
	"live.com":       {},
	"icloud.com":     {},
	"aol.com":        {},
	"proton.me":      {},
	"protonmail.com": {},
}

// LeadFeatures captures the lead attributes used for scoring.
type LeadFeatures struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Company   string
	Title     string
	Website   string
	Socials   map[string]string
}

// ScoreResult reports the aggregate score and the per-category breakdown.
type ScoreResult struct {
	Total     int
	Breakdown map[string]int
}

// ComputeScore evaluates the provided features and returns the score breakdown.
func ComputeScore(input LeadFeatures) ScoreResult {
	breakdown := map[string]int{
		categoryContact:  scoreContactCompleteness(input),
		categoryWebsite:  scoreWebsiteQuality(input),
		categorySocial:   scoreSocialPresence(input),
		categoryBusiness: scoreBusinessProfile(input),
	}

	total := 0
	for _, value := range breakdown {
		total += value
	}

	return ScoreResult{
		Total:     total,
		Breakdown: breakdown,
	}
}

func scoreContactCompleteness(input LeadFeatures) int {
	score := 0
	if hasValue(input.Email) {
		score += 10
	}
	if hasValue(input.Phone) {
		score += 10
	}
	if hasValue(input.FirstName) && hasValue(input.LastName) {
		score += 10
	}
	return score
}

func scoreWebsiteQuality(input LeadFeatures) int {
	score := 0
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(input.Website)), "https://") {
		score += 10
	}
	if highQualityDomain(input.Website) {
		score += 10
	}
	if corporateEmail(input.Email) {
		score += 10
	}
	return score
}

func scoreSocialPresence(input LeadFeatures) int {
	if len(input.Socials) == 0 {
		return 0
	}

	score := 0
	normalized := normalizeSocialKeys(input.Socials)
	if normalized["linkedin"] != "" {
		score += 5
	}
	if normalized["instagram"] != "" {
		score += 5
	}
	if normalized["facebook"] != "" {
		score += 5
	}
	if normalized["youtube"] != "" || normalized["tiktok"] != "" || normalized["twitter"] != "" {
		score += 5
	}
	return score
}

func scoreBusinessProfile(input LeadFeatures) int {
	score := 0
	if hasValue(input.Company) {
		score += 10
	}
	if hasValue(input.Title) {
		score += 10
	}
	return score
}

func hasValue(value string) bool {
	return strings.TrimSpace(value) != ""
}

// normalizeSocialKeys maps keys such as "linkedin_url" or "LinkedIn Profile" to their network name.
func normalizeSocialKeys(socials map[string]string) map[string]string {
	result := make(map[string]string, len(socials))
	for key, value := range socials {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		lowered := strings.ToLower(key)
		for _, network := range []string{"linkedin", "instagram", "facebook", "youtube", "tiktok", "twitter"} {
			if strings.Contains(lowered, network) {
				result[network] = value
			}
		}
	}
	return result
}

func corporateEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return false
	}
	domain := strings.ToLower(strings.TrimSpace(email[at+1:]))
	_, free := freeMailDomains[domain]
	return !free && strings.Contains(domain, ".")
}

func highQualityDomain(raw string) bool {
	domain := extractDomain(raw)
	if domain == "" {
		return false
	}
	for _, bad := range freeHostingDomains {
		if domain == bad || strings.HasSuffix(domain, "."+bad) {
			return false
		}
	}
	return strings.Count(domain, ".") >= 1
}

func extractDomain(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	lowered := strings.ToLower(raw)
	if !strings.Contains(lowered, "://") {
		lowered = "https://" + lowered
	}
	parsed, err := url.Parse(lowered)
	if err != nil {
		return ""
	}
	host := strings.TrimSpace(strings.ToLower(parsed.Host))
	host = strings.TrimPrefix(host, "www.")
	return host
}
