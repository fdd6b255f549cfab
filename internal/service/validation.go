package service

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
	"golang.org/x/net/idna"

	"github.com/uppalcrm/crm/api/internal/service/normalize"
)

var (
	emailPattern = regexp.MustCompile(`^[a-z0-9._%+\-']+@[a-z0-9.-]+\.[a-z]{2,}$`)
	idnaProfile  = idna.Lookup
)

const (
	trackingPrefix     = "utm_"
	defaultPhoneRegion = "US"
)

// DataProcessor encapsulates the cleaning rules applied to every lead before it is stored.
type DataProcessor struct {
	DefaultRegion string
}

// NewDataProcessor builds a processor that parses national phone numbers in defaultRegion.
func NewDataProcessor(defaultRegion string) *DataProcessor {
	region := strings.ToUpper(strings.TrimSpace(defaultRegion))
	if region == "" {
		region = defaultPhoneRegion
	}
	return &DataProcessor{DefaultRegion: region}
}

// CleanLead lower-cases and validates the email, formats the phone as E.164 when it parses and
// sanitizes the website. Only an unusable email is an error.
func (p *DataProcessor) CleanLead(lead normalize.Lead) (normalize.Lead, error) {
	email, ok := cleanEmail(lead.Email)
	if !ok {
		return lead, invalidField("email", "email %q is not a valid address", strings.TrimSpace(lead.Email))
	}
	lead.Email = email
	lead.FirstName = strings.TrimSpace(lead.FirstName)
	lead.LastName = strings.TrimSpace(lead.LastName)
	lead.Company = strings.TrimSpace(lead.Company)
	lead.Title = strings.TrimSpace(lead.Title)
	lead.Notes = strings.TrimSpace(lead.Notes)

	if phone := strings.TrimSpace(lead.Phone); phone != "" {
		if normalized := normalizePhone(phone, p.DefaultRegion); normalized != "" {
			phone = normalized
		}
		lead.Phone = phone
	}

	if site := strings.TrimSpace(lead.Website); site != "" {
		lead.Website = ""
		if u, err := sanitizeURL(site); err == nil {
			stripTracking(u)
			lead.Website = u.String()
		}
	}
	return lead, nil
}

func cleanEmail(raw string) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(raw))
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", false
	}
	local, domain := email[:at], email[at+1:]
	asciiDomain, err := idnaProfile.ToASCII(domain)
	if err != nil || asciiDomain == "" || !isDomainValid(asciiDomain) {
		return "", false
	}
	email = local + "@" + asciiDomain
	if !emailPattern.MatchString(email) {
		return "", false
	}
	return email, true
}

func sanitizeURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("empty url")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, errors.New("invalid url")
	}
	u.Scheme = "https"
	return u, nil
}

func stripTracking(u *url.URL) {
	if u == nil {
		return
	}
	query := u.Query()
	changed := false
	for key := range query {
		if strings.HasPrefix(strings.ToLower(key), trackingPrefix) {
			query.Del(key)
			changed = true
		}
	}
	if changed {
		u.RawQuery = query.Encode()
	}
}

func normalizePhone(raw, region string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if region == "" {
		region = defaultPhoneRegion
	}
	number, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return ""
	}
	if !phonenumbers.IsPossibleNumber(number) || !phonenumbers.IsValidNumber(number) {
		return ""
	}
	return phonenumbers.Format(number, phonenumbers.E164)
}

func isDomainValid(domain string) bool {
	if strings.Count(domain, ".") == 0 {
		return false
	}
	parts := strings.Split(domain, ".")
	for _, part := range parts {
		if part == "" || strings.HasPrefix(part, "-") || strings.HasSuffix(part, "-") {
			return false
		}
	}
	return true
}
