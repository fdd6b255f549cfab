package scoring

import "testing"

func TestComputeScore_FullCoverage(t *testing.T) {
	input := LeadFeatures{
		FirstName: "Jane",
		LastName:  "Smith",
		Email:     "jane@acme.com",
		Phone:     "+14155551234",
		Company:   "Acme",
		Title:     "CTO",
		Website:   "https://acme.com",
		Socials: map[string]string{
			"linkedin_url": "https://linkedin.com/in/jane",
			"Instagram":    "https://instagram.com/acme",
			"facebook":     "https://facebook.com/acme",
			"twitter":      "https://twitter.com/acme",
		},
	}

	score := ComputeScore(input)

	if score.Total != 100 {
		t.Fatalf("expected full score 100, got %d", score.Total)
	}
	if score.Breakdown[categoryContact] != 30 {
		t.Fatalf("expected contact completeness 30, got %d", score.Breakdown[categoryContact])
	}
	if score.Breakdown[categoryWebsite] != 30 {
		t.Fatalf("expected website quality 30, got %d", score.Breakdown[categoryWebsite])
	}
	if score.Breakdown[categorySocial] != 20 {
		t.Fatalf("expected social presence 20, got %d", score.Breakdown[categorySocial])
	}
	if score.Breakdown[categoryBusiness] != 20 {
		t.Fatalf("expected business profile 20, got %d", score.Breakdown[categoryBusiness])
	}
}

func TestComputeScore_MinimalLead(t *testing.T) {
	input := LeadFeatures{
		FirstName: "jane",
		Email:     "jane@gmail.com",
		Website:   "http://myshop.wordpress.com",
		Socials:   map[string]string{"linkedin": "  "},
	}

	score := ComputeScore(input)

	if score.Total != 10 {
		t.Fatalf("expected only the email to count, got %d (%v)", score.Total, score.Breakdown)
	}
	if score.Breakdown[categoryWebsite] != 0 {
		t.Fatalf("expected website quality 0 for free mail and free hosting, got %d", score.Breakdown[categoryWebsite])
	}
}

func TestCorporateEmail(t *testing.T) {
	cases := map[string]bool{
		"ops@acme.io":       true,
		"someone@gmail.com": false,
		"broken@":           false,
		"no-at-sign":        false,
	}
	for email, want := range cases {
		if got := corporateEmail(email); got != want {
			t.Fatalf("corporateEmail(%q) = %v, want %v", email, got, want)
		}
	}
}

func TestExtractDomain(t *testing.T) {
	if got := extractDomain("WWW.Acme.com/about"); got != "acme.com" {
		t.Fatalf("unexpected domain %q", got)
	}
	if got := extractDomain(""); got != "" {
		t.Fatalf("expected empty domain, got %q", got)
	}
}
