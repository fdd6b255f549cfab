package normalize

import "strings"

// Generic carries the default field aliases accepted from Zapier style integrations.
var Generic = Profile{
	Name:   "generic",
	Source: "zapier",
	Rules: []Rule{
		{SourcePath: "first_name", TargetField: FieldFirstName},
		{SourcePath: "firstName", TargetField: FieldFirstName},
		{SourcePath: "fname", TargetField: FieldFirstName},
		{SourcePath: "given_name", TargetField: FieldFirstName},
		{SourcePath: "last_name", TargetField: FieldLastName},
		{SourcePath: "lastName", TargetField: FieldLastName},
		{SourcePath: "lname", TargetField: FieldLastName},
		{SourcePath: "family_name", TargetField: FieldLastName},
		{SourcePath: "surname", TargetField: FieldLastName},
		{SourcePath: "name", TargetField: FieldName},
		{SourcePath: "full_name", TargetField: FieldName},
		{SourcePath: "email", TargetField: FieldEmail},
		{SourcePath: "email_address", TargetField: FieldEmail},
		{SourcePath: "emailAddress", TargetField: FieldEmail},
		{SourcePath: "phone", TargetField: FieldPhone},
		{SourcePath: "phone_number", TargetField: FieldPhone},
		{SourcePath: "phoneNumber", TargetField: FieldPhone},
		{SourcePath: "mobile", TargetField: FieldPhone},
		{SourcePath: "company", TargetField: FieldCompany},
		{SourcePath: "company_name", TargetField: FieldCompany},
		{SourcePath: "organization", TargetField: FieldCompany},
		{SourcePath: "business_name", TargetField: FieldCompany},
		{SourcePath: "title", TargetField: FieldTitle},
		{SourcePath: "job_title", TargetField: FieldTitle},
		{SourcePath: "website", TargetField: FieldWebsite},
		{SourcePath: "url", TargetField: FieldWebsite},
		{SourcePath: "company_website", TargetField: FieldWebsite},
		{SourcePath: "source", TargetField: FieldSource},
		{SourcePath: "lead_source", TargetField: FieldSource},
		{SourcePath: "referrer", TargetField: FieldSource},
		{SourcePath: "utm_source", TargetField: FieldSource},
		{SourcePath: "notes", TargetField: FieldNotes},
		{SourcePath: "message", TargetField: FieldNotes},
		{SourcePath: "description", TargetField: FieldNotes},
		{SourcePath: "comments", TargetField: FieldNotes},
	},
}

// Standard expects payloads already shaped like a lead.
var Standard = Profile{
	Name:   "standard",
	Source: "zapier",
	Rules: []Rule{
		{SourcePath: "first_name", TargetField: FieldFirstName},
		{SourcePath: "last_name", TargetField: FieldLastName},
		{SourcePath: "email", TargetField: FieldEmail},
		{SourcePath: "phone", TargetField: FieldPhone},
		{SourcePath: "company", TargetField: FieldCompany},
		{SourcePath: "title", TargetField: FieldTitle},
		{SourcePath: "website", TargetField: FieldWebsite},
		{SourcePath: "notes", TargetField: FieldNotes},
		{SourcePath: "source", TargetField: FieldSource},
	},
}

// GoogleForms maps question titles from a Google Forms response.
var GoogleForms = Profile{
	Name:   "google_forms",
	Source: "google_forms",
	Rules: []Rule{
		{SourcePath: "Full Name", TargetField: FieldName},
		{SourcePath: "Email Address", TargetField: FieldEmail},
		{SourcePath: "Phone Number", TargetField: FieldPhone},
		{SourcePath: "Company Name", TargetField: FieldCompany},
		{SourcePath: "Job Title", TargetField: FieldTitle},
		{SourcePath: "Message", TargetField: FieldNotes},
	},
	Markers: []string{"Full Name", "Email Address"},
}

// Typeform maps answers keyed by Typeform field refs.
var Typeform = Profile{
	Name:   "typeform",
	Source: "typeform",
	Rules: []Rule{
		{SourcePath: "name", TargetField: FieldName},
		{SourcePath: "email", TargetField: FieldEmail},
		{SourcePath: "phone", TargetField: FieldPhone},
		{SourcePath: "company_name", TargetField: FieldCompany},
		{SourcePath: "job_role", TargetField: FieldTitle},
		{SourcePath: "interested_in", TargetField: FieldNotes},
	},
	Markers: []string{"job_role", "interested_in"},
}

// Mailchimp maps subscriber events that carry merge fields.
var Mailchimp = Profile{
	Name:   "mailchimp",
	Source: "mailchimp",
	Rules: []Rule{
		{SourcePath: "email_address", TargetField: FieldEmail},
		{SourcePath: "merge_fields.FNAME", TargetField: FieldFirstName},
		{SourcePath: "merge_fields.LNAME", TargetField: FieldLastName},
		{SourcePath: "merge_fields.PHONE", TargetField: FieldPhone},
		{SourcePath: "merge_fields.COMPANY", TargetField: FieldCompany},
	},
	Markers: []string{"merge_fields"},
}

// LinkedIn maps Lead Gen Form submissions.
var LinkedIn = Profile{
	Name:   "linkedin",
	Source: "linkedin",
	Rules: []Rule{
		{SourcePath: "First Name", TargetField: FieldFirstName},
		{SourcePath: "Last Name", TargetField: FieldLastName},
		{SourcePath: "Email", TargetField: FieldEmail},
		{SourcePath: "Phone", TargetField: FieldPhone},
		{SourcePath: "Company", TargetField: FieldCompany},
		{SourcePath: "Job Title", TargetField: FieldTitle},
		{SourcePath: "LinkedIn Profile", TargetField: "linkedin_url"},
	},
	Markers: []string{"LinkedIn Profile", "First Name"},
}

// Complex maps payloads from CRMs that group contact data into nested objects.
var Complex = Profile{
	Name:   "complex",
	Source: "custom",
	Rules: []Rule{
		{SourcePath: "contact.personal.first_name", TargetField: FieldFirstName},
		{SourcePath: "contact.personal.last_name", TargetField: FieldLastName},
		{SourcePath: "contact.personal.email", TargetField: FieldEmail},
		{SourcePath: "contact.business.company", TargetField: FieldCompany},
		{SourcePath: "contact.business.title", TargetField: FieldTitle},
		{SourcePath: "contact.business.phone", TargetField: FieldPhone},
		{SourcePath: "metadata.lead_score", TargetField: "score"},
	},
	Markers: []string{"contact"},
}

// detectionOrder lists the profiles Detect considers, most specific first.
var detectionOrder = []Profile{GoogleForms, Mailchimp, LinkedIn, Typeform, Complex}

var builtins = map[string]Profile{
	Generic.Name:     Generic,
	Standard.Name:    Standard,
	GoogleForms.Name: GoogleForms,
	Typeform.Name:    Typeform,
	Mailchimp.Name:   Mailchimp,
	LinkedIn.Name:    LinkedIn,
	Complex.Name:     Complex,
}

var aliases = map[string]string{
	"googleforms":  GoogleForms.Name,
	"google-forms": GoogleForms.Name,
	"zapier":       Generic.Name,
	"nested":       Complex.Name,
}

// Lookup returns the built-in profile registered under name.
func Lookup(name string) (Profile, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := aliases[key]; ok {
		key = alias
	}
	profile, ok := builtins[key]
	return profile, ok
}

// Names lists the built-in profile names.
func Names() []string {
	return []string{Generic.Name, Standard.Name, GoogleForms.Name, Typeform.Name, Mailchimp.Name, LinkedIn.Name, Complex.Name}
}

// Detect picks a built-in profile from characteristic top-level keys and falls back to Generic.
func Detect(payload map[string]any) Profile {
	for _, profile := range detectionOrder {
		for _, marker := range profile.Markers {
			if _, ok := payload[marker]; ok {
				return profile
			}
		}
	}
	return Generic
}
