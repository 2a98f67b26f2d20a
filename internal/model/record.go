package model

// NewsItem is one recent news story about an organization.
type NewsItem struct {
	Title   string `json:"title" yaml:"title"`
	URL     string `json:"url" yaml:"url"`
	Summary string `json:"summary" yaml:"summary"`
}

// OrganizationFacts holds organization-level research shared by every
// contact at that organization. It is never mutated once built.
type OrganizationFacts struct {
	Website              string     `json:"districtWebsite"`
	IntermediateDistrict string     `json:"intermediateSchoolDistrict"`
	TotalEnrollment      string     `json:"totalEnrollment"`
	RuralClassification  string     `json:"ruralClassification"`
	News                 []NewsItem `json:"news"`
}

// DefaultOrganizationFacts returns facts for an organization nothing is known about.
func DefaultOrganizationFacts() OrganizationFacts {
	return OrganizationFacts{
		Website:              Unknown,
		IntermediateDistrict: Unknown,
		TotalEnrollment:      Unknown,
		RuralClassification:  Unknown,
		News:                 []NewsItem{},
	}
}

// PersonFacts holds research specific to one contact.
type PersonFacts struct {
	Tenure      string `json:"superintendentTenure"`
	LinkedInURL string `json:"personLinkedIn"`
	ProfileURL  string `json:"personProfileUrl"`
	Background  string `json:"noteworthyBackground"`
}

// DefaultPersonFacts returns facts for a contact nothing is known about.
func DefaultPersonFacts() PersonFacts {
	return PersonFacts{
		Tenure:      Unknown,
		LinkedInURL: Unknown,
		ProfileURL:  Unknown,
		Background:  Unknown,
	}
}

// EnrichedRecord is the final per-contact output. Every string field is
// either a sanitized non-empty value or Unknown.
type EnrichedRecord struct {
	DistrictName         string     `json:"schoolDistrictName" yaml:"schoolDistrictName"`
	FullName             string     `json:"superintendentFullName" yaml:"superintendentFullName"`
	Title                string     `json:"superintendentTitle" yaml:"superintendentTitle"`
	Tenure               string     `json:"superintendentTenure" yaml:"superintendentTenure"`
	IntermediateDistrict string     `json:"intermediateSchoolDistrict" yaml:"intermediateSchoolDistrict"`
	Phone                string     `json:"phoneNumber" yaml:"phoneNumber"`
	Email                string     `json:"emailAddress" yaml:"emailAddress"`
	TotalEnrollment      string     `json:"totalEnrollment" yaml:"totalEnrollment"`
	RuralClassification  string     `json:"ruralClassification" yaml:"ruralClassification"`
	Background           string     `json:"noteworthyBackground" yaml:"noteworthyBackground"`
	DistrictWebsite      string     `json:"districtWebsite" yaml:"districtWebsite"`
	LinkedInURL          string     `json:"personLinkedIn" yaml:"personLinkedIn"`
	ProfileURL           string     `json:"personProfileUrl" yaml:"personProfileUrl"`
	News                 []NewsItem `json:"news" yaml:"news"`
}
