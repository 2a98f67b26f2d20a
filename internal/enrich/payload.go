package enrich

import (
	"net/url"
	"strings"

	"github.com/sells-group/contact-research/internal/model"
	"github.com/sells-group/contact-research/internal/sanitize"
)

// MaxNewsItems caps the news attached to an organization.
const MaxNewsItems = 3

// Wire shapes of the model's JSON answers. Pointer fields distinguish an
// absent key from an empty string.

type newsPayload struct {
	Title   *string `json:"title" validate:"required"`
	URL     *string `json:"url" validate:"required"`
	Summary *string `json:"summary" validate:"required"`
}

type organizationPayload struct {
	DistrictWebsite            *string       `json:"districtWebsite"`
	IntermediateSchoolDistrict *string       `json:"intermediateSchoolDistrict"`
	TotalEnrollment            *string       `json:"totalEnrollment"`
	RuralClassification        *string       `json:"ruralClassification"`
	News                       []newsPayload `json:"news" validate:"omitempty,dive"`
}

type personPayload struct {
	SuperintendentTenure *string `json:"superintendentTenure"`
	PersonLinkedIn       *string `json:"personLinkedIn"`
	PersonProfileURL     *string `json:"personProfileUrl"`
	NoteworthyBackground *string `json:"noteworthyBackground"`
}

func (p organizationPayload) facts() model.OrganizationFacts {
	facts := model.OrganizationFacts{
		Website:              urlOrUnknown(p.DistrictWebsite),
		IntermediateDistrict: textOrUnknown(p.IntermediateSchoolDistrict),
		TotalEnrollment:      textOrUnknown(p.TotalEnrollment),
		RuralClassification:  textOrUnknown(p.RuralClassification),
		News:                 make([]model.NewsItem, 0, MaxNewsItems),
	}

	for _, n := range p.News {
		if len(facts.News) == MaxNewsItems {
			break
		}
		title := sanitize.Text(deref(n.Title))
		link := sanitize.URL(deref(n.URL))
		if isUnknown(title) && link == "" {
			continue
		}
		facts.News = append(facts.News, model.NewsItem{
			Title:   orUnknown(title),
			URL:     orUnknown(link),
			Summary: textOrUnknown(n.Summary),
		})
	}
	return facts
}

func (p personPayload) facts() model.PersonFacts {
	return model.PersonFacts{
		Tenure:      textOrUnknown(p.SuperintendentTenure),
		LinkedInURL: orUnknown(personalLinkedIn(deref(p.PersonLinkedIn))),
		ProfileURL:  urlOrUnknown(p.PersonProfileURL),
		Background:  textOrUnknown(p.NoteworthyBackground),
	}
}

// personalLinkedIn keeps only LinkedIn member profiles. Organization pages
// and non-LinkedIn URLs yield "".
func personalLinkedIn(raw string) string {
	clean := sanitize.URL(raw)
	if clean == "" {
		return ""
	}
	u, err := url.Parse(clean)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host != "linkedin.com" && !strings.HasSuffix(host, ".linkedin.com") {
		return ""
	}
	path := strings.ToLower(u.Path)
	for _, prefix := range []string{"/company/", "/school/", "/showcase/"} {
		if strings.HasPrefix(path, prefix) {
			return ""
		}
	}
	return clean
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func textOrUnknown(s *string) string {
	return orUnknown(sanitize.Text(deref(s)))
}

func urlOrUnknown(s *string) string {
	return orUnknown(sanitize.URL(deref(s)))
}

// isUnknown matches empty values and the placeholders models answer with
// when they found nothing.
func isUnknown(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unknown", "n/a", "none", "null":
		return true
	}
	return false
}

func orUnknown(s string) string {
	if isUnknown(s) {
		return model.Unknown
	}
	return s
}
