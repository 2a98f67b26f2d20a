package batch

import (
	"github.com/sells-group/contact-research/internal/model"
	"github.com/sells-group/contact-research/internal/sanitize"
)

// Merge combines a contact row with its organization and person facts. CRM
// values from the row win; research only fills the gaps. Nil facts are
// treated as entirely unknown.
func Merge(row model.ContactRow, org *model.OrganizationFacts, person *model.PersonFacts) model.EnrichedRecord {
	o := model.DefaultOrganizationFacts()
	if org != nil {
		o = *org
	}
	p := model.DefaultPersonFacts()
	if person != nil {
		p = *person
	}

	news := make([]model.NewsItem, 0, len(o.News))
	for _, n := range o.News {
		news = append(news, model.NewsItem{
			Title:   known(n.Title),
			URL:     known(n.URL),
			Summary: known(n.Summary),
		})
	}

	return model.EnrichedRecord{
		DistrictName:         known(row.OrganizationKey()),
		FullName:             known(row.FullName()),
		Title:                known(row.Title),
		Tenure:               known(p.Tenure),
		IntermediateDistrict: known(o.IntermediateDistrict),
		Phone:                known(row.Phone()),
		Email:                known(row.Email),
		TotalEnrollment:      known(row.OrganizationSize, o.TotalEnrollment),
		RuralClassification:  known(o.RuralClassification),
		Background:           known(p.Background),
		DistrictWebsite:      known(o.Website),
		LinkedInURL:          known(p.LinkedInURL),
		ProfileURL:           known(p.ProfileURL),
		News:                 news,
	}
}

// known returns the first candidate that is non-empty after sanitizing, or
// model.Unknown.
func known(candidates ...string) string {
	for _, c := range candidates {
		if s := sanitize.Text(c); s != "" {
			return s
		}
	}
	return model.Unknown
}
