package enrich

import (
	"fmt"
	"strings"

	"github.com/sells-group/contact-research/internal/model"
)

const organizationShape = `{
  "districtWebsite": "<plain absolute URL of the official website if identifiable>",
  "intermediateSchoolDistrict": "<intermediate or regional district the organization belongs to>",
  "totalEnrollment": "<total enrollment estimate>",
  "ruralClassification": "<urban, suburban, town or rural classification>",
  "news": [
    {
      "title": "<headline>",
      "url": "<plain absolute article URL>",
      "summary": "<1-2 sentence summary>"
    }
  ]
}`

const personShape = `{
  "superintendentTenure": "<time in the current role, e.g. 'Since July 2019'>",
  "personLinkedIn": "<the individual's personal LinkedIn profile URL if highly confident; otherwise 'Unknown'>",
  "personProfileUrl": "<if LinkedIn is Unknown, the individual's profile or biography page URL on the official website; otherwise 'Unknown'>",
  "noteworthyBackground": "<multi-sentence summary about %s as %s at %s>"
}`

// OrganizationDirective builds the research directive for one organization.
func OrganizationDirective(name string, hints OrganizationHints) string {
	facts := []string{"School/District: " + name}
	if hints.State != "" {
		facts = append(facts, "State: "+hints.State)
	}
	if hints.NetworkProfileURL != "" {
		facts = append(facts, "School LinkedIn: "+hints.NetworkProfileURL)
	}

	lines := []string{
		"Use web search to find the official district website and recent credible news.",
		"Return ONLY one JSON object with these keys, no markdown and no prose. Omit any key you cannot determine:",
		organizationShape,
		"",
		"Context:",
	}
	lines = append(lines, bullets(facts)...)
	lines = append(lines,
		"",
		"Guidelines for news:",
		"- Up to 3 notable items from credible sources about the school/district in the last 12 months.",
		"- Give each article URL as a plain URL string (e.g. https://example.com/path), never as a markdown link.",
		"- Remove tracking query parameters (utm_*, ref, fbclid) from URLs.",
		"- If nothing credible is available, return an empty array [].",
		"",
		"Do NOT include citations, footnotes or markdown links anywhere in the output.",
	)
	return strings.Join(lines, "\n")
}

// PersonDirective builds the research directive for one contact. org may be
// nil when the contact has no organization or its research failed.
func PersonDirective(row model.ContactRow, org *model.OrganizationFacts) string {
	name := row.FullName()
	title := firstNonEmpty(row.Title, "the leader")
	orgName := firstNonEmpty(row.OrganizationKey(), model.Unknown)

	facts := []string{"Person: " + name}
	if row.Title != "" {
		facts = append(facts, "Title: "+row.Title)
	}
	if row.Email != "" {
		facts = append(facts, "Email: "+row.Email)
	}
	if row.City != "" {
		facts = append(facts, "City: "+row.City)
	}
	if row.State != "" {
		facts = append(facts, "State: "+row.State)
	}
	facts = append(facts, "School/District: "+orgName)
	if org != nil && org.Website != "" && org.Website != model.Unknown {
		facts = append(facts, "District Website: "+org.Website)
	}
	if row.OrganizationNetworkProfileURL != "" {
		facts = append(facts, "School LinkedIn: "+row.OrganizationNetworkProfileURL)
	}

	lines := []string{
		"Use web search to verify the individual's LinkedIn and summarize their background.",
		"Return ONLY one JSON object with these keys, no markdown and no prose. Omit any key you cannot determine:",
		fmt.Sprintf(personShape, name, title, orgName),
		"",
		"Context:",
	}
	lines = append(lines, bullets(facts)...)
	lines = append(lines,
		"",
		"Guidelines for personLinkedIn:",
		"- Never return the organization's LinkedIn page.",
		"- The name must match (common nicknames allowed) and the employer should match the school/district.",
		"- If not highly confident, return 'Unknown'.",
		"",
		"Fallback rule for profile URL:",
		"- If personLinkedIn is 'Unknown' but the district website is known, find a staff or leadership page for this person on that site and return its URL as personProfileUrl.",
		"- Use a plain absolute URL string.",
		"",
		"For noteworthyBackground, cover the current role, tenure, prior roles, education, initiatives and achievements. Avoid speculation.",
		"",
		"Do NOT include citations, footnotes or markdown links anywhere in the output.",
	)
	return strings.Join(lines, "\n")
}

func bullets(items []string) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = "- " + s
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
