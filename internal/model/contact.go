package model

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
)

// Unknown is the sentinel for any field the research could not determine.
const Unknown = "Unknown"

var validate = validator.New(validator.WithRequiredStructEnabled())

// ContactRow is a single CRM contact: a person tied to an organization.
// The csv tags match the column headers of the CRM export.
type ContactRow struct {
	FirstName                     string `json:"firstName" csv:"First Name" validate:"required"`
	LastName                      string `json:"lastName" csv:"Last Name" validate:"required"`
	Email                         string `json:"email,omitempty" csv:"Email,omitempty"`
	MobilePhone                   string `json:"mobilePhone,omitempty" csv:"Mobile Phone,omitempty"`
	WorkPhone                     string `json:"workPhone,omitempty" csv:"Work Phone,omitempty"`
	HomePhone                     string `json:"homePhone,omitempty" csv:"Home Phone,omitempty"`
	City                          string `json:"city,omitempty" csv:"City,omitempty"`
	State                         string `json:"state,omitempty" csv:"State,omitempty"`
	Title                         string `json:"title,omitempty" csv:"Title,omitempty"`
	OrganizationName              string `json:"organizationName,omitempty" csv:"Company,omitempty"`
	OrganizationSize              string `json:"organizationSize,omitempty" csv:"Company Size,omitempty"`
	OrganizationNetworkProfileURL string `json:"organizationNetworkProfileUrl,omitempty" csv:"Company LinkedIn,omitempty" validate:"omitempty,url"`
}

// Normalize trims surrounding whitespace from every field.
func (r *ContactRow) Normalize() {
	for _, f := range []*string{
		&r.FirstName, &r.LastName, &r.Email, &r.MobilePhone, &r.WorkPhone, &r.HomePhone,
		&r.City, &r.State, &r.Title, &r.OrganizationName, &r.OrganizationSize,
		&r.OrganizationNetworkProfileURL,
	} {
		*f = strings.TrimSpace(*f)
	}
}

// Validate checks the inbound contract: both names present and a well-formed
// network profile URL when one is given.
func (r ContactRow) Validate() error {
	if strings.TrimSpace(r.FirstName) == "" || strings.TrimSpace(r.LastName) == "" {
		return eris.New("contact: first and last name are required")
	}
	if err := validate.Struct(r); err != nil {
		return eris.Wrap(err, "contact: invalid row")
	}
	return nil
}

// FullName joins first and last name.
func (r ContactRow) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(r.FirstName) + " " + strings.TrimSpace(r.LastName))
}

// OrganizationKey is the dedup key for organization-level research. Empty
// means the row has no organization.
func (r ContactRow) OrganizationKey() string {
	return strings.TrimSpace(r.OrganizationName)
}

// Phone picks the best known number: work, then mobile, then home.
func (r ContactRow) Phone() string {
	for _, p := range []string{r.WorkPhone, r.MobilePhone, r.HomePhone} {
		if p = strings.TrimSpace(p); p != "" {
			return p
		}
	}
	return ""
}
