package contact

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/contact-research/internal/model"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatYAML = "yaml"
)

// FormatFromPath infers the output format from a file extension, defaulting
// to JSON.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".xlsx":
		return FormatXLSX
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Write encodes records to w in the given format.
func Write(w io.Writer, format string, records []model.EnrichedRecord) error {
	if records == nil {
		records = []model.EnrichedRecord{}
	}
	switch strings.ToLower(format) {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(records), "contact: encode json")
	case FormatYAML, "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return eris.Wrap(err, "contact: encode yaml")
		}
		return eris.Wrap(enc.Close(), "contact: close yaml")
	case FormatCSV:
		return writeCSV(w, records)
	case FormatXLSX:
		return writeXLSX(w, records)
	default:
		return eris.Errorf("contact: unknown format %q", format)
	}
}

// flatRecord is an EnrichedRecord with news collapsed into one column, for
// tabular formats.
type flatRecord struct {
	DistrictName         string `csv:"School District"`
	FullName             string `csv:"Superintendent"`
	Title                string `csv:"Title"`
	Tenure               string `csv:"Tenure"`
	IntermediateDistrict string `csv:"Intermediate School District"`
	Phone                string `csv:"Phone"`
	Email                string `csv:"Email"`
	TotalEnrollment      string `csv:"Total Enrollment"`
	RuralClassification  string `csv:"Rural Classification"`
	Background           string `csv:"Noteworthy Background"`
	DistrictWebsite      string `csv:"District Website"`
	LinkedInURL          string `csv:"LinkedIn"`
	ProfileURL           string `csv:"Profile"`
	News                 string `csv:"News"`
}

func flatten(records []model.EnrichedRecord) []flatRecord {
	out := make([]flatRecord, 0, len(records))
	for _, r := range records {
		news := make([]string, 0, len(r.News))
		for _, n := range r.News {
			news = append(news, n.Title+" ("+n.URL+"): "+n.Summary)
		}
		out = append(out, flatRecord{
			DistrictName:         r.DistrictName,
			FullName:             r.FullName,
			Title:                r.Title,
			Tenure:               r.Tenure,
			IntermediateDistrict: r.IntermediateDistrict,
			Phone:                r.Phone,
			Email:                r.Email,
			TotalEnrollment:      r.TotalEnrollment,
			RuralClassification:  r.RuralClassification,
			Background:           r.Background,
			DistrictWebsite:      r.DistrictWebsite,
			LinkedInURL:          r.LinkedInURL,
			ProfileURL:           r.ProfileURL,
			News:                 strings.Join(news, " | "),
		})
	}
	return out
}

func writeCSV(w io.Writer, records []model.EnrichedRecord) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if len(records) == 0 {
		if err := enc.EncodeHeader(flatRecord{}); err != nil {
			return eris.Wrap(err, "contact: encode csv header")
		}
	}
	for _, r := range flatten(records) {
		if err := enc.Encode(r); err != nil {
			return eris.Wrap(err, "contact: encode csv")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "contact: flush csv")
}

func writeXLSX(w io.Writer, records []model.EnrichedRecord) error {
	// Reuse the CSV layout so both tabular formats share columns.
	var buf bytes.Buffer
	if err := writeCSV(&buf, records); err != nil {
		return err
	}
	table, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		return eris.Wrap(err, "contact: reread csv")
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Results")
	if err != nil {
		return eris.Wrap(err, "contact: add sheet")
	}
	for _, cells := range table {
		row := sheet.AddRow()
		for _, v := range cells {
			row.AddCell().SetString(v)
		}
	}
	return eris.Wrap(f.Write(w), "contact: write xlsx")
}
