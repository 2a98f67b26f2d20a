// Package contact reads CRM contact exports and writes enriched results.
package contact

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/sells-group/contact-research/internal/model"
)

// ErrNoRows is returned when an export contains no usable contact.
var ErrNoRows = eris.New("contact: no valid rows")

// ReadCSV decodes a CRM export. Columns are matched by header name; unknown
// columns are ignored and missing ones stay empty. Rows without a first and
// last name are dropped. A malformed network profile URL is cleared rather
// than failing the row.
func ReadCSV(r io.Reader) ([]model.ContactRow, error) {
	cr := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, eris.Wrap(err, "contact: read header")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	dec, err := csvutil.NewDecoder(&fixedWidth{r: cr, n: len(header)}, header...)
	if err != nil {
		return nil, eris.Wrap(err, "contact: create decoder")
	}

	var rows []model.ContactRow
	skipped := 0
	for line := 2; ; line++ {
		var row model.ContactRow
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, eris.Wrapf(err, "contact: decode line %d", line)
		}

		row.Normalize()
		if row.FirstName == "" || row.LastName == "" {
			skipped++
			continue
		}
		if err := row.Validate(); err != nil {
			zap.L().Warn("contact: clearing invalid network profile url",
				zap.Int("line", line),
				zap.String("url", row.OrganizationNetworkProfileURL),
				zap.Error(err),
			)
			row.OrganizationNetworkProfileURL = ""
		}
		rows = append(rows, row)
	}

	if skipped > 0 {
		zap.L().Info("contact: skipped rows without a name", zap.Int("skipped", skipped))
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	return rows, nil
}

// fixedWidth pads or truncates records to the header width so ragged
// spreadsheet exports decode.
type fixedWidth struct {
	r *csv.Reader
	n int
}

func (f *fixedWidth) Read() ([]string, error) {
	rec, err := f.r.Read()
	if err != nil {
		return nil, err
	}
	switch {
	case len(rec) > f.n:
		rec = rec[:f.n]
	case len(rec) < f.n:
		rec = append(rec, make([]string, f.n-len(rec))...)
	}
	return rec, nil
}
