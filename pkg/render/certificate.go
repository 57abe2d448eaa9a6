package render

import (
	"fmt"

	"github.com/certcraft/certcraft/pkg/dataset"
)

// Column names recognized by CertificateFromRow.
const (
	ColCompletionDate  = "completion_date"
	ColContent         = "content"
	ColEntity          = "entity"
	ColName            = "name"
	ColDuration        = "duration"
	ColValidityChecker = "validity_checker"
)

// requiredCertColumns is the check order for missing-column errors.
var requiredCertColumns = []string{ColCompletionDate, ColContent, ColEntity, ColName}

// Certificate is an immutable completion record. Duration and the validity
// checker URL are optional; everything else is required.
type Certificate struct {
	completionDate  string
	content         string
	entity          string
	name            string
	duration        string
	validityChecker string
}

// NewCertificate creates a Certificate from its required fields.
func NewCertificate(completionDate, content, entity, name string) (Certificate, error) {
	for _, f := range []struct{ label, value string }{
		{ColCompletionDate, completionDate},
		{ColContent, content},
		{ColEntity, entity},
		{ColName, name},
	} {
		if f.value == "" {
			return Certificate{}, fmt.Errorf("certificate field %q cannot be empty", f.label)
		}
	}

	return Certificate{
		completionDate: completionDate,
		content:        content,
		entity:         entity,
		name:           name,
	}, nil
}

// WithDuration returns a copy of the certificate with the duration set.
func (c Certificate) WithDuration(duration string) Certificate {
	c.duration = duration
	return c
}

// WithValidityChecker returns a copy of the certificate with the validity
// checker URL set.
func (c Certificate) WithValidityChecker(url string) Certificate {
	c.validityChecker = url
	return c
}

// CompletionDate returns the completion date.
func (c Certificate) CompletionDate() string { return c.completionDate }

// Content returns the certified content.
func (c Certificate) Content() string { return c.content }

// Entity returns the issuing entity.
func (c Certificate) Entity() string { return c.entity }

// Name returns the holder's name.
func (c Certificate) Name() string { return c.name }

// Duration returns the optional duration, or "" when unset.
func (c Certificate) Duration() string { return c.duration }

// ValidityChecker returns the optional validity checker URL, or "" when
// unset.
func (c Certificate) ValidityChecker() string { return c.validityChecker }

// Values exposes the certificate as a render mapping. Optional fields are
// present only when set, so templates that reference them fail loudly when
// the data does not carry them.
func (c Certificate) Values() map[string]string {
	values := map[string]string{
		ColCompletionDate: c.completionDate,
		ColContent:        c.content,
		ColEntity:         c.entity,
		ColName:           c.name,
	}
	if c.duration != "" {
		values[ColDuration] = c.duration
	}
	if c.validityChecker != "" {
		values[ColValidityChecker] = c.validityChecker
	}
	return values
}

// CertificateFromRow maps a dataset row to a Certificate. The first missing
// or empty required column fails with a data error naming it.
func CertificateFromRow(row dataset.Row) (Certificate, error) {
	for _, col := range requiredCertColumns {
		if row[col] == "" {
			return Certificate{}, fmt.Errorf("row is missing required column %q", col)
		}
	}

	cert, err := NewCertificate(row[ColCompletionDate], row[ColContent], row[ColEntity], row[ColName])
	if err != nil {
		return Certificate{}, err
	}
	if d := row[ColDuration]; d != "" {
		cert = cert.WithDuration(d)
	}
	if v := row[ColValidityChecker]; v != "" {
		cert = cert.WithValidityChecker(v)
	}
	return cert, nil
}

// CertificatesFromDataset maps every row to a Certificate, preserving row
// order. A bad row fails the whole batch with its index.
func CertificatesFromDataset(ds *dataset.Dataset) ([]Certificate, error) {
	certs := make([]Certificate, 0, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		row, err := ds.Row(i)
		if err != nil {
			return nil, err
		}
		cert, err := CertificateFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		certs = append(certs, cert)
	}
	return certs, nil
}
