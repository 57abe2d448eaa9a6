package render

import (
	"strings"
	"testing"

	"github.com/certcraft/certcraft/pkg/dataset"
)

func TestNewCertificate(t *testing.T) {
	tests := []struct {
		name           string
		completionDate string
		content        string
		entity         string
		holder         string
		errMsg         string
	}{
		{
			name: "valid", completionDate: "2024-05-01", content: "Go Fundamentals",
			entity: "Gopher Academy", holder: "Ada Lovelace",
		},
		{
			name: "missing completion date", content: "Go Fundamentals",
			entity: "Gopher Academy", holder: "Ada Lovelace",
			errMsg: `certificate field "completion_date" cannot be empty`,
		},
		{
			name: "missing content", completionDate: "2024-05-01",
			entity: "Gopher Academy", holder: "Ada Lovelace",
			errMsg: `certificate field "content" cannot be empty`,
		},
		{
			name: "missing entity", completionDate: "2024-05-01", content: "Go Fundamentals",
			holder: "Ada Lovelace",
			errMsg: `certificate field "entity" cannot be empty`,
		},
		{
			name: "missing name", completionDate: "2024-05-01", content: "Go Fundamentals",
			entity: "Gopher Academy",
			errMsg: `certificate field "name" cannot be empty`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cert, err := NewCertificate(tt.completionDate, tt.content, tt.entity, tt.holder)
			if tt.errMsg != "" {
				if err == nil {
					t.Error("NewCertificate() expected error but got none")
					return
				}
				if err.Error() != tt.errMsg {
					t.Errorf("NewCertificate() error = %q, want %q", err, tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Errorf("NewCertificate() unexpected error = %v", err)
				return
			}
			if cert.Name() != tt.holder {
				t.Errorf("Name() = %q, want %q", cert.Name(), tt.holder)
			}
		})
	}
}

func TestCertificate_WithersCopyValue(t *testing.T) {
	base, err := NewCertificate("2024-05-01", "Go Fundamentals", "Gopher Academy", "Ada Lovelace")
	if err != nil {
		t.Fatalf("NewCertificate() error = %v", err)
	}

	extended := base.WithDuration("40 hours").WithValidityChecker("https://verify.example.com/1")

	if base.Duration() != "" || base.ValidityChecker() != "" {
		t.Error("base certificate was mutated by a wither")
	}
	if extended.Duration() != "40 hours" {
		t.Errorf("Duration() = %q", extended.Duration())
	}
	if extended.ValidityChecker() != "https://verify.example.com/1" {
		t.Errorf("ValidityChecker() = %q", extended.ValidityChecker())
	}
}

func TestCertificate_Values(t *testing.T) {
	cert, err := NewCertificate("2024-05-01", "Go Fundamentals", "Gopher Academy", "Ada Lovelace")
	if err != nil {
		t.Fatalf("NewCertificate() error = %v", err)
	}

	values := cert.Values()
	if values[ColName] != "Ada Lovelace" || values[ColEntity] != "Gopher Academy" {
		t.Errorf("Values() = %v", values)
	}
	if _, ok := values[ColDuration]; ok {
		t.Error("Values() carries duration for a certificate without one")
	}

	values = cert.WithDuration("40 hours").Values()
	if values[ColDuration] != "40 hours" {
		t.Errorf("Values()[duration] = %q", values[ColDuration])
	}
}

func TestCertificateFromRow(t *testing.T) {
	row := dataset.Row{
		ColCompletionDate: "2024-05-01",
		ColContent:        "Go Fundamentals",
		ColEntity:         "Gopher Academy",
		ColName:           "Ada Lovelace",
		ColDuration:       "40 hours",
	}

	cert, err := CertificateFromRow(row)
	if err != nil {
		t.Fatalf("CertificateFromRow() error = %v", err)
	}
	if cert.Name() != "Ada Lovelace" || cert.Duration() != "40 hours" {
		t.Errorf("certificate = %+v", cert)
	}
	if cert.ValidityChecker() != "" {
		t.Errorf("ValidityChecker() = %q, want empty", cert.ValidityChecker())
	}
}

func TestCertificateFromRow_MissingColumn(t *testing.T) {
	row := dataset.Row{
		ColContent: "Go Fundamentals",
		ColEntity:  "Gopher Academy",
		ColName:    "Ada Lovelace",
	}

	_, err := CertificateFromRow(row)
	if err == nil {
		t.Fatal("CertificateFromRow() expected error but got none")
	}
	want := `row is missing required column "completion_date"`
	if err.Error() != want {
		t.Errorf("CertificateFromRow() error = %q, want %q", err, want)
	}
}

func TestCertificatesFromDataset_PreservesOrder(t *testing.T) {
	ds, err := dataset.New([]string{ColCompletionDate, ColContent, ColEntity, ColName})
	if err != nil {
		t.Fatalf("dataset.New() error = %v", err)
	}
	names := []string{"Ada Lovelace", "Grace Hopper", "Linus Torvalds"}
	for _, name := range names {
		if err := ds.AppendRow([]string{"2024-05-01", "Go Fundamentals", "Gopher Academy", name}); err != nil {
			t.Fatalf("AppendRow() error = %v", err)
		}
	}

	certs, err := CertificatesFromDataset(ds)
	if err != nil {
		t.Fatalf("CertificatesFromDataset() error = %v", err)
	}
	if len(certs) != len(names) {
		t.Fatalf("len(certs) = %d, want %d", len(certs), len(names))
	}
	for i, name := range names {
		if certs[i].Name() != name {
			t.Errorf("certs[%d].Name() = %q, want %q", i, certs[i].Name(), name)
		}
	}
}

func TestCertificatesFromDataset_BadRowNamesIndex(t *testing.T) {
	ds, err := dataset.New([]string{ColCompletionDate, ColContent, ColEntity, ColName})
	if err != nil {
		t.Fatalf("dataset.New() error = %v", err)
	}
	if err := ds.AppendRow([]string{"2024-05-01", "Go Fundamentals", "Gopher Academy", "Ada"}); err != nil {
		t.Fatal(err)
	}
	if err := ds.AppendRow([]string{"2024-05-01", "Go Fundamentals", "Gopher Academy", ""}); err != nil {
		t.Fatal(err)
	}

	_, err = CertificatesFromDataset(ds)
	if err == nil {
		t.Fatal("CertificatesFromDataset() expected error but got none")
	}
	if !strings.Contains(err.Error(), "row 1:") {
		t.Errorf("CertificatesFromDataset() error = %q, want it to name row 1", err)
	}
}
