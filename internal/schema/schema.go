// Package schema defines the fixed per-document-type extraction schemas
// and the legal checklists the reasoning stage evaluates against.
package schema

import (
	"propveris/internal/domain"
)

// FieldSpec describes one field a document type's schema requires.
type FieldSpec struct {
	Name string
	Kind domain.FieldKind
	// Roles are the extractor role labels that may carry this field.
	Roles []string
	// Aliases are alternate field names the extractor may emit.
	Aliases []string
}

// Schema is the full extraction schema for one document type.
type Schema struct {
	DocumentType domain.DocumentType
	Fields       []FieldSpec
	// Checklist is the fixed list of clauses and considerations a
	// well-formed document of this type should contain. It is rendered
	// into the reasoning prompt verbatim.
	Checklist []string
}

var schemas = map[domain.DocumentType]*Schema{
	domain.DocTypeRentAgreement: {
		DocumentType: domain.DocTypeRentAgreement,
		Fields: []FieldSpec{
			{Name: "landlord", Kind: domain.FieldKindText, Roles: []string{"party_name"}, Aliases: []string{"lessor", "owner"}},
			{Name: "tenant", Kind: domain.FieldKindText, Roles: []string{"party_name"}, Aliases: []string{"lessee"}},
			{Name: "property_address", Kind: domain.FieldKindText, Roles: []string{"address"}, Aliases: []string{"premises", "property"}},
			{Name: "term", Kind: domain.FieldKindText, Roles: []string{"clause_value"}, Aliases: []string{"lease_term", "duration"}},
			{Name: "rent_amount", Kind: domain.FieldKindMoney, Roles: []string{"amount"}, Aliases: []string{"monthly_rent", "rent"}},
			{Name: "security_deposit", Kind: domain.FieldKindMoney, Roles: []string{"amount"}, Aliases: []string{"deposit"}},
			{Name: "rent_due_date", Kind: domain.FieldKindText, Roles: []string{"clause_value"}, Aliases: []string{"due_date"}},
			{Name: "agreement_date", Kind: domain.FieldKindDate, Roles: []string{"date"}, Aliases: []string{"execution_date", "date_of_agreement"}},
		},
		Checklist: []string{
			"11-month lease clause compliance",
			"Stamp duty presence",
			"Signature verification for both parties",
			"Essential clauses: rent, security deposit, maintenance responsibility",
			"Rent escalation and renewal terms",
			"Termination and notice period clauses",
		},
	},
	domain.DocTypeTitleDeed: {
		DocumentType: domain.DocTypeTitleDeed,
		Fields: []FieldSpec{
			{Name: "owner", Kind: domain.FieldKindText, Roles: []string{"party_name"}, Aliases: []string{"proprietor", "grantee"}},
			{Name: "property_details", Kind: domain.FieldKindText, Roles: []string{"address", "clause_value"}, Aliases: []string{"property", "plot"}},
			{Name: "survey_number", Kind: domain.FieldKindText, Roles: []string{"clause_value"}, Aliases: []string{"plot_number", "survey_no"}},
			{Name: "registration_date", Kind: domain.FieldKindDate, Roles: []string{"date"}, Aliases: []string{"date_of_registration"}},
			{Name: "consideration_amount", Kind: domain.FieldKindMoney, Roles: []string{"amount"}, Aliases: []string{"sale_consideration", "consideration"}},
		},
		Checklist: []string{
			"Clear title verification",
			"Boundary details and schedule of property",
			"Registration compliance and registration number",
			"Encumbrance status",
			"Chain of ownership documentation",
		},
	},
	domain.DocTypeNOC: {
		DocumentType: domain.DocTypeNOC,
		Fields: []FieldSpec{
			{Name: "applicant", Kind: domain.FieldKindText, Roles: []string{"party_name"}, Aliases: []string{"name"}},
			{Name: "purpose", Kind: domain.FieldKindText, Roles: []string{"clause_value"}, Aliases: []string{"reason"}},
			{Name: "issuing_authority", Kind: domain.FieldKindText, Roles: []string{"party_name", "clause_value"}, Aliases: []string{"authority", "issuer"}},
			{Name: "issue_date", Kind: domain.FieldKindDate, Roles: []string{"date"}, Aliases: []string{"date_of_issue"}},
			{Name: "validity_period", Kind: domain.FieldKindText, Roles: []string{"clause_value"}, Aliases: []string{"validity"}},
		},
		Checklist: []string{
			"Authority signature verification",
			"Purpose clarity",
			"Validity period stated",
			"Conditions and restrictions",
			"Legal authorization of the issuing authority",
		},
	},
}

// ForType returns the schema for a document type, or nil if the type is
// not one of the supported kinds.
func ForType(t domain.DocumentType) *Schema {
	return schemas[t]
}

// FieldNames returns the schema's field names in declaration order.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// RelevantRoles returns the set of extractor role labels that can carry
// any field of this schema. Spans with other roles are filtered out
// before normalization.
func (s *Schema) RelevantRoles() map[string]bool {
	roles := make(map[string]bool)
	for _, f := range s.Fields {
		for _, r := range f.Roles {
			roles[r] = true
		}
	}
	return roles
}
