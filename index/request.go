package index

import (
	"fmt"
	"regexp"
)

// IndexRequest names one table field that must be indexed.
type IndexRequest struct {
	TableName string `json:"table"`
	FieldName string `json:"field"`
}

func (r IndexRequest) String() string {
	return fmt.Sprintf("%s(%s)", r.TableName, r.FieldName)
}

// IndexAction is the outcome of ensuring one request.
type IndexAction int

const (
	Created IndexAction = iota + 1
	AlreadyExists
)

func (a IndexAction) String() string {
	switch a {
	case Created:
		return "created"
	case AlreadyExists:
		return "already_exists"
	}
	return "unknown"
}

// Manifest is the list of indexes the vehicle registration ledger needs.
var Manifest = []IndexRequest{
	{TableName: "VehicleRegistration", FieldName: "VIN"},
	{TableName: "VehicleRegistration", FieldName: "LicensePlateNumber"},
	{TableName: "Vehicle", FieldName: "VIN"},
	{TableName: "Person", FieldName: "GovId"},
	{TableName: "DriversLicense", FieldName: "LicenseNumber"},
	{TableName: "DriversLicense", FieldName: "PersonId"},
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks that both names are plain identifiers. DDL cannot bind
// identifiers as parameters, so anything else is refused before it reaches
// a statement.
func (r IndexRequest) Validate() error {
	if !identifier.MatchString(r.TableName) {
		return fmt.Errorf("%w: table %q", ErrInvalidIdentifier, r.TableName)
	}
	if !identifier.MatchString(r.FieldName) {
		return fmt.Errorf("%w: field %q", ErrInvalidIdentifier, r.FieldName)
	}
	return nil
}
