package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExprTerms(t *testing.T) {
	tests := []struct {
		expr string
		want []string
	}{
		{"[VIN]", []string{"VIN"}},
		{"VIN", []string{"VIN"}},
		{"", nil},
		{`CREATE INDEX idx_person_govid ON public."Person" USING btree ("GovId")`, []string{"GovId"}},
		{`CREATE INDEX "idx_dl" ON "DriversLicense" ("LicenseNumber", "PersonId" DESC)`, []string{"LicenseNumber", "PersonId"}},
		{`CREATE INDEX i ON t USING btree (lower(email))`, nil},
		{`CREATE INDEX i ON t USING btree (a, lower(b), c text_pattern_ops)`, []string{"a", "c"}},
		{`CREATE INDEX i ON t (status) WHERE (pinned = 0)`, []string{"status"}},
		{`CREATE INDEX i ON t USING btree (id) INCLUDE (name)`, []string{"id"}},
		{`CREATE INDEX i ON t ("we""ird")`, []string{`we"ird`}},
		{"CREATE INDEX i ON t (`VIN`)", []string{"VIN"}},
		{`CREATE INDEX i ON t ("a"`, nil},
		{"lower(email)", nil},
		{"(VIN)", []string{"VIN"}},
		{`("GovId" DESC)`, []string{"GovId"}},
		{`create index i on t (vin)`, []string{"vin"}},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.want, ExprTerms(tt.expr))
		})
	}
}

func TestMatchPolicy(t *testing.T) {
	assert.True(t, MatchSubstring.matches("[LicensePlateNumber]", "Number"))
	assert.False(t, MatchExact.matches("[LicensePlateNumber]", "Number"))
	assert.True(t, MatchExact.matches(`CREATE INDEX i ON public."VehicleRegistration" USING btree ("VIN")`, "VIN"))
	// the table name is not an indexed term
	assert.False(t, MatchExact.matches(`CREATE INDEX i ON public."Person" USING btree ("GovId")`, "Person"))
	assert.True(t, MatchSubstring.matches(`CREATE INDEX i ON public."Person" USING btree ("GovId")`, "Person"))
}

func TestParseMatchPolicy(t *testing.T) {
	for in, want := range map[string]MatchPolicy{
		"":           MatchExact,
		"exact":      MatchExact,
		" Substring": MatchSubstring,
	} {
		got, err := ParseMatchPolicy(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseMatchPolicy("fuzzy")
	assert.Error(t, err)
}

func TestIndexRequest_Validate(t *testing.T) {
	for _, req := range Manifest {
		assert.NoError(t, req.Validate(), req.String())
	}
	assert.ErrorIs(t, IndexRequest{TableName: "a b", FieldName: "c"}.Validate(), ErrInvalidIdentifier)
	assert.ErrorIs(t, IndexRequest{TableName: "a", FieldName: "c-d"}.Validate(), ErrInvalidIdentifier)
}
