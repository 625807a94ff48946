package extract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contractorpay/invoice-reconciler/internal/extract"
	"github.com/contractorpay/invoice-reconciler/internal/models"
)

func findName(cands []models.Candidate[models.NameValue], name string) (models.Candidate[models.NameValue], bool) {
	for _, c := range cands {
		if c.Value.Name == name {
			return c, true
		}
	}
	return models.Candidate[models.NameValue]{}, false
}

func TestExtractNames_Labels(t *testing.T) {
	got := extract.ExtractNames("Contractor: Mike Ross\nProperty: Sunset Villa\n")

	staff, ok := findName(got, "Mike Ross")
	require.True(t, ok)
	assert.Equal(t, models.NameStaff, staff.Value.Type)
	assert.Equal(t, 90.0, staff.Confidence)

	prop, ok := findName(got, "Sunset Villa")
	require.True(t, ok)
	assert.Equal(t, models.NameProperty, prop.Value.Type)
	assert.Equal(t, 85.0, prop.Confidence)

	assert.Equal(t, "Mike Ross", got[0].Value.Name)
}

func TestExtractNames_Honorific(t *testing.T) {
	got := extract.ExtractNames("Work done by Mr. John Smith last week")
	c, ok := findName(got, "John Smith")
	require.True(t, ok)
	assert.Equal(t, 80.0, c.Confidence)
	assert.Equal(t, models.NameStaff, c.Value.Type)
}

func TestExtractNames_PropertyNameLabelIsNotStaff(t *testing.T) {
	got := extract.ExtractNames("Property Name: Oak House")
	c, ok := findName(got, "Oak House")
	require.True(t, ok)
	assert.Equal(t, models.NameProperty, c.Value.Type)
}

func TestExtractNames_StreetAddressIsProperty(t *testing.T) {
	got := extract.ExtractNames("Cleaning at 42 Harbor View Rd today")
	c, ok := findName(got, "42 Harbor View Rd")
	require.True(t, ok)
	assert.Equal(t, models.NameProperty, c.Value.Type)
	assert.Equal(t, 70.0, c.Confidence)
}

func TestExtractNames_CapitalizedSequences(t *testing.T) {
	got := extract.ExtractNames("thanks again\nMaria Elena Lopez\nInvoice Total Due")

	c, ok := findName(got, "Maria Elena Lopez")
	require.True(t, ok)
	assert.Equal(t, 55.0, c.Confidence)
	assert.Equal(t, models.NameUnknown, c.Value.Type)

	_, ok = findName(got, "Invoice Total Due")
	assert.False(t, ok)
}

func TestExtractNames_TrimsTrailingBoilerplate(t *testing.T) {
	got := extract.ExtractNames("Staff: Anna Berg Invoice")
	_, ok := findName(got, "Anna Berg")
	assert.True(t, ok)
}

func TestExtractNames_StreetWordsAreNotNames(t *testing.T) {
	got := extract.ExtractNames("45 Maple Avenue\nMike Rodriguez\n")

	_, ok := findName(got, "Maple")
	assert.False(t, ok)
	_, ok = findName(got, "Maple Avenue")
	assert.False(t, ok)

	c, ok := findName(got, "Mike Rodriguez")
	require.True(t, ok)
	assert.Equal(t, models.NameUnknown, c.Value.Type)
}

func TestExtractNames_UnknownNeedsTwoWords(t *testing.T) {
	got := extract.ExtractNames("Oakwood Avenue Cleaning\n")
	for _, c := range got {
		assert.NotEqual(t, models.NameUnknown, c.Value.Type, "unexpected %q", c.Value.Name)
	}
}

func TestExtractNames_OrderedByConfidence(t *testing.T) {
	got := extract.ExtractNames("Jane Porter\nContractor: Mike Ross\nMaria Elena Lopez\n42 Harbor View Rd\nMr. John Smith\nProperty: Sunset Villa\n")

	require.Len(t, got, 6)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Confidence, got[i].Confidence)
	}
	assert.Equal(t, "Mike Ross", got[0].Value.Name)
	assert.Equal(t, "Jane Porter", got[len(got)-1].Value.Name)
}

func TestExtractNames_DedupeIgnoresCase(t *testing.T) {
	got := extract.ExtractNames("Contractor: Mike Ross\nBilled by: MIKE ROSS\n")

	n := 0
	for _, c := range got {
		if extract.NormalizeName(c.Value.Name) == "mike ross" {
			n++
			assert.Equal(t, 90.0, c.Confidence)
			assert.Equal(t, models.NameStaff, c.Value.Type)
		}
	}
	assert.Equal(t, 1, n)
}
