package promotion

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billhound/docstage/internal/common"
	"github.com/billhound/docstage/internal/entity"
	"github.com/billhound/docstage/internal/forms"
)

func docWithCategories(cats ...string) *entity.StagingDocument {
	doc := &entity.StagingDocument{}
	for _, c := range cats {
		doc.Lines = append(doc.Lines, entity.LineItem{Description: "item", Category: c})
	}
	return doc
}

func TestValidatePasses(t *testing.T) {
	g := NewGate(forms.BillSchema(), nil)
	assert.NoError(t, g.Validate(docWithCategories("Travel", "Meals"), false))
}

func TestValidateReportsFirstMissingLine(t *testing.T) {
	g := NewGate(forms.BillSchema(), nil)

	err := g.Validate(docWithCategories("Travel", "", ""), false)
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 2, verr.Line, "line numbers are 1-based and the first failure wins")
	assert.Contains(t, verr.Message, "line 2")
	assert.True(t, errors.Is(err, common.ErrValidation))
}

func TestValidateWhitespaceCategoryCountsAsMissing(t *testing.T) {
	g := NewGate(forms.BillSchema(), nil)

	err := g.Validate(docWithCategories("   "), false)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 1, verr.Line)
}

func TestValidateZeroLinesIsNotConfigured(t *testing.T) {
	g := NewGate(forms.BillSchema(), nil)

	err := g.Validate(docWithCategories(), false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNotConfigured))
	var verr *ValidationError
	assert.False(t, errors.As(err, &verr), "setup errors carry no line number")
}

func TestValidateMissingLineCollectionIsNotConfigured(t *testing.T) {
	g := NewGate(&forms.Schema{}, nil)

	err := g.Validate(docWithCategories("Travel"), false)
	assert.True(t, errors.Is(err, common.ErrNotConfigured))
}

func TestSkipAppliesToOneSaveOnly(t *testing.T) {
	g := NewGate(forms.BillSchema(), nil)
	bad := docWithCategories("")

	assert.NoError(t, g.Validate(bad, true), "skip lets this save through")
	assert.Error(t, g.Validate(bad, false), "skip does not persist past its own call")
}

func TestSkipDoesNotLeakAcrossDocuments(t *testing.T) {
	g := NewGate(forms.BillSchema(), nil)

	ok := docWithCategories("Travel")
	other := docWithCategories("")

	// Two saves racing through the same gate: a skip granted to one
	// document must not wave the other through.
	assert.NoError(t, g.Validate(ok, true))
	assert.Error(t, g.Validate(other, false))
}
