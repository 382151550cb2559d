package duplicates

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billhound/docstage/internal/entity"
)

func rec(number string) *entity.StagingDocument {
	return &entity.StagingDocument{ID: uuid.New(), DocumentNumber: number}
}

func TestDuplicateKeys(t *testing.T) {
	records := []*entity.StagingDocument{
		rec("INV-1"), rec("INV-2"), rec("INV-1"), rec("INV-3"), rec("INV-1"),
	}
	keys := DuplicateKeys(records)
	assert.Len(t, keys, 1)
	assert.Contains(t, keys, "INV-1")
}

func TestAggregateFlagsAllMembersOfADuplicateSet(t *testing.T) {
	a, b, c := rec("INV-1"), rec("INV-1"), rec("INV-2")
	flags := Aggregate([]*entity.StagingDocument{a, b, c}, nil)

	for _, r := range []*entity.StagingDocument{a, b} {
		msg, ok := flags.Alert(r.ID)
		require.True(t, ok)
		assert.Equal(t, AlertDuplicate, msg)
	}
	_, ok := flags.Alert(c.ID)
	assert.False(t, ok)
}

func TestAggregateMissingNumberIsItsOwnSignal(t *testing.T) {
	missing := rec("")
	blank := rec("   ")
	flags := Aggregate([]*entity.StagingDocument{missing, blank, rec("INV-1")}, nil)

	for _, r := range []*entity.StagingDocument{missing, blank} {
		msg, ok := flags.Alert(r.ID)
		require.True(t, ok)
		assert.Equal(t, AlertMissingNumber, msg)
	}
}

func TestAggregateBlankNumbersNeverFormADuplicateSet(t *testing.T) {
	a, b := rec(""), rec("")
	flags := Aggregate([]*entity.StagingDocument{a, b}, nil)

	assert.Empty(t, flags.Duplicates, "two empty keys are not duplicates of each other")
	assert.Len(t, flags.MissingNumber, 2)
}

func TestAggregateRecordNeverInBothSets(t *testing.T) {
	records := []*entity.StagingDocument{rec("INV-1"), rec("INV-1"), rec("")}
	flags := Aggregate(records, nil)

	for _, r := range records {
		_, inDup := flags.Duplicates[r.ID]
		_, inMissing := flags.MissingNumber[r.ID]
		assert.False(t, inDup && inMissing)
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	flags := Aggregate(nil, nil)
	assert.Empty(t, flags.Duplicates)
	assert.Empty(t, flags.MissingNumber)
}
