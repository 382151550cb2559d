package pdftext

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFragmentsRejectsEmptyData(t *testing.T) {
	_, err := NewExtractor(nil).Fragments(nil)
	assert.Error(t, err)
}

func TestFragmentsRejectsGarbage(t *testing.T) {
	_, err := NewExtractor(nil).Fragments([]byte("not a pdf at all"))
	assert.Error(t, err)
}
