package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNullableEmptyStringMapsToNilPointer(t *testing.T) {
	assert.Nil(t, nullable(""))
}

func TestNullableNonEmptyStringIsPreserved(t *testing.T) {
	p := nullable("LLM_FAILURE")
	if assert.NotNil(t, p) {
		assert.Equal(t, "LLM_FAILURE", *p)
	}
}
