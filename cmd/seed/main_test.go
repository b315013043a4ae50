package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSubjects(t *testing.T) {
	assert.Equal(t, []string{"science_fiction", "history"}, splitSubjects(" science_fiction, ,history,"))
	assert.Nil(t, splitSubjects(""))
}

func TestSampleCatalog_IsValid(t *testing.T) {
	for _, entry := range sampleCatalog {
		assert.NotEmpty(t, entry.name)
		for _, b := range entry.books {
			assert.GreaterOrEqual(t, len(b.title), 2, b.title)
			assert.GreaterOrEqual(t, b.year, 1000, b.title)
			assert.Positive(t, b.copies, b.title)
		}
	}
}
