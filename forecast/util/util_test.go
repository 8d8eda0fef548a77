package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndentExpand(t *testing.T) {
	testData := map[string]struct {
		indent   string
		growth   int
		expected string
	}{
		"no growth":   {indent: "  ", growth: 0, expected: ""},
		"single":      {indent: "--", growth: 1, expected: "--"},
		"triple":      {indent: "ab", growth: 3, expected: "ababab"},
		"empty input": {indent: "", growth: 4, expected: ""},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, IndentExpand(td.indent, td.growth))
		})
	}
}
