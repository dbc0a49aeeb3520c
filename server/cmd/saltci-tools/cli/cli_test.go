package cli

import (
	"io"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAskForConfirmation(t *testing.T) {
	Stdout = log.New(io.Discard, "", 0)
	defer func() { Stdin = strings.NewReader("") }()

	tests := []struct {
		input    string
		expected bool
	}{
		{input: "Y\n", expected: true},
		{input: "N\n", expected: false},
		{input: "no\n", expected: false},
		{input: "y\nmaybe\nY\n", expected: true},
		{input: "yes\nNO\n", expected: false},
		{input: "", expected: false},
		{input: "Y", expected: true},
	}
	for _, test := range tests {
		Stdin = strings.NewReader(test.input)
		require.Equal(t, test.expected, AskForConfirmation("Are you sure?", false), "input %q", test.input)
	}

	Stdin = strings.NewReader("")
	require.True(t, AskForConfirmation("Are you sure?", true))
}
