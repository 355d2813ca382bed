package cmdutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coreremoting/coreremoting/internal/cli/output"
)

func TestGetOutputFormatParsed(t *testing.T) {
	tests := []struct {
		flagValue string
		expected  output.Format
		wantErr   bool
	}{
		{"table", output.FormatTable, false},
		{"json", output.FormatJSON, false},
		{"yaml", output.FormatYAML, false},
		{"invalid", output.FormatTable, true},
	}

	for _, tt := range tests {
		t.Run(tt.flagValue, func(t *testing.T) {
			Flags.Output = tt.flagValue
			result, err := GetOutputFormatParsed()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestIsColorDisabled(t *testing.T) {
	Flags.NoColor = true
	assert.True(t, IsColorDisabled())

	Flags.NoColor = false
	assert.False(t, IsColorDisabled())
}

type testTableRenderer struct {
	headers []string
	rows    [][]string
}

func (t testTableRenderer) Headers() []string { return t.headers }
func (t testTableRenderer) Rows() [][]string  { return t.rows }

func TestPrintResource_JSON(t *testing.T) {
	Flags.Output = "json"
	data := []string{"foo", "bar"}
	renderer := testTableRenderer{headers: []string{"NAME"}, rows: [][]string{{"foo"}, {"bar"}}}

	err := PrintResource(data, renderer)
	assert.NoError(t, err)
}

func TestPrintResource_Table(t *testing.T) {
	Flags.Output = "table"
	data := []string{"foo", "bar"}
	renderer := testTableRenderer{headers: []string{"NAME"}, rows: [][]string{{"foo"}, {"bar"}}}

	err := PrintResource(data, renderer)
	assert.NoError(t, err)
}
