package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeClassKey(t *testing.T) {
	cases := map[string]string{
		"11-Arts":        "11-arts",
		"11 - arts":      "11-arts",
		"11-ARTS":        "11-arts",
		"11 -Arts":       "11-arts",
		"  12 - Science": "12-science",
		"9":              "9",
		"10":             "10",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeClassKey(in), in)
	}
}

func TestNormalizeClassKeyEquivalentSpellings(t *testing.T) {
	base := NormalizeClassKey("11-Arts")
	for _, v := range []string{"11 - arts", "11-ARTS", "11  -  Arts", "11- arts"} {
		assert.Equal(t, base, NormalizeClassKey(v), v)
	}
}

func TestDefaultTable(t *testing.T) {
	tbl, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "Timing: 09:00 AM - 11:30 AM", tbl.Timing())
	assert.ElementsMatch(t, []string{"9", "10", "11-arts", "11-commerce", "12-arts", "12-commerce", "12-science"}, tbl.Keys())

	entries, ok := tbl.Lookup("9")
	require.True(t, ok)
	require.Len(t, entries, 7)
	assert.Equal(t, "SCT.", entries[0].Subject)
	assert.Equal(t, "Monday", entries[0].Day)
	assert.Equal(t, "2026-01-19", entries[0].Date.Format(DateLayout))
	assert.Equal(t, "SKT", entries[6].Subject)
}

func TestLookupIsNotFuzzy(t *testing.T) {
	tbl, err := Default()
	require.NoError(t, err)

	_, ok := tbl.Lookup("11 - Arts")
	assert.True(t, ok)

	for _, label := range []string{"11 Arts", "11-art", "Eleven-Arts", "13", ""} {
		_, ok := tbl.Lookup(label)
		assert.False(t, ok, label)
	}
}

func TestParseRejectsBadFiles(t *testing.T) {
	_, err := Parse([]byte("classes: {}"))
	assert.Error(t, err)

	_, err = Parse([]byte(`
start_time: "9"
end_time: "10"
classes:
  "9":
    - { subject: X, day: Monday, date: "19-01-2026" }
`))
	assert.ErrorContains(t, err, "bad date")

	_, err = Parse([]byte(`
start_time: "9"
end_time: "10"
classes:
  "11-Arts": []
  "11 - arts": []
`))
	assert.ErrorContains(t, err, "defined twice")
}

func TestNilTableLookup(t *testing.T) {
	var tbl *Table
	_, ok := tbl.Lookup("9")
	assert.False(t, ok)
}
