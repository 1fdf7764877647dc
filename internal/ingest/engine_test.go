package ingest

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	appErrors "github.com/ipriyanshu25/fluentcrm-backend/internal/errors"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/model"
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("c%d", n)
	}
}

func ingestCSV(t *testing.T, existing []model.Contact, body string) *Result {
	t.Helper()
	r, err := NewReader("contacts.csv", strings.NewReader(body))
	require.NoError(t, err)
	defer r.Close()
	res, err := (&Engine{NewID: seqIDs()}).Ingest(existing, r)
	require.NoError(t, err)
	return res
}

func assertTally(t *testing.T, res *Result) {
	t.Helper()
	sum := len(res.Accepted) + res.Counts.Empty + res.Counts.Duplicate + res.Counts.InvalidEmail
	assert.Equal(t, res.Total, sum, "every row must be accepted or counted")
}

func TestIngestMergeScenario(t *testing.T) {
	existing := []model.Contact{{ContactID: "x1", Name: "Alice", Email: "a@x.com"}}

	res := ingestCSV(t, existing, "Bob,b@x.com\n\"\",\"\"\nAlice,a@x.com\n")

	require.Len(t, res.Accepted, 1)
	assert.Equal(t, model.Contact{ContactID: "c1", Name: "Bob", Email: "b@x.com"}, res.Accepted[0])
	assert.Equal(t, Counts{Empty: 1, Duplicate: 1}, res.Counts)
	assert.Equal(t, 3, res.Total)
	assertTally(t, res)
	assert.Len(t, existing, 1)
}

func TestIngestRowPolicy(t *testing.T) {
	body := strings.Join([]string{
		"  Carol  ,  CAROL@Example.com ",
		"carol again,carol@example.COM",
		"Dave,not-an-email",
		"   ,   ",
		"Eve,",
		",frank@example.com",
		"Gina",
		"Hank,hank@example.com,extra,columns",
	}, "\n")

	res := ingestCSV(t, nil, body)

	assert.Equal(t, 8, res.Total)
	assert.Equal(t, Counts{Empty: 1, Duplicate: 1, InvalidEmail: 1}, res.Counts)
	assertTally(t, res)

	var got []string
	for _, c := range res.Accepted {
		got = append(got, c.Name+"|"+c.Email)
	}
	assert.Equal(t, []string{
		"Carol|carol@example.com",
		"Eve|",
		"|frank@example.com",
		"Gina|",
		"Hank|hank@example.com",
	}, got)
}

func TestIngestIsIdempotent(t *testing.T) {
	body := "Bob,b@x.com\nCara,C@x.com\n"

	first := ingestCSV(t, nil, body)
	require.Len(t, first.Accepted, 2)

	second := ingestCSV(t, first.Accepted, body)
	assert.Empty(t, second.Accepted)
	assert.Equal(t, 2, second.Counts.Duplicate)
	assertTally(t, second)
}

func TestIngestCountsBlankCSVLines(t *testing.T) {
	res := ingestCSV(t, nil, "\nBob,b@x.com\n\n\nCara,c@x.com,\"note\nspans lines\"\n\nDan,d@x.com\n\n")

	require.Len(t, res.Accepted, 3)
	assert.Equal(t, []string{"Bob", "Cara", "Dan"}, []string{res.Accepted[0].Name, res.Accepted[1].Name, res.Accepted[2].Name})
	assert.Equal(t, Counts{Empty: 4}, res.Counts)
	assert.Equal(t, 7, res.Total)
	assertTally(t, res)
}

func TestIngestStripsByteOrderMark(t *testing.T) {
	res := ingestCSV(t, nil, "\ufeffBob,b@x.com\n")
	require.Len(t, res.Accepted, 1)
	assert.Equal(t, "Bob", res.Accepted[0].Name)
}

func TestIngestMalformedCSV(t *testing.T) {
	r, err := NewReader("broken.csv", strings.NewReader("Bob,\"b@x.com\nAlice,a@x.com\n"))
	require.NoError(t, err)

	_, err = NewEngine().Ingest(nil, r)
	assert.True(t, appErrors.Is(err, appErrors.KindValidation), "got %v", err)
}

func TestNewReaderRejectsUnknownExtensions(t *testing.T) {
	for _, name := range []string{"contacts.xls", "contacts.txt", "contacts", "contacts.csv.exe"} {
		_, err := NewReader(name, strings.NewReader("Bob,b@x.com"))
		assert.True(t, appErrors.Is(err, appErrors.KindUnsupportedFormat), "%s: got %v", name, err)
	}
}

func TestNewReaderExtensionIsCaseInsensitive(t *testing.T) {
	r, err := NewReader("CONTACTS.CSV", strings.NewReader("Bob,b@x.com"))
	require.NoError(t, err)
	r.Close()
}

func xlsxFile(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestIngestSpreadsheet(t *testing.T) {
	buf := xlsxFile(t, [][]interface{}{
		{"Bob", "b@x.com"},
		{"Alice", "A@X.com", "ignored"},
		{"Zed", "zed@"},
	})
	existing := []model.Contact{{ContactID: "x1", Name: "Alice", Email: "a@x.com"}}

	r, err := NewReader("upload.xlsx", buf)
	require.NoError(t, err)
	defer r.Close()

	res, err := (&Engine{NewID: seqIDs()}).Ingest(existing, r)
	require.NoError(t, err)

	require.Len(t, res.Accepted, 1)
	assert.Equal(t, "b@x.com", res.Accepted[0].Email)
	assert.Equal(t, Counts{Duplicate: 1, InvalidEmail: 1}, res.Counts)
	assertTally(t, res)
}

func TestCorruptSpreadsheet(t *testing.T) {
	_, err := NewReader("upload.xlsx", strings.NewReader("definitely not a zip"))
	assert.True(t, appErrors.Is(err, appErrors.KindValidation), "got %v", err)
}

func TestValidateContact(t *testing.T) {
	name, email, err := ValidateContact("  Bob ", " B@X.com ")
	require.NoError(t, err)
	assert.Equal(t, "Bob", name)
	assert.Equal(t, "b@x.com", email)

	_, _, err = ValidateContact(" ", "")
	assert.True(t, appErrors.Is(err, appErrors.KindValidation))

	_, _, err = ValidateContact("Bob", "bob@")
	assert.True(t, appErrors.Is(err, appErrors.KindValidation))
}
