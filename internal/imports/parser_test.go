package imports

import (
	"testing"
	"time"

	"leadcrm_backend/platform/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newParser() *Parser {
	return NewParser(DefaultAliases, time.UTC)
}

func TestParseCSVWithAliasedHeaders(t *testing.T) {
	content := "\xef\xbb\xbfFull Name,Mobile No,Country,E-Mail,Course,Lead Source,Lead Status,Created At\n" +
		"Asha, 98765 43210 ,India,ASHA@Example.com,MBA,Facebook,Registered,2024-03-01\n" +
		"\n" +
		"Ben,555-0100,USA,,,,,\n"

	res, err := newParser().Parse("leads.csv", []byte(content))
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Empty(t, res.Skipped)

	first := res.Records[0]
	assert.Equal(t, 2, first.Row)
	assert.Equal(t, "Asha", first.Name)
	assert.Equal(t, "98765 43210", first.Phone)
	assert.Equal(t, "asha@example.com", first.Email)
	assert.Equal(t, "MBA", first.Product)
	assert.Equal(t, "Facebook", first.Source)
	assert.Equal(t, "Registered", first.Status)
	require.NotNil(t, first.Date)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), *first.Date)

	assert.Equal(t, 4, res.Records[1].Row)
	assert.Nil(t, res.Records[1].Date)
}

func TestParseCSVReportsIncompleteRows(t *testing.T) {
	content := "name;phone;country\n" +
		"Asha;123;India\n" +
		";456;India\n" +
		"Ben;;\n"

	res, err := newParser().Parse("leads.CSV", []byte(content))
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, Skipped{Row: 3, Reason: "missing name"}, res.Skipped[0])
	assert.Equal(t, Skipped{Row: 4, Reason: "missing phone, country"}, res.Skipped[1])
}

func TestParseSkipsRowsWithMalformedEmail(t *testing.T) {
	content := "name,phone,country,email\n" +
		"Asha,123,India,asha@example.com\n" +
		"Ben,456,India,not-an-email\n" +
		"Chen,789,India,\n"

	res, err := newParser().Parse("leads.csv", []byte(content))
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "Asha", res.Records[0].Name)
	assert.Equal(t, "Chen", res.Records[1].Name)
	assert.Empty(t, res.Records[1].Email)
	assert.Equal(t, []Skipped{{Row: 3, Reason: "invalid email"}}, res.Skipped)
}

func TestParseRejectsMissingRequiredColumns(t *testing.T) {
	_, err := newParser().Parse("leads.csv", []byte("name,email\nAsha,a@b.c\n"))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, []string{"phone", "country"}, appErr.Details)
}

func TestParseRejectsUnsupportedAndEmptyFiles(t *testing.T) {
	_, err := newParser().Parse("leads.pdf", []byte("x"))
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = newParser().Parse("leads.csv", []byte("\n\n"))
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"Name", "Phone", "Country", "Date"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"Asha", "123", "India", "45352"}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]interface{}{"<b>Ben</b>", "456", "UK", "05/03/2024"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	res, err := newParser().Parse("leads.xlsx", buf.Bytes())
	require.NoError(t, err)
	require.Len(t, res.Records, 2)

	assert.Equal(t, 3, res.Records[0].Row)
	require.NotNil(t, res.Records[0].Date)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), *res.Records[0].Date)

	assert.Equal(t, "Ben", res.Records[1].Name)
	require.NotNil(t, res.Records[1].Date)
	assert.Equal(t, time.March, res.Records[1].Date.Month())
	assert.Equal(t, 5, res.Records[1].Date.Day())
}

func TestParseDateVariants(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	cases := map[string]time.Time{
		"2024-03-01T10:00:00Z": time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC),
		"2024-03-01 10:30:00":  time.Date(2024, time.March, 1, 10, 30, 0, 0, loc),
		"01/03/2024":           time.Date(2024, time.March, 1, 0, 0, 0, 0, loc),
		"01.03.2024":           time.Date(2024, time.March, 1, 0, 0, 0, 0, loc),
		"1 Mar 2024":           time.Date(2024, time.March, 1, 0, 0, 0, 0, loc),
	}
	for raw, want := range cases {
		got, ok := ParseDate(raw, loc)
		require.True(t, ok, raw)
		assert.True(t, want.Equal(got), "%s: got %s want %s", raw, got, want)
	}

	_, ok := ParseDate("next tuesday", loc)
	assert.False(t, ok)
	_, ok = ParseDate("-3", loc)
	assert.False(t, ok)
}

func TestLoadAliasesRejectsConflicts(t *testing.T) {
	_, err := LoadAliases([]byte("name: [contact]\nphone: [contact]\n"))
	assert.Error(t, err)

	aliases, err := LoadAliases([]byte("phone: [Cell No]\n"))
	require.NoError(t, err)
	field, ok := aliases.Resolve("cell_no")
	assert.True(t, ok)
	assert.Equal(t, FieldPhone, field)
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("a.CSV"))
	assert.True(t, IsSupported("a.xlsx"))
	assert.False(t, IsSupported("a.xls"))
}
