package imports

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Field is a canonical lead column.
type Field string

const (
	FieldName    Field = "name"
	FieldEmail   Field = "email"
	FieldPhone   Field = "phone"
	FieldCountry Field = "country"
	FieldProduct Field = "product"
	FieldSource  Field = "source"
	FieldStatus  Field = "status"
	FieldDate    Field = "date"
)

var requiredFields = []Field{FieldName, FieldPhone, FieldCountry}

//go:embed headers.yaml
var headersYAML []byte

// HeaderAliases resolves spreadsheet headers to canonical fields.
type HeaderAliases struct {
	lookup map[string]Field
}

// DefaultAliases is the embedded alias table.
var DefaultAliases = mustLoadAliases(headersYAML)

func mustLoadAliases(raw []byte) HeaderAliases {
	aliases, err := LoadAliases(raw)
	if err != nil {
		panic(fmt.Sprintf("imports: invalid embedded header table: %v", err))
	}
	return aliases
}

// LoadAliases parses a YAML document mapping field names to header aliases.
func LoadAliases(raw []byte) (HeaderAliases, error) {
	var table map[Field][]string
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return HeaderAliases{}, err
	}

	lookup := make(map[string]Field)
	for field, aliases := range table {
		lookup[normalizeHeader(string(field))] = field
		for _, alias := range aliases {
			key := normalizeHeader(alias)
			if existing, ok := lookup[key]; ok && existing != field {
				return HeaderAliases{}, fmt.Errorf("alias %q maps to both %s and %s", alias, existing, field)
			}
			lookup[key] = field
		}
	}
	return HeaderAliases{lookup: lookup}, nil
}

// Resolve returns the canonical field for a header cell.
func (a HeaderAliases) Resolve(header string) (Field, bool) {
	field, ok := a.lookup[normalizeHeader(header)]
	return field, ok
}

// columns maps each known field to its first matching column index.
func (a HeaderAliases) columns(header []string) map[Field]int {
	out := make(map[Field]int)
	for i, cell := range header {
		field, ok := a.Resolve(cell)
		if !ok {
			continue
		}
		if _, seen := out[field]; !seen {
			out[field] = i
		}
	}
	return out
}

func normalizeHeader(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch r {
		case ' ', '\t', '_', '-', '.':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
