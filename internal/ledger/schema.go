package ledger

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"smartbudget/internal/core"
)

// Canonical field names.
const (
	FieldDate        = "date"
	FieldConcept     = "concept"
	FieldAmount      = "amount"
	FieldDescription = "description"
)

// Value is the coerced form of one cell. Only the member matching the field kind is set.
type Value struct {
	Text   string
	Time   time.Time
	Number float64
}

// Field declares one ledger column: the names it may appear under, whether
// the ledger is unusable without it, and how a raw cell is coerced.
// Coerce reports false when the cell cannot be interpreted.
type Field struct {
	Name     string
	Aliases  []string
	Required bool
	Coerce   func(raw string) (Value, bool)
}

// Describe renders the field for user facing messages, e.g. "date (fecha|date)".
func (f Field) Describe() string {
	return f.Name + " (" + strings.Join(f.Aliases, "|") + ")"
}

// Schema is the declarative field mapping consumed by the Normalizer.
type Schema struct {
	Fields []Field
}

// DateOptions tunes lenient date parsing.
type DateOptions struct {
	// DayFirst reads ambiguous numeric dates such as 03/04/2025 as 3 April.
	DayFirst bool
}

// DefaultSchema declares the bilingual ledger columns.
func DefaultSchema(opts DateOptions) Schema {
	return Schema{Fields: []Field{
		{
			Name:     FieldDate,
			Aliases:  []string{"fecha", "date"},
			Required: true,
			Coerce: func(raw string) (Value, bool) {
				t, ok := ParseDate(raw, opts)
				return Value{Time: t}, ok
			},
		},
		{
			Name:     FieldConcept,
			Aliases:  []string{"concepto", "concept"},
			Required: true,
			Coerce:   coerceText,
		},
		{
			Name:     FieldAmount,
			Aliases:  []string{"monto", "amount", "importe"},
			Required: true,
			Coerce: func(raw string) (Value, bool) {
				f, ok := ParseAmount(raw)
				return Value{Number: f}, ok
			},
		},
		{
			Name:     FieldDescription,
			Aliases:  []string{"descripcion", "descripción", "description"},
			Required: false,
			Coerce:   coerceText,
		},
	}}
}

func coerceText(raw string) (Value, bool) {
	return Value{Text: NormalizeText(raw)}, true
}

// Field returns the declaration named name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Columns maps canonical field names to header positions.
type Columns map[string]int

// Resolve matches the header against the schema. Header names are compared
// case and whitespace insensitively; the first matching column wins.
// It returns a *core.SchemaError naming every required field that is absent.
func (s Schema) Resolve(header []string) (Columns, error) {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if _, seen := byName[key]; !seen {
			byName[key] = i
		}
	}

	cols := Columns{}
	var missing, optional []string
	for _, f := range s.Fields {
		if !f.Required {
			optional = append(optional, f.Describe())
		}
		for _, alias := range f.Aliases {
			if i, ok := byName[normalizeHeader(alias)]; ok {
				cols[f.Name] = i
				break
			}
		}
		if _, ok := cols[f.Name]; !ok && f.Required {
			missing = append(missing, f.Describe())
		}
	}
	if len(missing) > 0 {
		return nil, &core.SchemaError{Missing: missing, Optional: optional}
	}
	return cols, nil
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(h)))
}
