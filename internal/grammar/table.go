package grammar

import (
	"fmt"
	"sort"
	"strings"
)

// Table is a compiled choice table: spoken forms mapped to output values.
type Table struct {
	name    string
	entries map[string]string
	forms   []tableForm
}

type tableForm struct {
	words []string
	value string
}

// NewTable compiles entries, expanding alternatives such as "(asterisk|asterix)".
//
// Spoken keys must be unique both as written and after expansion.
func NewTable(name string, entries map[string]string) (*Table, error) {
	t := &Table{name: name, entries: make(map[string]string, len(entries))}

	keys := sortedKeys(entries)
	written := make(map[string]string, len(keys))
	owners := make(map[string]string, len(keys))
	for _, key := range keys {
		normalized := strings.Join(strings.Fields(strings.ToLower(key)), " ")
		if prev, exists := written[normalized]; exists {
			return nil, fmt.Errorf("table %q: spoken key %q duplicates %q", name, key, prev)
		}
		written[normalized] = key

		expr, err := compilePattern(key)
		if err != nil {
			return nil, fmt.Errorf("table %q: key %q: %w", name, key, err)
		}
		forms, err := expandForms(expr)
		if err != nil {
			return nil, fmt.Errorf("table %q: key %q: %w", name, key, err)
		}
		for _, form := range forms {
			if len(form) == 0 {
				return nil, fmt.Errorf("table %q: key %q can be spoken as nothing", name, key)
			}
			spoken := strings.Join(form, " ")
			if prev, exists := owners[spoken]; exists {
				return nil, fmt.Errorf("table %q: spoken form %q is produced by both %q and %q", name, spoken, prev, key)
			}
			owners[spoken] = key
			t.forms = append(t.forms, tableForm{words: form, value: entries[key]})
		}
		t.entries[key] = entries[key]
	}

	sort.SliceStable(t.forms, func(i, j int) bool {
		return len(t.forms[i].words) > len(t.forms[j].words)
	})
	return t, nil
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Len reports the number of spoken keys before expansion.
func (t *Table) Len() int { return len(t.entries) }

// Entries returns a copy of the spoken key to value mapping.
func (t *Table) Entries() map[string]string {
	out := make(map[string]string, len(t.entries))
	for k, v := range t.entries {
		out[k] = v
	}
	return out
}

// Lookup resolves one concrete spoken form.
func (t *Table) Lookup(spoken string) (string, bool) {
	want := strings.Fields(normalizePhrase(spoken))
	for _, form := range t.forms {
		if equalWords(form.words, want) {
			return form.value, true
		}
	}
	return "", false
}

// DeriveUppercase returns a fresh table mapping prefix+" "+key to the uppercase value.
// Keys are used exactly as written. Surrounding spaces on prefix are trimmed, so "biz"
// and "biz " both yield "biz acid". base is not modified.
func DeriveUppercase(base map[string]string, prefix string) map[string]string {
	prefix = strings.TrimSpace(prefix)
	derived := make(map[string]string, len(base))
	for key, value := range base {
		derived[prefix+" "+key] = strings.ToUpper(value)
	}
	return derived
}

// MergeTables returns a new mapping holding both inputs. A spoken key present in both is an error.
func MergeTables(a, b map[string]string) (map[string]string, error) {
	merged := make(map[string]string, len(a)+len(b))
	for k, v := range a {
		merged[k] = v
	}
	for _, k := range sortedKeys(b) {
		if _, exists := merged[k]; exists {
			return nil, fmt.Errorf("spoken key %q already defined", k)
		}
		merged[k] = b[k]
	}
	return merged, nil
}

func normalizePhrase(phrase string) string {
	words := splitPhrase(phrase)
	norms := make([]string, 0, len(words))
	for _, w := range words {
		norms = append(norms, w.norm)
	}
	return strings.Join(norms, " ")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
