package grammar

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/rbright/voxkeys/internal/keys"
	"gopkg.in/yaml.v3"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Source is one grammar document.
type Source struct {
	Name string
	Data []byte
}

// Options controls which grammar documents are loaded.
type Options struct {
	// Builtin includes the embedded keyboard and program grammars.
	Builtin bool
	// Files are additional rule files. Their rules take priority over the built-ins.
	Files []string
	// UppercasePrefix overrides every table's derive_uppercase prefix when set.
	UppercasePrefix string
}

type document struct {
	Name   string              `yaml:"name"`
	Slots  map[string]slotDoc  `yaml:"slots"`
	Tables map[string]tableDoc `yaml:"tables"`
	Rules  []ruleDoc           `yaml:"rules"`
}

type slotDoc struct {
	Type    string `yaml:"type"`
	Min     *int   `yaml:"min"`
	Max     *int   `yaml:"max"`
	Table   string `yaml:"table"`
	Default *int   `yaml:"default"`
}

type tableDoc struct {
	DeriveUppercase string            `yaml:"derive_uppercase"`
	Entries         map[string]string `yaml:"entries"`
}

type ruleDoc struct {
	Say string    `yaml:"say"`
	Do  []stepDoc `yaml:"do"`
}

type stepDoc struct {
	Text  *string `yaml:"text"`
	Key   *string `yaml:"key"`
	Param *string `yaml:"param"`
	Call  *string `yaml:"call"`
	Slot  string  `yaml:"slot"`
}

// BuiltinSources returns the embedded grammar documents in load order.
func BuiltinSources() ([]Source, error) {
	sources := make([]Source, 0, 2)
	for _, name := range []string{"keyboard.yaml", "programs.yaml"} {
		data, err := builtinFS.ReadFile(path.Join("builtin", name))
		if err != nil {
			return nil, fmt.Errorf("read builtin grammar %s: %w", name, err)
		}
		sources = append(sources, Source{Name: "builtin/" + name, Data: data})
	}
	return sources, nil
}

// Load reads user rule files first, then the built-ins, and compiles them into one grammar.
func Load(opts Options) (*Grammar, error) {
	sources := make([]Source, 0, len(opts.Files)+2)
	for _, file := range opts.Files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read grammar %s: %w", file, err)
		}
		sources = append(sources, Source{Name: file, Data: data})
	}
	if opts.Builtin {
		builtin, err := BuiltinSources()
		if err != nil {
			return nil, err
		}
		sources = append(sources, builtin...)
	}
	if len(sources) == 0 {
		return nil, errors.New("no grammar sources: enable builtin grammars or list grammar files")
	}
	return Parse(sources, opts.UppercasePrefix)
}

// Parse compiles grammar documents. Entries keep document order and rule order.
func Parse(sources []Source, uppercasePrefix string) (*Grammar, error) {
	docs := make([]document, 0, len(sources))
	for _, src := range sources {
		doc, err := decodeDocument(src)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	tables, err := buildTables(sources, docs, uppercasePrefix)
	if err != nil {
		return nil, err
	}

	g := &Grammar{tables: tables}
	for i, doc := range docs {
		slots, err := buildSlots(sources[i].Name, doc, tables)
		if err != nil {
			return nil, err
		}
		for idx, rule := range doc.Rules {
			entry, err := buildEntry(rule, slots)
			if err != nil {
				return nil, fmt.Errorf("%s: rule %d (%q): %w", sources[i].Name, idx+1, rule.Say, err)
			}
			entry.Source = sourceLabel(sources[i].Name, doc.Name)
			g.entries = append(g.entries, entry)
		}
	}
	if len(g.entries) == 0 {
		return nil, errors.New("grammar defines no rules")
	}
	return g, nil
}

func decodeDocument(src Source) (document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(src.Data))
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return document{}, fmt.Errorf("%s: empty grammar document", src.Name)
		}
		return document{}, fmt.Errorf("%s: decode grammar: %w", src.Name, err)
	}
	return doc, nil
}

func buildTables(sources []Source, docs []document, uppercasePrefix string) (map[string]*Table, error) {
	tables := make(map[string]*Table)
	origin := make(map[string]string)
	for i, doc := range docs {
		names := make([]string, 0, len(doc.Tables))
		for name := range doc.Tables {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			if prev, exists := origin[name]; exists {
				return nil, fmt.Errorf("%s: table %q already defined in %s", sources[i].Name, name, prev)
			}
			spec := doc.Tables[name]
			if len(spec.Entries) == 0 {
				return nil, fmt.Errorf("%s: table %q has no entries", sources[i].Name, name)
			}

			entries := spec.Entries
			if prefix := strings.TrimSpace(spec.DeriveUppercase); prefix != "" {
				if override := strings.TrimSpace(uppercasePrefix); override != "" {
					prefix = override
				}
				merged, err := MergeTables(entries, DeriveUppercase(entries, prefix))
				if err != nil {
					return nil, fmt.Errorf("%s: table %q: derive uppercase: %w", sources[i].Name, name, err)
				}
				entries = merged
			}

			table, err := NewTable(name, entries)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", sources[i].Name, err)
			}
			tables[name] = table
			origin[name] = sources[i].Name
		}
	}
	return tables, nil
}

func buildSlots(source string, doc document, tables map[string]*Table) (map[string]Slot, error) {
	slots := make(map[string]Slot, len(doc.Slots))
	for rawName, spec := range doc.Slots {
		name := strings.ToLower(strings.TrimSpace(rawName))
		slot := Slot{Name: name, Kind: SlotKind(strings.ToLower(strings.TrimSpace(spec.Type)))}

		switch slot.Kind {
		case SlotInteger:
			if spec.Min == nil || spec.Max == nil {
				return nil, fmt.Errorf("%s: integer slot %q requires min and max", source, name)
			}
			slot.Min, slot.Max = *spec.Min, *spec.Max
			if slot.Min > slot.Max {
				return nil, fmt.Errorf("%s: integer slot %q has min %d > max %d", source, name, slot.Min, slot.Max)
			}
			if spec.Default != nil {
				if *spec.Default < slot.Min || *spec.Default > slot.Max {
					return nil, fmt.Errorf("%s: integer slot %q default %d is outside [%d,%d]", source, name, *spec.Default, slot.Min, slot.Max)
				}
				slot.Default = *spec.Default
				slot.HasDefault = true
			}
		case SlotChoice:
			if _, ok := tables[spec.Table]; !ok {
				return nil, fmt.Errorf("%s: choice slot %q references unknown table %q", source, name, spec.Table)
			}
			slot.Table = spec.Table
		case SlotDictation:
		default:
			return nil, fmt.Errorf("%s: slot %q has unsupported type %q", source, name, spec.Type)
		}
		if slot.Kind != SlotInteger && spec.Default != nil {
			return nil, fmt.Errorf("%s: only integer slots accept a default (slot %q)", source, name)
		}
		slots[name] = slot
	}
	return slots, nil
}

func buildEntry(rule ruleDoc, declared map[string]Slot) (Entry, error) {
	if strings.TrimSpace(rule.Say) == "" {
		return Entry{}, errors.New("say must not be empty")
	}
	expr, err := compilePattern(rule.Say)
	if err != nil {
		return Entry{}, fmt.Errorf("pattern: %w", err)
	}

	slots := make(map[string]Slot)
	for _, name := range slotRefs(expr) {
		slot, ok := declared[name]
		if !ok {
			return Entry{}, fmt.Errorf("pattern references undeclared slot <%s>", name)
		}
		slots[name] = slot
	}

	if len(rule.Do) == 0 {
		return Entry{}, errors.New("do must list at least one step")
	}
	template := make([]Step, 0, len(rule.Do))
	for idx, doc := range rule.Do {
		step, err := buildStep(doc, slots)
		if err != nil {
			return Entry{}, fmt.Errorf("step %d: %w", idx+1, err)
		}
		template = append(template, step)
	}

	return Entry{Pattern: rule.Say, Template: template, Slots: slots, expr: expr}, nil
}

func buildStep(doc stepDoc, slots map[string]Slot) (Step, error) {
	set := 0
	for _, field := range []*string{doc.Text, doc.Key, doc.Param, doc.Call} {
		if field != nil {
			set++
		}
	}
	if set != 1 {
		return Step{}, errors.New("exactly one of text, key, param or call is required")
	}
	if doc.Slot != "" && doc.Call == nil {
		return Step{}, errors.New("slot is only valid on call steps")
	}

	switch {
	case doc.Text != nil:
		if err := checkPlaceholders(*doc.Text, slots); err != nil {
			return Step{}, err
		}
		return Step{Kind: StepText, Value: *doc.Text}, nil

	case doc.Key != nil:
		if err := checkPlaceholders(*doc.Key, slots); err != nil {
			return Step{}, err
		}
		probe, err := Expand(*doc.Key, func(string) (string, error) { return "1", nil })
		if err != nil {
			return Step{}, err
		}
		if _, err := keys.Parse(probe); err != nil {
			return Step{}, err
		}
		return Step{Kind: StepKey, Value: *doc.Key}, nil

	case doc.Param != nil:
		name := strings.ToLower(strings.TrimSpace(*doc.Param))
		if _, ok := slots[name]; !ok {
			return Step{}, fmt.Errorf("param references undeclared slot %q", name)
		}
		return Step{Kind: StepParam, Value: name}, nil

	default:
		call := strings.TrimSpace(*doc.Call)
		slotName := strings.ToLower(strings.TrimSpace(doc.Slot))
		switch call {
		case CallDictateWords:
			slot, ok := slots[slotName]
			if !ok {
				return Step{}, fmt.Errorf("call %s references undeclared slot %q", call, slotName)
			}
			if slot.Kind != SlotDictation {
				return Step{}, fmt.Errorf("call %s requires a dictation slot, %q is %s", call, slotName, slot.Kind)
			}
		case CallCancelAndSleep:
			if slotName != "" {
				return Step{}, fmt.Errorf("call %s takes no slot", call)
			}
		default:
			return Step{}, fmt.Errorf("unknown call %q", call)
		}
		return Step{Kind: StepCall, Value: call, Slot: slotName}, nil
	}
}

func checkPlaceholders(s string, slots map[string]Slot) error {
	names, err := Placeholders(s)
	if err != nil {
		return err
	}
	for _, name := range names {
		if _, ok := slots[strings.ToLower(name)]; !ok {
			return fmt.Errorf("template references undeclared slot {%s}", name)
		}
	}
	return nil
}

func sourceLabel(source, name string) string {
	if strings.TrimSpace(name) == "" {
		return source
	}
	return name
}
