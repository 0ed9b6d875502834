package scenario

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind is the JSON shape of a schema field.
type Kind int

// Field kinds.
const (
	KindString Kind = iota
	KindNumber
	KindStrings
	KindObject
	KindObjects
)

// Field is one node of a nested output schema.
type Field struct {
	Name   string
	Kind   Kind
	Hint   string
	Fields []Field
}

// String declares a string field.
func String(name, hint string) Field { return Field{Name: name, Kind: KindString, Hint: hint} }

// Number declares a numeric field.
func Number(name string) Field { return Field{Name: name, Kind: KindNumber} }

// Strings declares a list of strings.
func Strings(name, hint string) Field { return Field{Name: name, Kind: KindStrings, Hint: hint} }

// Object declares a nested object.
func Object(name string, fields ...Field) Field {
	return Field{Name: name, Kind: KindObject, Fields: fields}
}

// Objects declares a list of nested objects.
func Objects(name string, fields ...Field) Field {
	return Field{Name: name, Kind: KindObjects, Fields: fields}
}

// Schema is the scenario-specific sub-object of a structured response.
type Schema struct {
	Key    string
	Fields []Field
}

// BaseFields are present in every structured response regardless of scenario.
var BaseFields = []Field{
	String("summary", "核心结论摘要（200字以内）"),
	Object("detailed_analysis",
		Strings("local_based", "基于本地文档的分析"),
		Strings("web_based", "基于网络信息的分析"),
		Strings("integrated", "综合分析结论"),
	),
	Strings("key_findings", "关键发现"),
	Object("risk_assessment",
		Strings("identified_risks", "识别的风险"),
		String("risk_level", "高/中/低"),
		String("rationale", "评级依据"),
	),
	Strings("recommendations", "建议"),
}

// Required lists the top-level keys every response carries.
func Required() []string {
	keys := make([]string, len(BaseFields))
	for i, f := range BaseFields {
		keys[i] = f.Name
	}
	return keys
}

// Zero returns an object of the schema's shape with empty values.
func (s Schema) Zero() map[string]any {
	return Normalize(nil, s.Fields)
}

// Normalize coerces v into the shape described by fields. Missing keys get
// empty values of the right kind; unknown keys are kept as-is.
func Normalize(v map[string]any, fields []Field) map[string]any {
	out := make(map[string]any, len(fields)+len(v))
	for k, val := range v {
		out[k] = val
	}
	for _, f := range fields {
		out[f.Name] = coerce(v[f.Name], f)
	}
	return out
}

func coerce(v any, f Field) any {
	switch f.Kind {
	case KindString:
		return asString(v)
	case KindNumber:
		return asNumber(v)
	case KindStrings:
		return asStrings(v)
	case KindObject:
		m, _ := v.(map[string]any)
		return Normalize(m, f.Fields)
	case KindObjects:
		switch t := v.(type) {
		case []any:
			out := make([]any, 0, len(t))
			for _, item := range t {
				if m, ok := item.(map[string]any); ok {
					out = append(out, Normalize(m, f.Fields))
				}
			}
			return out
		case map[string]any:
			return []any{Normalize(t, f.Fields)}
		}
		return []any{}
	}
	return v
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := asString(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "；")
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

func asNumber(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

func asStrings(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := asString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return append([]string{}, t...)
	case string:
		if strings.TrimSpace(t) == "" {
			return []string{}
		}
		return []string{t}
	case nil:
		return []string{}
	}
	return []string{asString(v)}
}

// Template renders a JSON example of the base fields plus the scenario
// sub-object. It is embedded in generation prompts.
func Template(s *Schema) string {
	fields := BaseFields
	if s != nil && s.Key != "" {
		fields = append(append([]Field{}, BaseFields...), Object(s.Key, s.Fields...))
	}
	var b strings.Builder
	writeObject(&b, fields, 0)
	return b.String()
}

func writeObject(b *strings.Builder, fields []Field, depth int) {
	indent := strings.Repeat("  ", depth+1)
	b.WriteString("{\n")
	for i, f := range fields {
		b.WriteString(indent)
		b.WriteString(strconv.Quote(f.Name))
		b.WriteString(": ")
		writeValue(b, f, depth+1)
		if i < len(fields)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteByte('}')
}

func writeValue(b *strings.Builder, f Field, depth int) {
	switch f.Kind {
	case KindString:
		b.WriteString(`"` + f.Hint + `"`)
	case KindNumber:
		b.WriteString("0")
	case KindStrings:
		b.WriteString(`["` + f.Hint + `"]`)
	case KindObject:
		writeObject(b, f.Fields, depth)
	case KindObjects:
		b.WriteByte('[')
		writeObject(b, f.Fields, depth)
		b.WriteByte(']')
	}
}
