package document

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// MaxContentSize is the maximum document content size in bytes.
const MaxContentSize = 163840 // 160KB

// Well-known metadata keys.
const (
	FieldCompanyName  = "company_name"
	FieldEntity       = "entity"
	FieldDocumentType = "document_type"
	FieldSource       = "source"
	FieldTimestamp    = "timestamp"
	FieldTitle        = "title"
	FieldPublishDate  = "publish_date"
	FieldURL          = "url"
)

// Document is a stored corpus passage (immutable value object).
type Document struct {
	id       string
	content  string
	metadata Metadata
}

// New validates and creates a Document.
// ID: ^[a-zA-Z0-9_-]+$, 1-256 chars. Content: non-empty, max 160KB.
func New(id, content string, metadata Metadata) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required")
	}
	if len(id) > 256 {
		return Document{}, fmt.Errorf("document ID too long (max 256)")
	}
	if !idRegex.MatchString(id) {
		return Document{}, fmt.Errorf("document ID must be alphanumeric with underscores and hyphens")
	}
	if strings.TrimSpace(content) == "" {
		return Document{}, fmt.Errorf("content is required")
	}
	if len(content) > MaxContentSize {
		return Document{}, fmt.Errorf("content too large (max %d bytes)", MaxContentSize)
	}

	return Document{id: id, content: content, metadata: metadata.Clone()}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(id, content string, metadata Metadata) Document {
	return Document{id: id, content: content, metadata: metadata}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Content returns the document text content.
func (d *Document) Content() string { return d.content }

// Metadata returns the document metadata.
func (d *Document) Metadata() Metadata { return d.metadata }

// Hit is a corpus query match. Distance is the backend's cosine distance.
type Hit struct {
	Document Document
	Distance float64
}

// Metadata carries tag (string) and numeric fields of a document.
type Metadata struct {
	Tags     map[string]string
	Numerics map[string]float64
}

// Tag returns a tag value or "".
func (m Metadata) Tag(key string) string { return m.Tags[key] }

// Numeric returns a numeric value and whether it is present.
func (m Metadata) Numeric(key string) (float64, bool) {
	v, ok := m.Numerics[key]
	return v, ok
}

// Entity returns the company name, accepting "entity" as an alias.
func (m Metadata) Entity() string {
	if v := m.Tags[FieldCompanyName]; v != "" {
		return v
	}
	return m.Tags[FieldEntity]
}

// DocumentType returns the document type tag.
func (m Metadata) DocumentType() string { return m.Tags[FieldDocumentType] }

// Source returns the source tag.
func (m Metadata) Source() string { return m.Tags[FieldSource] }

// Timestamp resolves the document time from the numeric timestamp (unix
// seconds) or, failing that, from a date-like timestamp/publish_date tag.
func (m Metadata) Timestamp() (time.Time, bool) {
	if v, ok := m.Numerics[FieldTimestamp]; ok && v > 0 {
		return time.Unix(int64(v), 0).UTC(), true
	}
	for _, key := range []string{FieldTimestamp, FieldPublishDate} {
		if t, ok := parseDate(m.Tags[key]); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// Clone returns a deep copy.
func (m Metadata) Clone() Metadata {
	return Metadata{Tags: cloneStringMap(m.Tags), Numerics: cloneFloat64Map(m.Numerics)}
}

// With returns a copy with the tag set.
func (m Metadata) With(key, value string) Metadata {
	c := m.Clone()
	if c.Tags == nil {
		c.Tags = make(map[string]string, 1)
	}
	c.Tags[key] = value
	return c
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"2006年01月02日",
	"2006-01",
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if len(s) == 4 {
		if y, err := strconv.Atoi(s); err == nil {
			return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC), true
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil && secs > 0 {
		return time.Unix(secs, 0).UTC(), true
	}
	return time.Time{}, false
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func cloneFloat64Map(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	c := make(map[string]float64, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
