package corpus

import (
	"encoding/binary"
	"math"
	"sort"
	"strconv"
	"strings"

	domdoc "github.com/kailas-cloud/corpintel/internal/domain/document"
)

const (
	fieldContent     = "__content"
	fieldVector      = "__vector"
	fieldNumericKeys = "__numeric_keys"
)

// buildHashFields flattens a document and its vector into HSET fields.
// Numeric keys are listed in __numeric_keys so they survive the round trip.
func buildHashFields(doc *domdoc.Document, vec []float32) map[string]string {
	md := doc.Metadata()
	m := make(map[string]string, 3+len(md.Tags)+len(md.Numerics))
	m[fieldContent] = doc.Content()
	m[fieldVector] = vectorToBytes(vec)
	for k, v := range md.Tags {
		m[k] = v
	}
	if len(md.Numerics) > 0 {
		keys := make([]string, 0, len(md.Numerics))
		for k, v := range md.Numerics {
			m[k] = strconv.FormatFloat(v, 'f', -1, 64)
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m[fieldNumericKeys] = strings.Join(keys, ",")
	}
	return m
}

// parseHashFields rebuilds a document from a search entry's fields.
func parseHashFields(id string, m map[string]string) domdoc.Document {
	numeric := make(map[string]struct{})
	if keys := m[fieldNumericKeys]; keys != "" {
		for _, k := range strings.Split(keys, ",") {
			numeric[k] = struct{}{}
		}
	}

	var content string
	md := domdoc.Metadata{Tags: make(map[string]string), Numerics: make(map[string]float64)}
	for k, v := range m {
		switch k {
		case fieldContent:
			content = v
		case fieldVector, fieldNumericKeys:
		default:
			if _, ok := numeric[k]; ok {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					md.Numerics[k] = f
					continue
				}
			}
			md.Tags[k] = v
		}
	}
	return domdoc.Reconstruct(id, content, md)
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
