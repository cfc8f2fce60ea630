// internal/domain/models/content.go
package models

// Document is one record from the content repository as decoded JSON.
// Asset references inside it are already resolved to {"url": "..."} objects.
type Document map[string]any

// Event kinds, set on events when they are ingested.
const (
	KindSimple   = "simple"
	KindDetailed = "detailed"
	KindUpcoming = "upcoming"
)

// KindField is the key that carries an event's kind.
const KindField = "kind"

// ID returns the CMS document id.
func (d Document) ID() string { return d.String("_id") }

// Type returns the CMS document type.
func (d Document) Type() string { return d.String("_type") }

// Kind returns the event kind tag, or "" for non-event documents.
func (d Document) Kind() string { return d.String(KindField) }

// String returns the string at key, or "" when absent or not a string.
func (d Document) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// Number returns the numeric value at key. JSON numbers decode as float64,
// but int values set in Go code are accepted too.
func (d Document) Number(key string) (float64, bool) {
	switch v := d[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// Bool returns the boolean at key, false when absent.
func (d Document) Bool(key string) bool {
	b, _ := d[key].(bool)
	return b
}

// Object returns the nested object at key, or nil.
func (d Document) Object(key string) Document {
	switch v := d[key].(type) {
	case map[string]any:
		return Document(v)
	case Document:
		return v
	}
	return nil
}

// Clone returns a shallow copy of the document.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
