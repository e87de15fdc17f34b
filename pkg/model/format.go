package model

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"time"

	yaml "gopkg.in/yaml.v2"
)

const (
	metaDelimiter = "---"
	dateFormat    = "2006-01-02"
)

// known metadata keys, in canonical serialization order
const (
	fieldID           = "id"
	fieldKind         = "kind"
	fieldTitle        = "title"
	fieldStatus       = "status"
	fieldCreated      = "created"
	fieldLabels       = "labels"
	fieldDependencies = "dependencies"
	fieldOrder        = "order"
)

// Serialize renders a record to its canonical file representation:
// a yaml metadata block between "---" delimiters, followed by the free-form
// body. Unknown metadata fields are appended after the known ones, in the
// order they were read.
func Serialize(r *Record) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	meta := yaml.MapSlice{
		{Key: fieldID, Value: r.ID},
		{Key: fieldKind, Value: string(r.Kind)},
	}
	if r.Title != "" {
		meta = append(meta, yaml.MapItem{Key: fieldTitle, Value: r.Title})
	}
	meta = append(meta,
		yaml.MapItem{Key: fieldStatus, Value: string(r.Status)},
		yaml.MapItem{Key: fieldCreated, Value: r.Created.Format(dateFormat)},
	)
	if len(r.Labels) > 0 {
		meta = append(meta, yaml.MapItem{Key: fieldLabels, Value: r.Labels})
	}
	if r.Kind == KindTask {
		if len(r.Dependencies) > 0 {
			meta = append(meta, yaml.MapItem{Key: fieldDependencies, Value: r.Dependencies})
		}
		if r.OrderKey != "" {
			meta = append(meta, yaml.MapItem{Key: fieldOrder, Value: r.OrderKey})
		}
	}
	meta = append(meta, r.Extra...)

	header, err := yaml.Marshal(meta)
	if err != nil {
		return nil, ErrValidation.Wrap(err)
	}

	var buf bytes.Buffer
	buf.WriteString(metaDelimiter)
	buf.WriteByte('\n')
	buf.Write(header)
	buf.WriteString(metaDelimiter)
	buf.WriteByte('\n')
	buf.WriteString(r.Body)
	if r.Body != "" && !bytes.HasSuffix(buf.Bytes(), []byte("\n")) {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// Parse reads a record from its file representation. Malformed metadata or
// missing required fields yield ErrValidation: the record is rejected, not
// silently coerced.
func Parse(data []byte) (Record, error) {
	var r Record

	raw := string(data)
	if !bytes.HasPrefix(data, []byte(metaDelimiter+"\n")) {
		return r, ErrValidation.WrapMessage("missing metadata block delimiter")
	}
	rest := raw[len(metaDelimiter)+1:]
	end := findDelimiter(rest)
	if end < 0 {
		return r, ErrValidation.WrapMessage("unterminated metadata block")
	}
	header, body := rest[:end], rest[end:]
	if i := indexAfterDelimiterLine(body); i >= 0 {
		body = body[i:]
	}

	var meta yaml.MapSlice
	if err := yaml.Unmarshal([]byte(header), &meta); err != nil {
		return r, ErrValidation.Wrap(err)
	}

	for _, item := range meta {
		key, ok := item.Key.(string)
		if !ok {
			return r, ErrValidation.WrapMessage("non-string metadata key %v", item.Key)
		}
		var err error
		switch key {
		case fieldID:
			r.ID, err = asString(key, item.Value)
		case fieldKind:
			var s string
			if s, err = asString(key, item.Value); err == nil {
				r.Kind = Kind(s)
			}
		case fieldTitle:
			r.Title, err = asString(key, item.Value)
		case fieldStatus:
			var s string
			if s, err = asString(key, item.Value); err == nil {
				r.Status = Status(s)
			}
		case fieldCreated:
			var s string
			if s, err = asString(key, item.Value); err == nil {
				r.Created, err = parseDate(s)
			}
		case fieldLabels:
			r.Labels, err = asStringSlice(key, item.Value)
		case fieldDependencies:
			r.Dependencies, err = asStringSlice(key, item.Value)
		case fieldOrder:
			r.OrderKey, err = asString(key, item.Value)
		default:
			r.Extra = append(r.Extra, item)
		}
		if err != nil {
			return Record{}, err
		}
	}

	if r.ID == "" || r.Kind == "" || r.Status == "" || r.Created.IsZero() {
		return Record{}, ErrValidation.WrapMessage("record %q is missing a required field (id, kind, status, created)", r.ID)
	}
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	r.Body = body
	r.ContentHash = hashBytes(data)
	return r, nil
}

// Hash computes the content hash of a record from its canonical serialized
// bytes.
func Hash(r *Record) (string, error) {
	b, err := Serialize(r)
	if err != nil {
		return "", err
	}
	return hashBytes(b), nil
}

// HashOf computes the content hash of raw stored bytes
func HashOf(b []byte) string {
	return hashBytes(b)
}

func hashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// findDelimiter locates the closing "---" line within the metadata block
func findDelimiter(s string) int {
	offset := 0
	for {
		i := bytes.Index([]byte(s[offset:]), []byte(metaDelimiter))
		if i < 0 {
			return -1
		}
		i += offset
		atLineStart := i == 0 || s[i-1] == '\n'
		rest := s[i+len(metaDelimiter):]
		atLineEnd := rest == "" || rest[0] == '\n'
		if atLineStart && atLineEnd {
			return i
		}
		offset = i + len(metaDelimiter)
	}
}

// indexAfterDelimiterLine skips the "---" line itself plus its newline
func indexAfterDelimiterLine(s string) int {
	rest := s[len(metaDelimiter):]
	if rest == "" {
		return len(metaDelimiter)
	}
	if rest[0] == '\n' {
		return len(metaDelimiter) + 1
	}
	return -1
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateFormat, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, ErrValidation.WrapMessage("unparseable creation date %q", s)
	}
	return t, nil
}

func asString(key string, v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", ErrValidation.WrapMessage("field %q: expected a string, got %T", key, v)
	}
	return s, nil
}

func asStringSlice(key string, v interface{}) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]interface{})
	if !ok {
		return nil, ErrValidation.WrapMessage("field %q: expected a list, got %T", key, v)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, ErrValidation.WrapMessage("field %q: expected a list of strings, got %T", key, item)
		}
		out = append(out, s)
	}
	return out, nil
}
