package document

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"

	json "github.com/goccy/go-json"
)

// BinaryField tags a JSON object holding base64 encoded bytes
const BinaryField = "$binary"

// MarshalJSON encodes the document as a JSON object, keeping key order.
// Byte slices are written as {"$binary": "<base64>"} so they decode back to
// bytes.
func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := marshalValue(d.values[k])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalValue(v any) ([]byte, error) {
	switch val := v.(type) {
	case []byte:
		return json.Marshal(map[string]string{BinaryField: base64.StdEncoding.EncodeToString(val)})
	case []any:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := marshalValue(item)
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	default:
		return json.Marshal(v)
	}
}

// MarshalIndent is like MarshalJSON but applies Indent to format the output
func (d Document) MarshalIndent(prefix, indent string) ([]byte, error) {
	data, err := d.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, prefix, indent); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into the document, keeping key order.
// Integral numbers decode to int64, other numbers to float64.
func (d *Document) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("document: expected JSON object")
	}

	doc, err := decodeObject(dec)
	if err != nil {
		return err
	}
	*d = doc
	return nil
}

// Parse decodes a JSON object from r
func Parse(r io.Reader) (Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Document{}, err
	}
	var d Document
	if err := d.UnmarshalJSON(data); err != nil {
		return Document{}, err
	}
	return d, nil
}

func decodeObject(dec *json.Decoder) (Document, error) {
	doc := New()
	for {
		tok, err := dec.Token()
		if err != nil {
			return Document{}, err
		}
		if delim, ok := tok.(json.Delim); ok && delim == '}' {
			return doc, nil
		}
		key, ok := tok.(string)
		if !ok {
			return Document{}, fmt.Errorf("document: unexpected key token %v", tok)
		}
		val, err := decodeValue(dec)
		if err != nil {
			return Document{}, fmt.Errorf("field %s: %w", key, err)
		}
		doc.Set(key, val)
	}
}

func decodeArray(dec *json.Decoder) ([]any, error) {
	out := make([]any, 0)
	for {
		if !dec.More() {
			// consume the closing bracket
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return out, nil
		}
		val, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		out = append(out, val)
	}
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			doc, err := decodeObject(dec)
			if err != nil {
				return nil, err
			}
			return decodeBinary(doc)
		case '[':
			return decodeArray(dec)
		default:
			return nil, fmt.Errorf("document: unexpected delimiter %v", v)
		}
	case json.Number:
		if i, err := strconv.ParseInt(string(v), 10, 64); err == nil {
			return i, nil
		}
		return strconv.ParseFloat(string(v), 64)
	default:
		return v, nil
	}
}

// decodeBinary unwraps a {"$binary": "<base64>"} object into bytes
func decodeBinary(doc Document) (any, error) {
	if doc.Len() != 1 {
		return doc, nil
	}
	raw, ok := doc.Get(BinaryField)
	if !ok {
		return doc, nil
	}
	encoded, ok := raw.(string)
	if !ok {
		return doc, nil
	}
	b, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("document: %s: %w", BinaryField, err)
	}
	return b, nil
}
