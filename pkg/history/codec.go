package history

import (
	"bytes"
	"encoding/json"
)

// jsPrefix is the global assignment the dashboard loads the history
// through. Documents written for the chart page are JS, not JSON.
var jsPrefix = []byte("window.BENCHMARK_DATA = ")

// Load parses a serialized history document. Both the canonical JSON form
// and the dashboard JS form ("window.BENCHMARK_DATA = {...};") are
// accepted. The parsed document is validated against every invariant;
// any failure is reported as a *ParseError and nothing is mutated.
func Load(data []byte) (*Document, error) {
	raw := bytes.TrimSpace(data)

	if len(raw) == 0 {
		return nil, &ParseError{Reason: "empty input"}
	}

	// Strip a global variable assignment wrapper when present. The
	// variable name is not checked so renamed globals still load.
	if raw[0] != '{' {
		idx := bytes.IndexByte(raw, '=')
		if idx < 0 || bytes.IndexByte(raw[:idx], '{') >= 0 {
			return nil, &ParseError{
				Reason: "input is neither a JSON object nor a JS assignment",
			}
		}

		raw = bytes.TrimSpace(raw[idx+1:])
		raw = bytes.TrimSuffix(raw, []byte(";"))
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, &ParseError{Reason: "decoding JSON", Err: err}
	}

	if doc.Entries == nil {
		return nil, &ParseError{Reason: "missing required field \"entries\""}
	}

	if err := doc.Validate(); err != nil {
		return nil, &ParseError{Reason: "invalid document", Err: err}
	}

	return &doc, nil
}

// Serialize produces the canonical textual form of the document. The
// output round-trips exactly through Load.
func Serialize(d *Document) ([]byte, error) {
	out, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, err
	}

	return append(out, '\n'), nil
}

// EncodeJS produces the dashboard form of the document: the canonical
// JSON assigned to the window.BENCHMARK_DATA global.
func EncodeJS(d *Document) ([]byte, error) {
	out, err := Serialize(d)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, len(jsPrefix)+len(out))
	buf = append(buf, jsPrefix...)
	buf = append(buf, out...)

	return buf, nil
}
