package buckets

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"gopkg.in/yaml.v3"
)

// Assignment maps every instrument to its bucket number. Bucket numbers are
// one based, as displayed in the reports.
type Assignment map[string]int

// AssignmentFormat is the encoding of an assignment document.
type AssignmentFormat int

const (
	FormatJSON AssignmentFormat = iota
	FormatYAML
)

// FormatFromPath guesses the format of an assignment file from its extension.
func FormatFromPath(path string) AssignmentFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ParseAssignment validates an assignment against the universe and returns
// the corresponding Partition.
//
// Every instrument of the universe must be assigned, no unknown instrument can
// be referenced, and buckets 1 to K (the highest number used) must all be non
// empty. The returned Partition has no search score, use Evaluate to score it.
func ParseAssignment(universe []string, a Assignment) (*Partition, error) {
	known := make(map[string]bool, len(universe))
	for _, s := range universe {
		known[s] = true
	}

	symbols := make([]string, 0, len(a))
	for s := range a {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	k := 0
	for _, s := range symbols {
		if !known[s] {
			return nil, fmt.Errorf("%w: unknown instrument %q", ErrValidation, s)
		}
		b := a[s]
		if b < 1 {
			return nil, fmt.Errorf("%w: instrument %q has bucket number %d, bucket numbers start at 1", ErrValidation, s, b)
		}
		k = max(k, b)
	}

	p := &Partition{buckets: make([]Bucket, k)}
	var missing []string
	for _, s := range universe {
		b, ok := a[s]
		if !ok {
			missing = append(missing, s)
			continue
		}
		p.buckets[b-1] = append(p.buckets[b-1], s)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: instruments not assigned to any bucket: %v", ErrValidation, missing)
	}
	for i, b := range p.buckets {
		if len(b) == 0 {
			return nil, fmt.Errorf("%w: bucket %d is empty", ErrValidation, i+1)
		}
	}
	return p, nil
}

// DecodeAssignment reads an assignment document.
//
// Two shapes are accepted, in JSON or YAML: an object mapping each instrument
// to its bucket number, or a list of buckets, each a list of instruments. If
// selector is not empty, it is a JSONPath expression locating the assignment
// within a larger document (e.g. "$.buckets").
func DecodeAssignment(r io.Reader, format AssignmentFormat, selector string) (Assignment, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("cannot read assignment: %w", err)
	}
	var doc any
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	default:
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: not a correct assignment document: %v", ErrParse, err)
	}
	if selector != "" {
		doc, err = jsonpath.Get(selector, doc)
		if err != nil {
			return nil, fmt.Errorf("%w: selector %q: %v", ErrParse, selector, err)
		}
	}
	return assignmentFrom(doc)
}

func assignmentFrom(doc any) (Assignment, error) {
	a := make(Assignment)
	switch t := doc.(type) {
	case map[string]any:
		for s, raw := range t {
			b, ok := bucketNumber(raw)
			if !ok {
				return nil, fmt.Errorf("%w: bucket of %q must be an integer, got %v", ErrParse, s, raw)
			}
			a[s] = b
		}
	case []any:
		for i, raw := range t {
			list, ok := raw.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: bucket %d must be a list of instruments", ErrParse, i+1)
			}
			for _, item := range list {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("%w: bucket %d holds %v, want an instrument", ErrParse, i+1, item)
				}
				if prev, dup := a[s]; dup {
					return nil, fmt.Errorf("%w: instrument %q is in buckets %d and %d", ErrValidation, s, prev, i+1)
				}
				a[s] = i + 1
			}
		}
	default:
		return nil, fmt.Errorf("%w: an assignment is an object or a list of lists, got %T", ErrParse, doc)
	}
	return a, nil
}

func bucketNumber(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

// EncodeAssignment writes the assignment of p as a JSON object listing the
// instruments in universe order. DecodeAssignment reads it back unchanged.
func EncodeAssignment(w io.Writer, p *Partition, universe []string) error {
	a := p.Assignment()
	var ow jsonObjectWriter
	for _, s := range universe {
		b, ok := a[s]
		if !ok {
			return fmt.Errorf("%w: instrument %q is not in the partition", ErrValidation, s)
		}
		ow.Append(s, b)
	}
	raw, err := ow.MarshalJSON()
	if err != nil {
		return err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return err
	}
	out.WriteString("\n")
	_, err = w.Write(out.Bytes())
	return err
}
