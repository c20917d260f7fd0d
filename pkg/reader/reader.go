// Package reader implements the external snapshot-reader contract: a
// finite, sorted, non-overlapping stream of (begin, end, infoset)
// triples read from newline-delimited JSON, satisfying
// pkg/merger.Reader so a LineReader can be merged directly.
//
// Ported from whip's iter_json (original_source/whip/reader.py): each
// line is one JSON document; two configurable fields hold the range's
// begin and end addresses, and the whole document becomes the
// infoset, begin/end fields included, exactly as the original does. A
// vendor-specific importer (e.g. the original's Quova CSV conversion)
// is out of scope here; this reader only understands the newline-JSON
// wire format.
package reader

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/wbolster/whipdb/pkg/addrcodec"
	"github.com/wbolster/whipdb/pkg/attrcodec"
	"github.com/wbolster/whipdb/pkg/model"
)

const maxLineSize = 1 << 20 // 1MB, generous for one infoset line

// LineReader reads (begin, end, infoset) triples from a newline-delimited
// JSON stream.
type LineReader struct {
	scanner              *bufio.Scanner
	beginField, endField string
	lineNum              int
}

// New builds a LineReader over r, using "begin" and "end" as the range
// field names.
func New(r io.Reader) *LineReader {
	return NewWithFields(r, "begin", "end")
}

// NewWithFields builds a LineReader using custom range field names.
func NewWithFields(r io.Reader, beginField, endField string) *LineReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &LineReader{scanner: s, beginField: beginField, endField: endField}
}

// Next implements pkg/merger.Reader[model.Infoset].
//
// The magic timestamp value "999" that some upstream snapshots use in
// the datetime field is passed through uninterpreted: this reader never
// inspects or special-cases it.
func (r *LineReader) Next() (begin, end addrcodec.Address, infoset model.Infoset, ok bool, err error) {
	for r.scanner.Scan() {
		r.lineNum++
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		doc, err := attrcodec.Decode(line)
		if err != nil {
			return addrcodec.Address{}, addrcodec.Address{}, nil, false,
				fmt.Errorf("line %d: %w", r.lineNum, err)
		}

		beginVal, ok := doc[r.beginField]
		if !ok || beginVal.Kind != model.KindString {
			return addrcodec.Address{}, addrcodec.Address{}, nil, false,
				fmt.Errorf("line %d: missing or non-string %q field", r.lineNum, r.beginField)
		}
		endVal, ok := doc[r.endField]
		if !ok || endVal.Kind != model.KindString {
			return addrcodec.Address{}, addrcodec.Address{}, nil, false,
				fmt.Errorf("line %d: missing or non-string %q field", r.lineNum, r.endField)
		}

		beginAddr, err := addrcodec.Parse(beginVal.Str)
		if err != nil {
			return addrcodec.Address{}, addrcodec.Address{}, nil, false, fmt.Errorf("line %d: %w", r.lineNum, err)
		}
		endAddr, err := addrcodec.Parse(endVal.Str)
		if err != nil {
			return addrcodec.Address{}, addrcodec.Address{}, nil, false, fmt.Errorf("line %d: %w", r.lineNum, err)
		}

		return beginAddr, endAddr, doc, true, nil
	}
	if err := r.scanner.Err(); err != nil {
		return addrcodec.Address{}, addrcodec.Address{}, nil, false, err
	}
	return addrcodec.Address{}, addrcodec.Address{}, nil, false, nil
}
