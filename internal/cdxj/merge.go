package cdxj

import (
	"bufio"
	"context"
	"io"

	"github.com/unt-libraries/warc-metadata-sidecar/internal/errors"
	"github.com/unt-libraries/warc-metadata-sidecar/internal/jsonx"
)

// Table maps "<urlkey> <timestamp>" to the fields injected into matching
// original lines.
type Table map[string][]Field

// Counts reports how many original lines were edited or passed through.
type Counts struct {
	Edited    int `json:"edited"`
	NonEdited int `json:"non_edited"`
}

// LoadTable scans a metadata index once. On duplicate keys the later line
// wins. name is used in error messages.
func LoadTable(ctx context.Context, r io.Reader, name string, mimePreference []string) (Table, error) {
	table := Table{}
	err := eachLine(ctx, r, name, func(n int, data []byte) error {
		line, err := ParseLine(data)
		if err != nil {
			return errors.NewParse(name, n, err.Error())
		}
		obj, err := jsonx.ParseObject(line.JSON)
		if err != nil {
			return errors.NewParse(name, n, err.Error())
		}
		if obj.Len() == 0 {
			delete(table, line.Key())
			return nil
		}
		table[line.Key()] = InjectedFields(obj, mimePreference)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return table, nil
}

// Merge streams the original index from r to w. Lines whose key is in table
// get the table's fields set on their JSON object; all other lines are
// copied byte for byte. Original order and duplicates are preserved.
func Merge(ctx context.Context, table Table, r io.Reader, name string, w io.Writer) (Counts, error) {
	var counts Counts
	bw := bufio.NewWriter(w)

	err := eachLine(ctx, r, name, func(n int, data []byte) error {
		line, err := ParseLine(data)
		if err != nil {
			return errors.NewParse(name, n, err.Error())
		}
		fields, ok := table[line.Key()]
		if !ok {
			counts.NonEdited++
			if _, err := bw.Write(data); err != nil {
				return errors.NewIO(name, err)
			}
			return nil
		}

		obj, err := jsonx.ParseObject(line.JSON)
		if err != nil {
			return errors.NewParse(name, n, err.Error())
		}
		for _, f := range fields {
			obj.Set(f.Key, f.Value)
		}
		out, err := FormatLine(line.URLKey, line.Timestamp, obj)
		if err != nil {
			return errors.NewParse(name, n, err.Error())
		}
		counts.Edited++
		if _, err := bw.Write(out); err != nil {
			return errors.NewIO(name, err)
		}
		return nil
	})
	if err != nil {
		return counts, err
	}
	if err := bw.Flush(); err != nil {
		return counts, errors.NewIO(name, err)
	}
	return counts, nil
}

// eachLine calls fn with every line of r, terminator included, and its
// 1-based number. Lines have no length limit.
func eachLine(ctx context.Context, r io.Reader, name string, fn func(n int, data []byte) error) error {
	br := bufio.NewReader(r)
	for n := 1; ; n++ {
		if ctx.Err() != nil {
			return errors.NewCancelled("read " + name)
		}
		data, err := br.ReadBytes('\n')
		if len(data) > 0 {
			if ferr := fn(n, data); ferr != nil {
				return ferr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.NewIO(name, err)
		}
	}
}
