// Command vectra is a small demonstration CLI wired over the core
// execution engine: it reads a CSV file, optionally filters it by a single
// "column op literal" predicate and/or caps the row count, and prints the
// resulting chunks as JSON. It replaces cmd/ingest, which posted files to a
// "smda server" that no longer exists in this tree; this command talks to
// the engine package directly instead of over HTTP, same flag-parsing and
// error-handling shape (flag.Parse, log.Fatal on a returned error).
package main

import (
	"bufio"
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/vectra-db/vectra/src/csvsrc"
	"github.com/vectra-db/vectra/src/expr"
	"github.com/vectra-db/vectra/src/membudget"
	"github.com/vectra-db/vectra/src/operator"
	"github.com/vectra-db/vectra/src/pipeline"
	"github.com/vectra-db/vectra/src/vbuf"
	"github.com/vectra-db/vectra/src/vtype"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

// inferSampleRows caps how many data rows the schema-sniffing pass reads
// before committing to a type per column.
const inferSampleRows = 1000

func run() error {
	delimiter := flag.String("delimiter", "", "field delimiter (default: auto-detected)")
	noHeader := flag.Bool("no-header", false, "treat the first row as data, not column names")
	filterExpr := flag.String("filter", "", `simple "column op literal" predicate, e.g. age>=30`)
	limit := flag.Int("limit", 0, "cap the number of output rows (0: unlimited)")
	memLimit := flag.Int64("memory-limit-bytes", 0, "deny column buffer allocations of 64 KiB or more once this many bytes are reserved (0: unlimited)")
	flag.Parse()

	path := flag.Arg(0)
	if path == "" {
		return errors.New("vectra: need to supply a CSV file to read")
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	opts := csvsrc.Options{HasHeader: !*noHeader}
	if *delimiter != "" {
		opts.Delimiter = (*delimiter)[0]
	}
	sniffed, prepared, err := csvsrc.Sniff(f, opts)
	if err != nil {
		return fmt.Errorf("vectra: sniffing %s: %w", path, err)
	}
	opts = sniffed

	buffered := bufio.NewReaderSize(prepared, 4<<20)
	schema, _, err := inferSchema(buffered, opts)
	if err != nil {
		return fmt.Errorf("vectra: inferring schema for %s: %w", path, err)
	}

	budget := newRunBudget(*memLimit)
	pool := vbuf.NewBufferPoolWithBudget(budget)
	reader, err := csvsrc.New(buffered, schema, opts, pool, nil)
	if err != nil {
		return fmt.Errorf("vectra: opening %s: %w", path, err)
	}

	var root operator.Source = operator.SourceFunc(reader.ReadChunk)
	outSchema := schema

	if *filterExpr != "" {
		node, err := parseSimplePredicate(*filterExpr, schema)
		if err != nil {
			return fmt.Errorf("vectra: parsing -filter: %w", err)
		}
		flt, err := operator.NewFilter(root, node, schema)
		if err != nil {
			return fmt.Errorf("vectra: building filter: %w", err)
		}
		root = flt
	}
	if *limit > 0 {
		root = operator.NewLimit(root, schema, 0, int64(*limit))
	}

	p := pipeline.New(root, outSchema, nil, budget)
	result, err := p.Execute()
	if err != nil {
		return fmt.Errorf("vectra: executing pipeline: %w", err)
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	for _, c := range result.Chunks {
		b, err := c.MarshalJSON()
		if err != nil {
			return err
		}
		if _, err := out.Write(b); err != nil {
			return err
		}
		if _, err := out.Write([]byte{'\n'}); err != nil {
			return err
		}
	}
	return nil
}

// newRunBudget builds the Reserver shared by this run's BufferPool and its
// Pipeline. A zero limit disables enforcement entirely, matching
// membudget.Noop's contract; a single run is its own task, so the task
// share is the whole limit.
func newRunBudget(limitBytes int64) membudget.Reserver {
	if limitBytes <= 0 {
		return membudget.Noop()
	}
	b := membudget.NewBudget(membudget.Config{
		GlobalLimitBytes:    limitBytes,
		MaxTaskSharePercent: 1.0,
		Enabled:             true,
	})
	return b.NewTask()
}

// inferSchema reads the header line (if present) and up to inferSampleRows
// data lines from br to build a vtype.Schema via TypeGuesser. It only peeks
// at br (a bufio.Reader over the whole decompressed stream, buffered large
// enough to hold the sample) and consumes nothing, so csvsrc.New reads the
// same bytes for real.
//
// This is a naive line/field split, not the tokenizer's quote-aware state
// machine - good enough to guess types, not to parse pathological CSV, so
// quoted fields containing the delimiter will throw off the sample. br
// itself is left unread; only type inference is approximate.
func inferSchema(br *bufio.Reader, opts csvsrc.Options) (vtype.Schema, []string, error) {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	peeked, err := br.Peek(br.Size())
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return vtype.Schema{}, nil, err
	}
	lines := strings.Split(string(bytes.TrimRight(peeked, "\n")), "\n")

	var header []string
	start := 0
	if opts.HasHeader && len(lines) > 0 {
		header = strings.Split(lines[0], string(opts.Delimiter))
		start = 1
	}

	var guessers []*vtype.TypeGuesser
	for i := start; i < len(lines) && i < start+inferSampleRows; i++ {
		fields := strings.Split(strings.TrimRight(lines[i], "\r"), string(opts.Delimiter))
		if guessers == nil {
			guessers = make([]*vtype.TypeGuesser, len(fields))
			for j := range guessers {
				guessers[j] = vtype.NewTypeGuesser()
			}
		}
		for j, v := range fields {
			if j >= len(guessers) {
				break
			}
			guessers[j].AddValue(v)
		}
	}

	if header == nil {
		header = make([]string, len(guessers))
		for i := range header {
			header[i] = fmt.Sprintf("col%d", i)
		}
	}

	cols := make([]vtype.ColumnDescriptor, len(header))
	for i, name := range header {
		dt := vtype.DType{Kind: vtype.KindString, Nullable: true}
		if i < len(guessers) {
			dt = guessers[i].InferredType()
		}
		cols[i] = vtype.ColumnDescriptor{Name: strings.TrimSpace(name), DType: dt}
	}
	schema, err := vtype.NewSchema(cols)
	if err != nil {
		return vtype.Schema{}, nil, err
	}
	return schema, header, nil
}

// parseSimplePredicate accepts a single comparison of the form
// "column<op>literal" (ops: ==, !=, >=, <=, >, <), the smallest possible
// expression builder satisfying spec.md §6's "the facade is responsible for
// producing valid ASTs" contract - this demo is its own tiny facade.
func parseSimplePredicate(s string, schema vtype.Schema) (expr.Node, error) {
	ops := []struct {
		token string
		op    expr.CmpOp
	}{
		{"==", expr.CmpEq}, {"!=", expr.CmpNe},
		{">=", expr.CmpGe}, {"<=", expr.CmpLe},
		{">", expr.CmpGt}, {"<", expr.CmpLt},
	}
	for _, o := range ops {
		idx := strings.Index(s, o.token)
		if idx < 0 {
			continue
		}
		colName := strings.TrimSpace(s[:idx])
		litStr := strings.TrimSpace(s[idx+len(o.token):])
		_, desc, err := schema.LocateColumn(colName)
		if err != nil {
			return nil, err
		}
		lit, err := literalFor(desc.DType.Kind, litStr)
		if err != nil {
			return nil, err
		}
		return &expr.Cmp{Op: o.op, Left: &expr.Column{Name: colName}, Right: lit}, nil
	}
	return nil, fmt.Errorf("vectra: %q is not a recognised \"column op literal\" predicate", s)
}

func literalFor(k vtype.Kind, s string) (*expr.Literal, error) {
	if k.IsFloat() {
		var f float64
		if _, err := fmt.Sscanf(s, "%g", &f); err != nil {
			return nil, err
		}
		return expr.NewLiteralFloat(f), nil
	}
	if k.IsInteger() {
		var i int64
		if _, err := fmt.Sscanf(s, "%d", &i); err != nil {
			return nil, err
		}
		return expr.NewLiteralInt(i), nil
	}
	if k == vtype.KindBool {
		return expr.NewLiteralBool(s == "true" || s == "1"), nil
	}
	return expr.NewLiteralString(s), nil
}
