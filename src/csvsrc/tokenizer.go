package csvsrc

import (
	"io"

	"github.com/vectra-db/vectra/src/chunk"
	"github.com/vectra-db/vectra/src/dict"
	"github.com/vectra-db/vectra/src/vbuf"
	"github.com/vectra-db/vectra/src/verr"
	"github.com/vectra-db/vectra/src/vtype"
)

// scanState is one of the five states spec.md §4.15 names for the
// byte-level tokenizer: FieldStart, Field, QuotedField, QuoteInQuotedField,
// CR (the last absorbing a lone \r so a following \n doesn't start an empty
// row).
type scanState uint8

const (
	stateFieldStart scanState = iota
	stateField
	stateQuotedField
	stateQuoteInQuotedField
	stateCR
)

const rawBufferSize = 64 * 1024

// Reader tokenizes a delimited byte stream directly into chunks of
// schema-typed ColumnBuffers, without ever materialising an intermediate
// []string row (spec.md §4.15). It replaces the teacher's database/loader.go,
// which builds a bufio.Scanner/encoding-csv pipeline and types each row only
// after encoding/csv has already split it into strings.
type Reader struct {
	src    io.Reader
	opts   Options
	schema vtype.Schema
	pool   *vbuf.BufferPool
	dic    *dict.Dictionary

	// invProjection[csvColumnIndex] is the target schema column index, or -1
	// if that CSV column is not projected into the output (dropped).
	invProjection []int

	raw    []byte
	rawLen int
	pos    int

	pendingPrefix []byte
	state         scanState

	csvCol        int
	appended      []bool // per schema column, whether this row has supplied a value yet
	headerFields  []string
	headerParsed  bool
	dataRowsSeen  int // counts data rows, for SkipRows
	srcExhausted  bool
	finished      bool

	builders    []vbuf.Buffer
	rowsInChunk int
	rowsEmitted int

	headerErr              error
	finishedAfterThisChunk bool
}

// New constructs a Reader over src (raw bytes, possibly compressed and/or
// BOM-prefixed - Sniff handles both transparently) that will produce chunks
// conforming to schema.
func New(src io.Reader, schema vtype.Schema, opts Options, pool *vbuf.BufferPool, dic *dict.Dictionary) (*Reader, error) {
	opts = opts.withDefaults()
	prepared, err := prepare(src)
	if err != nil {
		return nil, err
	}
	if dic == nil {
		dic = dict.New()
	}
	r := &Reader{
		src:      prepared,
		opts:     opts,
		schema:   schema,
		pool:     pool,
		dic:      dic,
		raw:      make([]byte, rawBufferSize),
		appended: make([]bool, schema.Len()),
	}
	if !opts.HasHeader {
		r.invProjection = projectionToInverse(opts.projectionFor(schema), schema.Len())
		r.headerParsed = true
		if err := r.startChunk(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func projectionToInverse(projection []int, _ int) []int {
	maxCSVCol := -1
	for _, c := range projection {
		if c > maxCSVCol {
			maxCSVCol = c
		}
	}
	inv := make([]int, maxCSVCol+1)
	for i := range inv {
		inv[i] = -1
	}
	for schemaIdx, csvIdx := range projection {
		inv[csvIdx] = schemaIdx
	}
	return inv
}

func (r *Reader) startChunk() error {
	capacity := r.opts.ChunkSize
	r.builders = make([]vbuf.Buffer, r.schema.Len())
	for i, col := range r.schema.Columns {
		b, err := r.pool.Acquire(col.DType.Kind, capacity, col.DType.Nullable, r.dic)
		if err != nil {
			return err
		}
		r.builders[i] = b
	}
	r.rowsInChunk = 0
	return nil
}

// ReadChunk returns the next batch of up to ChunkSize rows as a Chunk, or
// io.EOF once the stream is exhausted with no rows left to flush.
func (r *Reader) ReadChunk() (*chunk.Chunk, error) {
	if r.finished {
		return nil, io.EOF
	}
	for {
		ready, err := r.scanAvailable()
		if err != nil {
			return nil, err
		}
		if ready {
			return r.flushChunk()
		}
		if r.pos >= r.rawLen {
			if r.srcExhausted {
				return r.finishAtEOF()
			}
			if err := r.refill(); err != nil {
				return nil, err
			}
		}
	}
}

func (r *Reader) refill() error {
	n, err := r.src.Read(r.raw)
	r.rawLen = n
	r.pos = 0
	if err != nil {
		if err == io.EOF {
			r.srcExhausted = true
			return nil
		}
		return err
	}
	if n == 0 {
		r.srcExhausted = true
	}
	return nil
}

// scanAvailable processes raw[pos:rawLen] until either a chunk boundary is
// reached (returns ready=true) or the available bytes are exhausted.
func (r *Reader) scanAvailable() (ready bool, err error) {
	for r.pos < r.rawLen {
		c := r.raw[r.pos]
		switch r.state {
		case stateFieldStart:
			switch {
			case c == r.opts.Quote:
				r.state = stateQuotedField
				r.pos++
			case c == r.opts.Delimiter:
				if err := r.completeField(); err != nil {
					return false, err
				}
				r.pos++
			case c == '\n':
				if err := r.completeField(); err != nil {
					return false, err
				}
				if r.completeRow() {
					r.pos++
					return true, nil
				}
				r.pos++
			case c == '\r':
				if err := r.completeField(); err != nil {
					return false, err
				}
				r.state = stateCR
				r.pos++
			default:
				r.state = stateField
				r.pendingPrefix = append(r.pendingPrefix, c)
				r.pos++
			}
		case stateField:
			switch {
			case c == r.opts.Delimiter:
				if err := r.completeField(); err != nil {
					return false, err
				}
				r.state = stateFieldStart
				r.pos++
			case c == '\n':
				if err := r.completeField(); err != nil {
					return false, err
				}
				r.state = stateFieldStart
				if r.completeRow() {
					r.pos++
					return true, nil
				}
				r.pos++
			case c == '\r':
				if err := r.completeField(); err != nil {
					return false, err
				}
				r.state = stateCR
				r.pos++
			default:
				r.pendingPrefix = append(r.pendingPrefix, c)
				r.pos++
			}
		case stateQuotedField:
			if c == r.opts.Quote {
				r.state = stateQuoteInQuotedField
			} else {
				r.pendingPrefix = append(r.pendingPrefix, c)
			}
			r.pos++
		case stateQuoteInQuotedField:
			switch {
			case c == r.opts.Quote:
				r.pendingPrefix = append(r.pendingPrefix, c)
				r.state = stateQuotedField
				r.pos++
			case c == r.opts.Delimiter:
				if err := r.completeField(); err != nil {
					return false, err
				}
				r.state = stateFieldStart
				r.pos++
			case c == '\n':
				if err := r.completeField(); err != nil {
					return false, err
				}
				r.state = stateFieldStart
				if r.completeRow() {
					r.pos++
					return true, nil
				}
				r.pos++
			case c == '\r':
				if err := r.completeField(); err != nil {
					return false, err
				}
				r.state = stateCR
				r.pos++
			default:
				// trailing bytes after a closing quote before a delimiter:
				// lenient mode folds them back into the field's content.
				r.pendingPrefix = append(r.pendingPrefix, c)
				r.state = stateField
				r.pos++
			}
		case stateCR:
			if c == '\n' {
				if r.completeRow() {
					r.pos++
					return true, nil
				}
				r.state = stateFieldStart
				r.pos++
				continue
			}
			// lone CR (old-Mac line ending): the row already ended at the \r
			// itself, so complete it now and reprocess c as the start of the
			// next row without consuming it.
			r.state = stateFieldStart
			if r.completeRow() {
				return true, nil
			}
		}
	}
	return false, nil
}

// completeField decodes pendingPrefix as the field at the current csvCol and
// resets pendingPrefix for the next field.
func (r *Reader) completeField() error {
	field := r.pendingPrefix
	defer func() { r.pendingPrefix = r.pendingPrefix[:0]; r.csvCol++ }()

	if r.opts.HasHeader && !r.headerParsed {
		r.headerFields = append(r.headerFields, string(field))
		return nil
	}
	if r.dataRowsSeen < r.opts.SkipRows {
		return nil
	}
	if r.csvCol >= len(r.invProjection) {
		return nil // extra trailing CSV column beyond anything we know about
	}
	schemaIdx := r.invProjection[r.csvCol]
	if schemaIdx < 0 {
		return nil // CSV column not projected into the output schema
	}
	col := r.schema.Columns[schemaIdx]
	if err := appendField(r.builders[schemaIdx], col.DType, field, r.opts.NullLiterals); err != nil {
		if ve, ok := err.(*verr.Error); ok {
			return ve.WithColumn(col.Name).WithRow(r.rowsEmitted)
		}
		return err
	}
	r.appended[schemaIdx] = true
	return nil
}

// completeRow finalises the row that just ended. It returns true when this
// row completion also completes a full chunk, signalling ReadChunk to flush.
func (r *Reader) completeRow() bool {
	defer func() { r.csvCol = 0 }()

	if r.opts.HasHeader && !r.headerParsed {
		r.headerParsed = true
		inv, err := validateHeader(r.headerFields, r.schema, r.opts)
		if err != nil {
			// surfaced on the next ReadChunk call via a sticky error state
			r.headerErr = err
		}
		r.invProjection = inv
		if err := r.startChunk(); err != nil && r.headerErr == nil {
			r.headerErr = err
		}
		return false
	}
	if r.dataRowsSeen < r.opts.SkipRows {
		r.dataRowsSeen++
		return false
	}
	r.dataRowsSeen++

	for i := range r.appended {
		if !r.appended[i] {
			var err error
			if r.builders[i].Nullable() {
				err = r.builders[i].AppendNull()
			} else {
				err = appendZero(r.builders[i])
			}
			if err != nil {
				r.headerErr = err
			}
		}
		r.appended[i] = false
	}
	r.rowsInChunk++
	r.rowsEmitted++
	if r.opts.MaxRows > 0 && r.rowsEmitted >= r.opts.MaxRows {
		r.finishedAfterThisChunk = true
		return true
	}
	return r.rowsInChunk >= r.opts.ChunkSize
}

func (r *Reader) flushChunk() (*chunk.Chunk, error) {
	if r.headerErr != nil {
		err := r.headerErr
		r.headerErr = nil
		return nil, err
	}
	c, err := chunk.New(r.schema, r.builders, r.dic, r.pool)
	if err != nil {
		return nil, err
	}
	if r.finishedAfterThisChunk {
		r.finished = true
	} else if err := r.startChunk(); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *Reader) finishAtEOF() (*chunk.Chunk, error) {
	if r.state == stateQuotedField || r.state == stateQuoteInQuotedField {
		r.finished = true
		return nil, verr.New(verr.KindUnclosedQuote, "csvsrc: input ends inside a quoted field")
	}
	// flush whatever partial field/row remains unterminated at true EOF.
	if len(r.pendingPrefix) > 0 || r.state == stateField {
		if err := r.completeField(); err != nil {
			r.finished = true
			return nil, err
		}
		r.completeRow()
	} else if r.csvCol > 0 {
		r.completeRow()
	}
	r.finished = true
	if r.headerErr != nil {
		return nil, r.headerErr
	}
	if r.rowsInChunk == 0 {
		return nil, io.EOF
	}
	return chunk.New(r.schema, r.builders, r.dic, r.pool)
}
