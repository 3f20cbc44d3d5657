package csvsrc

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/golang/snappy"
)

// Compression identifies a byte-stream envelope wrapped around the
// delimited text itself, detected by file signature the same way the
// teacher's database/inference_format.go's inferCompression does.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionBzip2
	CompressionSnappy
)

var compressionSignatures = map[Compression][]byte{
	CompressionGzip:   {0x1f, 0x8b},
	CompressionBzip2:  {0x42, 0x5a, 0x68}, // "BZh"
	CompressionSnappy: snappyFramedMagic,
}

// snappyFramedMagic is the framing-format stream identifier chunk
// (golang/snappy's framed writer always emits this first), used to sniff
// snappy input the same way gzip/bzip2 are sniffed by magic bytes.
var snappyFramedMagic = []byte{0xff, 0x06, 0x00, 0x00, 's', 'N', 'a', 'P', 'p', 'Y'}

// DetectCompression inspects a sample of the stream's leading bytes and
// returns the matching Compression, or CompressionNone if no signature
// matches.
func DetectCompression(header []byte) Compression {
	for c, sig := range compressionSignatures {
		if bytes.HasPrefix(header, sig) {
			return c
		}
	}
	return CompressionNone
}

// Decompress wraps r in the decompressor matching c, or returns r unchanged
// for CompressionNone.
func Decompress(r io.Reader, c Compression) (io.Reader, error) {
	switch c {
	case CompressionNone:
		return r, nil
	case CompressionGzip:
		return gzip.NewReader(r)
	case CompressionBzip2:
		return bzip2.NewReader(r), nil
	case CompressionSnappy:
		return snappy.NewReader(r), nil
	default:
		return nil, fmt.Errorf("csvsrc: unsupported compression %d", c)
	}
}

var bomBytes = []byte{0xef, 0xbb, 0xbf}

// SkipBOM consumes a leading UTF-8 byte-order mark from r, if present,
// returning a reader positioned right after it. Grounded in the teacher's
// database/loader.go skipBom, generalised to always preserve any bytes read
// that turn out not to be the BOM (the teacher's version drops them).
func SkipBOM(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	lead, err := br.Peek(len(bomBytes))
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return br, nil
		}
		return nil, err
	}
	if bytes.Equal(lead, bomBytes) {
		if _, err := br.Discard(len(bomBytes)); err != nil {
			return nil, err
		}
	}
	return br, nil
}

// sniffSampleSize is how many leading bytes are buffered before deciding on
// compression, mirroring the teacher's 32-byte compression-signature sample.
const sniffSampleSize = 32

// delimiterCandidates are tried, in order, when Sniff is asked to guess a
// field delimiter: comma first since it is by far the common case, then the
// next three most frequently seen separators in the wild.
var delimiterCandidates = []byte{',', '\t', ';', '|'}

// delimiterSampleSize is how many leading bytes of the (decompressed,
// BOM-stripped) stream Sniff inspects when guessing a delimiter.
const delimiterSampleSize = 64 * 1024

// Sniff inspects a sample of src - after transparently undoing any
// compression envelope and BOM, the same pipeline New runs internally via
// prepare - and fills in opts.Delimiter when it is the zero byte, using
// guessDelimiter's majority vote over the sampled lines. It returns an
// io.Reader positioned at the very start of the (decompressed) stream, so
// the caller passes that reader, not src, to New.
func Sniff(src io.Reader, opts Options) (Options, io.Reader, error) {
	prepared, err := prepare(src)
	if err != nil {
		return opts, nil, err
	}
	if opts.Delimiter != 0 {
		return opts, prepared, nil
	}
	br := bufio.NewReaderSize(prepared, delimiterSampleSize)
	sample, err := br.Peek(delimiterSampleSize)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return opts, nil, err
	}
	opts.Delimiter = guessDelimiter(sample)
	return opts, br, nil
}

// guessDelimiter scores each candidate by how many sampled lines share its
// most common nonzero per-line occurrence count, and picks the highest
// score, preferring the earliest candidate in delimiterCandidates on a tie.
// Falls back to comma when no candidate occurs on any line (e.g. a
// single-column sample).
func guessDelimiter(sample []byte) byte {
	lines := bytes.Split(sample, []byte{'\n'})
	if len(lines) > 1 {
		lines = lines[:len(lines)-1] // last entry may be a partial line
	}
	best := delimiterCandidates[0]
	bestScore := -1
	for _, cand := range delimiterCandidates {
		counts := make(map[int]int)
		for _, line := range lines {
			line = bytes.TrimRight(line, "\r")
			if len(line) == 0 {
				continue
			}
			counts[bytes.Count(line, []byte{cand})]++
		}
		if len(counts) == 0 {
			continue
		}
		// score: how many lines agree with the majority field count, only
		// counting candidates that actually appear at least once per line
		majority := 0
		for n, c := range counts {
			if n > 0 && c > majority {
				majority = c
			}
		}
		if majority > bestScore {
			bestScore = majority
			best = cand
		}
	}
	return best
}

// prepare opens the detect-compression -> decompress -> skip-BOM pipeline
// over raw, returning a reader ready for the tokenizer.
func prepare(raw io.Reader) (io.Reader, error) {
	br := bufio.NewReaderSize(raw, 64*1024)
	lead, err := br.Peek(sniffSampleSize)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	c := DetectCompression(lead)
	decompressed, err := Decompress(br, c)
	if err != nil {
		return nil, fmt.Errorf("csvsrc: decompress: %w", err)
	}
	return SkipBOM(decompressed)
}
