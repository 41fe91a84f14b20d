package analysis

import (
	"bufio"
	"errors"
	"io"
	"unicode"
	"unicode/utf8"
)

// DefaultBufferSize is the default token buffer capacity in bytes.
const DefaultBufferSize = 256

// minBufferSize guarantees room for any single UTF-8 rune.
const minBufferSize = utf8.UTFMax

// TokenSource is a lazy, restartable stream of tokens.
type TokenSource interface {
	// Reset restarts the source over r.
	Reset(r io.Reader)
	// Next advances to the next token.
	Next() bool
	// Token returns the current token. It is valid until the next call to Next.
	Token() []byte
	// Line is the 1-based line at which reading currently stands.
	Line() int
	// Column is the 1-based column at which reading currently stands.
	Column() int
	// Err returns the first non-EOF read error.
	Err() error
}

var _ TokenSource = (*StringTokenizer)(nil)

// StringTokenizer splits text on whitespace and commas. A double-quoted span
// is one token, whitespace and newlines included. Punctuation immediately
// followed by whitespace, a comma or the end of input is dropped; elsewhere it
// is kept, so addresses and contractions stay whole. A quote left open at the
// end of input is tokenized again as ordinary text.
//
// The token buffer has a fixed byte capacity; a token that would overflow it
// is cut and the remainder starts the next token.
type StringTokenizer struct {
	r   *bufio.Reader
	buf []byte

	// runes to be read before the reader, last element first
	ahead []rune
	// bytes from an unterminated quote that are read again
	replay []byte

	inQuote bool
	line    int
	col     int
	lastCR  bool
	err     error
}

// NewStringTokenizer returns a tokenizer over r with a bufferSize byte token
// buffer. r may be nil and provided later through Reset.
func NewStringTokenizer(r io.Reader, bufferSize int) *StringTokenizer {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	bufferSize = max(bufferSize, minBufferSize)
	t := &StringTokenizer{buf: make([]byte, 0, bufferSize)}
	t.Reset(r)
	return t
}

// Reset restarts the tokenizer over r, keeping its buffer.
func (t *StringTokenizer) Reset(r io.Reader) {
	if r == nil {
		r = eofReader{}
	}
	if t.r == nil {
		t.r = bufio.NewReader(r)
	} else {
		t.r.Reset(r)
	}
	t.buf = t.buf[:0]
	t.ahead = t.ahead[:0]
	t.replay = t.replay[:0]
	t.inQuote = false
	t.line, t.col = 1, 1
	t.lastCR = false
	t.err = nil
}

// Token returns the current token.
func (t *StringTokenizer) Token() []byte { return t.buf }

// Line returns the current line.
func (t *StringTokenizer) Line() int { return t.line }

// Column returns the current column.
func (t *StringTokenizer) Column() int { return t.col }

// Err returns the first non-EOF read error.
func (t *StringTokenizer) Err() error { return t.err }

// Next advances to the next token.
func (t *StringTokenizer) Next() bool {
	t.buf = t.buf[:0]
	for {
		r, ok := t.read()
		if !ok {
			if t.inQuote {
				// Read the unterminated span again, unquoted.
				t.inQuote = false
				t.replay = append(t.replay[:0], t.buf...)
				t.buf = t.buf[:0]
				continue
			}
			return len(t.buf) > 0
		}

		if t.inQuote {
			if r == '"' {
				t.inQuote = false
				if len(t.buf) > 0 {
					return true
				}
				continue
			}
			if !t.append(r) {
				return true
			}
			continue
		}

		switch {
		case r == '"':
			t.inQuote = true
			if len(t.buf) > 0 {
				return true
			}
		case r == ',' || unicode.IsSpace(r):
			if len(t.buf) > 0 {
				return true
			}
		case unicode.IsPunct(r) && t.boundaryAhead():
			if len(t.buf) > 0 {
				return true
			}
		default:
			if !t.append(r) {
				return true
			}
		}
	}
}

// append adds r to the token. When the buffer is full, r is pushed back to
// start the next token and append reports false.
func (t *StringTokenizer) append(r rune) bool {
	if len(t.buf)+utf8.RuneLen(r) > cap(t.buf) {
		t.ahead = append(t.ahead, r)
		return false
	}
	t.buf = utf8.AppendRune(t.buf, r)
	return true
}

// boundaryAhead reports whether the next rune ends a token.
func (t *StringTokenizer) boundaryAhead() bool {
	r, ok := t.read()
	if !ok {
		return true
	}
	t.ahead = append(t.ahead, r)
	return r == ',' || unicode.IsSpace(r)
}

func (t *StringTokenizer) read() (rune, bool) {
	if n := len(t.ahead); n > 0 {
		r := t.ahead[n-1]
		t.ahead = t.ahead[:n-1]
		return r, true
	}
	if len(t.replay) > 0 {
		r, size := utf8.DecodeRune(t.replay)
		t.replay = t.replay[size:]
		return r, true
	}
	if t.err != nil {
		return 0, false
	}
	r, _, err := t.r.ReadRune()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			t.err = err
		}
		return 0, false
	}
	t.advance(r)
	return r, true
}

func (t *StringTokenizer) advance(r rune) {
	switch r {
	case '\r':
		t.line++
		t.col = 1
		t.lastCR = true
		return
	case '\n':
		if !t.lastCR {
			t.line++
		}
		t.col = 1
	default:
		t.col++
	}
	t.lastCR = false
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
