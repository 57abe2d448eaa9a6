package datasource

import (
	"fmt"
	"io"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding identifies the character encoding of a file-backed source.
type Encoding string

// Supported encodings.
const (
	EncodingUTF8     Encoding = "utf-8"
	EncodingISO88591 Encoding = "iso-8859-1"
	EncodingASCII    Encoding = "ascii"
	EncodingUTF16    Encoding = "utf-16"
)

// Validate checks that the encoding is one of the supported values.
func (e Encoding) Validate() error {
	switch e {
	case EncodingUTF8, EncodingISO88591, EncodingASCII, EncodingUTF16:
		return nil
	}
	return fmt.Errorf("%w: %q (supported: utf-8, iso-8859-1, ascii, utf-16)", ErrUnsupportedEncoding, string(e))
}

// NewReader wraps r so its bytes are decoded from the encoding into UTF-8.
func (e Encoding) NewReader(r io.Reader) (io.Reader, error) {
	switch e {
	case EncodingUTF8:
		return r, nil
	case EncodingISO88591:
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	case EncodingASCII:
		return transform.NewReader(r, asciiValidator{}), nil
	case EncodingUTF16:
		// Honors a BOM when present, defaults to little endian.
		return transform.NewReader(r, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()), nil
	}
	return nil, e.Validate()
}

// NewWriter wraps w so UTF-8 input is encoded into the target encoding.
// Close flushes any buffered transformer state.
func (e Encoding) NewWriter(w io.Writer) (io.WriteCloser, error) {
	switch e {
	case EncodingUTF8:
		return nopWriteCloser{w}, nil
	case EncodingISO88591:
		return transform.NewWriter(w, charmap.ISO8859_1.NewEncoder()), nil
	case EncodingASCII:
		// ASCII output is UTF-8 output that rejects non-ASCII bytes.
		return transform.NewWriter(w, asciiValidator{}), nil
	case EncodingUTF16:
		return transform.NewWriter(w, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()), nil
	}
	return nil, e.Validate()
}

// asciiValidator is a pass-through transformer that fails on bytes outside
// the 7-bit range. x/text has no ASCII codec of its own.
type asciiValidator struct {
	transform.NopResetter
}

func (asciiValidator) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	n := len(src)
	if len(dst) < n {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		if src[i] > 0x7F {
			copy(dst, src[:i])
			return i, i, fmt.Errorf("invalid ascii byte 0x%02x", src[i])
		}
	}
	copy(dst, src[:n])
	if n < len(src) {
		return n, n, transform.ErrShortDst
	}
	return n, n, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
