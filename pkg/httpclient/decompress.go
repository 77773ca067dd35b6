package httpclient

import (
	"compress/flate"
	"compress/gzip"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

// decoders maps a Content-Encoding token to a body decoder.
var decoders = map[string]func(io.Reader) (io.Reader, error){
	EncodingGzip: func(r io.Reader) (io.Reader, error) {
		return gzip.NewReader(r)
	},
	EncodingDeflate: func(r io.Reader) (io.Reader, error) {
		return flate.NewReader(r), nil
	},
	EncodingBrotli: func(r io.Reader) (io.Reader, error) {
		return brotli.NewReader(r), nil
	},
}

// wrapDecompression decodes the body according to its Content-Encoding.
// Unknown encodings and decoder failures leave the body untouched.
func (c *Client) wrapDecompression(resp *http.Response) io.ReadCloser {
	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get(HeaderContentEncoding)))
	if encoding == "" || encoding == "identity" {
		return resp.Body
	}

	decode, ok := decoders[encoding]
	if !ok {
		c.logger.Debug("unsupported content encoding",
			slog.String("encoding", encoding),
			slog.String("host", resp.Request.URL.Host),
		)
		return resp.Body
	}

	decoded, err := decode(resp.Body)
	if err != nil {
		c.logger.Warn("decoding response body failed",
			slog.String("encoding", encoding),
			slog.String("error", err.Error()),
		)
		return resp.Body
	}

	// The decoded length differs from the wire length.
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true

	return &decodedBody{Reader: decoded, body: resp.Body}
}

type decodedBody struct {
	io.Reader
	body io.ReadCloser
}

func (d *decodedBody) Close() error {
	if c, ok := d.Reader.(io.Closer); ok {
		_ = c.Close()
	}
	return d.body.Close()
}

// limitedReader fails with ErrResponseTooLarge once more than limit bytes
// have been read.
type limitedReader struct {
	body      io.ReadCloser
	remaining int64
}

func newLimitedReader(r io.ReadCloser, limit int64) *limitedReader {
	return &limitedReader{body: r, remaining: limit}
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, ErrResponseTooLarge
	}
	n, err := l.body.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, ErrResponseTooLarge
	}
	return n, err
}

func (l *limitedReader) Close() error {
	return l.body.Close()
}
