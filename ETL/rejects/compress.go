package rejects

import (
	"io"

	"github.com/golang/snappy"
)

// compressWriter оборачивает w в потоковый формат snappy
func compressWriter(w io.Writer) *snappy.Writer {
	return snappy.NewBufferedWriter(w)
}

// decompressReader читает поток snappy
func decompressReader(r io.Reader) io.Reader {
	return snappy.NewReader(r)
}
