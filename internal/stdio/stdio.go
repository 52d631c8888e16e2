// Package stdio resolves command line path arguments where "-" or an empty string
// means the standard streams.
package stdio

import (
	"io"
	"os"
)

// Input opens path for reading. "" and "-" mean stdin, which needs no Close.
func Input(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

// Output opens path for writing, truncating any existing file. "" and "-" mean stdout.
func Output(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
