// Package index reads the bulk practitioner index: a zip container
// holding a shared-string table and a row-oriented worksheet.
package index

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"
)

// ParseError reports a malformed bulk index document.
type ParseError struct {
	Context string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("index: parsing %s: %v", e.Context, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

const (
	sharedStringsEntry = "xl/sharedStrings.xml"
	worksheetDir       = "xl/worksheets/"
)

// Container is an opened bulk index file.
type Container struct {
	rc *zip.ReadCloser
}

// OpenContainer opens the downloaded bulk index.
func OpenContainer(path string) (*Container, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, &ParseError{Context: path, Err: err}
	}
	return &Container{rc: rc}, nil
}

// Close releases the underlying file.
func (c *Container) Close() error {
	return c.rc.Close()
}

// SharedStrings opens the shared-string table entry.
func (c *Container) SharedStrings() (io.ReadCloser, error) {
	return c.open(func(name string) bool { return name == sharedStringsEntry })
}

// Worksheet opens the first worksheet entry.
func (c *Container) Worksheet() (io.ReadCloser, error) {
	return c.open(func(name string) bool {
		return strings.HasPrefix(name, worksheetDir) && strings.HasSuffix(name, ".xml")
	})
}

func (c *Container) open(match func(string) bool) (io.ReadCloser, error) {
	for _, f := range c.rc.File {
		if match(f.Name) {
			r, err := f.Open()
			if err != nil {
				return nil, &ParseError{Context: f.Name, Err: err}
			}
			return r, nil
		}
	}
	return nil, &ParseError{Context: "container", Err: fmt.Errorf("no matching entry found")}
}
