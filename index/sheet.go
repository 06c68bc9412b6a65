package index

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Row is one extracted index row: the 1-based row number and the
// three string cells the registry publishes per practitioner.
type Row struct {
	Number    int
	GLN       string
	LastName  string
	FirstName string
}

// Sheet streams rows out of the worksheet, resolving shared-string
// cell references through the given string table. Only shared-string
// typed cells in the first three columns carry meaning; the source
// format stores gln, lastName and firstName that way.
type Sheet struct {
	dec     *xml.Decoder
	strings []string
}

// NewSheet creates a Sheet over a worksheet stream.
func NewSheet(r io.Reader, sharedStrings []string) *Sheet {
	return &Sheet{dec: xml.NewDecoder(r), strings: sharedStrings}
}

const sheetContext = "worksheets/sheet.xml"

// Each invokes fn for every data row in document order. The header row
// (row number 1) is skipped. It fails with a ParseError when the
// stream is malformed or a shared-string reference is out of range,
// and with fn's error when fn fails.
func (s *Sheet) Each(fn func(Row) error) error {
	var (
		row       Row
		inRow     bool
		cellRef   string
		cellTyped bool // shared-string typed
		inValue   bool
		value     string
	)
	for {
		tok, err := s.dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return &ParseError{Context: sheetContext, Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "row":
				number, err := strconv.Atoi(attr(t, "r"))
				if err != nil {
					return &ParseError{Context: sheetContext, Err: fmt.Errorf("bad row number: %w", err)}
				}
				row = Row{Number: number}
				inRow = true
			case "c":
				cellRef = attr(t, "r")
				cellTyped = attr(t, "t") == "s"
			case "v":
				inValue = true
				value = ""
			}
		case xml.CharData:
			if inValue {
				value += string(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "row":
				if inRow && row.Number > 1 {
					if err := fn(row); err != nil {
						return err
					}
				}
				inRow = false
			case "c":
				if inRow && cellTyped && cellRef != "" {
					if err := s.resolve(&row, cellRef, value); err != nil {
						return err
					}
				}
				cellRef = ""
				cellTyped = false
				value = ""
			case "v":
				inValue = false
			}
		}
	}
}

// resolve assigns a shared-string cell to the row field its column
// designates.
func (s *Sheet) resolve(row *Row, cellRef, rawValue string) error {
	var target *string
	switch cellRef[0] {
	case 'A':
		target = &row.GLN
	case 'B':
		target = &row.LastName
	case 'C':
		target = &row.FirstName
	default:
		return nil
	}

	idx, err := strconv.Atoi(rawValue)
	if err != nil {
		return &ParseError{Context: sheetContext, Err: fmt.Errorf("cell %s: bad shared-string reference %q: %w", cellRef, rawValue, err)}
	}
	if idx < 0 || idx >= len(s.strings) {
		return &ParseError{Context: sheetContext, Err: fmt.Errorf("cell %s: shared-string index %d out of range", cellRef, idx)}
	}
	*target = s.strings[idx]
	return nil
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
