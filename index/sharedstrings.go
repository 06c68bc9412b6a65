package index

import (
	"encoding/xml"
	"errors"
	"io"
)

// ParseSharedStrings reads the shared-string table into an ordered,
// index-addressable slice. Rich-text runs inside one string item are
// concatenated.
func ParseSharedStrings(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		strs     []string
		inItem   bool
		inText   bool
		current  string
		sawTable bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ParseError{Context: "sharedStrings.xml", Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "sst":
				sawTable = true
			case "si":
				inItem = true
				current = ""
			case "t":
				inText = inItem
			}
		case xml.CharData:
			if inText {
				current += string(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "si":
				strs = append(strs, current)
				inItem = false
			case "t":
				inText = false
			}
		}
	}
	if !sawTable {
		return nil, &ParseError{Context: "sharedStrings.xml", Err: errors.New("no shared-string table element")}
	}
	return strs, nil
}
