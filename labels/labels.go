// Package labels ingests the translated UI labels published on the
// directory service's search pages.
package labels

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/planadoc/medregsync/models/registry"
)

// Language is one label page to ingest.
type Language struct {
	Code string // stored language code
	Path string // URL path appended to the base URL
}

// Languages lists the pages the registry publishes.
var Languages = []Language{
	{Code: "DE", Path: ""},
	{Code: "FR", Path: "/FR"},
	{Code: "IT", Path: "/IT"},
}

// Store persists parsed labels.
type Store interface {
	Upsert(ctx context.Context, label registry.Label) error
}

// Downloader fetches and persists the label pages.
type Downloader struct {
	baseURL    string
	httpClient *http.Client
	store      Store
	log        zerolog.Logger
}

// NewDownloader creates a label Downloader.
func NewDownloader(baseURL string, httpClient *http.Client, store Store, log zerolog.Logger) *Downloader {
	return &Downloader{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		store:      store,
		log:        log,
	}
}

// DownloadAll ingests the label pages for every language. Any failure
// is fatal to the pass.
func (d *Downloader) DownloadAll(ctx context.Context) error {
	for _, lang := range Languages {
		if err := d.download(ctx, lang); err != nil {
			return err
		}
	}
	return nil
}

func (d *Downloader) download(ctx context.Context, lang Language) error {
	url := d.baseURL + lang.Path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build label request for %s: %w", lang.Code, err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download %s labels from %s: %w", lang.Code, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s labels from %s: HTTP %s", lang.Code, url, resp.Status)
	}

	count := 0
	err = Parse(resp.Body, lang.Code, func(label registry.Label) error {
		count++
		return d.store.Upsert(ctx, label)
	})
	if err != nil {
		return fmt.Errorf("parse %s labels from %s: %w", lang.Code, url, err)
	}

	d.log.Info().Str("language", lang.Code).Int("labels", count).Msg("Labels ingested")
	return nil
}

// Parse scans a label page for LABEL elements whose FOR attribute has
// the form prefix_code and yields one registry label per element. The
// page is HTML, so the decoder runs in lenient mode the way the
// original sax scan did.
func Parse(r io.Reader, language string, fn func(registry.Label) error) error {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose

	var (
		labelFor string
		value    strings.Builder
		captured bool
	)
	flush := func() error {
		if !captured {
			return nil
		}
		label := registry.Label{
			LabelFor:   labelFor,
			Language:   language,
			LabelValue: value.String(),
		}
		captured = false
		value.Reset()
		return fn(label)
	}

	for {
		tok, err := dec.Token()
		if truncated(err) {
			return flush()
		}
		if err != nil {
			return fmt.Errorf("scan label page: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if err := flush(); err != nil {
				return err
			}
			if code, ok := labelCode(t); ok {
				labelFor = code
				captured = true
			}
		case xml.CharData:
			if captured {
				value.Write(t)
			}
		case xml.EndElement:
			if strings.EqualFold(t.Name.Local, "label") {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}
}

// truncated reports whether the decoder hit the end of the stream,
// cleanly or inside an open element. Label pages routinely end mid
// element, so truncation ends the scan instead of failing it.
func truncated(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var syntaxErr *xml.SyntaxError
	return errors.As(err, &syntaxErr) && syntaxErr.Msg == "unexpected EOF"
}

func labelCode(el xml.StartElement) (string, bool) {
	if !strings.EqualFold(el.Name.Local, "label") {
		return "", false
	}
	for _, a := range el.Attr {
		if !strings.EqualFold(a.Name.Local, "for") {
			continue
		}
		parts := strings.Split(a.Value, "_")
		if len(parts) == 2 {
			return parts[1], true
		}
	}
	return "", false
}
