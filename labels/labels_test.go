package labels

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planadoc/medregsync/models/registry"
)

const labelPage = `<!DOCTYPE html>
<html>
<body>
  <form>
    <label for="search_Gln">Numéro GLN</label>
    <input type="text" name="Gln">
    <label for="search_Name">Nom</label>
    <label for="plain">ignored, no underscore code</label>
    <label for="too_many_parts">ignored as well</label>
    <br>
  </form>
</body>
</html>`

func collect(t *testing.T, page, language string) []registry.Label {
	t.Helper()
	var got []registry.Label
	err := Parse(strings.NewReader(page), language, func(l registry.Label) error {
		got = append(got, l)
		return nil
	})
	require.NoError(t, err)
	return got
}

func TestParse(t *testing.T) {
	got := collect(t, labelPage, "FR")
	assert.Equal(t, []registry.Label{
		{LabelFor: "Gln", Language: "FR", LabelValue: "Numéro GLN"},
		{LabelFor: "Name", Language: "FR", LabelValue: "Nom"},
	}, got)
}

func TestParseUnterminatedLabel(t *testing.T) {
	// A label cut off by the end of the page still yields its value.
	got := collect(t, `<body><label for="search_Ort">Lieu`, "DE")
	assert.Equal(t, []registry.Label{
		{LabelFor: "Ort", Language: "DE", LabelValue: "Lieu"},
	}, got)
}

func TestParseTruncatedPageKeepsCompleteLabels(t *testing.T) {
	// Truncation inside a trailing element does not lose the labels
	// scanned before it.
	got := collect(t, `<body><label for="search_Gln">Numéro GLN</label><div class="trail`, "FR")
	assert.Equal(t, []registry.Label{
		{LabelFor: "Gln", Language: "FR", LabelValue: "Numéro GLN"},
	}, got)
}

func TestParsePropagatesCallbackError(t *testing.T) {
	err := Parse(strings.NewReader(labelPage), "IT", func(registry.Label) error {
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
}

type fakeLabelStore struct {
	labels []registry.Label
}

func (s *fakeLabelStore) Upsert(_ context.Context, label registry.Label) error {
	s.labels = append(s.labels, label)
	return nil
}

func TestDownloadAll(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_, _ = w.Write([]byte(labelPage))
	}))
	defer srv.Close()

	store := &fakeLabelStore{}
	d := NewDownloader(srv.URL, srv.Client(), store, zerolog.Nop())
	require.NoError(t, d.DownloadAll(context.Background()))

	assert.Equal(t, []string{"/", "/FR", "/IT"}, paths)
	// Two labels per language page.
	require.Len(t, store.labels, 6)
	assert.Equal(t, "DE", store.labels[0].Language)
	assert.Equal(t, "FR", store.labels[2].Language)
	assert.Equal(t, "IT", store.labels[4].Language)
}

func TestDownloadAllFailsOnHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	d := NewDownloader(srv.URL, srv.Client(), &fakeLabelStore{}, zerolog.Nop())
	err := d.DownloadAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP")
}
