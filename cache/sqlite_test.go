package cache

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visual-nuts/models"
)

func newTestCache(t *testing.T) *AnalysisCache {
	t.Helper()
	c, err := New(filepath.Join(t.TempDir(), "nested", "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestAnalysisCache(t *testing.T) {
	c := newTestCache(t)

	countries := []models.Country{
		{Country: "BE", Languages: []string{"nl", "fr", "de"}},
		{Country: "DE", Languages: []string{"de"}},
	}
	result := models.AnalysisResult{
		CountryCount:                     2,
		MostPolyglotCountry:              "BE",
		MostPolyglotGermanSpeakerCountry: "BE",
		OfficialLanguageCount:            3,
		MostSpokenLanguages:              []string{"de"},
	}
	fp, err := Fingerprint(countries)
	require.NoError(t, err)

	t.Run("Miss", func(t *testing.T) {
		_, err := c.Get(fp)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = c.GetByID("nope")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, 0, c.Stats())
	})

	var id string
	t.Run("Save", func(t *testing.T) {
		var err error
		id, err = c.Save(fp, countries, result)
		require.NoError(t, err)
		assert.NotEmpty(t, id)
		assert.Equal(t, 1, c.Stats())
	})

	t.Run("Get", func(t *testing.T) {
		rec, err := c.Get(fp)
		require.NoError(t, err)
		assert.Equal(t, id, rec.ID)
		assert.Equal(t, fp, rec.Fingerprint)
		assert.Equal(t, countries, rec.Countries)
		assert.Equal(t, result, rec.Result)
		assert.NotEmpty(t, rec.CreatedAt)

		byID, err := c.GetByID(id)
		require.NoError(t, err)
		assert.Equal(t, rec, byID)
	})

	t.Run("SaveSameFingerprintKeepsID", func(t *testing.T) {
		again, err := c.Save(fp, countries, result)
		require.NoError(t, err)
		assert.Equal(t, id, again)
		assert.Equal(t, 1, c.Stats())

		_, err = c.GetByID(id)
		assert.NoError(t, err)
	})
}

func TestAnalysisCache_ConcurrentSaveSameFingerprint(t *testing.T) {
	c := newTestCache(t)

	countries := []models.Country{{Country: "NL", Languages: []string{"nl"}}}
	result := models.AnalysisResult{CountryCount: 1, MostPolyglotCountry: "NL", OfficialLanguageCount: 1, MostSpokenLanguages: []string{"nl"}}
	fp, err := Fingerprint(countries)
	require.NoError(t, err)

	const writers = 32
	ids := make([]string, writers)
	errs := make([]error, writers)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = c.Save(fp, countries, result)
		}(i)
	}
	wg.Wait()

	for i := 0; i < writers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.Equal(t, 1, c.Stats())

	rec, err := c.GetByID(ids[0])
	require.NoError(t, err)
	assert.Equal(t, fp, rec.Fingerprint)
}

func TestFingerprint(t *testing.T) {
	a := []models.Country{{Country: "A", Languages: []string{"x"}}, {Country: "B", Languages: []string{"y"}}}
	b := []models.Country{{Country: "B", Languages: []string{"y"}}, {Country: "A", Languages: []string{"x"}}}

	fa, err := Fingerprint(a)
	require.NoError(t, err)
	fa2, err := Fingerprint(a)
	require.NoError(t, err)
	fb, err := Fingerprint(b)
	require.NoError(t, err)
	empty, err := Fingerprint(nil)
	require.NoError(t, err)

	assert.Equal(t, fa, fa2)
	assert.NotEqual(t, fa, fb)
	assert.Len(t, empty, 32)
}
