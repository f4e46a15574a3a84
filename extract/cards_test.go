package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const khFragment = `
<div class="row">
  <div class="estate-card__wrap">
    <a class="estate-card" href="/fr/bien/123456/maison-musterstadt">
      <span class="estate-card__text">Maison 3 chambres</span>
      <span class="estate-card__text-details-price">€ 249.000</span>
      <span class="estate-card__text-details-location">Musterstadt</span>
    </a>
  </div>
  <div class="estate-card__wrap">
    <a class="estate-card" href="/fr/bien/123400/appartement-centre">
      <span class="estate-card__text">Appartement 2 ch</span>
      <span class="estate-card__text-details-price">€ 185.000</span>
      <span class="estate-card__text-details-location">Centre</span>
    </a>
  </div>
  <div class="estate-card__wrap">
    <a class="estate-card" href="/fr/bien/123456/maison-musterstadt">dup</a>
  </div>
  <a href="/fr/List/InfiniteScroll?json=%7B%7D">Charger plus</a>
</div>`

func khExtractor(t *testing.T) CardExtractor {
	t.Helper()
	site, ok := Lookup("immokh")
	require.True(t, ok)
	ext, ok := site.Extractor.(CardExtractor)
	require.True(t, ok)
	return ext
}

func TestCardExtractorParsesFragment(t *testing.T) {
	items, err := khExtractor(t).Extract(khFragment)
	require.NoError(t, err)
	require.Len(t, items, 2, "duplicate detail link must collapse")

	first := items[0]
	assert.Equal(t, "123456", first.ID)
	assert.Equal(t, "https://www.immo-kh.be/fr/bien/123456/maison-musterstadt", first.URL)
	assert.Equal(t, "Maison 3 chambres", first.Title)
	require.NotNil(t, first.Price)
	assert.Equal(t, 249000, *first.Price)
	assert.Equal(t, "Musterstadt", first.Location)
	require.NotNil(t, first.Bedrooms)
	assert.Equal(t, 3, *first.Bedrooms)
	assert.Equal(t, "maison", first.PropertyType)

	_, numeric := first.NumericID()
	assert.True(t, numeric)
}

func TestCardExtractorFallbackAnchors(t *testing.T) {
	// No estate-card class at all: the generic href scan must still find
	// the detail link.
	items, err := khExtractor(t).Extract(
		`<div><a href="/fr/bien/987654/villa">Villa 4 chambres € 420.000</a></div>`)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "987654", items[0].ID)
}

func TestCardExtractorSkipsBadHrefs(t *testing.T) {
	items, err := khExtractor(t).Extract(`
		<a class="estate-card" href="/fr/List/InfiniteScroll?json={}">more</a>
		<a class="estate-card" href="javascript:void(0)">nope</a>
		<a class="estate-card" href="/fr/bien/pas-d-id/">no id</a>`)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCardExtractorHashFallbackID(t *testing.T) {
	site, ok := Lookup("immotoma")
	require.True(t, ok)

	items, err := site.Extractor.Extract(`
		<div class="card">
		  <a href="https://immotoma.be/property/maison-vue-degagee/">Maison avec vue</a>
		  <span>295 000 €</span>
		</div>`)
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, "maison-vue-degagee", items[0].ID)
	_, numeric := items[0].NumericID()
	assert.False(t, numeric, "slug ids stay out of cursor arithmetic")
}
