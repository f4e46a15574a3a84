package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nextDataPage = `<html><body>
<script id="__NEXT_DATA__" type="application/json">
{"props":{"pageProps":{"searchResults":[
  {"id":11223344,"url":"https://www.immoweb.be/fr/annonce/maison/a-vendre/musterstadt/1000/11223344",
   "title":"Maison unifamiliale","price":325000,"city":"Musterstadt",
   "publicationDate":"2024-03-05T10:00:00+01:00","bedroomCount":3},
  {"id":"11223355","detailUrl":"https://www.immoweb.be/fr/annonce/appartement/a-vendre/centre/1000/11223355",
   "heading":"Appartement lumineux","salePrice":"€ 210.000","location":"Centre"},
  {"id":99,"url":"https://elsewhere.example/x"}
]}}}
</script></body></html>`

func TestNextDataExtractor(t *testing.T) {
	items, err := NextDataExtractor{Host: "immoweb.be"}.Extract(nextDataPage)
	require.NoError(t, err)
	require.Len(t, items, 2, "off-host entries are dropped")

	byID := map[string]int{}
	for i, it := range items {
		byID[it.ID] = i
	}
	require.Contains(t, byID, "11223344")
	require.Contains(t, byID, "11223355")

	house := items[byID["11223344"]]
	assert.Equal(t, "Maison unifamiliale", house.Title)
	require.NotNil(t, house.Price)
	assert.Equal(t, 325000, *house.Price)
	require.NotNil(t, house.PublicationDate)
	require.NotNil(t, house.Bedrooms)
	assert.Equal(t, 3, *house.Bedrooms)
	assert.Equal(t, "maison", house.PropertyType)

	flat := items[byID["11223355"]]
	require.NotNil(t, flat.Price)
	assert.Equal(t, 210000, *flat.Price)
	assert.Equal(t, "Centre", flat.Location)
}

func TestNextDataExtractorNoBlob(t *testing.T) {
	items, err := NextDataExtractor{Host: "immoweb.be"}.Extract("<html><body>rien</body></html>")
	require.NoError(t, err)
	assert.Empty(t, items)
}
