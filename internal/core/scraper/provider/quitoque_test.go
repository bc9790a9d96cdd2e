package provider

import (
	"context"
	"testing"

	"recipe-importer/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubFetcher serves canned HTML per URL.
type stubFetcher struct {
	pages map[string]string
	calls []string
}

func (f *stubFetcher) FetchPage(_ context.Context, url string) (string, error) {
	f.calls = append(f.calls, url)
	html, ok := f.pages[url]
	if !ok {
		return "", common.NewFetchFailureError(url, 404, nil)
	}
	return html, nil
}

func TestResolveBaseURL(t *testing.T) {
	q := NewQuitoque(&stubFetcher{})

	base, err := q.ResolveBaseURL("fr")
	require.NoError(t, err)
	assert.Equal(t, "https://www.quitoque.fr", base)

	// Regional variants of French resolve too
	base, err = q.ResolveBaseURL("fr-BE")
	require.NoError(t, err)
	assert.Equal(t, "https://www.quitoque.fr", base)

	_, err = q.ResolveBaseURL("en-US")
	require.Error(t, err)
	assert.True(t, common.IsUnsupportedLocale(err))
}

func TestDiscoverCategoryURLs(t *testing.T) {
	listing := `<html><body>
		<a href="/recettes/plats-vegetariens">Végétarien</a>
		<a href="/recettes/plats-rapides">Rapide</a>
		<a href="/recettes/plats-vegetariens">Végétarien (dupe)</a>
		<a href="/recettes/poulet-roti-12345">Une recette, pas une catégorie</a>
		<a href="/a-propos">À propos</a>
	</body></html>`
	fetcher := &stubFetcher{pages: map[string]string{
		"https://www.quitoque.fr/recettes": listing,
	}}
	q := NewQuitoque(fetcher)

	categories := q.DiscoverCategoryURLs(context.Background(), "https://www.quitoque.fr")
	assert.Equal(t, []string{
		"https://www.quitoque.fr/recettes/plats-vegetariens",
		"https://www.quitoque.fr/recettes/plats-rapides",
	}, categories)
}

func TestDiscoverCategoryURLsFetchFailure(t *testing.T) {
	q := NewQuitoque(&stubFetcher{pages: map[string]string{}})
	assert.Empty(t, q.DiscoverCategoryURLs(context.Background(), "https://www.quitoque.fr"))
}

func TestExtractRecipeLinks(t *testing.T) {
	html := `<html><body>
		<a href="/recettes/poulet-roti-aux-herbes-12345">Poulet rôti aux herbes</a>
		<a href="/recettes/gratin-de-courgettes-67890">
			<img src="/img/gratin.jpg" alt="Gratin de courgettes">
		</a>
		<a href="/recettes/poulet-roti-aux-herbes-12345">dupe</a>
		<a href="/recettes/plats-vegetariens">Catégorie, pas une recette</a>
		<a href="#">ancre</a>
	</body></html>`
	q := NewQuitoque(&stubFetcher{})

	links := q.ExtractRecipeLinks(html)
	require.Len(t, links, 2)

	assert.Equal(t, "https://www.quitoque.fr/recettes/poulet-roti-aux-herbes-12345", links[0].URL)
	assert.Equal(t, "Poulet rôti aux herbes", links[0].Title)

	// Title falls back to the image alt, image URL is absolutized
	assert.Equal(t, "https://www.quitoque.fr/recettes/gratin-de-courgettes-67890", links[1].URL)
	assert.Equal(t, "Gratin de courgettes", links[1].Title)
	assert.Equal(t, "https://www.quitoque.fr/img/gratin.jpg", links[1].ImageURL)
}

func TestConvertPage(t *testing.T) {
	html := `<html><head><script type="application/ld+json">{
		"@type": "Recipe",
		"name": "poulet basquaise",
		"description": "Un plat mijoté du Sud-Ouest qui sent bon le piment doux et la tomate.",
		"recipeIngredient": ["600 g blanc de poulet", "2 poivrons", "sel"],
		"recipeInstructions": [{"@type": "HowToStep", "text": "Faire revenir le poulet."}],
		"totalTime": "PT1H",
		"image": "https://www.quitoque.fr/img/poulet.jpg",
		"keywords": "poulet basquaise, mijoté"
	}</script></head><body></body></html>`
	q := NewQuitoque(&stubFetcher{})

	recipe, err := q.ConvertPage(html, "https://www.quitoque.fr/recettes/poulet-basquaise-11111")
	require.NoError(t, err)

	// Lowercase source title gets capitalized
	assert.Equal(t, "Poulet basquaise", recipe.Title)
	require.Len(t, recipe.Ingredients, 3)
	assert.Equal(t, common.RecipeIngredient{Quantity: "600", Unit: "g", Name: "blanc de poulet"}, recipe.Ingredients[0])
	assert.Equal(t, common.RecipeIngredient{Name: "sel"}, recipe.Ingredients[2])
	// The title echo in keywords is noise, "mijoté" survives
	assert.Equal(t, []string{"mijoté"}, recipe.Tags)
	require.Len(t, recipe.Steps, 1)
	assert.Equal(t, []string{"Faire revenir le poulet."}, recipe.Steps[0].Instructions)
	assert.Equal(t, 60, recipe.TotalTime)
	assert.Equal(t, "https://www.quitoque.fr/img/poulet.jpg", recipe.ImageURL)
	assert.Equal(t, "https://www.quitoque.fr/recettes/poulet-basquaise-11111", recipe.SourceURL)
	assert.Equal(t, "quitoque", recipe.SourceProvider)
}

func TestConvertPageTagsFallbackToNextData(t *testing.T) {
	html := `<html><head>
		<script type="application/ld+json">{"@type": "Recipe", "name": "Salade niçoise", "recipeIngredient": ["thon"]}</script>
		<script id="__NEXT_DATA__" type="application/json">{"props": {"pageProps": {"recipe": {"tags": [
			{"name": "Été", "displayLabel": true},
			{"name": "interne", "displayLabel": false}
		]}}}}</script>
	</head></html>`
	q := NewQuitoque(&stubFetcher{})

	recipe, err := q.ConvertPage(html, "https://www.quitoque.fr/recettes/salade-nicoise-22222")
	require.NoError(t, err)
	assert.Equal(t, []string{"Été"}, recipe.Tags)
}

func TestConvertPageNoStructuredData(t *testing.T) {
	q := NewQuitoque(&stubFetcher{})

	_, err := q.ConvertPage("<html><body>rien</body></html>", "https://www.quitoque.fr/recettes/x-1")
	require.Error(t, err)
	assert.True(t, common.IsParseFailure(err))
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	q := NewQuitoque(&stubFetcher{})
	registry.Register(q)

	got, err := registry.Get("quitoque")
	require.NoError(t, err)
	assert.Equal(t, "Quitoque", got.DisplayName())

	_, err = registry.Get("unknown")
	require.Error(t, err)

	providers := registry.List()
	require.Len(t, providers, 1)
	assert.Equal(t, "quitoque", providers[0].ID())
}
