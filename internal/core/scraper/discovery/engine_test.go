package discovery

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"recipe-importer/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider drives the engine without touching the network.
type fakeProvider struct {
	categories  []string
	linksByPage map[string][]common.DiscoveredRecipeLink
	recipeByURL map[string]*common.ConvertedRecipe
	localeErr   error
}

func (p *fakeProvider) ID() string          { return "fake" }
func (p *fakeProvider) DisplayName() string { return "Fake" }

func (p *fakeProvider) ResolveBaseURL(locale string) (string, error) {
	if p.localeErr != nil {
		return "", p.localeErr
	}
	return "https://fake.example", nil
}

func (p *fakeProvider) DiscoverCategoryURLs(_ context.Context, _ string) []string {
	return p.categories
}

func (p *fakeProvider) ExtractRecipeLinks(html string) []common.DiscoveredRecipeLink {
	return p.linksByPage[html]
}

func (p *fakeProvider) ConvertPage(html, pageURL string) (*common.ConvertedRecipe, error) {
	if recipe, ok := p.recipeByURL[pageURL]; ok {
		return recipe, nil
	}
	return nil, common.NewParseFailureError(pageURL, "no data")
}

// echoFetcher returns the URL itself as the page body so the fake
// provider can key link sets off it.
type echoFetcher struct {
	mu      sync.Mutex
	failing map[string]bool
	calls   []string
}

func (f *echoFetcher) FetchPage(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()
	if f.failing[url] {
		return "", common.NewFetchFailureError(url, 500, nil)
	}
	return url, nil
}

func link(n int) common.DiscoveredRecipeLink {
	return common.DiscoveredRecipeLink{
		URL:   fmt.Sprintf("https://fake.example/recettes/r-%d", n),
		Title: fmt.Sprintf("Recette %d", n),
	}
}

func collect(t *testing.T, stream <-chan Progress) []Progress {
	t.Helper()
	var out []Progress
	for p := range stream {
		out = append(out, p)
	}
	return out
}

func TestDiscoverStreamsSnapshots(t *testing.T) {
	prov := &fakeProvider{
		categories: []string{"cat1", "cat2"},
		linksByPage: map[string][]common.DiscoveredRecipeLink{
			"cat1": {link(1), link(2)},
			"cat2": {link(2), link(3)}, // link 2 repeats across categories
		},
	}
	engine := NewEngine(&echoFetcher{})

	stream, err := engine.Discover(context.Background(), prov, Options{Locale: "fr"})
	require.NoError(t, err)

	snapshots := collect(t, stream)
	require.Len(t, snapshots, 3)

	assert.Equal(t, PhaseDiscovering, snapshots[0].Phase)
	assert.Equal(t, 2, snapshots[0].RecipesFound)
	assert.Equal(t, 1, snapshots[0].CategoriesScanned)
	assert.Equal(t, 2, snapshots[0].TotalCategories)

	// Duplicate across categories counts once
	assert.Equal(t, 3, snapshots[1].RecipesFound)
	assert.Equal(t, 2, snapshots[1].CategoriesScanned)

	terminal := snapshots[2]
	assert.Equal(t, PhaseComplete, terminal.Phase)
	assert.True(t, terminal.IsComplete)
	assert.Equal(t, 3, terminal.RecipesFound)
	require.Len(t, terminal.Recipes, 3)
	// First-seen title wins for the duplicate
	assert.Equal(t, "Recette 2", terminal.Recipes[1].Title)

	// Counters never decrease across the stream
	for i := 1; i < len(snapshots); i++ {
		assert.GreaterOrEqual(t, snapshots[i].RecipesFound, snapshots[i-1].RecipesFound)
		assert.GreaterOrEqual(t, snapshots[i].CategoriesScanned, snapshots[i-1].CategoriesScanned)
	}
}

func TestDiscoverMaxRecipesCap(t *testing.T) {
	prov := &fakeProvider{
		categories: []string{"cat1", "cat2", "cat3"},
		linksByPage: map[string][]common.DiscoveredRecipeLink{
			"cat1": {link(1), link(2)},
			"cat2": {link(3), link(4), link(5)},
			"cat3": {link(6)},
		},
	}
	fetcher := &echoFetcher{}
	engine := NewEngine(fetcher)

	stream, err := engine.Discover(context.Background(), prov, Options{Locale: "fr", MaxRecipes: 3})
	require.NoError(t, err)

	snapshots := collect(t, stream)
	terminal := snapshots[len(snapshots)-1]
	assert.True(t, terminal.IsComplete)
	assert.Equal(t, 3, terminal.RecipesFound)

	// cat3 is never fetched once the cap is hit
	for _, call := range fetcher.calls {
		assert.NotEqual(t, "cat3", call)
	}
}

func TestDiscoverCategoryFailureContinues(t *testing.T) {
	prov := &fakeProvider{
		categories: []string{"cat1", "cat2"},
		linksByPage: map[string][]common.DiscoveredRecipeLink{
			"cat2": {link(1)},
		},
	}
	engine := NewEngine(&echoFetcher{failing: map[string]bool{"cat1": true}})

	stream, err := engine.Discover(context.Background(), prov, Options{Locale: "fr"})
	require.NoError(t, err)

	snapshots := collect(t, stream)
	terminal := snapshots[len(snapshots)-1]
	assert.True(t, terminal.IsComplete)
	assert.Equal(t, 1, terminal.RecipesFound)
	assert.Equal(t, 2, terminal.CategoriesScanned)
}

func TestDiscoverPreCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	prov := &fakeProvider{categories: []string{"cat1"}}
	engine := NewEngine(&echoFetcher{})

	stream, err := engine.Discover(ctx, prov, Options{Locale: "fr"})
	require.NoError(t, err)

	snapshots := collect(t, stream)
	require.Len(t, snapshots, 1)
	assert.True(t, snapshots[0].IsComplete)
	assert.Equal(t, 0, snapshots[0].RecipesFound)
	assert.NotNil(t, snapshots[0].Recipes)
	assert.Empty(t, snapshots[0].Recipes)
}

func TestDiscoverUnsupportedLocale(t *testing.T) {
	prov := &fakeProvider{localeErr: common.NewUnsupportedLocaleError("fake", "en")}
	engine := NewEngine(&echoFetcher{})

	stream, err := engine.Discover(context.Background(), prov, Options{Locale: "en"})
	require.Error(t, err)
	assert.Nil(t, stream)
	assert.True(t, common.IsUnsupportedLocale(err))
}

func TestDiscoverImageEnrichment(t *testing.T) {
	missing := link(1)
	withImage := link(2)
	withImage.ImageURL = "https://fake.example/img/2.jpg"

	prov := &fakeProvider{
		categories: []string{"cat1"},
		linksByPage: map[string][]common.DiscoveredRecipeLink{
			"cat1": {missing, withImage},
		},
		recipeByURL: map[string]*common.ConvertedRecipe{
			missing.URL: {Title: "Recette 1", ImageURL: "https://fake.example/img/1.jpg"},
		},
	}
	engine := NewEngine(&echoFetcher{})

	var mu sync.Mutex
	loaded := make(map[string]string)
	done := make(chan struct{})

	stream, err := engine.Discover(context.Background(), prov, Options{
		Locale: "fr",
		OnImageLoaded: func(recipeURL, imageURL string) {
			mu.Lock()
			loaded[recipeURL] = imageURL
			mu.Unlock()
		},
		OnEnrichmentComplete: func() { close(done) },
	})
	require.NoError(t, err)

	collect(t, stream)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("image enrichment did not finish")
	}

	mu.Lock()
	defer mu.Unlock()
	// Only the link that was missing an image gets refetched
	assert.Equal(t, map[string]string{missing.URL: "https://fake.example/img/1.jpg"}, loaded)
}

func TestImageQueueBoundsConcurrency(t *testing.T) {
	prov := &fakeProvider{recipeByURL: map[string]*common.ConvertedRecipe{}}
	fetcher := &countingFetcher{}

	var links []common.DiscoveredRecipeLink
	for i := 0; i < 20; i++ {
		l := link(i)
		prov.recipeByURL[l.URL] = &common.ConvertedRecipe{Title: l.Title, ImageURL: "https://fake.example/img.jpg"}
		links = append(links, l)
	}

	var calls int64
	queue := newImageQueue(fetcher, prov, 5)
	queue.run(context.Background(), links, func(_, _ string) {
		atomic.AddInt64(&calls, 1)
	})

	assert.Equal(t, int64(20), atomic.LoadInt64(&calls))
	assert.LessOrEqual(t, fetcher.maxInFlight(), 5)
}

// countingFetcher tracks the high-water mark of concurrent fetches.
type countingFetcher struct {
	mu       sync.Mutex
	inFlight int
	peak     int
}

func (f *countingFetcher) FetchPage(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.peak {
		f.peak = f.inFlight
	}
	f.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
	return url, nil
}

func (f *countingFetcher) maxInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peak
}
