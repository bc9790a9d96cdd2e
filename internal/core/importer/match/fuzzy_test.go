package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func key(s string) string { return s }

func TestNormalize(t *testing.T) {
	assert.Equal(t, "tomato", Normalize("  Tomato "))
	assert.Equal(t, "red onion", Normalize("Red   Onion"))
	assert.Equal(t, "", Normalize("   "))
}

func TestCleanName(t *testing.T) {
	assert.Equal(t, "Tomato", CleanName("Tomato (diced)"))
	assert.Equal(t, "Tomato", CleanName("Tomato (canned) (organic)"))
	// Case is preserved; only the annotation goes away
	assert.Equal(t, "Olive Oil", CleanName("Olive Oil"))
	assert.Equal(t, "Crème fraîche", CleanName("Crème fraîche (30%)"))
}

func TestSearchExactWinsAtEveryLevel(t *testing.T) {
	items := []string{"flour", "sugar", "salt"}

	for _, level := range []Level{LevelStrict, LevelModerate, LevelPermissive} {
		result := Search(items, "  Flour ", key, level)
		if assert.NotNil(t, result.Exact, "level %s", level) {
			assert.Equal(t, "flour", *result.Exact)
		}
		assert.Empty(t, result.Similar)
	}
}

func TestSearchThresholds(t *testing.T) {
	items := []string{"tomato"}

	// "tomatoes" vs "tomato": distance 2/8 = 0.25
	strict := Search(items, "tomatoes", key, LevelStrict)
	assert.Nil(t, strict.Exact)
	assert.Empty(t, strict.Similar)

	moderate := Search(items, "tomatoes", key, LevelModerate)
	assert.Nil(t, moderate.Exact)
	assert.Equal(t, []string{"tomato"}, moderate.Similar)
}

func TestSearchOrdersByScoreThenInput(t *testing.T) {
	items := []string{"carrots", "carrot juice", "carrot"}

	result := Search(items, "carot", key, LevelModerate)
	assert.Nil(t, result.Exact)
	// "carrot" is closest, "carrots" next, "carrot juice" beyond the threshold
	assert.Equal(t, []string{"carrot", "carrots"}, result.Similar)
}

func TestSearchTieBreaksByInputOrder(t *testing.T) {
	// Both candidates sit at the same distance from the query
	items := []string{"bean", "beam"}

	result := Search(items, "beat", key, LevelPermissive)
	assert.Nil(t, result.Exact)
	assert.Equal(t, []string{"bean", "beam"}, result.Similar)
}

func TestSearchEmptyInputs(t *testing.T) {
	result := Search([]string{"flour"}, "   ", key, LevelModerate)
	assert.Nil(t, result.Exact)
	assert.Empty(t, result.Similar)

	result = Search(nil, "flour", key, LevelModerate)
	assert.Nil(t, result.Exact)
	assert.Empty(t, result.Similar)
}

func TestDistanceUnicode(t *testing.T) {
	// Rune count, not byte count, drives the normalization
	assert.InDelta(t, 0.2, distance("crème", "creme"), 1e-9)
}
