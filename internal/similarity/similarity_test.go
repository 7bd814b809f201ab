package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeFiltersShortAndStopWords(t *testing.T) {
	tokens := Tokenize("The deploy pipeline is still broken, and CI is red!")
	assert.Equal(t, []string{"deploy", "pipeline", "broken", "red"}, tokens)
}

func TestTokenizeStripsNonAlphanumerics(t *testing.T) {
	tokens := Tokenize("re-deploy v2.0 (prod)")
	assert.Equal(t, []string{"deploy", "prod"}, tokens)
}

func TestJaccardBounds(t *testing.T) {
	assert.Equal(t, 1.0, Jaccard("deploy pipeline broken", "broken pipeline deploy"))
	assert.Equal(t, 0.0, Jaccard("deploy pipeline", "lunch menu"))
	assert.Equal(t, 0.0, Jaccard("", ""))
	assert.Equal(t, 0.0, Jaccard("deploy", ""))
}

func TestJaccardPartialOverlap(t *testing.T) {
	// {deploy, pipeline, broken} vs {deploy, pipeline, fixed}: 2/4.
	score := Jaccard("deploy pipeline broken", "deploy pipeline fixed")
	assert.InDelta(t, 0.5, score, 1e-9)
}

func TestJaccardDeterministic(t *testing.T) {
	a := "the deploy pipeline is still broken"
	b := "deploy pipeline broken again today"
	first := Jaccard(a, b)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Jaccard(a, b))
	}
	assert.Equal(t, first, Jaccard(b, a))
}
