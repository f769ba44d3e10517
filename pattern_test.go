package ember

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompilePatternLiteral(t *testing.T) {
	cp, err := compilePattern("blog/about", nil)
	require.NoError(t, err)
	assert.True(t, cp.regex.MatchString("blog/about"))
	assert.False(t, cp.regex.MatchString("blog/about/extra"))
	assert.Empty(t, cp.paramNames)
}

func TestCompilePatternParam(t *testing.T) {
	cp, err := compilePattern("blog/[slug]", nil)
	require.NoError(t, err)
	require.Equal(t, []string{"slug"}, cp.paramNames)

	groups := cp.regex.FindStringSubmatch("blog/hello-world")
	require.NotNil(t, groups)
	assert.Equal(t, "hello-world", groups[1])
}

func TestCompilePatternNestedParams(t *testing.T) {
	cp, err := compilePattern("shop/[category]/[item]", nil)
	require.NoError(t, err)
	groups := cp.regex.FindStringSubmatch("shop/shoes/sneaker-1")
	require.NotNil(t, groups)
	assert.Equal(t, []string{"shop/shoes/sneaker-1", "shoes", "sneaker-1"}, groups)
}

func TestCompilePatternEscapesMetacharacters(t *testing.T) {
	cp, err := compilePattern("a.b+c", nil)
	require.NoError(t, err)
	assert.True(t, cp.regex.MatchString("a.b+c"))
	assert.False(t, cp.regex.MatchString("aXb+c"))
}

func TestCompilePatternUTF8Literal(t *testing.T) {
	cp, err := compilePattern("café/[slug]", nil)
	require.NoError(t, err)
	groups := cp.regex.FindStringSubmatch("café/menu")
	require.NotNil(t, groups)
	assert.Equal(t, "menu", groups[1])
}

func TestCompilePatternUnterminatedToken(t *testing.T) {
	_, err := compilePattern("blog/[slug", nil)
	assert.Error(t, err)
}

func TestCompilePatternDuplicateParam(t *testing.T) {
	_, err := compilePattern("a/[id]/[id]", nil)
	assert.Error(t, err)
}

func TestCompilePatternInvalidParamName(t *testing.T) {
	_, err := compilePattern("a/[1id]", nil)
	assert.Error(t, err)
}

func TestPatternCacheHitAndFIFOEviction(t *testing.T) {
	cache := NewPatternCache(2)

	cp1, err := compilePattern("a/[x]", cache)
	require.NoError(t, err)

	cp1Again, err := compilePattern("a/[x]", cache)
	require.NoError(t, err)
	assert.Same(t, cp1, cp1Again)

	_, err = compilePattern("b/[x]", cache)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.Len())

	_, err = compilePattern("c/[x]", cache)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.Len())

	_, ok := cache.get("a/[x]")
	assert.False(t, ok, "oldest entry should have been evicted")

	_, ok = cache.get("c/[x]")
	assert.True(t, ok)
}

func TestNewPatternCacheDefaultCapacity(t *testing.T) {
	cache := NewPatternCache(0)
	assert.Equal(t, DefaultPatternCacheCapacity, cache.capacity)
	assert.Equal(t, 0, cache.Len())
}
