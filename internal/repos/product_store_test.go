package repos_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockroom/internal/domain"
	"stockroom/internal/repos"
)

func sampleProducts() []domain.Product {
	return []domain.Product{
		{ID: 1, Name: "Chair", Price: 100000, Stock: 5, Image: "images/chair.png"},
		{ID: 7, Name: "Lamp", Price: 50000, Stock: 0, Image: "images/lamp.png"},
		{ID: 3, Name: "Meja", Price: 350000, Stock: 12, Image: "images/meja.jpg"},
	}
}

func TestProductStore_SaveLoadIsFixedPoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	store := repos.NewProductStore(path)

	require.NoError(t, store.Save(sampleProducts()))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, sampleProducts(), loaded, "every field and the record order survive")

	require.NoError(t, store.Save(loaded))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
	assert.True(t, strings.HasPrefix(string(first), "[\n    {\n        \"id\": 1,"), "indented array, got %q", first)
}

func TestProductStore_EmptyCollectionIsArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	store := repos.NewProductStore(path)

	require.NoError(t, store.Save(nil))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestProductStore_MissingFile(t *testing.T) {
	store := repos.NewProductStore(filepath.Join(t.TempDir(), "nope.json"))

	_, err := store.Load()
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err), "got %v", err)

	// errors are not cached
	require.NoError(t, store.Save(sampleProducts()[:1]))
	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}

func TestProductStore_RejectsMalformedRecords(t *testing.T) {
	cases := map[string]string{
		"not json":       `{"id": 1`,
		"missing price":  `[{"id":1,"name":"Chair","stock":5,"image":"images/chair.png"}]`,
		"missing image":  `[{"id":1,"name":"Chair","price":1,"stock":5}]`,
		"zero id":        `[{"id":0,"name":"Chair","price":1,"stock":5,"image":"a.png"}]`,
		"duplicate id":   `[{"id":1,"name":"A","price":1,"stock":1,"image":"a.png"},{"id":1,"name":"B","price":1,"stock":1,"image":"b.png"}]`,
		"negative stock": `[{"id":1,"name":"Chair","price":1,"stock":-1,"image":"a.png"}]`,
		"negative price": `[{"id":1,"name":"Chair","price":-5,"stock":1,"image":"a.png"}]`,
		"empty name":     `[{"id":1,"name":"","price":1,"stock":1,"image":"a.png"}]`,
		"string stock":   `[{"id":1,"name":"Chair","price":1,"stock":"5","image":"a.png"}]`,
		"null":           `null`,
		"object":         `{}`,
		"second array":   `[] []`,
		"trailing junk":  `[{"id":1,"name":"Chair","price":1,"stock":1,"image":"a.png"}] x`,
		"empty file":     ``,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "products.json")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

			_, err := repos.NewProductStore(path).Load()
			require.Error(t, err)
			assert.True(t, domain.IsValidation(err), "want validation error, got %v", err)
		})
	}
}

func TestProductStore_TrailingWhitespaceIsFine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, []byte("[]\n\n"), 0o644))

	loaded, err := repos.NewProductStore(path).Load()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestProductStore_CacheUntilInvalidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	store := repos.NewProductStore(path)
	require.NoError(t, store.Save(sampleProducts()))
	require.NoError(t, store.Initialize())

	// another writer changes the file behind the cache
	changed := sampleProducts()
	changed[0].Stock = 1
	require.NoError(t, repos.NewProductStore(path).Save(changed))

	cached, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cached[0].Stock, "cached read until invalidated")

	fresh, err := store.ReadFresh()
	require.NoError(t, err)
	assert.Equal(t, 1, fresh[0].Stock)

	store.Invalidate()
	reloaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded[0].Stock)
}

func TestProductStore_LoadReturnsCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	store := repos.NewProductStore(path)
	require.NoError(t, store.Save(sampleProducts()))

	a, err := store.Load()
	require.NoError(t, err)
	a[0].Stock = 99

	b, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 5, b[0].Stock)
}

func TestImageStore_PutResolveRemove(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images")
	images := repos.NewImageStore(dir)

	ref, created, err := images.Put("chair.png", []byte("one"))
	require.NoError(t, err)
	assert.Equal(t, "images/chair.png", ref)
	assert.True(t, created)

	_, created, err = images.Put("chair.png", []byte("two"))
	require.NoError(t, err)
	assert.False(t, created, "same name overwrites")

	full, err := images.Resolve(ref)
	require.NoError(t, err)
	b, err := os.ReadFile(full)
	require.NoError(t, err)
	assert.Equal(t, "two", string(b))

	require.NoError(t, images.Remove(ref))
	_, err = images.Resolve(ref)
	assert.True(t, domain.IsNotFound(err))
}

func TestImageStore_PathsStayInsideDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images")
	images := repos.NewImageStore(dir)

	ref, _, err := images.Put("../../evil.png", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "images/evil.png", ref)
	_, err = os.Stat(filepath.Join(dir, "evil.png"))
	require.NoError(t, err)

	for _, bad := range []string{"../products.json", "images/../../etc/passwd", "%2e%2e/x.png", "images/%2E%2E/evil.png", "..\\evil.png", "x.png\x00", ""} {
		_, err := images.Resolve(bad)
		assert.True(t, domain.IsNotFound(err), "%q should not resolve", bad)
	}
}

func TestImageStore_DotsInsideNameRoundTrip(t *testing.T) {
	images := repos.NewImageStore(filepath.Join(t.TempDir(), "images"))

	for _, name := range []string{"lamp..v2.png", "..hidden.png", "chair.v1..png"} {
		ref, _, err := images.Put(name, []byte("x"))
		require.NoError(t, err, name)
		assert.Equal(t, "images/"+name, ref)

		full, err := images.Resolve(ref)
		require.NoError(t, err, "%s should resolve after Put", ref)
		assert.Equal(t, filepath.Join(images.Dir(), name), full)
	}
}

func TestImageStore_PutRefusesNamesResolveCannotServe(t *testing.T) {
	images := repos.NewImageStore(filepath.Join(t.TempDir(), "images"))

	for _, name := range []string{"100%.png", "a%20b.png", "..", "x\x00.png"} {
		_, _, err := images.Put(name, []byte("x"))
		assert.True(t, domain.IsValidation(err), "%q: want validation error, got %v", name, err)
	}
	entries, _ := os.ReadDir(images.Dir())
	assert.Empty(t, entries)
}
