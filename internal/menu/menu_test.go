package menu

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qtrestaurant/internal/models"
)

func testMenu() []models.MenuItem {
	return []models.MenuItem{
		{ID: 1, Name: "Truffle Arancini", Price: 890000},
		{ID: 5, Name: "Lobster Bisque", Price: 169000},
		{ID: 9, Name: "Beef Tenderloin Steak", Price: 369000},
		{ID: 10, Name: "Lamb Rack Herb Crust", Price: 429000},
		{ID: 11, Name: "Tiramisu Classic", Price: 119000},
		{ID: 12, Name: "Crème Brûlée", Price: 129000},
	}
}

func TestResolve_SubstringAndCase(t *testing.T) {
	items := testMenu()
	for _, item := range items {
		name := item.Name
		variants := []string{
			name,
			strings.ToUpper(name),
			strings.ToLower(string([]rune(name)[:len([]rune(name))/2])),
			"cho anh 1 " + strings.ToLower(name) + " nhé",
		}
		for _, v := range variants {
			got, ok := Resolve(v, items)
			require.True(t, ok, "candidate %q", v)
			assert.Equal(t, item.ID, got.ID, "candidate %q", v)
		}
	}
}

func TestResolve_FirstMatchWins(t *testing.T) {
	items := []models.MenuItem{
		{ID: 1, Name: "Pumpkin Velouté"},
		{ID: 2, Name: "Pumpkin Pie"},
	}
	got, ok := Resolve("pumpkin", items)
	require.True(t, ok)
	assert.Equal(t, 1, got.ID)
}

func TestResolve_Misses(t *testing.T) {
	items := testMenu()

	_, ok := Resolve("", items)
	assert.False(t, ok)

	_, ok = Resolve("   ", items)
	assert.False(t, ok)

	_, ok = Resolve("Phở bò", items)
	assert.False(t, ok)

	_, ok = Resolve("sườn cừu", items)
	assert.False(t, ok)
}

func TestResolveAll_KeepsCandidateOrder(t *testing.T) {
	got := ResolveAll([]string{"Tiramisu", "Phở bò", "Lamb Rack Herb Crust"}, testMenu())
	require.Len(t, got, 2)
	assert.Equal(t, 11, got[0].ID)
	assert.Equal(t, 10, got[1].ID)
}

type stubSource struct {
	items []models.MenuItem
	err   error
	calls int
}

func (s *stubSource) Menu(ctx context.Context) ([]models.MenuItem, error) {
	s.calls++
	return s.items, s.err
}

func TestCatalog_LoadOnce(t *testing.T) {
	src := &stubSource{items: testMenu()}
	c := NewCatalog(src, nil)

	_, err := c.Load(context.Background())
	require.NoError(t, err)
	items, err := c.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls)
	assert.Len(t, items, 6)

	_, err = c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestCatalog_SkipsInvalidAndDuplicates(t *testing.T) {
	src := &stubSource{items: []models.MenuItem{
		{ID: 1, Name: "Tiramisu Classic", Price: 119000},
		{ID: 0, Name: "Broken"},
		{ID: 2, Name: "  "},
		{ID: 1, Name: "Duplicate"},
	}}
	c := NewCatalog(src, nil)

	items, err := c.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Tiramisu Classic", items[0].Name)
}

func TestCatalog_LoadError(t *testing.T) {
	boom := errors.New("backend down")
	c := NewCatalog(&stubSource{err: boom}, nil)

	_, err := c.Load(context.Background())
	assert.Equal(t, boom, errors.Cause(err))
	assert.Empty(t, c.Search(""))
}

func TestCatalog_SearchAndResolve(t *testing.T) {
	c := NewCatalog(&stubSource{items: testMenu()}, nil)
	_, err := c.Load(context.Background())
	require.NoError(t, err)

	assert.Len(t, c.Search("  "), len(testMenu()))

	found := c.Search("bisque")
	require.Len(t, found, 1)
	assert.Equal(t, 5, found[0].ID)

	resolved := c.Resolve([]string{"lamb rack", "nothing"})
	require.Len(t, resolved, 1)
	assert.Equal(t, 10, resolved[0].ID)
}
