package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAppendEntriesGrowsGroupByOne(t *testing.T) {
	path := writeCatalog(t, sampleCatalog)
	s := NewStore(path, nil)

	entry := Entry{
		Name:       "Nova",
		Image:      "images/acme/nova_copper.jpg",
		Dimensions: "25×25×8mm",
		Weight:     "30g",
		Material:   []string{"Copper"},
		ButtonSize: "12mm",
	}
	require.NoError(t, s.AppendEntries(context.Background(), "Acme Spinners", []Entry{entry}))

	c, err := s.Load()
	require.NoError(t, err)
	g, ok := c.Find("Acme Spinners")
	require.True(t, ok)
	require.Len(t, g.Fidgets, 2)

	last := g.Fidgets[1]
	last.rest = object{}
	assert.Equal(t, entry, last)
	assert.Equal(t, "Orbit", g.Fidgets[0].Name)
}

func TestAppendEntriesInitializesMissingFidgets(t *testing.T) {
	path := writeCatalog(t, sampleCatalog)
	s := NewStore(path, nil)

	require.NoError(t, s.AppendEntries(context.Background(), "Bare", []Entry{{Name: "One"}, {Name: "Two"}}))

	g, err := s.Group("Bare")
	require.NoError(t, err)
	require.Len(t, g.Fidgets, 2)
	assert.Equal(t, "Two", g.Fidgets[1].Name)
}

func TestAppendEntriesUnknownGroupLeavesFileUnchanged(t *testing.T) {
	path := writeCatalog(t, sampleCatalog)
	s := NewStore(path, nil)

	err := s.AppendEntries(context.Background(), "acme spinners", []Entry{{Name: "Nope"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGroupNotFound))

	var nf *GroupNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, []string{"Acme Spinners", "Bare"}, nf.Known)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, sampleCatalog, string(data))
}

func TestAppendEntriesKeepsOtherGroupsVerbatim(t *testing.T) {
	path := writeCatalog(t, `{"groups":[`+
		`{"name":"A","image":"images/a/logo.jpg","fidgets":[{"name":"Orbit","weight":25,"material":["Ti"],"button_size":""}]},`+
		`{"name":"B","image":"images/b/logo.jpg","fidgets":null}]}`)
	s := NewStore(path, nil)

	require.NoError(t, s.AppendEntries(context.Background(), "B", []Entry{{Name: "Nova", Material: []string{"Copper"}}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"weight": 25`)
	assert.Contains(t, string(data), `"button_size": ""`)

	g, err := s.Group("B")
	require.NoError(t, err)
	require.Len(t, g.Fidgets, 1)
	assert.Equal(t, "Nova", g.Fidgets[0].Name)
}

func TestAppendEntriesMissingFile(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "missing.json"), nil)
	err := s.AppendEntries(context.Background(), "Acme", []Entry{{Name: "x"}})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestAppendEntriesCancelledContext(t *testing.T) {
	path := writeCatalog(t, sampleCatalog)
	s := NewStore(path, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.AppendEntries(ctx, "Bare", []Entry{{Name: "x"}}), context.Canceled)
}

func TestConcurrentAppendsToDifferentGroupsBothPersist(t *testing.T) {
	path := writeCatalog(t, sampleCatalog)
	s := NewStore(path, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.AppendEntries(context.Background(), "Acme Spinners", []Entry{{Name: fmt.Sprintf("a%d", i)}}))
		}(i)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.AppendEntries(context.Background(), "Bare", []Entry{{Name: fmt.Sprintf("b%d", i)}}))
		}(i)
	}
	wg.Wait()

	c, err := s.Load()
	require.NoError(t, err)
	acme, _ := c.Find("Acme Spinners")
	bare, _ := c.Find("Bare")
	assert.Len(t, acme.Fidgets, 11)
	assert.Len(t, bare.Fidgets, 10)
}

func TestIndependentWritersLoseAnUpdate(t *testing.T) {
	path := writeCatalog(t, sampleCatalog)
	a := NewStore(path, nil)
	b := NewStore(path, nil)

	ca, err := a.Load()
	require.NoError(t, err)
	cb, err := b.Load()
	require.NoError(t, err)

	ga, _ := ca.Find("Bare")
	ga.Fidgets = append(ga.Fidgets, Entry{Name: "from-a"})
	gb, _ := cb.Find("Bare")
	gb.Fidgets = append(gb.Fidgets, Entry{Name: "from-b"})

	require.NoError(t, a.Save(ca))
	require.NoError(t, b.Save(cb))

	g, err := a.Group("Bare")
	require.NoError(t, err)
	require.Len(t, g.Fidgets, 1)
	assert.Equal(t, "from-b", g.Fidgets[0].Name)
}

func TestInitCreatesBaseStructure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	s := NewStore(path, nil)

	created, err := s.Init()
	require.NoError(t, err)
	assert.True(t, created)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"filters": [], "groups": []}`, string(data))

	created, err = s.Init()
	require.NoError(t, err)
	assert.False(t, created)
}

func TestCreateGroup(t *testing.T) {
	path := writeCatalog(t, sampleCatalog)
	s := NewStore(path, nil)

	g, err := s.CreateGroup("Nimbus", "nimbus", "https://nimbus.example")
	require.NoError(t, err)
	assert.Equal(t, "images/nimbus/logo.jpg", g.Image)

	folder, err := s.ImageFolder("Nimbus")
	require.NoError(t, err)
	assert.Equal(t, "nimbus", folder)

	_, err = s.CreateGroup("Nimbus", "nimbus", "")
	assert.ErrorIs(t, err, ErrGroupExists)

	_, err = s.CreateGroup("", "x", "")
	assert.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"description": "Fidgets from Nimbus"`)
	assert.Contains(t, string(data), `"link": "https://nimbus.example"`)
}

func TestImageFolderErrors(t *testing.T) {
	path := writeCatalog(t, `{"groups":[{"name":"Flat","image":"logo.jpg"}]}`)
	s := NewStore(path, nil)

	_, err := s.ImageFolder("Flat")
	assert.ErrorIs(t, err, ErrNoImageFolder)

	_, err = s.ImageFolder("Other")
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestSaveWritesIndentedUnescapedJSON(t *testing.T) {
	path := writeCatalog(t, `{"groups":[{"name":"Ünï & Co","image":"images/u/logo.jpg","fidgets":[]}]}`)
	s := NewStore(path, nil)

	require.NoError(t, s.AppendEntries(context.Background(), "Ünï & Co", []Entry{{Name: "A", Dimensions: "1×2×3mm"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"groups\": [\n")
	assert.Contains(t, string(data), `"Ünï & Co"`)
	assert.Contains(t, string(data), `"1×2×3mm"`)

	matches, err := filepath.Glob(path + ".*.tmp")
	require.NoError(t, err)
	assert.Empty(t, matches)
}
