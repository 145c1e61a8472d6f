package layout_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesa-livre/print-agent/internal/layout"
)

func TestDefaultLayoutIsValid(t *testing.T) {
	require.NoError(t, layout.Default().Validate())
}

func TestValidate(t *testing.T) {
	base := func() *layout.Layout {
		return &layout.Layout{
			Name:       "test",
			PaperWidth: 32,
			Sections: []layout.Section{{
				Name:    layout.SectionHeader,
				Enabled: true,
				Fields: []layout.Field{
					{Binding: layout.BindCustomerName, Enabled: true},
				},
			}},
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("unknown binding", func(t *testing.T) {
		l := base()
		l.Sections[0].Fields[0].Binding = "tableNumber"
		err := l.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown field binding")
	})

	t.Run("unknown format", func(t *testing.T) {
		l := base()
		l.Sections[0].Fields[0].Format = "scientific"
		err := l.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown format")
	})

	t.Run("unknown align", func(t *testing.T) {
		l := base()
		l.Sections[0].Fields[0].Align = "justify"
		err := l.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown align")
	})

	t.Run("non positive width", func(t *testing.T) {
		l := base()
		l.PaperWidth = 0
		err := l.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "paperWidth")
	})
}

func TestOrderedSections(t *testing.T) {
	l := &layout.Layout{
		PaperWidth: 32,
		Sections: []layout.Section{
			{Name: layout.SectionFooter, Enabled: true, Position: 9},
			{Name: layout.SectionHeader, Enabled: true, Position: 1},
			{Name: layout.SectionTotals, Enabled: false, Position: 2},
			{Name: layout.SectionItemsInfo, Enabled: true, Position: 1},
		},
	}

	got := l.OrderedSections()
	require.Len(t, got, 3)
	// stable sort: equal positions keep insertion order
	assert.Equal(t, layout.SectionHeader, got[0].Name)
	assert.Equal(t, layout.SectionItemsInfo, got[1].Name)
	assert.Equal(t, layout.SectionFooter, got[2].Name)
}

func TestOrderedFieldsSkipDisabled(t *testing.T) {
	s := layout.Section{
		Fields: []layout.Field{
			{Binding: layout.BindNotes, Enabled: false, Position: 1},
			{Binding: layout.BindAmount, Enabled: true, Position: 2},
			{Binding: layout.BindCustomerName, Enabled: true, Position: 1},
		},
	}

	got := s.OrderedFields()
	require.Len(t, got, 2)
	assert.Equal(t, layout.BindCustomerName, got[0].Binding)
	assert.Equal(t, layout.BindAmount, got[1].Binding)
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cozinha.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: Cozinha
paperWidth: 48
sections:
  - name: header
    enabled: true
    position: 1
    fields:
      - binding: orderId
        enabled: true
        position: 1
`), 0644))

	l, err := layout.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "cozinha", l.ID, "id defaults to the file name")
	assert.Equal(t, "Cozinha", l.Name)
	assert.Equal(t, 48, l.PaperWidth)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"bad","paperWidth":0,"sections":[]}`), 0644))

	_, err := layout.Load(path)
	assert.Error(t, err)
}

func TestLoadDirMissingIsNotAnError(t *testing.T) {
	layouts, err := layout.LoadDir(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, layouts)
}

func TestSelect(t *testing.T) {
	a := &layout.Layout{ID: "a", PaperWidth: 32}
	b := &layout.Layout{ID: "b", PaperWidth: 32, IsDefault: true}

	assert.Equal(t, b, layout.Select([]*layout.Layout{a, b}))
	assert.Equal(t, a, layout.Select([]*layout.Layout{a}))
	assert.Equal(t, "default", layout.Select(nil).ID)
}
