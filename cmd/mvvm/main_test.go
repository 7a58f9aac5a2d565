package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/delaneyj/mvvm/dom"
	"github.com/delaneyj/mvvm/mvvm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAssignment(t *testing.T) {
	name, value, err := parseAssignment("user.name=Bo")
	require.NoError(t, err)
	assert.Equal(t, "user.name", name)
	assert.Equal(t, "Bo", value)

	name, value, err = parseAssignment(" q = a=b")
	require.NoError(t, err)
	assert.Equal(t, "q", name)
	assert.Equal(t, " a=b", value)

	for _, bad := range []string{"novalue", "=x", "  =x"} {
		_, _, err := parseAssignment(bad)
		assert.ErrorIs(t, err, errAssignment, bad)
	}
}

func TestLoadData(t *testing.T) {
	data, err := loadData("")
	require.NoError(t, err)
	assert.Empty(t, data)

	path := filepath.Join(t.TempDir(), "data.yaml")
	require.NoError(t, os.WriteFile(path, []byte("user:\n  name: Ann\ntags: [a, b]\ncount: 3\n"), 0o600))
	data, err = loadData(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Ann"}, data["user"])
	assert.Equal(t, []any{"a", "b"}, data["tags"])
	assert.Equal(t, 3, data["count"])

	require.NoError(t, os.WriteFile(path, []byte("- not\n- a map\n"), 0o600))
	_, err = loadData(path)
	assert.Error(t, err)

	_, err = loadData(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBenchTemplate(t *testing.T) {
	markup := benchTemplate(3, 2)
	assert.Equal(t, 3, strings.Count(markup, "<p>"))
	assert.Equal(t, 6, strings.Count(markup, "{{n}}"))

	doc, err := dom.ParseString(markup)
	require.NoError(t, err)
	vm, err := mvvm.New(mvvm.Options{Root: "#app", Document: doc, Data: map[string]any{"n": 0}})
	require.NoError(t, err)
	assert.Equal(t, 6, vm.Compiler().Bindings())
}

func TestApplyWritesAndInputs(t *testing.T) {
	doc, err := dom.ParseString(`<div id="app"><input id="q" v-model="q"><p>{{q}}/{{n}}</p></div>`)
	require.NoError(t, err)
	vm, err := mvvm.New(mvvm.Options{Root: "#app", Document: doc, Data: map[string]any{"q": "", "n": 1}})
	require.NoError(t, err)

	require.NoError(t, applyWrites(vm, []string{"n=2"}))
	assert.Equal(t, "/2", doc.QuerySelector("p").TextContent())

	require.NoError(t, applyInputs(doc, []string{"#q=hello"}))
	assert.Equal(t, "hello/2", doc.QuerySelector("p").TextContent())

	assert.ErrorIs(t, applyWrites(vm, []string{"bad"}), errAssignment)
	assert.Error(t, applyWrites(vm, []string{"missing=1"}))
	assert.Error(t, applyInputs(doc, []string{"#nope=x"}))
}

func TestReload(t *testing.T) {
	doc, err := dom.ParseString(`<div id="app"><p>{{user.name}} {{count}}</p></div>`)
	require.NoError(t, err)
	vm, err := mvvm.New(mvvm.Options{
		Root:     "#app",
		Document: doc,
		Data:     map[string]any{"user": map[string]any{"name": "Ann"}, "count": 1},
		Computed: map[string]mvvm.ComputedFunc{
			"twice": func(vm *mvvm.VM) (any, error) { return nil, nil },
		},
	})
	require.NoError(t, err)

	written, err := reload(vm, map[string]any{
		"user":  map[string]any{"name": "Bo"},
		"count": 2,
		"extra": true,
		"twice": 4,
	})
	assert.Equal(t, []string{"count", "user"}, written)
	assert.ErrorContains(t, err, `"extra"`)
	assert.ErrorContains(t, err, `"twice"`)
	assert.Equal(t, "Bo 2", doc.QuerySelector("p").TextContent())

	var sb strings.Builder
	require.NoError(t, printRoot(&sb, vm))
	assert.Equal(t, "<div id=\"app\"><p>Bo 2</p></div>\n", sb.String())
}
