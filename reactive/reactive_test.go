package reactive_test

import (
	"errors"
	"testing"

	"github.com/delaneyj/mvvm/reactive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSystem(t *testing.T) *reactive.System {
	return reactive.NewSystem(func(w *reactive.Watcher, err error) {
		assert.FailNow(t, err.Error())
	})
}

// watchPath subscribes to a chain of keys starting at obj and counts callbacks.
func watchPath(t *testing.T, sys *reactive.System, obj *reactive.Object, keys ...string) (*reactive.Watcher, *int) {
	calls := new(int)
	w, err := sys.Watch(func(w *reactive.Watcher) (any, error) {
		var cur any = obj
		for _, k := range keys {
			v, err := cur.(*reactive.Object).Get(k, w)
			if err != nil {
				return nil, err
			}
			cur = v
		}
		return cur, nil
	}, func(newValue, oldValue any) {
		*calls++
	})
	require.NoError(t, err)
	return w, calls
}

func dep(t *testing.T, obj *reactive.Object, key string) *reactive.Dep {
	d, ok := obj.Dep(key)
	require.True(t, ok, key)
	return d
}

func TestObserve(t *testing.T) {
	t.Run("nested maps and slices", func(t *testing.T) {
		obj, err := reactive.Observe(map[string]any{
			"user":  map[string]any{"name": "Ann"},
			"items": []any{map[string]any{"title": "a"}, 3},
			"count": 0,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"count", "items", "user"}, obj.Keys())

		user, err := obj.Get("user", nil)
		require.NoError(t, err)
		require.IsType(t, &reactive.Object{}, user)
		assert.Equal(t, "user", user.(*reactive.Object).Path())

		items, err := obj.Get("items", nil)
		require.NoError(t, err)
		arr := items.(*reactive.Array)
		assert.Equal(t, 2, arr.Len())
		first, ok := arr.At(0)
		require.True(t, ok)
		assert.Equal(t, "items.0", first.(*reactive.Object).Path())
		_, ok = arr.At(2)
		assert.False(t, ok)

		d := dep(t, first.(*reactive.Object), "title")
		assert.Equal(t, "items.0.title", d.Path())
	})

	t.Run("nil data", func(t *testing.T) {
		obj, err := reactive.Observe(nil)
		require.NoError(t, err)
		assert.Empty(t, obj.Keys())
	})

	t.Run("shared sub-map becomes one object", func(t *testing.T) {
		shared := map[string]any{"x": 1}
		obj, err := reactive.Observe(map[string]any{"a": shared, "b": shared})
		require.NoError(t, err)
		a, _ := obj.Get("a", nil)
		b, _ := obj.Get("b", nil)
		assert.Same(t, a, b)
	})

	t.Run("cycle is rejected", func(t *testing.T) {
		data := map[string]any{}
		data["self"] = data
		_, err := reactive.Observe(data)
		assert.ErrorIs(t, err, reactive.ErrCycle)
	})

	t.Run("raw round trip", func(t *testing.T) {
		in := map[string]any{
			"user":  map[string]any{"name": "Ann"},
			"items": []any{1, "two"},
		}
		obj, err := reactive.Observe(in)
		require.NoError(t, err)
		assert.Equal(t, in, obj.Raw())
		assert.JSONEq(t, `{"user":{"name":"Ann"},"items":[1,"two"]}`, obj.String())
	})
}

func TestSubscription(t *testing.T) {
	t.Run("reads outside an evaluation do not subscribe", func(t *testing.T) {
		sys := newSystem(t)
		obj, err := reactive.Observe(map[string]any{"a": 1})
		require.NoError(t, err)

		_, err = obj.Get("a", nil)
		require.NoError(t, err)
		assert.Equal(t, 0, dep(t, obj, "a").Len())

		w, _ := watchPath(t, sys, obj, "a")
		assert.Equal(t, 1, dep(t, obj, "a").Len())

		// w is not evaluating anymore, passing it must not grow the list
		_, err = obj.Get("a", w)
		require.NoError(t, err)
		assert.Equal(t, 1, dep(t, obj, "a").Len())
	})

	t.Run("same property read twice is stored once", func(t *testing.T) {
		sys := newSystem(t)
		obj, err := reactive.Observe(map[string]any{"a": 1})
		require.NoError(t, err)

		_, err = sys.Watch(func(w *reactive.Watcher) (any, error) {
			obj.Get("a", w)
			return obj.Get("a", w)
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, dep(t, obj, "a").Len())
	})

	/*
	   a   b
	   |
	   w
	*/
	t.Run("only properties read notify", func(t *testing.T) {
		sys := newSystem(t)
		obj, err := reactive.Observe(map[string]any{"a": 1, "b": 1})
		require.NoError(t, err)

		w, calls := watchPath(t, sys, obj, "a")
		require.NoError(t, obj.Set("b", 2))
		assert.Equal(t, 0, *calls)

		require.NoError(t, obj.Set("a", 2))
		assert.Equal(t, 1, *calls)
		assert.Equal(t, 2, w.Value())
	})

	t.Run("no-op write does not notify", func(t *testing.T) {
		sys := newSystem(t)
		obj, err := reactive.Observe(map[string]any{"a": "x"})
		require.NoError(t, err)

		_, calls := watchPath(t, sys, obj, "a")
		require.NoError(t, obj.Set("a", "x"))
		assert.Equal(t, 0, *calls)
	})

	t.Run("subscribers run in subscription order", func(t *testing.T) {
		sys := newSystem(t)
		obj, err := reactive.Observe(map[string]any{"a": 0})
		require.NoError(t, err)

		var order []int
		for i := 0; i < 3; i++ {
			i := i
			_, err := sys.Watch(func(w *reactive.Watcher) (any, error) {
				return obj.Get("a", w)
			}, func(newValue, oldValue any) {
				order = append(order, i)
			})
			require.NoError(t, err)
		}
		require.NoError(t, obj.Set("a", 1))
		assert.Equal(t, []int{0, 1, 2}, order)
	})

	t.Run("callback gets new and old values", func(t *testing.T) {
		sys := newSystem(t)
		obj, err := reactive.Observe(map[string]any{"a": 1})
		require.NoError(t, err)

		var got [2]any
		_, err = sys.Watch(func(w *reactive.Watcher) (any, error) {
			return obj.Get("a", w)
		}, func(newValue, oldValue any) {
			got = [2]any{newValue, oldValue}
		})
		require.NoError(t, err)
		require.NoError(t, obj.Set("a", 5))
		assert.Equal(t, [2]any{5, 1}, got)
	})
}

func TestNestedAssignment(t *testing.T) {
	sys := newSystem(t)
	obj, err := reactive.Observe(map[string]any{
		"user": map[string]any{"name": "Ann"},
	})
	require.NoError(t, err)

	w, calls := watchPath(t, sys, obj, "user", "name")
	assert.Equal(t, "Ann", w.Value())

	require.NoError(t, obj.Set("user", map[string]any{"name": "Bo"}))
	assert.Equal(t, 1, *calls)
	assert.Equal(t, "Bo", w.Value())

	// the fresh object is instrumented and the watcher follows it
	user, err := obj.Get("user", nil)
	require.NoError(t, err)
	require.NoError(t, user.(*reactive.Object).Set("name", "Cy"))
	assert.Equal(t, 2, *calls)
	assert.Equal(t, "Cy", w.Value())
	assert.Equal(t, "user.name", dep(t, user.(*reactive.Object), "name").Path())
}

func TestStaleDependenciesAreDropped(t *testing.T) {
	sys := newSystem(t)
	obj, err := reactive.Observe(map[string]any{"flag": true, "a": 1, "b": 2})
	require.NoError(t, err)

	calls := 0
	w, err := sys.Watch(func(w *reactive.Watcher) (any, error) {
		flag, err := obj.Get("flag", w)
		if err != nil {
			return nil, err
		}
		if flag.(bool) {
			return obj.Get("a", w)
		}
		return obj.Get("b", w)
	}, func(newValue, oldValue any) {
		calls++
	})
	require.NoError(t, err)
	assert.Equal(t, 1, dep(t, obj, "a").Len())
	assert.Equal(t, 0, dep(t, obj, "b").Len())
	assert.Len(t, w.Deps(), 2)

	require.NoError(t, obj.Set("flag", false))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, w.Value())
	assert.Equal(t, 0, dep(t, obj, "a").Len())
	assert.Equal(t, 1, dep(t, obj, "b").Len())

	require.NoError(t, obj.Set("a", 10))
	assert.Equal(t, 1, calls)
}

func TestRevoke(t *testing.T) {
	sys := newSystem(t)
	obj, err := reactive.Observe(map[string]any{"a": 1})
	require.NoError(t, err)

	w1, calls := watchPath(t, sys, obj, "a")
	h1 := w1.Handle()
	assert.Equal(t, 1, sys.Len())

	w1.Stop()
	assert.True(t, w1.Stopped())
	assert.Equal(t, 0, sys.Len())
	assert.Equal(t, 0, dep(t, obj, "a").Len())

	require.NoError(t, obj.Set("a", 2))
	assert.Equal(t, 0, *calls)

	w2, _ := watchPath(t, sys, obj, "a")
	assert.NotEqual(t, h1, w2.Handle())
	_, ok := sys.Lookup(h1)
	assert.False(t, ok)
	assert.False(t, sys.Revoke(h1))

	found, ok := sys.Lookup(w2.Handle())
	require.True(t, ok)
	assert.Same(t, w2, found)

	var seen []*reactive.Watcher
	sys.Each(func(w *reactive.Watcher) { seen = append(seen, w) })
	assert.Equal(t, []*reactive.Watcher{w2}, seen)
}

func TestWriteErrors(t *testing.T) {
	obj, err := reactive.Observe(map[string]any{"a": 1})
	require.NoError(t, err)

	t.Run("unknown key", func(t *testing.T) {
		assert.ErrorIs(t, obj.Set("missing", 1), reactive.ErrUnknownProperty)
		_, err := obj.Get("missing", nil)
		assert.ErrorIs(t, err, reactive.ErrUnknownProperty)
	})

	t.Run("computed is read-only", func(t *testing.T) {
		require.NoError(t, obj.DefineComputed("double", func(w *reactive.Watcher) (any, error) {
			v, err := obj.Get("a", w)
			if err != nil {
				return nil, err
			}
			return v.(int) * 2, nil
		}))
		assert.True(t, obj.IsComputed("double"))
		assert.ErrorIs(t, obj.Set("double", 4), reactive.ErrReadOnly)
		assert.ErrorIs(t, obj.DefineComputed("a", nil), reactive.ErrDuplicateKey)
		_, ok := obj.Dep("double")
		assert.False(t, ok)
	})

	t.Run("assigning an ancestor is a cycle", func(t *testing.T) {
		root, err := reactive.Observe(map[string]any{"child": map[string]any{"loop": nil}})
		require.NoError(t, err)
		child, _ := root.Get("child", nil)
		assert.ErrorIs(t, child.(*reactive.Object).Set("loop", root), reactive.ErrCycle)
	})

	t.Run("ancestor wrapped in plain data is a cycle", func(t *testing.T) {
		root, err := reactive.Observe(map[string]any{"a": 1, "child": map[string]any{"loop": nil}})
		require.NoError(t, err)
		child, _ := root.Get("child", nil)

		assert.ErrorIs(t, root.Set("a", map[string]any{"back": root}), reactive.ErrCycle)
		assert.ErrorIs(t, root.Set("a", []any{1, map[string]any{"deep": root}}), reactive.ErrCycle)
		assert.ErrorIs(t, child.(*reactive.Object).Set("loop", map[string]any{"up": root}), reactive.ErrCycle)

		// rejected writes leave the store untouched and printable
		v, _ := root.Get("a", nil)
		assert.Equal(t, 1, v)
		assert.JSONEq(t, `{"a":1,"child":{"loop":null}}`, root.String())

		// a sibling object is not an ancestor
		other, err := reactive.Observe(map[string]any{"x": 1})
		require.NoError(t, err)
		assert.NoError(t, root.Set("a", map[string]any{"ref": other}))
	})
}

func TestRewritingObservedSource(t *testing.T) {
	sys := newSystem(t)
	user := map[string]any{"name": "Ann"}
	tags := []any{"a", "b"}
	obj, err := reactive.Observe(map[string]any{"user": user, "tags": tags})
	require.NoError(t, err)

	calls := 0
	for _, key := range []string{"user", "tags"} {
		key := key
		_, err := sys.Watch(func(w *reactive.Watcher) (any, error) {
			return obj.Get(key, w)
		}, func(newValue, oldValue any) { calls++ })
		require.NoError(t, err)
	}

	require.NoError(t, obj.Set("user", user))
	require.NoError(t, obj.Set("tags", tags))
	assert.Equal(t, 0, calls)

	require.NoError(t, obj.Set("user", map[string]any{"name": "Ann"}))
	require.NoError(t, obj.Set("tags", tags[:1]))
	assert.Equal(t, 2, calls)
}

func TestComputedIsTracked(t *testing.T) {
	sys := newSystem(t)
	obj, err := reactive.Observe(map[string]any{"a": 1})
	require.NoError(t, err)

	runs := 0
	require.NoError(t, obj.DefineComputed("double", func(w *reactive.Watcher) (any, error) {
		runs++
		v, err := obj.Get("a", w)
		if err != nil {
			return nil, err
		}
		return v.(int) * 2, nil
	}))

	w, calls := watchPath(t, sys, obj, "double")
	assert.Equal(t, 2, w.Value())
	require.NoError(t, obj.Set("a", 3))
	assert.Equal(t, 1, *calls)
	assert.Equal(t, 6, w.Value())

	// no memoization, every read runs the function
	before := runs
	obj.Get("double", nil)
	obj.Get("double", nil)
	assert.Equal(t, before+2, runs)
}

func TestReentrantUpdateIsReported(t *testing.T) {
	var errs []error
	sys := reactive.NewSystem(func(w *reactive.Watcher, err error) {
		errs = append(errs, err)
	})
	obj, err := reactive.Observe(map[string]any{"n": 0})
	require.NoError(t, err)

	w, err := sys.Watch(func(w *reactive.Watcher) (any, error) {
		return obj.Get("n", w)
	}, func(newValue, oldValue any) {
		obj.Set("n", newValue.(int)+1)
	})
	require.NoError(t, err)

	require.NoError(t, obj.Set("n", 1))
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], reactive.ErrReentrant)
	assert.Equal(t, 1, w.Value())

	n, _ := obj.Get("n", nil)
	assert.Equal(t, 2, n)
}

func TestFailedEvaluation(t *testing.T) {
	var errs []error
	sys := reactive.NewSystem(func(w *reactive.Watcher, err error) {
		errs = append(errs, err)
	})
	obj, err := reactive.Observe(map[string]any{"a": 1})
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = sys.Watch(func(w *reactive.Watcher) (any, error) {
		obj.Get("a", w)
		return nil, boom
	}, nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, dep(t, obj, "a").Len())
	assert.Equal(t, 0, sys.Len())

	fail := false
	_, err = sys.Watch(func(w *reactive.Watcher) (any, error) {
		v, _ := obj.Get("a", w)
		if fail {
			return nil, boom
		}
		return v, nil
	}, nil)
	require.NoError(t, err)

	fail = true
	require.NoError(t, obj.Set("a", 2))
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], boom)
	// still subscribed through the part of the evaluation that ran
	assert.Equal(t, 1, dep(t, obj, "a").Len())
}

func TestWalk(t *testing.T) {
	obj, err := reactive.Observe(map[string]any{
		"b":     1,
		"a":     map[string]any{"x": 1},
		"items": []any{map[string]any{"y": 2}},
	})
	require.NoError(t, err)

	var paths []string
	obj.Walk(func(d *reactive.Dep) {
		paths = append(paths, d.Path())
		assert.NotZero(t, d.ID())
	})
	assert.Equal(t, []string{"a", "a.x", "b", "items", "items.0.y"}, paths)
}
