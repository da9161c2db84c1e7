package library

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObject struct {
	symbols map[string]any
	closed  int
	err     error
}

func (f *fakeObject) Lookup(symbol string) (any, error) {
	sym, ok := f.symbols[symbol]
	if !ok {
		return nil, errors.New("symbol not found: " + symbol)
	}
	return sym, nil
}

func (f *fakeObject) Close() error {
	f.closed++
	return f.err
}

func openFake(t *testing.T, obj *fakeObject) *Handle {
	t.Helper()
	h, err := Open(OpenerFunc(func(string) (Object, error) { return obj, nil }), "/plugins/fake.so")
	require.NoError(t, err)
	return h
}

func TestOpen_StartsWithOneReference(t *testing.T) {
	t.Parallel()

	h := openFake(t, &fakeObject{})

	assert.Equal(t, int64(1), h.Refs())
	assert.False(t, h.Released())
	assert.Equal(t, "/plugins/fake.so", h.Path())
}

func TestOpen_PropagatesOpenerError(t *testing.T) {
	t.Parallel()

	want := errors.New("no such file")
	h, err := Open(OpenerFunc(func(string) (Object, error) { return nil, want }), "missing.so")

	require.ErrorIs(t, err, want)
	assert.Nil(t, h)
}

func TestHandle_ClosesOnLastRelease(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	obj := &fakeObject{}
	h := openFake(t, obj)
	h.Acquire()
	h.Acquire()

	// --- Act & Assert ---
	require.NoError(t, h.Release())
	require.NoError(t, h.Release())
	assert.Equal(t, 0, obj.closed, "object must stay open while references remain")

	require.NoError(t, h.Release())
	assert.Equal(t, 1, obj.closed)
	assert.True(t, h.Released())
}

func TestHandle_ReturnsCloseError(t *testing.T) {
	t.Parallel()

	obj := &fakeObject{err: errors.New("dlclose failed")}
	h := openFake(t, obj)

	assert.EqualError(t, h.Release(), "dlclose failed")
}

func TestHandle_MisuseIsFatal(t *testing.T) {
	t.Parallel()

	h := openFake(t, &fakeObject{})
	require.NoError(t, h.Release())

	assert.Panics(t, func() { h.Acquire() })
	assert.Panics(t, func() { _ = h.Release() })
}

func TestHandle_Lookup(t *testing.T) {
	t.Parallel()

	h := openFake(t, &fakeObject{symbols: map[string]any{"NyxDeclaration": 42}})

	sym, err := h.Lookup("NyxDeclaration")
	require.NoError(t, err)
	assert.Equal(t, 42, sym)

	_, err = h.Lookup("Other")
	require.Error(t, err)

	require.NoError(t, h.Release())
	_, err = h.Lookup("NyxDeclaration")
	require.ErrorIs(t, err, ErrReleased)
}

func TestHandle_IDsAreUnique(t *testing.T) {
	t.Parallel()

	a := openFake(t, &fakeObject{})
	b := openFake(t, &fakeObject{})

	assert.NotEqual(t, a.ID(), b.ID())
	assert.Contains(t, a.String(), a.ID().String())
}

func TestGoPlugin_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Open(GoPlugin(), "/nonexistent/plugin.so")
	require.Error(t, err)
}

func TestClassifyOpenError(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		err          error
		incompatible bool
	}{
		{
			name:         "runtime package mismatch",
			err:          errors.New(`plugin.Open("/plugins/old.so"): plugin was built with a different version of package runtime/internal/sys`),
			incompatible: true,
		},
		{
			name: "missing file",
			err:  errors.New(`plugin.Open("/plugins/none.so"): realpath failed`),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Act ---
			got := classifyOpenError(tc.err)

			// --- Assert ---
			assert.ErrorIs(t, got, tc.err, "the cause must stay reachable")
			assert.Equal(t, tc.incompatible, errors.Is(got, ErrIncompatibleBuild))
		})
	}
}
