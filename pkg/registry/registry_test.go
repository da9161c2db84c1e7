package registry_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"testing"
	"time"

	"github.com/andrea-alfonsi/nyx/pkg/abi"
	"github.com/andrea-alfonsi/nyx/pkg/library"
	"github.com/andrea-alfonsi/nyx/pkg/pdk"
	"github.com/andrea-alfonsi/nyx/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// operation is the prototype the tests load plugins for.
type operation interface {
	Apply(a, b int) int
}

type opFunc func(a, b int) int

func (f opFunc) Apply(a, b int) int { return f(a, b) }

var (
	add = opFunc(func(a, b int) int { return a + b })
	sub = opFunc(func(a, b int) int { return a - b })
	mul = opFunc(func(a, b int) int { return a * b })
)

// declare builds a declaration registering fns in the given order.
func declare(fns ...any) *abi.Declaration[operation] {
	decl := abi.Export(func(r abi.Registrar[operation]) {
		for i := 0; i+1 < len(fns); i += 2 {
			r.RegisterFunction(fns[i].(string), fns[i+1].(operation))
		}
	})
	return &decl
}

// snapshot captures the observable state of a registry.
type snapshot struct {
	names     []string
	libraries []string
}

func snap(reg *registry.Registry[operation]) snapshot {
	s := snapshot{names: slices.Sorted(reg.Functions())}
	for _, lib := range reg.Libraries() {
		s.libraries = append(s.libraries, lib.ID().String())
	}
	return s
}

func newRegistry(opener *pdk.MemoryOpener) *registry.Registry[operation] {
	return registry.New(registry.WithOpener[operation](opener))
}

func TestLoad_RegistersEveryFunction(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	opener := pdk.NewMemoryOpener().
		AddDeclaration("math.so", abi.DeclarationSymbol, declare("add", add, "sub", sub))
	reg := newRegistry(opener)

	// --- Act ---
	err := reg.Load(context.Background(), "math.so")

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{"add", "sub"}, slices.Sorted(reg.Functions()))
	assert.Equal(t, 2, reg.Len())

	p, ok := reg.Get("add")
	require.True(t, ok)
	assert.Equal(t, "add", p.Name())
	assert.Equal(t, 5, p.Value().Apply(2, 3))

	p, ok = reg.Get("sub")
	require.True(t, ok)
	p.Use(func(op operation) { assert.Equal(t, -1, op.Apply(2, 3)) })

	_, ok = reg.Get("mul")
	assert.False(t, ok)

	libs := reg.Libraries()
	require.Len(t, libs, 1)
	assert.Equal(t, "math.so", libs[0].Path())
	// One reference held by the registry, one per proxy.
	assert.Equal(t, int64(3), libs[0].Refs())
	assert.Same(t, libs[0], p.Library())
}

func TestLoad_KeepsPreExistingNames(t *testing.T) {
	t.Parallel()

	opener := pdk.NewMemoryOpener().
		AddDeclaration("a.so", abi.DeclarationSymbol, declare("add", add)).
		AddDeclaration("b.so", abi.DeclarationSymbol, declare("mul", mul))
	reg := newRegistry(opener)

	require.NoError(t, reg.Load(context.Background(), "a.so"))
	require.NoError(t, reg.Load(context.Background(), "b.so"))

	assert.Equal(t, []string{"add", "mul"}, slices.Sorted(reg.Functions()))
	assert.Len(t, reg.Libraries(), 2)
}

func TestLoad_PluginRegisteringNothing(t *testing.T) {
	t.Parallel()

	opener := pdk.NewMemoryOpener().AddDeclaration("empty.so", abi.DeclarationSymbol, declare())
	reg := newRegistry(opener)

	require.NoError(t, reg.Load(context.Background(), "empty.so"))

	assert.Equal(t, 0, reg.Len())
	assert.Len(t, reg.Libraries(), 1, "an empty plugin is still retained")
}

func TestLoad_FailuresLeaveNoTrace(t *testing.T) {
	t.Parallel()

	otherPrototype := abi.Export(func(abi.Registrar[func() string]) {})

	testCases := []struct {
		name       string
		path       string
		sentinel   error
		opened     int
		wantTarget any
	}{
		{name: "nonexistent path", path: "missing.so", sentinel: registry.ErrIO, opened: 0, wantTarget: new(*registry.IOError)},
		{name: "no declaration symbol", path: "nodecl.so", sentinel: registry.ErrSymbolNotFound, opened: 1, wantTarget: new(*registry.SymbolNotFoundError)},
		{name: "declaration for another prototype", path: "foreign.so", sentinel: registry.ErrSymbolNotFound, opened: 1, wantTarget: new(*registry.SymbolNotFoundError)},
		{name: "core version mismatch", path: "oldcore.so", sentinel: registry.ErrVersionMismatch, opened: 1, wantTarget: new(*registry.VersionMismatchError)},
		{name: "runtime version mismatch", path: "oldgo.so", sentinel: registry.ErrVersionMismatch, opened: 1, wantTarget: new(*registry.VersionMismatchError)},
	}

	oldCore := declare("mul", mul)
	oldCore.CoreVersion = "0.0.1"
	oldGo := declare("mul", mul)
	oldGo.HostRuntimeVersion = "go1.1 gc plan9/386"

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			opener := pdk.NewMemoryOpener().
				AddDeclaration("base.so", abi.DeclarationSymbol, declare("add", add)).
				Add("nodecl.so", map[string]any{"SomethingElse": 1}).
				AddDeclaration("foreign.so", abi.DeclarationSymbol, &otherPrototype).
				AddDeclaration("oldcore.so", abi.DeclarationSymbol, oldCore).
				AddDeclaration("oldgo.so", abi.DeclarationSymbol, oldGo)
			reg := newRegistry(opener)
			require.NoError(t, reg.Load(context.Background(), "base.so"))
			before := snap(reg)

			// --- Act ---
			err := reg.Load(context.Background(), tc.path)

			// --- Assert ---
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.sentinel)
			assert.ErrorAs(t, err, tc.wantTarget)
			assert.Equal(t, before, snap(reg), "registry state must be unchanged")
			assert.Equal(t, tc.opened, opener.Opened(tc.path))
			assert.Equal(t, tc.opened, opener.Closed(tc.path), "a rejected library must be released")

			p, ok := reg.Get("add")
			require.True(t, ok)
			assert.Equal(t, 3, p.Value().Apply(1, 2))
		})
	}
}

func TestLoad_VersionMismatchCarriesBothSides(t *testing.T) {
	t.Parallel()

	decl := declare("add", add)
	decl.CoreVersion = "9.9.9"
	decl.HostRuntimeVersion = "go0.0"
	opener := pdk.NewMemoryOpener().AddDeclaration("future.so", abi.DeclarationSymbol, decl)
	reg := newRegistry(opener)

	err := reg.Load(context.Background(), "future.so")

	var mismatch *registry.VersionMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "future.so", mismatch.Path)
	assert.Equal(t, abi.CoreVersion, mismatch.ExpectedCore)
	assert.Equal(t, "9.9.9", mismatch.ActualCore)
	assert.Equal(t, abi.HostRuntimeVersion, mismatch.ExpectedHost)
	assert.Equal(t, "go0.0", mismatch.ActualHost)
	assert.Contains(t, err.Error(), "9.9.9")
}

func TestLoad_IncompatibleGoBuildIsAVersionMismatch(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	cause := fmt.Errorf("%w: plugin.Open(\"old.so\"): plugin was built with a different version of package runtime", library.ErrIncompatibleBuild)
	opener := library.OpenerFunc(func(string) (library.Object, error) { return nil, cause })
	reg := registry.New(registry.WithOpener[operation](opener))

	// --- Act ---
	err := reg.Load(context.Background(), "old.so")

	// --- Assert ---
	require.ErrorIs(t, err, registry.ErrVersionMismatch)
	require.ErrorIs(t, err, library.ErrIncompatibleBuild)
	assert.NotErrorIs(t, err, registry.ErrIO)
	var mismatch *registry.VersionMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "old.so", mismatch.Path)
	assert.Equal(t, abi.HostRuntimeVersion, mismatch.ExpectedHost)
	assert.Empty(t, mismatch.ActualHost)
	assert.Equal(t, 0, reg.Len())
	assert.Empty(t, reg.Libraries())
}

func TestWithLogger_ReceivesLoadDiagnostics(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	opener := pdk.NewMemoryOpener().AddDeclaration("math.so", abi.DeclarationSymbol, declare("add", add))
	reg := registry.New(
		registry.WithOpener[operation](opener),
		registry.WithLogger[operation](logger),
	)

	// --- Act ---
	err := reg.Load(context.Background(), "math.so")

	// --- Assert ---
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Library loaded.")
	assert.Contains(t, buf.String(), "path=math.so")
}

func TestLoad_WrongPrototypeWrapsCause(t *testing.T) {
	t.Parallel()

	other := abi.Export(func(abi.Registrar[func() string]) {})
	opener := pdk.NewMemoryOpener().AddDeclaration("other.so", abi.DeclarationSymbol, &other)
	reg := newRegistry(opener)

	err := reg.Load(context.Background(), "other.so")

	require.ErrorIs(t, err, registry.ErrSymbolNotFound)
	require.ErrorIs(t, err, abi.ErrPrototypeMismatch)
}

func TestLoad_LastLoadWins(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	opener := pdk.NewMemoryOpener().
		AddDeclaration("first.so", abi.DeclarationSymbol, declare("op", add)).
		AddDeclaration("second.so", abi.DeclarationSymbol, declare("op", mul))
	reg := newRegistry(opener)

	// --- Act ---
	require.NoError(t, reg.Load(context.Background(), "first.so"))
	require.NoError(t, reg.Load(context.Background(), "second.so"))

	// --- Assert ---
	p, ok := reg.Get("op")
	require.True(t, ok)
	assert.Equal(t, 12, p.Value().Apply(3, 4), "second load must replace the first")
	assert.Equal(t, "second.so", p.Library().Path())
	assert.Equal(t, 1, reg.Len())

	libs := reg.Libraries()
	require.Len(t, libs, 2)
	assert.Equal(t, "first.so", libs[0].Path())
	assert.False(t, libs[0].Released(), "the overwritten library stays retained")
	assert.Equal(t, 0, opener.Closed("first.so"))
}

func TestLoad_SameNameTwiceInOneLoad(t *testing.T) {
	t.Parallel()

	opener := pdk.NewMemoryOpener().
		AddDeclaration("dup.so", abi.DeclarationSymbol, declare("op", add, "op", sub, "mul", mul))
	reg := newRegistry(opener)

	require.NoError(t, reg.Load(context.Background(), "dup.so"))

	p, ok := reg.Get("op")
	require.True(t, ok)
	assert.Equal(t, 1, p.Value().Apply(3, 2), "last registration within a load wins")

	var names []string
	for name := range reg.Functions() {
		names = append(names, name)
	}
	assert.ElementsMatch(t, []string{"op", "mul"}, names)
	assert.Len(t, names, reg.Len())
}

func TestFunctions_IsRestartable(t *testing.T) {
	t.Parallel()

	opener := pdk.NewMemoryOpener().
		AddDeclaration("a.so", abi.DeclarationSymbol, declare("add", add)).
		AddDeclaration("b.so", abi.DeclarationSymbol, declare("sub", sub))
	reg := newRegistry(opener)
	require.NoError(t, reg.Load(context.Background(), "a.so"))

	seq := reg.Functions()
	assert.Equal(t, []string{"add"}, slices.Collect(seq))
	assert.Equal(t, []string{"add"}, slices.Collect(seq))

	require.NoError(t, reg.Load(context.Background(), "b.so"))
	assert.Equal(t, []string{"add", "sub"}, slices.Sorted(seq), "the sequence reflects the current names")

	for range seq {
		break
	}
}

func TestProxy_SurvivesLaterLoads(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	opener := pdk.NewMemoryOpener().
		AddDeclaration("a.so", abi.DeclarationSymbol, declare("add", add)).
		AddDeclaration("b.so", abi.DeclarationSymbol, declare("sub", sub)).
		AddDeclaration("c.so", abi.DeclarationSymbol, declare("mul", mul))
	reg := newRegistry(opener)
	require.NoError(t, reg.Load(context.Background(), "a.so"))
	early, ok := reg.Get("add")
	require.True(t, ok)

	// --- Act ---
	require.NoError(t, reg.Load(context.Background(), "b.so"))
	require.Error(t, reg.Load(context.Background(), "missing.so"))
	require.NoError(t, reg.Load(context.Background(), "c.so"))
	require.Error(t, reg.Load(context.Background(), "missing-too.so"))

	// --- Assert ---
	assert.Equal(t, 10, early.Value().Apply(4, 6))
	assert.False(t, early.Library().Released())
}

func TestRegistrar_UseAfterLoadPanics(t *testing.T) {
	t.Parallel()

	var kept abi.Registrar[operation]
	decl := abi.Export(func(r abi.Registrar[operation]) {
		kept = r
		r.RegisterFunction("add", add)
	})
	opener := pdk.NewMemoryOpener().AddDeclaration("leaky.so", abi.DeclarationSymbol, &decl)
	reg := newRegistry(opener)
	require.NoError(t, reg.Load(context.Background(), "leaky.so"))

	assert.Panics(t, func() { kept.RegisterFunction("late", sub) })
	_, ok := reg.Get("late")
	assert.False(t, ok)
}

func TestLoad_PanickingPluginIsNotRecovered(t *testing.T) {
	t.Parallel()

	decl := abi.Export(func(r abi.Registrar[operation]) {
		r.RegisterFunction("add", add)
		panic("plugin bug")
	})
	opener := pdk.NewMemoryOpener().AddDeclaration("broken.so", abi.DeclarationSymbol, &decl)
	reg := newRegistry(opener)

	assert.PanicsWithValue(t, "plugin bug", func() {
		_ = reg.Load(context.Background(), "broken.so")
	})
	assert.Equal(t, 0, reg.Len())
	assert.Empty(t, reg.Libraries())
}

func TestLoad_CanceledContextOpensNothing(t *testing.T) {
	t.Parallel()

	opener := pdk.NewMemoryOpener().AddDeclaration("a.so", abi.DeclarationSymbol, declare("add", add))
	reg := newRegistry(opener)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := reg.Load(ctx, "a.so")

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, opener.Opened("a.so"))
}

func TestLoad_CustomSymbolAndVersions(t *testing.T) {
	t.Parallel()

	decl := declare("add", add)
	decl.CoreVersion = "custom-core"
	decl.HostRuntimeVersion = "custom-runtime"
	opener := pdk.NewMemoryOpener().AddDeclaration("slot.so", "NyxOperations", decl)
	reg := registry.New(
		registry.WithOpener[operation](opener),
		registry.WithSymbol[operation]("NyxOperations"),
		registry.WithVersions[operation](abi.Versions{Core: "custom-core", HostRuntime: "custom-runtime"}),
	)

	require.NoError(t, reg.Load(context.Background(), "slot.so"))
	assert.Equal(t, "NyxOperations", reg.Symbol())
	assert.Equal(t, 1, reg.Len())
}

func TestClose_ReleasesRetainedLibraries(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	opener := pdk.NewMemoryOpener().
		AddDeclaration("empty.so", abi.DeclarationSymbol, declare()).
		AddDeclaration("math.so", abi.DeclarationSymbol, declare("add", add))
	reg := newRegistry(opener)
	require.NoError(t, reg.Load(context.Background(), "empty.so"))
	require.NoError(t, reg.Load(context.Background(), "math.so"))
	held, ok := reg.Get("add")
	require.True(t, ok)

	// --- Act ---
	require.NoError(t, reg.Close())

	// --- Assert ---
	assert.Equal(t, 1, opener.Closed("empty.so"), "a library without proxies is closed immediately")
	assert.Equal(t, 0, opener.Closed("math.so"), "a held proxy keeps its library open")
	assert.Equal(t, 7, held.Value().Apply(3, 4))
	assert.Equal(t, 0, reg.Len())
	assert.Empty(t, reg.Libraries())
	assert.ErrorIs(t, reg.Load(context.Background(), "math.so"), registry.ErrClosed)
	assert.NoError(t, reg.Close(), "closing twice is harmless")

	runtime.KeepAlive(held)
	held = nil
	require.Eventually(t, func() bool {
		runtime.GC()
		return opener.Closed("math.so") == 1
	}, 5*time.Second, 10*time.Millisecond, "the library is closed once the last proxy is collected")
}

func TestClose_ReturnsFirstCloseError(t *testing.T) {
	t.Parallel()

	opener := pdk.NewMemoryOpener().
		AddDeclaration("a.so", abi.DeclarationSymbol, declare()).
		FailClose("a.so", errors.New("dlclose: busy"))
	reg := newRegistry(opener)
	require.NoError(t, reg.Load(context.Background(), "a.so"))

	assert.EqualError(t, reg.Close(), "dlclose: busy")
}

func TestLoadWith_MixesBackendsInOneRegistry(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	native := abi.Versions{Core: abi.CoreVersion, HostRuntime: "native-abi/1"}
	nativeDecl := declare("mul", mul)
	nativeDecl.HostRuntimeVersion = native.HostRuntime

	goOpener := pdk.NewMemoryOpener().AddDeclaration("math.so", abi.DeclarationSymbol, declare("add", add))
	nativeOpener := pdk.NewMemoryOpener().AddDeclaration("libmul.so", abi.DeclarationSymbol, nativeDecl)
	reg := newRegistry(goOpener)
	nativeBackend := registry.Backend[operation]{
		Opener:   nativeOpener,
		Decode:   abi.Assert[operation],
		Versions: native,
	}

	// --- Act ---
	errGo := reg.Load(context.Background(), "math.so")
	errNative := reg.LoadWith(context.Background(), "libmul.so", nativeBackend)
	errCross := reg.Load(context.Background(), "libmul.so")

	// --- Assert ---
	require.NoError(t, errGo)
	require.NoError(t, errNative)
	require.ErrorIs(t, errCross, registry.ErrIO, "the default backend cannot see the native library")
	assert.Equal(t, []string{"add", "mul"}, slices.Sorted(reg.Functions()))
	assert.Equal(t, abi.Current(), reg.Versions())
}
