package loader_test

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/torosent/loadtime/internal/loader"
)

func TestRegistryLoadCachesExports(t *testing.T) {
	reg := loader.NewRegistry()
	calls := 0
	if err := reg.Register(loader.Definition{
		Name:     "config",
		Filename: "/app/config.go",
		Init: func(*loader.InitContext) (any, error) {
			calls++
			return "cfg", nil
		},
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	root := &loader.Module{Name: "main"}
	for i := 0; i < 3; i++ {
		got, err := reg.Load("config", root)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if got != "cfg" {
			t.Errorf("exports = %v, want cfg", got)
		}
	}
	if calls != 1 {
		t.Errorf("init ran %d times, want 1", calls)
	}
	children := root.Children()
	if len(children) != 3 {
		t.Fatalf("expected 3 children (cache hits included), got %d", len(children))
	}
	if last := root.LastChild(); last == nil || last.Filename != "/app/config.go" {
		t.Errorf("unexpected last child %+v", last)
	}
}

func TestRegistryAliases(t *testing.T) {
	reg := loader.NewRegistry()
	_ = reg.Register(loader.Definition{
		Name:    "lodash",
		Aliases: []string{"_"},
		Init:    func(*loader.InitContext) (any, error) { return 42, nil },
	})

	a, err := reg.Load("_", nil)
	if err != nil {
		t.Fatalf("Load alias: %v", err)
	}
	b, err := reg.Load("lodash", nil)
	if err != nil {
		t.Fatalf("Load name: %v", err)
	}
	if a != b {
		t.Errorf("alias and name resolved to different exports: %v vs %v", a, b)
	}
}

func TestRegistryNotFound(t *testing.T) {
	reg := loader.NewRegistry()
	_, err := reg.Load("missing", nil)
	if !errors.Is(err, loader.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var nf *loader.NotFoundError
	if !errors.As(err, &nf) || nf.Name != "missing" {
		t.Errorf("expected NotFoundError for missing, got %v", err)
	}
}

func TestRegistryRegisterRequiresName(t *testing.T) {
	if err := loader.NewRegistry().Register(loader.Definition{}); err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestRegistryFailedInitIsForgotten(t *testing.T) {
	reg := loader.NewRegistry()
	boom := errors.New("boom")
	attempts := 0
	_ = reg.Register(loader.Definition{
		Name: "flaky",
		Init: func(*loader.InitContext) (any, error) {
			attempts++
			if attempts == 1 {
				return nil, boom
			}
			return "ok", nil
		},
	})

	root := &loader.Module{Name: "main"}
	if _, err := reg.Load("flaky", root); err != boom {
		t.Fatalf("expected boom, got %v", err)
	}
	if len(root.Children()) != 0 {
		t.Errorf("failed unit should be removed from parent children")
	}
	got, err := reg.Load("flaky", root)
	if err != nil || got != "ok" {
		t.Fatalf("retry: got %v, %v", got, err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestRegistryNestedLoadsGoThroughSeam(t *testing.T) {
	reg := loader.NewRegistry()
	seam := loader.NewSeam(reg.Load)
	reg.Bind(seam)

	_ = reg.Register(loader.Definition{Name: "leaf", Filename: "/app/leaf.go"})
	_ = reg.Register(loader.Definition{
		Name:     "app",
		Filename: "/app/app.go",
		Init: func(ctx *loader.InitContext) (any, error) {
			return ctx.Require("leaf")
		},
	})

	var seen []string
	orig := seam.Current()
	seam.Swap(func(name string, parent *loader.Module) (any, error) {
		seen = append(seen, name)
		return orig(name, parent)
	})

	if _, err := seam.Load("app", nil); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(seen) != 2 || seen[0] != "app" || seen[1] != "leaf" {
		t.Errorf("seam saw %v, want [app leaf]", seen)
	}
}

func TestRegistryCycleReturnsPartialExports(t *testing.T) {
	reg := loader.NewRegistry()
	_ = reg.Register(loader.Definition{
		Name: "a",
		Init: func(ctx *loader.InitContext) (any, error) {
			if _, err := ctx.Require("b"); err != nil {
				return nil, err
			}
			return "a", nil
		},
	})
	var fromB any = "unset"
	_ = reg.Register(loader.Definition{
		Name: "b",
		Init: func(ctx *loader.InitContext) (any, error) {
			v, err := ctx.Require("a")
			fromB = v
			return "b", err
		},
	})

	got, err := reg.Load("a", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != "a" {
		t.Errorf("exports = %v, want a", got)
	}
	if fromB != nil {
		t.Errorf("cyclic load should see nil exports, got %v", fromB)
	}
}

func TestSeamSwapReturnsPrevious(t *testing.T) {
	first := func(string, *loader.Module) (any, error) { return 1, nil }
	second := func(string, *loader.Module) (any, error) { return 2, nil }
	seam := loader.NewSeam(first)

	prev := seam.Swap(second)
	if v, _ := prev("x", nil); v != 1 {
		t.Errorf("previous function returned %v, want 1", v)
	}
	if v, _ := seam.Load("x", nil); v != 2 {
		t.Errorf("Load returned %v, want 2", v)
	}
}

func TestSeamWithoutFunction(t *testing.T) {
	seam := loader.NewSeam(nil)
	if _, err := seam.Load("x", nil); !errors.Is(err, loader.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

type loadResult struct {
	exports any
	err     error
}

func loadAsync(reg *loader.Registry, name string, parent *loader.Module) <-chan loadResult {
	ch := make(chan loadResult, 1)
	go func() {
		v, err := reg.Load(name, parent)
		ch <- loadResult{v, err}
	}()
	return ch
}

func TestRegistryConcurrentLoadWaitsForInit(t *testing.T) {
	reg := loader.NewRegistry()
	started := make(chan struct{})
	release := make(chan struct{})
	var inits atomic.Int32
	_ = reg.Register(loader.Definition{
		Name: "slow",
		Init: func(*loader.InitContext) (any, error) {
			inits.Add(1)
			close(started)
			<-release
			return "ready", nil
		},
	})

	first := loadAsync(reg, "slow", nil)
	<-started
	second := loadAsync(reg, "slow", nil)

	select {
	case r := <-second:
		t.Fatalf("load of an initializing unit returned early: %v, %v", r.exports, r.err)
	case <-time.After(20 * time.Millisecond):
	}
	close(release)

	for i, ch := range []<-chan loadResult{first, second} {
		r := <-ch
		if r.err != nil || r.exports != "ready" {
			t.Errorf("load %d = %v, %v; want ready", i, r.exports, r.err)
		}
	}
	if n := inits.Load(); n != 1 {
		t.Errorf("init ran %d times, want 1", n)
	}
}

func TestRegistryConcurrentLoadSharesInitError(t *testing.T) {
	reg := loader.NewRegistry()
	boom := errors.New("boom")
	started := make(chan struct{})
	release := make(chan struct{})
	_ = reg.Register(loader.Definition{
		Name: "broken",
		Init: func(*loader.InitContext) (any, error) {
			close(started)
			<-release
			return nil, boom
		},
	})

	rootA := &loader.Module{Name: "a"}
	rootB := &loader.Module{Name: "b"}
	first := loadAsync(reg, "broken", rootA)
	<-started
	second := loadAsync(reg, "broken", rootB)
	time.Sleep(10 * time.Millisecond)
	close(release)

	for i, ch := range []<-chan loadResult{first, second} {
		if r := <-ch; !errors.Is(r.err, boom) {
			t.Errorf("load %d err = %v, want boom", i, r.err)
		}
	}
	if len(rootA.Children()) != 0 || len(rootB.Children()) != 0 {
		t.Errorf("failed unit left in children: %v %v", rootA.Children(), rootB.Children())
	}
	if reg.Resolve("broken") != nil {
		t.Error("failed unit still cached")
	}
}

func TestRegistryResolve(t *testing.T) {
	reg := loader.NewRegistry()
	seam := loader.NewSeam(reg.Load)
	reg.Bind(seam)
	_ = reg.Register(loader.Definition{Name: "lodash", Filename: "/x/lodash.go", Aliases: []string{"_"}})

	if seam.Resolve("_") != nil {
		t.Error("unit resolved before it was loaded")
	}
	if _, err := seam.Load("_", nil); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if mod := seam.Resolve("_"); mod == nil || mod.Filename != "/x/lodash.go" {
		t.Errorf("Resolve(_) = %+v", mod)
	}
	if mod := seam.Resolve("lodash"); mod == nil || !mod.Loaded {
		t.Errorf("Resolve(lodash) = %+v", mod)
	}
	if seam.Resolve("missing") != nil {
		t.Error("unknown name resolved")
	}
}

func TestSeamRestoreOwnedChecksOwner(t *testing.T) {
	returns := func(v string) loader.LoadFunc {
		return func(string, *loader.Module) (any, error) { return v, nil }
	}
	seam := loader.NewSeam(returns("base"))
	a, b := new(int), new(int)

	prevA, ownerA := seam.SwapOwned(a, returns("a"))
	prevB, ownerB := seam.SwapOwned(b, returns("b"))
	if ownerA != nil || ownerB != any(a) {
		t.Fatalf("previous owners = %v, %v", ownerA, ownerB)
	}

	if seam.RestoreOwned(a, prevA, ownerA) {
		t.Error("restored by a while b holds the seam")
	}
	if v, _ := seam.Load("x", nil); v != "b" {
		t.Errorf("Load = %v, want b", v)
	}
	if !seam.RestoreOwned(b, prevB, ownerB) {
		t.Fatal("b could not restore")
	}
	if v, _ := seam.Load("x", nil); v != "a" {
		t.Errorf("Load = %v, want a", v)
	}
	if !seam.RestoreOwned(a, prevA, ownerA) {
		t.Fatal("a could not restore")
	}
	if v, _ := seam.Load("x", nil); v != "base" {
		t.Errorf("Load = %v, want base", v)
	}
}
