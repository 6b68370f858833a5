// Package loader provides the dependency-loading seam that loadtime instruments.
//
// Go has no runtime-patchable module system, so every dependency load in a
// program that wants to be profiled goes through a single injectable
// function held by a [Seam]:
//
//	seam := loader.NewSeam(registry.Load)
//	exports, err := seam.Load("db", nil)
//
// The interceptor in package hook swaps the seam's function for a timing
// wrapper and swaps the original back on restore, so callers never notice
// the instrumentation.
//
// # Registry
//
// [Registry] is the default loading primitive. Units are registered with an
// init function and are initialized at most once; repeat loads return the
// cached exports. An init function loads its own dependencies with
// [InitContext.Require], which goes back through the seam so nested loads
// are observed too:
//
//	reg := loader.NewRegistry()
//	reg.Register(loader.Definition{
//		Name:     "db",
//		Filename: "/srv/app/db/db.go",
//		Init: func(ctx *loader.InitContext) (any, error) {
//			cfg, err := ctx.Require("config")
//			if err != nil {
//				return nil, err
//			}
//			return openDB(cfg)
//		},
//	})
//
// # Module Tree
//
// Each successful or cached load appends the loaded [Module] to the
// requesting parent's Children. [Registry.Bind] also makes the registry the
// seam's resolver, so [Seam.Resolve] maps a load name to its module even when
// several goroutines load from the same parent.
package loader
