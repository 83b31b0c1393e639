// Package build runs the one-shot production build.
//
// A build creates a bundle session in build mode (minified), runs exactly
// one pass, releases the session and reports every file esbuild wrote with
// its raw and gzipped size.
//
// # Usage
//
//	builder := build.New(cfg, build.Options{Logger: logger})
//	result, err := builder.Build(ctx)
//	if err != nil {
//	    return err
//	}
//
//	for _, out := range result.Outputs {
//	    fmt.Printf("%s %d\n", out.Path, out.Size)
//	}
package build
