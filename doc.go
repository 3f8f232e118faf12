// Package sits is a Go binding for the sits satellite image time series
// toolkit, which runs inside a foreign statistical runtime.
//
// A Session owns the process-wide runtime context. Its methods call the
// toolkit functions by name, encode Go arguments into foreign values and wrap
// the results into Go objects: data cubes and time series become Arrow-backed
// frames, accuracy reports become confusion matrices, ML methods stay opaque
// closures.
//
// # Quick Start
//
//	rt := bridge.NewLocal() // or any bridge.Runtime
//	s, err := sits.NewSession(sits.Config{Runtime: rt})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	cube, err := s.Cube(ctx,
//	    call.Kw("source", "BDC"),
//	    call.Kw("collection", "MOD13Q1-6.1"),
//	    call.Kw("tiles", []string{"012010"}),
//	)
//	samples, err := s.GetData(ctx, cube, call.Kw("samples", points))
//	model, err := s.Train(ctx, samples, call.Kw("ml_method", rfor))
//
// Positional arguments are passed as is; named ones with call.Kw. Any
// wrapper returned by a previous operation can be passed back: it is sent as
// the foreign value it was decoded from.
//
// # Remote Runtime
//
// Setting Config.Address connects the session to a runtime served by
// flight.NewServer instead of an in-process one.
//
// # Band Expressions
//
// Apply takes band formulas as text; string values of named arguments other
// than output_dir are spliced into the call as source:
//
//	ndvi, err := s.Apply(ctx, cube,
//	    call.Kw("NDVI", "(B08 - B04) / (B08 + B04)"),
//	    call.Kw("output_dir", dir),
//	)
//
// Reclassify takes its rules as an expr.ExpressionList:
//
//	rules := expr.NewList().
//	    Add("Old_Deforestation", expr.V("mask").In("Clear_Cut", "Mining")).
//	    Add("Water", expr.And(expr.V("mask").Eq("Water"), expr.V("cube").Neq("Forest")))
//	out, err := s.Reclassify(ctx, cube, call.Kw("mask", mask), call.Kw("rules", rules))
//
// # Memory Management
//
// Decoded tables are Arrow records. Callers SHOULD call Release() on frames
// they no longer need.
package sits
