// Package monitor wires the scraper, parser, renderer and webhook dispatcher
// into the per-tick pipeline:
//
//	fetching → parsing → rendering → dispatching → done
//
// New(Target, *config.Config, telemetry.Recorder) builds a Pipeline that owns
// its own HTTP clients. Run(ctx) executes the stages once, in order, with no
// branching other than the fetch-failure short-circuit: when the stats
// endpoint cannot be read the parser is skipped and a failure report
// carrying "Error collecting stats: <reason>" is dispatched instead.
//
// Run has no internal clock, loop or retry. It is invoked once per /tick and
// keeps no state between invocations.
package monitor
