// Package types defines the parsed HAProxy statistics shared by the parser,
// the report renderer and the monitor pipeline. Values are built once per
// tick and never mutated afterwards.
package types
