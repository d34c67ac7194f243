// Package pipeline runs the analysis phases of a single component in sequence.
//
// A component is analyzed by a fixed series of steps: fetch metadata, locate
// the template, extract references, fetch configuration artifacts, resolve
// client libraries and models, walk the inheritance chain and record assets.
// Each step receives the shared Analysis and fills in its part of the
// component's DependencyGraph. Missing artifacts are recorded as absent data;
// a step only returns an error when the analysis cannot continue at all.
//
// BatchProcessor crawls several root components concurrently with a bounded
// number of goroutines using errgroup.
package pipeline
