// Package crawler builds the dependency graph of a component.
//
// # Architecture
//
// A Crawl starts at one component and runs the analysis pipeline on it:
// metadata, template, extraction, configuration artifacts and, unless
// disabled, clientlib, model and inheritance resolution. In recursive mode
// every child resource type found in the template is analyzed the same way,
// bounded by Options.MaxDepth.
//
// Each Crawl owns a traversal context holding a claim-once visited set.
// Children are claimed level by level, so a component reachable from two
// parents is analyzed once through the shallower one; the other descriptor
// records a Ref instead of a nested graph. Child
// resource types under an excluded namespace (foundation components by
// default) are never expanded.
//
// # Failures
//
// Missing artifacts degrade to absent data. Only a root component for
// which neither metadata nor a template can be fetched fails the crawl with
// ErrIdentityUnavailable.
//
// # Usage
//
//	c := crawler.New(client, crawler.WithLogger(logger))
//	graph, err := c.Crawl(ctx, "/apps/acme/components/hero", crawler.DefaultOptions())
package crawler
