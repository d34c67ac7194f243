// Package model defines the data structures produced by a component crawl.
//
// The main types are:
//   - ComponentNode: one analyzed component (metadata, template, children, configurations)
//   - ChildComponentDescriptor: a child reference found in a parent's template
//   - BundleDependency: a client library category and its member files
//   - InheritanceLink: one step of a resourceSuperType chain
//   - DependencyGraph: the result of a crawl, possibly nesting child graphs
//   - Comparison: the difference between two crawled components
//
// All types serialize to JSON; the JSON shape is the output artifact of the
// crawl command and the payload stored in the history database.
package model
