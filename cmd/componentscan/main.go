// Package main provides the entry point for the componentscan CLI.
//
// componentscan crawls an AEM component in a content repository and maps
// what it depends on: client libraries, Sling Models, child components,
// inheritance and dialog fields.
//
// Usage:
//
//	componentscan crawl /apps/myapp/components/card
//	componentscan crawl --recursive --format react /apps/myapp/components/card
//	componentscan compare /apps/myapp/components/card /apps/myapp/components/teaser
//
// See --help for all available options.
package main

func main() {
	Execute()
}
