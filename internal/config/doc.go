// Package config holds the componentscan settings: repository connection
// and crawl options from flags and the AEM_* environment, and the optional
// .componentscan project file describing where a project keeps its
// clientlibs, model sources and templates.
package config
