package model

// BundleFile is one member file of a client library.
type BundleFile struct {
	// Name is the file name inside the kind folder (e.g. "base.css").
	Name string `json:"name"`

	// Path is the repository path of the file.
	Path string `json:"path"`

	// Size is the content length in bytes.
	Size int `json:"size"`

	// Digest is the hex encoded SHA3-256 of the content.
	Digest string `json:"digest,omitempty"`

	// Content is the raw file text. Empty when the file could not be fetched.
	Content string `json:"content,omitempty"`
}

// BundleDependency is a client library category referenced during a crawl.
// Each category appears at most once in a DependencyGraph.
type BundleDependency struct {
	// Category is the clientlib category name.
	Category string `json:"category"`

	// Kinds are the include kinds referenced by templates. Categories only
	// reached through another category's dependencies carry both kinds.
	Kinds []BundleKind `json:"kinds"`

	// Path is the storage location of the library, nil when unresolved.
	Path *string `json:"path"`

	// Resolved is true when a storage location was found.
	Resolved bool `json:"resolved"`

	// Files maps a kind name ("css", "js") to its member files in name order.
	Files map[string][]BundleFile `json:"files"`

	// Dependencies are the categories declared in the library's dependencies property.
	Dependencies []string `json:"dependencies"`

	// Embeds are the categories declared in the library's embed property.
	Embeds []string `json:"embed,omitempty"`
}

// NewUnresolvedBundle creates an entry for a category that could not be located.
func NewUnresolvedBundle(category string, kinds []BundleKind) *BundleDependency {
	return &BundleDependency{
		Category:     category,
		Kinds:        UnionKinds(kinds),
		Files:        make(map[string][]BundleFile),
		Dependencies: make([]string, 0),
	}
}

// FileNames returns the member file names of the given kind.
func (b *BundleDependency) FileNames(kind BundleKind) []string {
	files := b.Files[kind.String()]
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	return names
}

// Clone returns a copy of b with kinds replaced. Files are shared; they
// are never modified after resolution.
func (b *BundleDependency) Clone(kinds []BundleKind) *BundleDependency {
	c := *b
	c.Kinds = UnionKinds(kinds)
	return &c
}
