package model

import "time"

// PropertyDiff is one metadata property that differs between two components.
type PropertyDiff struct {
	Key string `json:"key"`
	A   any    `json:"a"`
	B   any    `json:"b"`
}

// FieldDiff describes how two dialogs differ.
type FieldDiff struct {
	OnlyInA []string `json:"onlyInA"`
	OnlyInB []string `json:"onlyInB"`

	// Changed lists fields present in both dialogs whose type, label or
	// required flag differ.
	Changed []string `json:"changed"`
}

// SetDiff describes how two string sets differ.
type SetDiff struct {
	Common  []string `json:"common"`
	OnlyInA []string `json:"onlyInA"`
	OnlyInB []string `json:"onlyInB"`
}

// Empty reports whether the two sets were equal.
func (s SetDiff) Empty() bool {
	return len(s.OnlyInA) == 0 && len(s.OnlyInB) == 0
}

// Comparison is the difference between two crawled components.
type Comparison struct {
	A string `json:"a"`
	B string `json:"b"`

	Properties []PropertyDiff `json:"properties"`
	Dialog     FieldDiff      `json:"dialog"`
	Clientlibs SetDiff        `json:"clientlibs"`
	Models     SetDiff        `json:"slingModels"`

	// ChangedFiles lists clientlib files present in both graphs with different digests.
	ChangedFiles []string `json:"changedFiles,omitempty"`

	SameSuperType bool      `json:"sameSuperType"`
	ComparedAt    time.Time `json:"comparedAt"`
}

// Identical reports whether no difference was found.
func (c *Comparison) Identical() bool {
	return len(c.Properties) == 0 &&
		len(c.Dialog.OnlyInA) == 0 && len(c.Dialog.OnlyInB) == 0 && len(c.Dialog.Changed) == 0 &&
		c.Clientlibs.Empty() && c.Models.Empty() &&
		len(c.ChangedFiles) == 0 && c.SameSuperType
}

// RunSummary is one stored crawl run, as listed by the history command.
type RunSummary struct {
	RunID          string    `json:"runId"`
	Identifier     string    `json:"path"`
	Recursive      bool      `json:"recursive"`
	MaxDepth       int       `json:"maxDepth"`
	Components     int       `json:"components"`
	Clientlibs     int       `json:"clientlibs"`
	SlingModels    int       `json:"slingModels"`
	AnalyzedAt     time.Time `json:"analyzedAt"`
	CompressedSize int       `json:"compressedSize"`
}
