// Package asset inspects image assets referenced from component templates.
package asset

import (
	"context"
	"encoding/hex"
	"log/slog"
	"regexp"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
	"github.com/nao1215/componentscan/internal/model"
	"golang.org/x/crypto/sha3"
)

// DefaultMaxSize is the largest asset that is downloaded.
const DefaultMaxSize = 5 * 1024 * 1024

// exifCapable matches formats that carry EXIF blocks.
var exifCapable = regexp.MustCompile(`(?i)\.(jpe?g|tiff?)$`)

// reportedTags are the EXIF tags copied into the asset record.
var reportedTags = map[string]bool{
	"Make":      true,
	"Model":     true,
	"Software":  true,
	"DateTime":  true,
	"Artist":    true,
	"Copyright": true,
}

// Fetcher is the subset of the repository client the inspector needs.
type Fetcher interface {
	GetBinary(ctx context.Context, path string) ([]byte, error)
}

// Inspector downloads assets and records size, digest and EXIF metadata.
type Inspector struct {
	fetcher Fetcher
	maxSize int
	logger  *slog.Logger
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithMaxSize sets the download size limit.
func WithMaxSize(n int) Option {
	return func(i *Inspector) {
		if n > 0 {
			i.maxSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Inspector) {
		i.logger = logger
	}
}

// NewInspector creates an inspector reading from f.
func NewInspector(f Fetcher, opts ...Option) *Inspector {
	i := &Inspector{
		fetcher: f,
		maxSize: DefaultMaxSize,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// References converts template asset paths into records without fetching.
func References(paths []string) []*model.AssetRef {
	refs := make([]*model.AssetRef, 0, len(paths))
	for _, p := range paths {
		refs = append(refs, &model.AssetRef{Path: p})
	}
	return refs
}

// Inspect fetches every repository-local asset. External URLs and
// relative references are recorded without a fetch.
func (i *Inspector) Inspect(ctx context.Context, paths []string) []*model.AssetRef {
	refs := References(paths)
	for _, ref := range refs {
		if !strings.HasPrefix(ref.Path, "/") || strings.HasPrefix(ref.Path, "//") {
			continue
		}
		data, err := i.fetcher.GetBinary(ctx, ref.Path)
		if err != nil {
			i.logger.Warn("asset not available", "path", ref.Path, "error", err)
			continue
		}
		if len(data) > i.maxSize {
			i.logger.Warn("asset too large to inspect", "path", ref.Path, "size", len(data))
			continue
		}

		sum := sha3.Sum256(data)
		ref.Fetched = true
		ref.Size = len(data)
		ref.Digest = hex.EncodeToString(sum[:])
		if exifCapable.MatchString(ref.Path) {
			ref.Exif = ReadExif(data)
		}
	}
	return refs
}

// ReadExif returns the reported EXIF tags of an image, or nil when it has none.
func ReadExif(data []byte) map[string]string {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil || rawExif == nil {
		return nil
	}
	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return nil
	}
	return selectTags(entries)
}

func selectTags(entries []exif.ExifTag) map[string]string {
	tags := make(map[string]string)
	for _, entry := range entries {
		if !reportedTags[entry.TagName] {
			continue
		}
		if v := strings.TrimSpace(entry.Formatted); v != "" {
			tags[entry.TagName] = v
		}
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}
