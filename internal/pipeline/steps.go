package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"path"
	"strings"

	"github.com/nao1215/componentscan/internal/asset"
	"github.com/nao1215/componentscan/internal/clientlib"
	"github.com/nao1215/componentscan/internal/dialog"
	"github.com/nao1215/componentscan/internal/extractor"
	"github.com/nao1215/componentscan/internal/inheritance"
	"github.com/nao1215/componentscan/internal/model"
)

// Fetcher is the repository access the steps need.
type Fetcher interface {
	GetJSON(ctx context.Context, path string) (map[string]any, error)
	GetText(ctx context.Context, path string) (string, error)
}

// Template candidate placeholders.
const (
	PlaceholderPath = "{path}"
	PlaceholderName = "{name}"
)

// DefaultTemplateCandidates are tried in order; the first that exists is the template.
var DefaultTemplateCandidates = []string{
	"{path}/{name}.html",
	"{path}/template.html",
	"{path}/{name}.jsp",
}

// Model source placeholders.
const (
	PlaceholderPackagePath = "{packagePath}"
	PlaceholderClassName   = "{className}"
	PlaceholderClass       = "{class}"
)

// DefaultModelSourceLocations are tried in order for each model class.
var DefaultModelSourceLocations = []string{
	"/apps/myapp/core/src/main/java/{packagePath}/{className}.java",
	"/apps/myapp/bundle/src/main/java/{packagePath}/{className}.java",
	"/apps/myapp/src/main/java/{packagePath}/{className}.java",
}

// MetadataStep fetches the component node's properties.
type MetadataStep struct {
	fetcher Fetcher
	logger  *slog.Logger
}

// NewMetadataStep creates a metadata step.
func NewMetadataStep(f Fetcher, logger *slog.Logger) *MetadataStep {
	return &MetadataStep{fetcher: f, logger: logger}
}

// Name returns the step name.
func (s *MetadataStep) Name() string {
	return "metadata"
}

// Do fetches <path>.json. A failure leaves the metadata empty.
func (s *MetadataStep) Do(ctx context.Context, a *Analysis) error {
	props, err := s.fetcher.GetJSON(ctx, a.Identifier+".json")
	if err != nil {
		s.logger.Warn("component metadata unavailable", "component", a.Identifier, "error", err)
		return nil
	}
	a.Node().ApplyMetadata(props)
	return nil
}

// TemplateStep locates and fetches the component template.
type TemplateStep struct {
	fetcher    Fetcher
	candidates []string
	logger     *slog.Logger
}

// NewTemplateStep creates a template step. An empty candidate list selects
// DefaultTemplateCandidates.
func NewTemplateStep(f Fetcher, candidates []string, logger *slog.Logger) *TemplateStep {
	if len(candidates) == 0 {
		candidates = DefaultTemplateCandidates
	}
	return &TemplateStep{fetcher: f, candidates: candidates, logger: logger}
}

// Name returns the step name.
func (s *TemplateStep) Name() string {
	return "template"
}

// Candidates expands the candidate templates for a component path.
func (s *TemplateStep) Candidates(componentPath string) []string {
	replacer := strings.NewReplacer(
		PlaceholderPath, componentPath,
		PlaceholderName, path.Base(componentPath),
	)
	paths := make([]string, 0, len(s.candidates))
	for _, c := range s.candidates {
		paths = append(paths, replacer.Replace(c))
	}
	return paths
}

// Do uses the first candidate that can be fetched.
func (s *TemplateStep) Do(ctx context.Context, a *Analysis) error {
	for _, candidate := range s.Candidates(a.Identifier) {
		content, err := s.fetcher.GetText(ctx, candidate)
		if err != nil {
			s.logger.Debug("template candidate not found", "path", candidate, "error", err)
			continue
		}
		a.Node().Template = &model.TemplateRef{
			Path:    candidate,
			Kind:    model.TemplateKindForPath(candidate),
			Size:    len(content),
			Content: content,
		}
		return nil
	}
	s.logger.Warn("no template found", "component", a.Identifier)
	return nil
}

// ExtractStep parses the template for references.
type ExtractStep struct{}

// NewExtractStep creates an extract step.
func NewExtractStep() *ExtractStep {
	return &ExtractStep{}
}

// Name returns the step name.
func (s *ExtractStep) Name() string {
	return "extract"
}

// Do fills in the child descriptors and template calls. Without a template
// the extraction is empty.
func (s *ExtractStep) Do(_ context.Context, a *Analysis) error {
	node := a.Node()
	if node.Template == nil {
		a.Extraction = &extractor.Result{}
		return nil
	}

	a.Extraction = extractor.Extract(node.Template.Content)
	for _, ref := range a.Extraction.ChildRefs {
		node.ChildComponents = append(node.ChildComponents, &model.ChildComponentDescriptor{
			Path:         ref.Path,
			ResourceType: ref.ResourceType,
		})
	}
	node.TemplateCalls = a.Extraction.TemplateCalls
	return nil
}

// dialogNode is the touch UI dialog of a component.
const dialogNode = "_cq_dialog"

// configurationArtifacts are the optional _cq_* nodes of a component
// besides the dialog.
var configurationArtifacts = []struct {
	node string
	set  func(*model.Configurations, map[string]any)
}{
	{"_cq_design_dialog", func(c *model.Configurations, v map[string]any) { c.DesignDialog = v }},
	{"_cq_editConfig", func(c *model.Configurations, v map[string]any) { c.EditConfig = v }},
	{"_cq_htmlTag", func(c *model.Configurations, v map[string]any) { c.HTMLTag = v }},
	{"_cq_template", func(c *model.Configurations, v map[string]any) { c.Template = v }},
	{"_cq_childEditConfig", func(c *model.Configurations, v map[string]any) { c.ChildEditConfig = v }},
}

// ConfigurationStep fetches the configuration artifacts and analyzes the dialog.
type ConfigurationStep struct {
	fetcher Fetcher
	logger  *slog.Logger
}

// NewConfigurationStep creates a configuration step.
func NewConfigurationStep(f Fetcher, logger *slog.Logger) *ConfigurationStep {
	return &ConfigurationStep{fetcher: f, logger: logger}
}

// Name returns the step name.
func (s *ConfigurationStep) Name() string {
	return "configuration"
}

// Do fetches each artifact independently; absent artifacts stay nil.
func (s *ConfigurationStep) Do(ctx context.Context, a *Analysis) error {
	cfg := &model.Configurations{}
	for _, artifact := range configurationArtifacts {
		p := a.Identifier + "/" + artifact.node + ".infinity.json"
		doc, err := s.fetcher.GetJSON(ctx, p)
		if err != nil {
			s.logger.Debug("configuration not present", "path", p, "error", err)
			continue
		}
		artifact.set(cfg, doc)
	}

	node := a.Node()
	node.Dialog = s.analyzeDialog(ctx, a.Identifier, cfg)
	node.Configurations = cfg
	return nil
}

// analyzeDialog reads the dialog as text so that its fields keep the
// authoring order, and stores the decoded tree in cfg.
func (s *ConfigurationStep) analyzeDialog(ctx context.Context, identifier string, cfg *model.Configurations) *model.DialogInfo {
	p := identifier + "/" + dialogNode + ".infinity.json"
	text, err := s.fetcher.GetText(ctx, p)
	if err != nil {
		s.logger.Debug("configuration not present", "path", p, "error", err)
		return dialog.Analyze(nil)
	}

	info, err := dialog.AnalyzeJSON([]byte(text))
	if err != nil {
		s.logger.Debug("dialog ignored", "path", p, "error", err)
		return dialog.Analyze(nil)
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return dialog.Analyze(nil)
	}
	cfg.Dialog = doc
	return info
}

// BundleStep resolves the clientlib categories referenced by the template.
type BundleStep struct {
	resolver *clientlib.Resolver
}

// NewBundleStep creates a bundle step backed by a run-wide resolver.
func NewBundleStep(r *clientlib.Resolver) *BundleStep {
	return &BundleStep{resolver: r}
}

// Name returns the step name.
func (s *BundleStep) Name() string {
	return "clientlibs"
}

// Do resolves the extracted categories.
func (s *BundleStep) Do(ctx context.Context, a *Analysis) error {
	a.Graph.Clientlibs = s.resolver.Resolve(ctx, a.Extraction.BundleRefs)
	return nil
}

// ModelStep records model references and locates their sources.
type ModelStep struct {
	fetcher   Fetcher
	locations []string
	logger    *slog.Logger
}

// NewModelStep creates a model step. An empty location list selects
// DefaultModelSourceLocations.
func NewModelStep(f Fetcher, locations []string, logger *slog.Logger) *ModelStep {
	if len(locations) == 0 {
		locations = DefaultModelSourceLocations
	}
	return &ModelStep{fetcher: f, locations: locations, logger: logger}
}

// Name returns the step name.
func (s *ModelStep) Name() string {
	return "models"
}

// SourceCandidates expands the source locations for a class.
func (s *ModelStep) SourceCandidates(class string) []string {
	pkg := ""
	if i := strings.LastIndex(class, "."); i >= 0 {
		pkg = strings.ReplaceAll(class[:i], ".", "/")
	}
	replacer := strings.NewReplacer(
		PlaceholderPackagePath, pkg,
		PlaceholderClassName, model.SimpleClassName(class),
		PlaceholderClass, class,
	)
	paths := make([]string, 0, len(s.locations))
	for _, l := range s.locations {
		paths = append(paths, path.Clean(replacer.Replace(l)))
	}
	return paths
}

// Do sets the model set of the graph and tries the source candidates of
// Java classes. Path-style use objects (scripts) have no source lookup.
func (s *ModelStep) Do(ctx context.Context, a *Analysis) error {
	a.Graph.SetSlingModels(a.Extraction.ModelRefs)

	sources := make([]model.ModelSource, 0, len(a.Graph.SlingModels))
	for _, class := range a.Graph.SlingModels {
		src := model.ModelSource{Class: class}
		if !strings.Contains(class, "/") {
			for _, candidate := range s.SourceCandidates(class) {
				content, err := s.fetcher.GetText(ctx, candidate)
				if err != nil {
					continue
				}
				p := candidate
				src.Path = &p
				src.Size = len(content)
				break
			}
			if src.Path == nil {
				s.logger.Warn("model source not found", "class", class)
			}
		}
		sources = append(sources, src)
	}
	a.Graph.ModelSources = sources
	return nil
}

// InheritanceStep walks the super type chain of the component.
type InheritanceStep struct {
	walker *inheritance.Walker
}

// NewInheritanceStep creates an inheritance step.
func NewInheritanceStep(w *inheritance.Walker) *InheritanceStep {
	return &InheritanceStep{walker: w}
}

// Name returns the step name.
func (s *InheritanceStep) Name() string {
	return "inheritance"
}

// Do records the chain starting at the component itself.
func (s *InheritanceStep) Do(ctx context.Context, a *Analysis) error {
	a.Graph.Inheritance = s.walker.Walk(ctx, a.Identifier)
	return nil
}

// AssetStep records the image references of the template.
type AssetStep struct {
	inspector *asset.Inspector
}

// NewAssetStep creates an asset step. A nil inspector records references
// without fetching them.
func NewAssetStep(inspector *asset.Inspector) *AssetStep {
	return &AssetStep{inspector: inspector}
}

// Name returns the step name.
func (s *AssetStep) Name() string {
	return "assets"
}

// Do records or inspects the assets.
func (s *AssetStep) Do(ctx context.Context, a *Analysis) error {
	if len(a.Extraction.Assets) == 0 {
		return nil
	}
	if s.inspector == nil {
		a.Graph.Assets = asset.References(a.Extraction.Assets)
		return nil
	}
	a.Graph.Assets = s.inspector.Inspect(ctx, a.Extraction.Assets)
	return nil
}
