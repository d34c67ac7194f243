package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is shared; validator caches struct metadata.
var validate = validator.New()

// File is the .componentscan project file. It tells the crawler where a
// project keeps the artifacts that can only be found by probing paths.
// Empty lists select the built-in defaults.
type File struct {
	// Host is the repository base URL, overridden by AEM_HOST.
	Host string `yaml:"host,omitempty" validate:"omitempty,url"`

	// SOCKSProxy is a host:port SOCKS5 proxy used to reach the repository.
	SOCKSProxy string `yaml:"socksProxy,omitempty" validate:"omitempty,hostname_port"`

	// SearchRoot is prepended to relative resource types.
	SearchRoot string `yaml:"searchRoot,omitempty" validate:"omitempty,startswith=/"`

	// ClientlibLocations are path templates using {category},
	// {categoryPath} or {categoryLeaf}.
	ClientlibLocations []string `yaml:"clientlibLocations,omitempty" validate:"omitempty,max=32,dive,required,startswith=/"`

	// ModelSourceLocations are path templates using {packagePath},
	// {className} or {class}.
	ModelSourceLocations []string `yaml:"modelSourceLocations,omitempty" validate:"omitempty,max=32,dive,required,startswith=/"`

	// TemplateCandidates are template paths relative to {path}, the
	// component path, with {name} its last segment.
	TemplateCandidates []string `yaml:"templateCandidates,omitempty" validate:"omitempty,max=16,dive,required,startswith={path}"`

	// ExcludedNamespaces are resource type prefixes never expanded as children.
	ExcludedNamespaces []string `yaml:"excludedNamespaces,omitempty" validate:"omitempty,dive,required"`

	// TerminalNamespaces are super type prefixes where inheritance walks stop.
	TerminalNamespaces []string `yaml:"terminalNamespaces,omitempty" validate:"omitempty,dive,required"`
}

// Validate checks struct tags and that every location template carries a placeholder.
func (f *File) Validate() error {
	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q validation (value %v)", ErrInvalidConfigFile, fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("%w: %w", ErrInvalidConfigFile, err)
	}

	for _, loc := range f.ClientlibLocations {
		if !containsAny(loc, "{category}", "{categoryPath}", "{categoryLeaf}") {
			return fmt.Errorf("%w: clientlib location %q has no category placeholder", ErrInvalidConfigFile, loc)
		}
	}
	for _, loc := range f.ModelSourceLocations {
		if !containsAny(loc, "{className}", "{class}") {
			return fmt.Errorf("%w: model source location %q has no class placeholder", ErrInvalidConfigFile, loc)
		}
	}
	return nil
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
