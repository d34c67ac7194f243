package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "componentscan"

	// DefaultHost is the local AEM author instance.
	DefaultHost = "http://localhost:4502"

	// DefaultUser and DefaultPassword are the stock author credentials.
	DefaultUser     = "admin"
	DefaultPassword = "admin"

	// DefaultTimeout bounds every repository request.
	DefaultTimeout = 30 * time.Second

	// DefaultDepth is the recursion depth limit.
	DefaultDepth = 3

	// DefaultConcurrency is the number of sibling components analyzed at once.
	DefaultConcurrency = 1

	// DefaultCacheSize is the number of JSON documents memoized per run.
	DefaultCacheSize = 512

	// DefaultOutput is the report file written by crawl.
	DefaultOutput = "component-dependencies.json"

	// DefaultFormat is the report format written by crawl.
	DefaultFormat = "json"

	// DefaultLogFormat is the log output format.
	DefaultLogFormat = "text"
)

// Environment variables that override the repository connection.
const (
	EnvHost     = "AEM_HOST"
	EnvUser     = "AEM_USER"
	EnvPassword = "AEM_PASS"
)

// Formats lists the report formats accepted by Validate.
var Formats = []string{"json", "react", "markdown", "text"}

// Config holds the options of one componentscan invocation.
// It is populated from defaults, the environment and CLI flags, then
// passed down explicitly.
type Config struct {
	// Host is the repository base URL.
	Host string

	// User and Password are the basic-auth credential sent with every request.
	User     string
	Password string

	// Timeout bounds each repository request.
	Timeout time.Duration

	// SOCKSProxy routes repository requests through a SOCKS5 proxy when set.
	SOCKSProxy string

	// Targets are the component paths to analyze.
	Targets []string

	// Recursive expands child components.
	Recursive bool

	// MaxDepth limits recursion. 0 analyzes the root only.
	MaxDepth int

	// IncludeDependencies resolves clientlibs, models and inheritance.
	IncludeDependencies bool

	// FetchAssets downloads referenced images for inspection.
	FetchAssets bool

	// Concurrency is the number of sibling children analyzed in parallel.
	Concurrency int

	// CacheSize is the per-run JSON memo size; 0 disables it.
	CacheSize int

	// Output is the report path. "-" writes to stdout.
	Output string

	// Format is one of Formats.
	Format string

	// Verbose enables Debug logging.
	Verbose bool

	// LogFormat is "text" or "json".
	LogFormat string

	// ConfigFilePath is an explicit project file path. When empty,
	// .componentscan is searched in the current and home directories.
	ConfigFilePath string

	// Project is the loaded project file, nil when none was found.
	Project *File

	// DBDir is the directory of the history database.
	DBDir string

	// SaveToDB stores every successful crawl in the history database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Host:                DefaultHost,
		User:                DefaultUser,
		Password:            DefaultPassword,
		Timeout:             DefaultTimeout,
		MaxDepth:            DefaultDepth,
		IncludeDependencies: true,
		Concurrency:         DefaultConcurrency,
		CacheSize:           DefaultCacheSize,
		Output:              DefaultOutput,
		Format:              DefaultFormat,
		LogFormat:           DefaultLogFormat,
		DBDir:               XDGDataDir(),
		SaveToDB:            true,
	}
}

// LoadDotEnv loads variables from .env files into the process environment.
// Variables that are already set are kept. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnvironment overrides the repository connection with AEM_HOST,
// AEM_USER and AEM_PASS. A nil lookup reads the process environment.
func (c *Config) ApplyEnvironment(lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup(EnvHost); ok && strings.TrimSpace(v) != "" {
		c.Host = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvUser); ok && v != "" {
		c.User = v
	}
	if v, ok := lookup(EnvPassword); ok && v != "" {
		c.Password = v
	}
}

// ApplyFile copies project file settings that the flags did not set.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	c.Project = f
	if f.Host != "" && c.Host == DefaultHost {
		c.Host = f.Host
	}
	if f.SOCKSProxy != "" && c.SOCKSProxy == "" {
		c.SOCKSProxy = f.SOCKSProxy
	}
}

// XDGDataDir returns the XDG data directory for componentscan.
// On Linux: ~/.local/share/componentscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for componentscan.
// On Linux: ~/.config/componentscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	for _, target := range c.Targets {
		if strings.TrimSpace(target) == "" {
			return ErrNoTarget
		}
	}

	if strings.TrimSpace(c.Host) == "" {
		return ErrEmptyHost
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.MaxDepth < 0 {
		return ErrInvalidDepth
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if !slices.Contains(Formats, c.Format) {
		return fmt.Errorf("%w: %q (expected one of %s)", ErrInvalidFormat, c.Format, strings.Join(Formats, ", "))
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		return ErrInvalidLogFormat
	}

	if c.Project != nil {
		return c.Project.Validate()
	}

	return nil
}
