package config

import (
	"os"
	"path/filepath"
)

// GetUserConfigPath returns the user-level NuGet.config path
func GetUserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".nuget", "NuGet", "NuGet.Config")
}

// DefaultGlobalPackagesFolder returns ~/.nuget/packages.
func DefaultGlobalPackagesFolder() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".nuget", "packages")
	}
	return filepath.Join(home, ".nuget", "packages")
}

// DefaultPackageSources returns the default package sources
func DefaultPackageSources() []PackageSource {
	return []PackageSource{
		{
			Key:             "nuget.org",
			Value:           "https://api.nuget.org/v3/index.json",
			ProtocolVersion: "3",
		},
	}
}

// NewDefaultConfig creates a config holding only the default sources.
func NewDefaultConfig() *NuGetConfig {
	return &NuGetConfig{
		PackageSources: &PackageSources{Add: DefaultPackageSources()},
	}
}
