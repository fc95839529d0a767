package config

// CategoryConfig holds per-category overrides for a single report
// category. This allows harvesting categories whose report pages
// deviate from the national summary defaults.
type CategoryConfig struct {
	// Output overrides the CSV export path for this category.
	Output string `yaml:"output,omitempty"`

	// EntryPath overrides the entry path template for this category.
	// Must contain one %s placeholder for the category name.
	EntryPath string `yaml:"entryPath,omitempty"`

	// LeafSuffix overrides the query fragment appended to court-level
	// URLs before fetching judge rows.
	LeafSuffix string `yaml:"leafSuffix,omitempty"`
}

// File represents the structure of the .courtgrid configuration file.
type File struct {
	// Categories maps report category names to their overrides.
	Categories map[string]CategoryConfig `yaml:"categories,omitempty"`

	// Defaults contains overrides applied to every category unless a
	// category-specific entry overrides them again.
	Defaults CategoryConfig `yaml:"defaults,omitempty"`
}

// GetCategoryConfig returns the configuration for a report category,
// merging the category-specific entry over the file defaults.
func (cf *File) GetCategoryConfig(category string) CategoryConfig {
	result := cf.Defaults

	if override, ok := cf.Categories[category]; ok {
		if override.Output != "" {
			result.Output = override.Output
		}
		if override.EntryPath != "" {
			result.EntryPath = override.EntryPath
		}
		if override.LeafSuffix != "" {
			result.LeafSuffix = override.LeafSuffix
		}
	}

	return result
}
