// Package entitlement holds the static feature table mapping feature
// identifiers to the minimum access level required to use them.
package entitlement

import "slidecli/internal/license"

// Feature identifiers gated by the registry. These are the host-facing names
// used by feature checks and by the HTTP feature listing.
const (
	FeatureExportPDF       = "export.pdf"
	FeatureExportSVG       = "export.svg"
	FeatureTemplateLibrary = "templates.library"
	FeatureCustomThemes    = "themes.custom"
	FeatureSmartLayout     = "layout.smart"
	FeatureRevisionHistory = "history.revisions"
	FeatureTeamSharing     = "sharing.team"
	FeatureBrandKit        = "brand.kit"
	FeatureUnlimitedShapes = "shapes.unlimited"
)

// Requirement describes one gated feature.
type Requirement struct {
	Feature     string
	Required    license.AccessLevel
	DisplayName string
	Enabled     bool
}

// defaultRequirements is the fixed feature table. There is no dynamic
// reconfiguration: the registry is built once at startup and read-only after.
var defaultRequirements = []Requirement{
	{FeatureExportPDF, license.LevelFree, "PDF export", true},
	{FeatureExportSVG, license.LevelStarter, "SVG export", true},
	{FeatureTemplateLibrary, license.LevelStarter, "Template library", true},
	{FeatureCustomThemes, license.LevelGrowth, "Custom themes", true},
	{FeatureSmartLayout, license.LevelGrowth, "Smart layout", true},
	{FeatureRevisionHistory, license.LevelGrowth, "Revision history", true},
	{FeatureTeamSharing, license.LevelPro, "Team sharing", true},
	{FeatureBrandKit, license.LevelPro, "Brand kit", true},
	{FeatureUnlimitedShapes, license.LevelPro, "Unlimited shapes per document", true},
}

// Registry answers "is level L sufficient for feature F". Unknown and
// disabled features are denied; RequiredLevel reports Pro for unknown
// features, the conservative choice.
type Registry struct {
	requirements map[string]Requirement
}

// NewRegistry builds a registry from the fixed default table.
func NewRegistry() *Registry {
	return NewRegistryWith(defaultRequirements)
}

// NewRegistryWith builds a registry from an explicit table. Used by tests and
// by hosts that ship a reduced feature set.
func NewRegistryWith(reqs []Requirement) *Registry {
	m := make(map[string]Requirement, len(reqs))
	for _, r := range reqs {
		m[r.Feature] = r
	}
	return &Registry{requirements: m}
}

// IsFeatureAvailable reports whether the given level suffices for the
// feature. Unknown feature identifiers and disabled features always deny.
func (r *Registry) IsFeatureAvailable(feature string, level license.AccessLevel) bool {
	req, ok := r.requirements[feature]
	if !ok || !req.Enabled {
		return false
	}
	return level.IsAtLeast(req.Required)
}

// RequiredLevel returns the minimum level for the feature, or LevelPro for
// unknown identifiers.
func (r *Registry) RequiredLevel(feature string) license.AccessLevel {
	req, ok := r.requirements[feature]
	if !ok {
		return license.LevelPro
	}
	return req.Required
}

// Requirements returns the full table, for the feature-listing endpoint.
func (r *Registry) Requirements() []Requirement {
	out := make([]Requirement, 0, len(r.requirements))
	for _, req := range r.requirements {
		out = append(out, req)
	}
	return out
}
