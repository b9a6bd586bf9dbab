// Package params provides the closed registry of geophysical parameters
// extractable from l2i archives, and the extractor that annotates match
// records with their values.
package params

import (
	"fmt"
	"strings"
)

// Parameter name constants. The registry is closed: configuration may
// only request names listed here.
const (
	RadarFreeboard      = "radar_freeboard"
	SeaIceFreeboard     = "sea_ice_freeboard"
	SeaIceThickness     = "sea_ice_thickness"
	SnowDepth           = "snow_depth"
	SnowDensity         = "snow_density"
	SeaIceDensity       = "sea_ice_density"
	SeaLevelAnomaly     = "sea_level_anomaly"
	SeaIceConcentration = "sea_ice_concentration"
	SeaIceType          = "sea_ice_type"
	PulsePeakiness      = "pulse_peakiness"
	Sigma0              = "sigma0"
	LeadingEdgeWidth    = "leading_edge_width"
	MeanSeaSurface      = "mean_sea_surface"
	SeaSurfaceHeight    = "sea_surface_height"
)

// Parameter describes one extractable l2i attribute.
type Parameter struct {
	Name string
	Unit string
}

// Registry lists every extractable parameter with its unit.
var Registry = []Parameter{
	{RadarFreeboard, "m"},
	{SeaIceFreeboard, "m"},
	{SeaIceThickness, "m"},
	{SnowDepth, "m"},
	{SnowDensity, "kg m-3"},
	{SeaIceDensity, "kg m-3"},
	{SeaLevelAnomaly, "m"},
	{SeaIceConcentration, "percent"},
	{SeaIceType, "1"},
	{PulsePeakiness, "1"},
	{Sigma0, "dB"},
	{LeadingEdgeWidth, "1"},
	{MeanSeaSurface, "m"},
	{SeaSurfaceHeight, "m"},
}

var byName = func() map[string]Parameter {
	m := make(map[string]Parameter, len(Registry))
	for _, p := range Registry {
		m[p.Name] = p
	}
	return m
}()

// IsValid checks if the given name is a registered parameter.
func IsValid(name string) bool {
	_, ok := byName[name]
	return ok
}

// Lookup returns the registry entry for name.
func Lookup(name string) (Parameter, bool) {
	p, ok := byName[name]
	return p, ok
}

// ValidNames returns a comma-separated string of registered names for
// error messages.
func ValidNames() string {
	names := make([]string, len(Registry))
	for i, p := range Registry {
		names[i] = p.Name
	}
	return strings.Join(names, ", ")
}

// Validate checks a configured parameter list against the registry.
// Unknown and repeated names are rejected.
func Validate(names []string) error {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if !IsValid(n) {
			return fmt.Errorf("unknown parameter %q (valid: %s)", n, ValidNames())
		}
		if seen[n] {
			return fmt.Errorf("parameter %q listed twice", n)
		}
		seen[n] = true
	}
	return nil
}
