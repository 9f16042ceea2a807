package raster

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/subashpoudel19/wildfire/core/models"
)

// probabilityPrefix is the attribute naming convention in exported basin
// layers: scenario "16mmh" is stored as property "P_16mmh".
const probabilityPrefix = "P_"

type geojsonFeatureCollection struct {
	Type     string           `json:"type"`
	Features []geojsonFeature `json:"features"`
}

type geojsonFeature struct {
	Type       string                 `json:"type"`
	Geometry   geojsonGeometry        `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

type geojsonGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// LoadBasins reads basin features from an exported GeoJSON file. Every
// property named P_<scenario> becomes a probability entry keyed by
// <scenario>. MultiPolygon features expand to one basin per part, all
// sharing the feature's probabilities.
func LoadBasins(path string) ([]models.BasinFeature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read basins file: %w", err)
	}
	return ParseBasins(data)
}

// ParseBasins decodes a GeoJSON FeatureCollection into basin features.
func ParseBasins(data []byte) ([]models.BasinFeature, error) {
	var fc geojsonFeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse GeoJSON: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("expected FeatureCollection, got %q", fc.Type)
	}

	var basins []models.BasinFeature
	id := 0
	for i, feature := range fc.Features {
		probabilities := extractProbabilities(feature.Properties)

		polygons, err := decodePolygons(feature.Geometry)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		for _, poly := range polygons {
			basins = append(basins, models.BasinFeature{
				ID:            id,
				Geometry:      poly,
				Probabilities: probabilities,
			})
			id++
		}
	}
	return basins, nil
}

func extractProbabilities(properties map[string]interface{}) map[string]float64 {
	probabilities := make(map[string]float64)
	for key, value := range properties {
		if !strings.HasPrefix(key, probabilityPrefix) {
			continue
		}
		if v, ok := value.(float64); ok {
			probabilities[strings.TrimPrefix(key, probabilityPrefix)] = v
		}
	}
	return probabilities
}

func decodePolygons(geom geojsonGeometry) ([]models.Polygon, error) {
	switch geom.Type {
	case "Polygon":
		var rings [][][]float64
		if err := json.Unmarshal(geom.Coordinates, &rings); err != nil {
			return nil, fmt.Errorf("invalid Polygon coordinates: %w", err)
		}
		poly, err := buildPolygon(rings)
		if err != nil {
			return nil, err
		}
		return []models.Polygon{poly}, nil
	case "MultiPolygon":
		var parts [][][][]float64
		if err := json.Unmarshal(geom.Coordinates, &parts); err != nil {
			return nil, fmt.Errorf("invalid MultiPolygon coordinates: %w", err)
		}
		polygons := make([]models.Polygon, 0, len(parts))
		for _, rings := range parts {
			poly, err := buildPolygon(rings)
			if err != nil {
				return nil, err
			}
			polygons = append(polygons, poly)
		}
		return polygons, nil
	default:
		return nil, fmt.Errorf("unsupported geometry type %q", geom.Type)
	}
}

func buildPolygon(rings [][][]float64) (models.Polygon, error) {
	if len(rings) == 0 {
		return models.Polygon{}, fmt.Errorf("polygon has no rings")
	}
	poly := models.Polygon{Exterior: buildRing(rings[0])}
	for _, hole := range rings[1:] {
		poly.Holes = append(poly.Holes, buildRing(hole))
	}
	return poly, nil
}

// buildRing converts GeoJSON ring coordinates, dropping the repeated
// closing vertex since rings are implicitly closed here.
func buildRing(coords [][]float64) models.Ring {
	ring := make(models.Ring, 0, len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			continue
		}
		ring = append(ring, models.Point{X: c[0], Y: c[1]})
	}
	if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
		ring = ring[:len(ring)-1]
	}
	return ring
}
