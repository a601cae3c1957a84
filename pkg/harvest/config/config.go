// Package config loads the optional vocabulary overrides file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lookout-analytics/rfpharvest/pkg/harvest/classify"
	"github.com/lookout-analytics/rfpharvest/pkg/harvest/internalerr"
	"github.com/lookout-analytics/rfpharvest/pkg/harvest/keyterms"
	"github.com/lookout-analytics/rfpharvest/pkg/harvest/stopwords"
)

// File is the on-disk override format. Keywords and Exclusions replace
// the built-in lists when non-empty; Stopwords extend the built-in set.
type File struct {
	Keywords   []string `yaml:"keywords"`
	Exclusions []string `yaml:"exclusions"`
	Stopwords  []string `yaml:"stopwords"`
}

// Components are the vocabulary-driven pieces of the pipeline,
// assembled from the built-in defaults plus any overrides.
type Components struct {
	Classifier *classify.Classifier
	Extractor  *keyterms.Extractor
	Stopwords  []string
}

// Load reads the overrides file and builds the pipeline components. An
// empty path yields the built-in defaults.
func Load(path string) (*Components, error) {
	var f File
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	return Build(f)
}

// Build assembles components from an already-parsed File.
func Build(f File) (*Components, error) {
	keywords := f.Keywords
	if len(keywords) == 0 {
		keywords = classify.Keywords
	}
	exclusions := f.Exclusions
	if len(exclusions) == 0 {
		exclusions = classify.Exclusions
	}

	stops := stopwords.All()
	stops = append(stops, f.Stopwords...)

	cls := classify.New(keywords, exclusions)
	if len(cls.Vocabulary()) == 0 {
		return nil, fmt.Errorf("empty keyword vocabulary: %w", internalerr.ErrInvalidConfig)
	}

	return &Components{
		Classifier: cls,
		Extractor:  keyterms.NewExtractor(stops),
		Stopwords:  stops,
	}, nil
}
