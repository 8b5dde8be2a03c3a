package repository

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"energy_service/internal/domain/model"
)

// Artifact file names inside the artifacts directory.
const (
	FeatureInfoFile = "feature_info.yaml"
	ScalerFile      = "scaler.yaml"
	EncoderFile     = "encoder.yaml"
	MappingsFile    = "mappings.yaml"
)

type featureInfoFile struct {
	Model             model.ModelInfo `yaml:"model"`
	model.FeatureInfo `yaml:",inline"`
	Constants         model.Constants `yaml:"constants"`
}

type mappingFile map[string]struct {
	Unknown string            `yaml:"unknown"`
	Values  map[string]string `yaml:"values"`
}

// LoadArtifacts reads the training artifacts from dir and verifies that
// they agree with each other. Every failure is a *model.ConfigurationError.
func LoadArtifacts(dir string) (*model.Artifacts, error) {
	info := featureInfoFile{Constants: model.DefaultConstants()}
	if err := decodeArtifact(dir, FeatureInfoFile, &info); err != nil {
		return nil, err
	}

	var scaler model.Scaler
	if err := decodeArtifact(dir, ScalerFile, &scaler); err != nil {
		return nil, err
	}

	var encoder model.Encoder
	if err := decodeArtifact(dir, EncoderFile, &encoder); err != nil {
		return nil, err
	}

	var mappings mappingFile
	if err := decodeArtifact(dir, MappingsFile, &mappings); err != nil {
		return nil, err
	}

	a := &model.Artifacts{
		Model:     info.Model,
		Features:  info.FeatureInfo,
		Scaler:    scaler,
		Encoder:   encoder,
		Mappings:  make(map[string]model.CategoryMapping, len(mappings)),
		Constants: info.Constants,
	}
	for field, m := range mappings {
		a.Mappings[field] = model.NewCategoryMapping(m.Unknown, m.Values)
	}

	if err := a.Verify(); err != nil {
		return nil, err
	}
	return a, nil
}

func decodeArtifact(dir, name string, out any) error {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return &model.ConfigurationError{Artifact: name, Reason: "cannot read artifact", Err: err}
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return &model.ConfigurationError{Artifact: name, Reason: "cannot parse artifact", Err: fmt.Errorf("decode yaml: %w", err)}
	}
	return nil
}
