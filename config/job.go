package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/bsaid97/go-attribute-transfer/transfer"
	"gopkg.in/yaml.v2"
)

// Job describes one file-based transfer.
//
//	source:
//	  path: parcels.geojson
//	  field: zone
//	target:
//	  path: addresses.shp
//	  field: zone
//	  types:
//	    zone: string
//	rule: contains
//	vertex_tolerance: 0.001
//	output:
//	  path: addresses_zoned.geojson
type Job struct {
	Source          LayerRef `yaml:"source"`
	Target          LayerRef `yaml:"target"`
	Rule            string   `yaml:"rule"`
	VertexTolerance float64  `yaml:"vertex_tolerance,omitempty"`
	Output          Output   `yaml:"output"`
}

// LayerRef points at a layer file and the field used from it. Types pins
// the field types of GeoJSON properties instead of inferring them.
type LayerRef struct {
	Path  string            `yaml:"path"`
	Field string            `yaml:"field"`
	Types map[string]string `yaml:"types,omitempty"`
}

// FieldTypes parses Types.
func (r LayerRef) FieldTypes() (map[string]transfer.FieldType, error) {
	if len(r.Types) == 0 {
		return nil, nil
	}
	out := make(map[string]transfer.FieldType, len(r.Types))
	for name, typeName := range r.Types {
		t, err := transfer.ParseFieldType(typeName)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		out[name] = t
	}
	return out, nil
}

// Output says where the updated target layer is written. An empty path
// skips writing; an empty format is inferred from the path.
type Output struct {
	Path   string `yaml:"path,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// LoadJob reads and validates a YAML job file.
func LoadJob(path string) (*Job, error) {
	job, err := ReadJob(path)
	if err != nil {
		return nil, err
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return job, nil
}

// ReadJob reads a YAML job file without validating it, so callers can fill
// in missing settings first.
func ReadJob(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job %s: %w", path, err)
	}
	return DecodeJob(data)
}

// ParseJob decodes and validates a YAML job document.
func ParseJob(data []byte) (*Job, error) {
	job, err := DecodeJob(data)
	if err != nil {
		return nil, err
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return job, nil
}

// DecodeJob decodes a YAML job document. Unknown keys are rejected; missing
// settings are not.
func DecodeJob(data []byte) (*Job, error) {
	var job Job
	if err := yaml.UnmarshalStrict(data, &job); err != nil {
		return nil, fmt.Errorf("invalid job: %w", err)
	}
	return &job, nil
}

// Validate checks that every required setting is present.
func (j *Job) Validate() error {
	var errs []error
	if j.Source.Path == "" {
		errs = append(errs, errors.New("source.path is required"))
	}
	if j.Source.Field == "" {
		errs = append(errs, errors.New("source.field is required"))
	}
	if j.Target.Path == "" {
		errs = append(errs, errors.New("target.path is required"))
	}
	if j.Target.Field == "" {
		errs = append(errs, errors.New("target.field is required"))
	}
	if _, err := transfer.ParseMatchRule(j.Rule); err != nil {
		errs = append(errs, err)
	}
	if _, err := j.Source.FieldTypes(); err != nil {
		errs = append(errs, fmt.Errorf("source.types: %w", err))
	}
	if _, err := j.Target.FieldTypes(); err != nil {
		errs = append(errs, fmt.Errorf("target.types: %w", err))
	}
	if j.VertexTolerance < 0 {
		errs = append(errs, errors.New("vertex_tolerance must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid job: %w", errors.Join(errs...))
	}
	return nil
}
