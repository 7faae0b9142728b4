package transfer

import (
	"fmt"
	"log/slog"
	"time"
)

// Request names the layers, fields and rule of one transfer.
type Request struct {
	Source      Layer
	SourceField string
	Target      Layer
	TargetField string
	Rule        MatchRule
}

// Engine runs attribute transfers. It holds no state between runs.
type Engine struct {
	Logger *slog.Logger
	// VertexTolerance overrides DefaultVertexTolerance when positive.
	VertexTolerance float64
}

// NewEngine returns an engine logging to logger, or slog.Default when nil.
func NewEngine(logger *slog.Logger, vertexTolerance float64) *Engine {
	return &Engine{Logger: logger, VertexTolerance: vertexTolerance}
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

type plan struct {
	sourceField int
	targetField int
}

// check validates every precondition before anything is read or written.
func (e *Engine) check(req Request) (plan, error) {
	switch {
	case req.Source == nil:
		return plan{}, &ConfigurationError{Reason: "source layer not selected"}
	case req.Target == nil:
		return plan{}, &ConfigurationError{Reason: "target layer not selected"}
	case req.SourceField == "":
		return plan{}, &ConfigurationError{Reason: "source field not selected"}
	case req.TargetField == "":
		return plan{}, &ConfigurationError{Reason: "target field not selected"}
	case !req.Rule.Valid():
		return plan{}, &ConfigurationError{Reason: fmt.Sprintf("unknown match rule %q", req.Rule)}
	}

	sourceIdx, sourceField, ok := FieldIndex(req.Source, req.SourceField)
	if !ok {
		return plan{}, &ConfigurationError{Reason: fmt.Sprintf("field %q not found in source layer %q", req.SourceField, req.Source.Name())}
	}
	targetIdx, targetField, ok := FieldIndex(req.Target, req.TargetField)
	if !ok {
		return plan{}, &ConfigurationError{Reason: fmt.Sprintf("field %q not found in target layer %q", req.TargetField, req.Target.Name())}
	}
	if sourceField.Type != targetField.Type {
		return plan{}, &TypeMismatchError{
			SourceField: sourceField.Name,
			SourceType:  sourceField.Type,
			TargetField: targetField.Name,
			TargetType:  targetField.Type,
		}
	}
	if !req.Target.IsEditable() {
		return plan{}, &NotEditableError{Layer: req.Target.Name()}
	}
	return plan{sourceField: sourceIdx, targetField: targetIdx}, nil
}

// Run transfers req.SourceField from uniquely matched source features into
// req.TargetField of every target feature. When a precondition fails the
// returned Result is empty and the error is a *ConfigurationError,
// *TypeMismatchError or *NotEditableError. Per-feature problems never fail
// the run; they are recorded in Result.Entries.
func (e *Engine) Run(req Request) (*Result, error) {
	result := newResult(req.Rule)
	logger := e.logger().With("run_id", result.RunID)

	p, err := e.check(req)
	if err != nil {
		logger.Error("transfer aborted", "error", err)
		return result, err
	}

	logger.Info("building spatial index on source layer", "layer", req.Source.Name())
	sourceFeatures := req.Source.Features()
	index := BuildIndex(sourceFeatures)
	result.SourceSize = len(sourceFeatures)
	eval := Evaluator{VertexTolerance: e.VertexTolerance}

	logger.Info("starting attribute transfer",
		"source", req.Source.Name(), "source_field", req.SourceField,
		"target", req.Target.Name(), "target_field", req.TargetField,
		"rule", req.Rule, "indexed", index.Len())

	for _, feature := range req.Target.Features() {
		resolution := Resolve(feature, req.Rule, index, req.Source, p.sourceField, eval)
		entry := Entry{TargetID: feature.ID, Resolution: resolution}

		switch resolution.Kind {
		case NoMatch:
			entry.Status = StatusNoMatch
			logger.Warn("feature skipped: no match found", "target_id", feature.ID)
		case AmbiguousMatch:
			entry.Status = StatusAmbiguous
			logger.Warn("feature skipped: multiple matches found", "target_id", feature.ID, "matches", resolution.Count)
		case UniqueMatch:
			if req.Target.WriteAttribute(feature.ID, p.targetField, resolution.Value) {
				entry.Status = StatusUpdated
				logger.Info("feature updated", "target_id", feature.ID, "source_id", resolution.SourceID, "value", resolution.Value)
			} else {
				entry.Status = StatusWriteRejected
				logger.Error("failed to update feature", "target_id", feature.ID, "source_id", resolution.SourceID)
			}
		}
		result.append(entry)
	}

	req.Target.Select(result.Updated)
	result.Duration = time.Since(result.StartedAt)

	summary := result.Summary()
	logger.Info("transfer completed",
		"updated", summary.Updated, "no_match", summary.NoMatch,
		"ambiguous", summary.Ambiguous, "write_rejected", summary.WriteRejected,
		"duration", result.Duration)
	return result, nil
}
