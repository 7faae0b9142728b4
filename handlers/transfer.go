package handlers

import (
	"github.com/bsaid97/go-attribute-transfer/transfer"
)

// TransferParams names the layers, fields and rule of a transfer as a user
// picked them.
type TransferParams struct {
	SourceLayer string `json:"sourceLayer"`
	SourceField string `json:"sourceField"`
	TargetLayer string `json:"targetLayer"`
	TargetField string `json:"targetField"`
	Rule        string `json:"rule"`
}

// Report is the JSON form of a finished run.
type Report struct {
	*transfer.Result
	Summary transfer.Summary `json:"summary"`
}

func NewReport(result *transfer.Result) Report {
	return Report{Result: result, Summary: result.Summary()}
}

// Transfer resolves params against host and runs the engine. Unknown layers
// and rules are reported as *transfer.ConfigurationError before the engine
// is invoked.
func Transfer(engine *transfer.Engine, host transfer.Host, params TransferParams) (*transfer.Result, error) {
	rule, err := transfer.ParseMatchRule(params.Rule)
	if err != nil {
		return nil, err
	}
	source, err := transfer.FindLayer(host, params.SourceLayer)
	if err != nil {
		return nil, err
	}
	target, err := transfer.FindLayer(host, params.TargetLayer)
	if err != nil {
		return nil, err
	}

	return engine.Run(transfer.Request{
		Source:      source,
		SourceField: params.SourceField,
		Target:      target,
		TargetField: params.TargetField,
		Rule:        rule,
	})
}
