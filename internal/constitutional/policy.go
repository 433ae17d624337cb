package constitutional

import (
	"context"
	"fmt"
	"strings"

	"github.com/open-policy-agent/opa/v1/rego"

	"deepreason/internal/logging"
)

// DefaultPolicyQuery is the Rego rule this package evaluates for the
// optional caller-supplied extensibility layer: a set of deny messages.
const DefaultPolicyQuery = "data.deepreason.constitutional.deny"

// PolicyLayer wraps an optional caller-supplied Rego module evaluated
// alongside the built-in regex rules, giving operators a way to add
// organization-specific constitutional rules without a code change.
type PolicyLayer struct {
	module string
	query  string
	log    *logging.Logger
}

// NewPolicyLayer compiles regoSource (a single Rego module's text) for
// later evaluation. An empty regoSource disables the layer: Evaluate then
// always returns no denials.
func NewPolicyLayer(regoSource string) (*PolicyLayer, error) {
	p := &PolicyLayer{module: regoSource, query: DefaultPolicyQuery, log: logging.Get(logging.CategoryConstitutional)}
	if regoSource == "" {
		return p, nil
	}
	if _, err := rego.New(
		rego.Query(p.query),
		rego.Module("constitutional.rego", regoSource),
	).PrepareForEval(context.Background()); err != nil {
		return nil, fmt.Errorf("constitutional: invalid policy module: %w", err)
	}
	return p, nil
}

// Evaluate runs the policy module against input, returning every deny-set
// string it produces. A rule that isn't defined is not an error.
func (p *PolicyLayer) Evaluate(ctx context.Context, input map[string]interface{}) ([]string, error) {
	if p.module == "" {
		return nil, nil
	}

	r := rego.New(
		rego.Query(p.query),
		rego.Module("constitutional.rego", p.module),
		rego.Input(input),
	)
	rs, err := r.Eval(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "undefined") {
			return nil, nil
		}
		return nil, fmt.Errorf("constitutional: policy evaluation failed: %w", err)
	}

	var denials []string
	for _, result := range rs {
		for _, expr := range result.Expressions {
			set, ok := expr.Value.([]interface{})
			if !ok {
				continue
			}
			for _, item := range set {
				if s, ok := item.(string); ok {
					denials = append(denials, s)
				}
			}
		}
	}
	if len(denials) > 0 {
		p.log.Warn("policy layer produced %d denials", len(denials))
	}
	return denials, nil
}
