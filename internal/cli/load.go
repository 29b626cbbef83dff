package cli

import (
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/tracegate/tracegate/internal/contract"
	"github.com/tracegate/tracegate/internal/ctxval"
)

// loadContract loads and validates a contract document, mapping load
// failures to command errors.
func loadContract(opts *RootOptions, path string) (*contract.ContextContract, error) {
	opts.Logger().Debug("loading contract", zap.String("path", path))
	c, err := contract.LoadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load contract", err)
	}
	opts.Logger().Debug("contract loaded",
		zap.String("pipeline_id", c.PipelineID),
		zap.String("schema_version", c.SchemaVersion),
		zap.Int("phases", len(c.Phases())),
		zap.Int("chains", len(c.Chains)))
	return c, nil
}

// loadContext loads an execution context YAML document. An empty path
// yields an empty context.
func loadContext(opts *RootOptions, path string) (*ctxval.Context, error) {
	if path == "" {
		return ctxval.NewContext(), nil
	}
	opts.Logger().Debug("loading context", zap.String("path", path))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "read context", err)
	}
	ctx, err := ctxval.FromYAML(data)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "parse context", err)
	}
	return ctx, nil
}

// parsePhases splits a comma-separated phase order flag.
// An empty flag returns nil, which callers treat as "use the
// contract's declared order".
func parsePhases(flag string) []string {
	if strings.TrimSpace(flag) == "" {
		return nil
	}
	parts := strings.Split(flag, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
