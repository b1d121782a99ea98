package wasmabi

import (
	"context"
	"sort"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/slotbridge/abi"
	"github.com/wippyai/slotbridge/errors"
	"github.com/wippyai/slotbridge/foreign"
)

// Function is one exported entry point.
type Function struct {
	Func   abi.SlotFunc
	Name   string
	FnType abi.FnPointer
}

// Functions lists the entry points of typ in export-name order.
func Functions(typ *foreign.Type) []Function {
	var out []Function
	for _, id := range typ.Slots() {
		e, _ := typ.Slot(id)
		out = append(out, Function{Name: string(id), FnType: e.FnType, Func: e.Func})
	}
	for _, name := range typ.GetSets() {
		gs, _ := typ.GetSet(name)
		if gs.Get != nil {
			out = append(out, Function{Name: "get_" + name, FnType: abi.FnGetter, Func: gs.Get})
		}
		if gs.Set != nil {
			out = append(out, Function{Name: "set_" + name, FnType: abi.FnSetter, Func: gs.Set})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Export instantiates a host module named after typ in r. Calls run
// against rt, which is bound into the call context.
func Export(ctx context.Context, r wazero.Runtime, rt *foreign.Runtime, typ *foreign.Type) (api.Module, error) {
	return ExportAs(ctx, r, rt, typ, typ.Name)
}

// ExportAs is Export with an explicit module name.
func ExportAs(ctx context.Context, r wazero.Runtime, rt *foreign.Runtime, typ *foreign.Type, module string) (api.Module, error) {
	funcs := Functions(typ)
	if len(funcs) == 0 {
		return nil, errors.InvalidInput(errors.PhaseHost, "type "+typ.Name+" has no slots to export")
	}

	builder := r.NewHostModuleBuilder(module)
	for _, f := range funcs {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(hostFunc(rt, f.Func), f.FnType.ParamTypes(), f.FnType.ResultTypes()).
			WithName(f.Name).
			Export(f.Name)
	}

	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseHost, errors.KindRegistration, err, "instantiate host module "+module)
	}
	Logger().Debug("host module exported",
		zap.String("module", module),
		zap.Int("functions", len(funcs)))
	return mod, nil
}

func hostFunc(rt *foreign.Runtime, fn abi.SlotFunc) api.GoModuleFunc {
	return func(ctx context.Context, _ api.Module, stack []uint64) {
		fn(foreign.WithRuntime(ctx, rt), stack)
	}
}
