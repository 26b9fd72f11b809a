package main

import (
	"encoding/json"
	"fmt"
	"io"

	"cosmossdk.io/math"
	"gopkg.in/yaml.v3"

	"github.com/altuslabsxyz/stakekit/pkg/staking"
)

// render writes v as a JSON or YAML document, or calls text for the
// default format.
func (a *app) render(w io.Writer, v any, text func()) error {
	switch a.format {
	case "", "text":
		text()
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return fmt.Errorf("unsupported output format %q (must be text, json or yaml)", a.format)
	}
}

// amount formats base units in the network's display unit.
func (a *app) amount(v math.Int) string {
	if v.IsNil() {
		v = math.ZeroInt()
	}
	return staking.FormatUnits(v.BigInt(), a.cfg.Network.Decimals) + " " + a.cfg.Network.Unit
}

// parseAmount parses a display-unit amount into base units.
func (a *app) parseAmount(s string) (math.Int, error) {
	v, err := staking.ParseUnits(s, a.cfg.Network.Decimals)
	if err != nil {
		return math.Int{}, err
	}
	return math.NewIntFromBigInt(v), nil
}

// printCall prints the decoded form of tx.
func (a *app) printCall(call staking.Call, indent string) {
	a.out.Info("%s%s.%s", indent, call.Contract, call.Method)
	for _, arg := range call.Args {
		a.out.Info("%s  %-18s %s", indent, arg.Name+" ("+arg.Type+"):", arg.Value)
	}
	for _, inner := range call.Inner {
		a.printCall(inner, indent+"  ")
	}
}
