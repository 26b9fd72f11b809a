// Package version reports stakectl build information.
package version

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Set at build time:
//
//	-X github.com/altuslabsxyz/stakekit/internal/version.Version={{.Version}}
//	-X github.com/altuslabsxyz/stakekit/internal/version.GitCommit={{.FullCommit}}
//	-X github.com/altuslabsxyz/stakekit/internal/version.BuildDate={{.Date}}
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// stakingModules are the dependencies whose versions matter when reporting
// encoding or decoding problems.
var stakingModules = []string{
	"github.com/ethereum/go-ethereum",
	"github.com/centrifuge/go-substrate-rpc-client/v4",
}

// Info contains version and build information.
type Info struct {
	Name      string            `json:"name" yaml:"name"`
	Version   string            `json:"version" yaml:"version"`
	GitCommit string            `json:"commit" yaml:"commit"`
	BuildDate string            `json:"build_date,omitempty" yaml:"build_date,omitempty"`
	GoVersion string            `json:"go" yaml:"go"`
	Modules   map[string]string `json:"modules,omitempty" yaml:"modules,omitempty"`
	BuildDeps []string          `json:"build_deps,omitempty" yaml:"build_deps,omitempty"`
}

// NewInfo returns build information for the named binary.
func NewInfo(name string) Info {
	return Info{
		Name:      name,
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH),
	}
}

// WithModules records the chain client library versions.
func (i Info) WithModules() Info {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return i
	}
	for _, dep := range bi.Deps {
		if slices.Contains(stakingModules, dep.Path) {
			if i.Modules == nil {
				i.Modules = make(map[string]string)
			}
			i.Modules[dep.Path] = dep.Version
		}
	}
	return i
}

// WithBuildDeps records every module the binary was built with.
func (i Info) WithBuildDeps() Info {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return i
	}
	deps := make([]string, 0, len(bi.Deps))
	for _, dep := range bi.Deps {
		s := dep.Path + "@" + dep.Version
		if dep.Replace != nil {
			s += " => " + dep.Replace.Path + "@" + dep.Replace.Version
		}
		deps = append(deps, s)
	}
	slices.Sort(deps)
	i.BuildDeps = deps
	return i.WithModules()
}

// String returns the short human form.
func (i Info) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s version %s\n", i.Name, i.Version)
	fmt.Fprintf(&sb, "  commit:     %s\n", i.GitCommit)
	fmt.Fprintf(&sb, "  build date: %s\n", i.BuildDate)
	fmt.Fprintf(&sb, "  go:         %s\n", i.GoVersion)
	for _, path := range stakingModules {
		if v, ok := i.Modules[path]; ok {
			fmt.Fprintf(&sb, "  %s %s\n", path, v)
		}
	}
	return sb.String()
}

// Write renders info in the given format: text, json or yaml.
func (i Info) Write(w io.Writer, format string) error {
	switch format {
	case "", "text":
		_, err := io.WriteString(w, i.String())
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(i)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(i)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// NewCmd creates the version command.
func NewCmd(name string) *cobra.Command {
	var (
		long   bool
		format string
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := NewInfo(name).WithModules()
			if long {
				info = info.WithBuildDeps()
				if format == "text" {
					format = "yaml"
				}
			}
			return info.Write(cmd.OutOrStdout(), format)
		},
	}

	cmd.Flags().BoolVar(&long, "long", false, "Include all build dependencies")
	cmd.Flags().StringVarP(&format, "output", "o", "text", "Output format (text|json|yaml)")

	return cmd
}
