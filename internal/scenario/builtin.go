package scenario

import (
	"embed"
	"path"
	"sort"
	"strings"

	"github.com/OlenaTeqBlaze/adunit/internal/errors"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// BuiltinNames returns the names of the bundled scenarios, sorted.
func BuiltinNames() []string {
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Builtin returns the bundled scenario with the given name.
func Builtin(name string) (*Scenario, error) {
	data, err := builtinFS.ReadFile(path.Join("builtin", name+".yaml"))
	if err != nil {
		return nil, errors.NewValidationError("unknown builtin scenario").WithField("name").WithValue(name)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "builtin scenario %s", name)
	}
	if sc.Name == "" {
		sc.Name = name
	}
	return sc, nil
}
