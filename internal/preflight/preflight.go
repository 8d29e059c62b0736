package preflight

import (
	"fmt"

	"quadsync/internal/config"
	"quadsync/internal/systemd"
	"quadsync/pkg/logging"
)

const subsystem = "Preflight"

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Path   string
	Passed bool
	Detail string
}

// RunAll executes every check needed before a pass may run: required host
// commands, every source root and the target directory. The target
// directory is created when missing.
func RunAll(cfg config.Config) []Result {
	var results []Result

	for _, cmd := range requiredCommands(cfg) {
		results = append(results, CheckCommand(cmd))
	}
	for _, root := range cfg.SourceDirs {
		results = append(results, CheckSourceRoot(root))
	}
	results = append(results, CheckTargetDir(cfg.TargetDir))

	for _, r := range results {
		if r.Passed {
			logging.Debug(subsystem, "%s: %s", r.Name, r.Detail)
		} else {
			logging.Warn(subsystem, "%s: %s", r.Name, r.Detail)
		}
	}
	return results
}

// requiredCommands lists the commands the configuration depends on,
// without duplicates.
func requiredCommands(cfg config.Config) []string {
	var cmds []string
	seen := make(map[string]bool)
	add := func(c string) {
		if c != "" && !seen[c] {
			seen[c] = true
			cmds = append(cmds, c)
		}
	}
	if cfg.ServiceManager.Backend == "" || cfg.ServiceManager.Backend == config.BackendSystemctl {
		add(systemd.SystemctlCommand)
	}
	for _, c := range cfg.RequiredCommands {
		add(c)
	}
	return cmds
}

// Err folds failed results into a single fatal configuration error, or
// returns nil when every check passed.
func Err(results []Result) error {
	var failed config.ConfigurationErrorCollection
	for _, r := range results {
		if !r.Passed {
			failed.Add(config.NewConfigurationError("preflight", r.Path, fmt.Sprintf("%s: %s", r.Name, r.Detail), nil))
		}
	}
	if !failed.HasErrors() {
		return nil
	}
	return config.NewConfigurationError("preflight", "",
		fmt.Sprintf("%d of %d checks failed", len(failed.Errors), len(results)), &failed)
}
