package runner

import (
	"os"
	"strconv"
	"strings"

	"github.com/uptrms/bddkit/pkg/bdd"
)

// argValue returns the value of --name from os.Args, accepting both
// "--name value" and "--name=value".
func argValue(name string) (string, bool) {
	flag := "--" + name
	args := os.Args[1:]
	for i, arg := range args {
		if arg == flag && i+1 < len(args) {
			return args[i+1], true
		}
		if value, ok := strings.CutPrefix(arg, flag+"="); ok {
			return value, true
		}
	}
	return "", false
}

// argBool returns the value of the boolean flag --name and whether it was
// given at all. A bare "--name" is true; "--name=false" is an explicit false.
func argBool(name string) (value, set bool) {
	flag := "--" + name
	for _, arg := range os.Args[1:] {
		if arg == flag {
			return true, true
		}
		if raw, ok := strings.CutPrefix(arg, flag+"="); ok {
			b, err := strconv.ParseBool(raw)
			return err == nil && b, true
		}
	}
	return false, false
}

func parseTagsFromArgs() string {
	tags, _ := argValue("tags")
	return tags
}

// parseParallelFromArgs returns 0 when --parallel is missing or not a
// positive number.
func parseParallelFromArgs() int {
	raw, ok := argValue("parallel")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0
	}
	return n
}

// configFromArgs collects the command line overrides into a Config that is
// merged last.
func configFromArgs() *bdd.Config {
	cfg := &bdd.Config{
		Tags:     parseTagsFromArgs(),
		Parallel: parseParallelFromArgs(),
	}
	cfg.FailFast, _ = argBool("fail-fast")
	cfg.NoColor, _ = argBool("no-color")
	cfg.ReportJSON, _ = argValue("report-json")
	cfg.ReportHTML, _ = argValue("report-html")
	cfg.MetricsFile, _ = argValue("metrics")
	return cfg
}

// applyBoolArgs writes boolean flags given on the command line over cfg.
// MergeConfigs only ever turns booleans on, so "--fail-fast=false" has to be
// applied after merging to switch off a value set by the file or in code.
func applyBoolArgs(cfg *bdd.Config) {
	if v, ok := argBool("fail-fast"); ok {
		cfg.FailFast = v
	}
	if v, ok := argBool("no-color"); ok {
		cfg.NoColor = v
	}
}
