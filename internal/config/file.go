package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"eliwatch/internal/flags"
)

// File is the on-disk configuration (YAML). Unset keys keep their defaults.
type File struct {
	Input struct {
		Include    []string `yaml:"include"`
		Exclude    []string `yaml:"exclude"`
		Country    []string `yaml:"country"`
		MaxSources *int     `yaml:"max_sources"`
	} `yaml:"input"`

	Checks struct {
		Selector *string                      `yaml:"selector"`
		Options  map[string]map[string]string `yaml:"options"`
	} `yaml:"checks"`

	Output struct {
		ConsoleFormat       *string  `yaml:"console_format"`
		ConsoleFilterStatus []string `yaml:"console_filter_status"`
		Out                 *string  `yaml:"out"`
		HTML                *string  `yaml:"html"`
		Broken              *string  `yaml:"broken"`
		BaselineURL         *string  `yaml:"baseline_url"`
		RegistryURL         *string  `yaml:"registry_url"`
		Report              *string  `yaml:"report"`
		MetricsOut          *string  `yaml:"metrics_out"`
	} `yaml:"output"`

	Runtime struct {
		Concurrency    *int           `yaml:"concurrency"`
		Timeout        *time.Duration `yaml:"timeout"`
		RequestTimeout *time.Duration `yaml:"request_timeout"`
		MaxRequests    *int           `yaml:"max_requests"`
		UserAgent      *string        `yaml:"user_agent"`
		LogLevel       *string        `yaml:"log_level"`
	} `yaml:"runtime"`
}

// LoadFile reads a YAML config file. Unknown keys are rejected.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return ParseFile(data)
}

func ParseFile(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &f, nil
}

// Apply copies file values into cfg for every setting whose flag was not set
// explicitly. Check options from the file are placed before the --set entries,
// so the command line wins.
func (f *File) Apply(cfg *Config, changed func(flag string) bool) {
	if f == nil {
		return
	}
	set := func(flag string, apply func()) {
		if changed == nil || !changed(flag) {
			apply()
		}
	}

	if len(f.Input.Include) > 0 {
		set(flags.FlagInclude, func() { cfg.Input.Include = f.Input.Include })
	}
	if len(f.Input.Exclude) > 0 {
		set(flags.FlagExclude, func() { cfg.Input.Exclude = f.Input.Exclude })
	}
	if len(f.Input.Country) > 0 {
		set(flags.FlagCountry, func() { cfg.Input.Country = f.Input.Country })
	}
	if v := f.Input.MaxSources; v != nil {
		set(flags.FlagMaxSources, func() { cfg.Input.MaxSources = *v })
	}

	if v := f.Checks.Selector; v != nil {
		set(flags.FlagChecks, func() { cfg.Checks.Selector = *v })
	}
	if len(f.Checks.Options) > 0 {
		cfg.Checks.Set = append(optionAssignments(f.Checks.Options), cfg.Checks.Set...)
	}

	if v := f.Output.ConsoleFormat; v != nil {
		set(flags.FlagConsoleFormat, func() { cfg.Output.ConsoleFormat = *v })
	}
	if len(f.Output.ConsoleFilterStatus) > 0 {
		set(flags.FlagConsoleFilterStatus, func() { cfg.Output.ConsoleFilterStatus = f.Output.ConsoleFilterStatus })
	}
	strs := []struct {
		flag string
		val  *string
		dst  *string
	}{
		{flags.FlagOut, f.Output.Out, &cfg.Output.Out},
		{flags.FlagHTML, f.Output.HTML, &cfg.Output.HTML},
		{flags.FlagBroken, f.Output.Broken, &cfg.Output.Broken},
		{flags.FlagBaselineURL, f.Output.BaselineURL, &cfg.Output.BaselineURL},
		{flags.FlagRegistryURL, f.Output.RegistryURL, &cfg.Output.RegistryURL},
		{flags.FlagReport, f.Output.Report, &cfg.Output.Report},
		{flags.FlagMetricsOut, f.Output.MetricsOut, &cfg.Output.MetricsOut},
		{flags.FlagUserAgent, f.Runtime.UserAgent, &cfg.Runtime.UserAgent},
		{flags.FlagLogLevel, f.Runtime.LogLevel, &cfg.Runtime.LogLevel},
	}
	for _, s := range strs {
		if s.val != nil {
			val, dst := *s.val, s.dst
			set(s.flag, func() { *dst = val })
		}
	}

	if v := f.Runtime.Concurrency; v != nil {
		set(flags.FlagConcurrency, func() { cfg.Runtime.Concurrency = *v })
	}
	if v := f.Runtime.Timeout; v != nil {
		set(flags.FlagTimeout, func() { cfg.Runtime.Timeout = *v })
	}
	if v := f.Runtime.RequestTimeout; v != nil {
		set(flags.FlagRequestTimeout, func() { cfg.Runtime.RequestTimeout = *v })
	}
	if v := f.Runtime.MaxRequests; v != nil {
		set(flags.FlagMaxRequests, func() { cfg.Runtime.MaxRequests = *v })
	}
}

// optionAssignments flattens file options into sorted check.option=value entries.
func optionAssignments(opts map[string]map[string]string) []string {
	var out []string
	for id, kv := range opts {
		for k, v := range kv {
			out = append(out, fmt.Sprintf("%s.%s=%s", id, k, v))
		}
	}
	sort.Strings(out)
	return out
}
