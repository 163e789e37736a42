package model

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/encoding/yaml"

	_ "embed"
)

const (
	ServiceModeManual = "manual"
	ServiceModeTimer  = "timer"
)

var ErrDuplicateJob = errors.New("duplicate job name")

//go:embed config.cue
var cueSource []byte

var (
	cueCtx *cue.Context
	schema cue.Value
)

func init() {
	if len(cueSource) == 0 {
		panic("variable cueSource is empty")
	}
	cueCtx = cuecontext.New()
	compiled := cueCtx.CompileBytes(cueSource)
	if compiled.Err() != nil {
		panic(compiled.Err())
	}

	if err := compiled.Validate(); err != nil {
		panic(err)
	}

	schema = compiled.LookupPath(cue.ParsePath("#Config"))
	if schema.Err() != nil {
		panic(schema.Err())
	}
	if err := schema.Validate(); err != nil {
		panic(err)
	}
}

// Config is the job file.
type Config struct {
	Version int     `json:"version" yaml:"version"` // fixed 0 for now
	Service Service `json:"service" yaml:"service"`
	Jobs    []Job   `json:"jobs" yaml:"jobs"`
}

// Service controls how the jobs are run.
type Service struct {
	Mode        string    `json:"mode,omitempty" yaml:"mode,omitempty"` // "manual" (default) | "timer"
	Verbose     *bool     `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	Parallelism *int      `json:"parallelism,omitempty" yaml:"parallelism,omitempty"`
	Schedule    *Schedule `json:"schedule,omitempty" yaml:"schedule,omitempty"` // required in timer mode
}

// Schedule of the timer mode: a cron expression or a fixed interval.
type Schedule struct {
	Cron  string `json:"cron,omitempty" yaml:"cron,omitempty"`   // "*/5 * * * *", "@hourly"
	Every string `json:"every,omitempty" yaml:"every,omitempty"` // "90s", "1d12h"
}

// Job is one process to run.
type Job struct {
	Name    string  `json:"name" yaml:"name"`
	Command string  `json:"command" yaml:"command"`
	Script  string  `json:"script,omitempty" yaml:"script,omitempty"`
	Input   *string `json:"input,omitempty" yaml:"input,omitempty"` // nil => stdin at EOF
	Dir     string  `json:"dir,omitempty" yaml:"dir,omitempty"`
	Timeout string  `json:"timeout,omitempty" yaml:"timeout,omitempty"` // empty => unbounded
}

// LoadConfig validates YAML from r against CUE schema and decodes to Config.
func LoadConfig(r io.Reader) (Config, error) {
	yamlFile, err := yaml.Extract("config.yaml", r)
	if err != nil {
		return Config{}, err
	}
	yamlValue := cueCtx.BuildFile(yamlFile)

	unified := schema.Unify(yamlValue)
	if err := unified.Validate(
		cue.All(),          // all constraints
		cue.Concrete(true), // no incomplete values
	); err != nil {
		return Config{}, err
	}

	var out Config
	if err := unified.Decode(&out); err != nil {
		return Config{}, err
	}

	seen := make(map[string]struct{}, len(out.Jobs))
	for _, job := range out.Jobs {
		if _, ok := seen[job.Name]; ok {
			return Config{}, fmt.Errorf("%w: %s", ErrDuplicateJob, job.Name)
		}
		seen[job.Name] = struct{}{}
	}
	if out.Service.Mode == "" {
		out.Service.Mode = ServiceModeManual
	}
	return out, nil
}

// ErrDetails splits an error of LoadConfig into one message per problem.
func ErrDetails(err error) []string {
	var out []string
	for _, e := range cueerrors.Errors(err) {
		out = append(out, e.Error())
	}
	if len(out) == 0 && err != nil {
		out = append(out, err.Error())
	}
	return out
}

// DefaultConfig returns the job file written by `launcher config`.
func DefaultConfig(_ context.Context) Config {
	input := "hello from launcher"
	return Config{
		Version: 0,
		Service: Service{
			Mode: ServiceModeManual,
		},
		Jobs: []Job{
			{
				Name:    "hello",
				Command: "/bin/sh",
				Script:  "-c 'echo hello world'",
			},
			{
				Name:    "stdin",
				Command: "cat",
				Input:   &input,
				Timeout: "1m",
			},
		},
	}
}
