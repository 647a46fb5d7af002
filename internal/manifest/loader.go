package manifest

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ParseError reports a manifest that is not well-formed: bad YAML, or an
// unknown job/trigger kind. Parse errors are fatal at load time.
type ParseError struct {
	Msg string
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("manifest parse: %s: %v", e.Msg, e.Err)
	}
	return "manifest parse: " + e.Msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError reports a well-formed manifest that violates a structural
// rule. JobIndex is -1 for manifest-level violations.
type ValidationError struct {
	JobIndex int
	Msg      string
}

func (e *ValidationError) Error() string {
	if e.JobIndex < 0 {
		return "manifest validation: " + e.Msg
	}
	return fmt.Sprintf("manifest validation: jobs[%d]: %s", e.JobIndex, e.Msg)
}

// Load parses manifest text into a Manifest and validates it.
// ${VAR} placeholders are interpolated from the environment before parsing;
// undefined variables are left as-is.
func Load(data []byte) (*Manifest, error) {
	interpolated := interpolateEnv(string(data))

	var m Manifest
	if err := yaml.Unmarshal([]byte(interpolated), &m); err != nil {
		return nil, &ParseError{Msg: "invalid YAML", Err: err}
	}

	for i, job := range m.Jobs {
		if !knownJobKind(job.Kind) {
			return nil, &ParseError{Msg: fmt.Sprintf("jobs[%d]: unknown job kind %q", i, job.Kind)}
		}
		if !knownTriggerKind(job.Trigger) {
			return nil, &ParseError{Msg: fmt.Sprintf("jobs[%d]: unknown trigger kind %q", i, job.Trigger)}
		}
	}

	if err := Validate(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadFile reads and loads a manifest from disk.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Msg: fmt.Sprintf("read %s", path), Err: err}
	}
	return Load(data)
}

// Validate checks structural rules that parsing alone cannot enforce:
//   - a copr_build job needs explicit targets or a manifest-level default
//   - propose_downstream, koji_build and bodhi_update need dist_git_branches
//   - no two jobs may be byte-for-byte duplicates
func Validate(m *Manifest) error {
	if m == nil {
		return &ValidationError{JobIndex: -1, Msg: "manifest is nil"}
	}
	if len(m.Jobs) == 0 {
		return &ValidationError{JobIndex: -1, Msg: "manifest declares no jobs"}
	}

	seen := make(map[string]int, len(m.Jobs))
	for i, job := range m.Jobs {
		switch job.Kind {
		case JobCoprBuild:
			if len(job.Targets) == 0 && len(m.DefaultTargets) == 0 {
				return &ValidationError{JobIndex: i, Msg: "copr_build needs targets or manifest default_targets"}
			}
		case JobProposeDownstream, JobKojiBuild, JobBodhiUpdate:
			if len(job.DistGitBranches) == 0 {
				return &ValidationError{JobIndex: i, Msg: fmt.Sprintf("%s needs dist_git_branches", job.Kind)}
			}
		}

		key, err := fingerprint(job)
		if err != nil {
			return &ValidationError{JobIndex: i, Msg: fmt.Sprintf("cannot fingerprint job: %v", err)}
		}
		if prev, dup := seen[key]; dup {
			return &ValidationError{JobIndex: i, Msg: fmt.Sprintf("duplicate of jobs[%d]", prev)}
		}
		seen[key] = i
	}
	return nil
}

// fingerprint serializes a job back to YAML so duplicate detection is
// byte-for-byte, not field-by-field.
func fingerprint(job Job) (string, error) {
	out, err := yaml.Marshal(job)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func knownJobKind(k JobKind) bool {
	for _, known := range KnownJobKinds {
		if k == known {
			return true
		}
	}
	return false
}

func knownTriggerKind(k TriggerKind) bool {
	for _, known := range KnownTriggerKinds {
		if k == known {
			return true
		}
	}
	return false
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Undefined variables are left as-is (not expanded).
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}
