package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingPrerequisite marks a stage that cannot start because an earlier stage left no artifact.
	ErrMissingPrerequisite = errors.New("missing prerequisite artifact")
	// ErrConfigurationMismatch marks data that disagrees with configured constants.
	ErrConfigurationMismatch = errors.New("configuration mismatch")
)

// MissingPrerequisiteError names the stage and the artifact kind it needed.
type MissingPrerequisiteError struct {
	Stage    string
	Requires ArtifactKind
}

func (e *MissingPrerequisiteError) Error() string {
	return fmt.Sprintf("%s: no %s artifact found", e.Stage, e.Requires)
}

func (e *MissingPrerequisiteError) Is(target error) bool {
	return target == ErrMissingPrerequisite
}

// ConfigurationMismatchError reports a value that does not match its configured counterpart.
type ConfigurationMismatchError struct {
	Field string
	Want  int
	Got   int
	URL   string
}

func (e *ConfigurationMismatchError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("%s mismatch for %s: want %d, got %d", e.Field, e.URL, e.Want, e.Got)
	}
	return fmt.Sprintf("%s mismatch: want %d, got %d", e.Field, e.Want, e.Got)
}

func (e *ConfigurationMismatchError) Is(target error) bool {
	return target == ErrConfigurationMismatch
}

// ArticleFailure records one article excluded from a stage's success set.
type ArticleFailure struct {
	URL    string `json:"url"`
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
}
