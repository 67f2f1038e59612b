package loader

import (
	"fmt"
	"strings"
)

// UnknownIncludeError reports an include naming a technique the description does not declare.
type UnknownIncludeError struct {
	Technique string
	Include   string
}

func (e *UnknownIncludeError) Error() string {
	return fmt.Sprintf("technique %q includes unknown technique %q", e.Technique, e.Include)
}

// IncludeCycleError reports techniques that include themselves, directly or through other includes.
// Cycle starts and ends with the same name.
type IncludeCycleError struct {
	Cycle []string
}

func (e *IncludeCycleError) Error() string {
	return fmt.Sprintf("include cycle: %s", strings.Join(e.Cycle, " -> "))
}
