package enums

import "fmt"

// ContextLevel identifies the kind of node in the platform context hierarchy.
type ContextLevel int

const (
	ContextLevelSystem ContextLevel = 10
	ContextLevelUser   ContextLevel = 30
	ContextLevelCourse ContextLevel = 50
	ContextLevelModule ContextLevel = 70
)

var validContextLevels = []ContextLevel{
	ContextLevelSystem,
	ContextLevelUser,
	ContextLevelCourse,
	ContextLevelModule,
}

// String implements fmt.Stringer.
func (c ContextLevel) String() string {
	switch c {
	case ContextLevelSystem:
		return "system"
	case ContextLevelUser:
		return "user"
	case ContextLevelCourse:
		return "course"
	case ContextLevelModule:
		return "module"
	}
	return fmt.Sprintf("contextlevel(%d)", int(c))
}

// IsValid reports whether the value is a known ContextLevel.
func (c ContextLevel) IsValid() bool {
	for _, candidate := range validContextLevels {
		if candidate == c {
			return true
		}
	}
	return false
}
