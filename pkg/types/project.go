package types

// ProjectType classifies a workspace (or a single file in a mixed workspace)
// and drives default chunking and priority rules.
type ProjectType string

const (
	ProjectCode    ProjectType = "code"
	ProjectProse   ProjectType = "prose"
	ProjectScript  ProjectType = "script"
	ProjectDocs    ProjectType = "docs"
	ProjectMixed   ProjectType = "mixed"
	ProjectUnknown ProjectType = "unknown"
)

// Valid reports whether pt is one of the defined project types
func (pt ProjectType) Valid() bool {
	switch pt {
	case ProjectCode, ProjectProse, ProjectScript, ProjectDocs, ProjectMixed, ProjectUnknown:
		return true
	default:
		return false
	}
}
