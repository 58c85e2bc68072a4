package models

import "time"

// CurrentFormatVersion is the serialized graph format produced by exports.
const CurrentFormatVersion = "1.0"

// Complexity is a heuristic size label attached to exports.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

// ExportFile is the JSON document written by export and read by import.
type ExportFile struct {
	FormatVersion        string     `json:"formatVersion"`
	ExportedAt           time.Time  `json:"exportedAt"`
	Name                 string     `json:"name"`
	Description          string     `json:"description"`
	Nodes                []*Node    `json:"nodes"`
	Edges                []*Edge    `json:"edges"`
	AutoCreateTask       bool       `json:"autoCreateTask"`
	NodeCount            int        `json:"nodeCount"`
	EdgeCount            int        `json:"edgeCount"`
	UsesAdvancedFeatures []string   `json:"usesAdvancedFeatures,omitempty"`
	Complexity           Complexity `json:"complexity"`
}
