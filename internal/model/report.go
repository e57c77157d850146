package model

import "time"

// Mode selects what a driver run does.
type Mode string

const (
	ModeCheck  Mode = "check"
	ModeRemove Mode = "remove"
)

// Summary holds the report counters.
type Summary struct {
	TotalAssets         int   `json:"totalAssets"`
	HashedAssets        int   `json:"hashedAssets"`
	HashFailures        int   `json:"hashFailures"`
	Surfaces            int   `json:"surfaces"`
	UsedAssets          int   `json:"usedAssets"`
	UnusedAssets        int   `json:"unusedAssets"`
	HashGroups          int   `json:"hashGroups"`
	FormatGroups        int   `json:"formatGroups"`
	KeepCount           int   `json:"keepCount"`
	RemoveCandidates    int   `json:"removeCandidates"`
	EstimatedBytesSaved int64 `json:"estimatedBytesSaved"`
	Removed             int   `json:"removed"`
	Skipped             int   `json:"skipped"`
	Failures            int   `json:"failures"`
	Inconsistencies     int   `json:"inconsistencies"`
}

// Failure attributes an error to one asset.
type Failure struct {
	AssetID int64  `json:"assetId"`
	Path    string `json:"path,omitempty"`
	Kind    string `json:"kind"`
	Error   string `json:"error"`
}

// Removal is the per-id outcome of remove mode.
type Removal struct {
	AssetID int64  `json:"assetId"`
	Path    string `json:"path,omitempty"`
	Removed bool   `json:"removed"`
	Kind    string `json:"kind,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Report is the serialized outcome of a driver run.
type Report struct {
	GeneratedAt        time.Time          `json:"generatedAt"`
	Mode               Mode               `json:"mode"`
	Scope              []string           `json:"scope"`
	Summary            Summary            `json:"summary"`
	DuplicateGroups    []DuplicateGroup   `json:"duplicateGroups"`
	DeletionCandidates []DeletionDecision `json:"deletionCandidates"`
	RemovableIDs       []int64            `json:"removableIds"`
	Removals           []Removal          `json:"removals,omitempty"`
	Failures           []Failure          `json:"failures"`
	Inconsistencies    []Failure          `json:"inconsistencies"`
	// Path of the written artifact, empty until the report is saved.
	Artifact string `json:"-"`
}
