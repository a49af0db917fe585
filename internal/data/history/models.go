package history

import "time"

const SchemaVersion = 1

// Snapshot records the outcome of one plan, scaffold or verify run.
type Snapshot struct {
	RunID          string    `json:"run_id" yaml:"run_id"`
	SchemaVersion  int       `json:"schema_version" yaml:"schema_version"`
	Timestamp      time.Time `json:"timestamp" yaml:"timestamp"`
	Root           string    `json:"root" yaml:"root"`
	Operation      string    `json:"operation" yaml:"operation"`
	Mode           string    `json:"mode,omitempty" yaml:"mode,omitempty"`
	CommitHash     string    `json:"commit_hash,omitempty" yaml:"commit_hash,omitempty"`
	DirsVisited    int       `json:"dirs_visited" yaml:"dirs_visited"`
	MeaningfulDirs int       `json:"meaningful_dirs" yaml:"meaningful_dirs"`
	Missing        int       `json:"missing" yaml:"missing"`
	Incomplete     int       `json:"incomplete" yaml:"incomplete"`
	Done           int       `json:"done" yaml:"done"`
	Issues         int       `json:"issues" yaml:"issues"`
	OK             bool      `json:"ok" yaml:"ok"`
}
