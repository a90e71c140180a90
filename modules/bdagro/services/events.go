package services

import (
	"time"

	"github.com/agrotomo/bdagro-sync/modules/bdagro/domain/entity"
)

type Stage string

const (
	StageDiscover  Stage = "discover"
	StageMerge     Stage = "merge"
	StageNormalize Stage = "normalize"
	StageEnrich    Stage = "enrich"
	StageHarvest   Stage = "harvest_estimate"
	StageExport    Stage = "export"
	StageSync      Stage = "sync"
)

type SkipReason string

const (
	SkipNonNumericPrefix SkipReason = "non_numeric_prefix"
	SkipExcluded         SkipReason = "excluded"
	SkipNoExportFolder   SkipReason = "no_export_folder"
	SkipNoExportFile     SkipReason = "no_export_file"
)

// EntityDiscovered is published for every client folder with a usable export file.
type EntityDiscovered struct {
	File entity.ExportFile
}

// EntitySkipped is published for every folder that did not yield an export file.
type EntitySkipped struct {
	Folder string
	Client entity.Folder
	Reason SkipReason
}

// EntityMerged is published after a client's export file was appended.
type EntityMerged struct {
	Client entity.Folder
	Rows   int
}

type StageCompleted struct {
	Stage    Stage
	Rows     int
	Duration time.Duration
}

type GroupLookupFailed struct {
	ClientIDs []int64
	Err       error
}

type RowsDeleted struct {
	Target string
	Count  int64
}

type RowsInserted struct {
	Target string
	Count  int64
}

type Operation string

const (
	OperationDelete  Operation = "delete"
	OperationInsert  Operation = "insert"
	OperationReplace Operation = "replace"
)

// PersistenceFailed is published when a store write did not happen. Deleted
// is non-zero when rows were already removed by an independently committed
// delete.
type PersistenceFailed struct {
	Target    string
	Operation Operation
	Deleted   int64
	Err       error
}
