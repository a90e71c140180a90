package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/agrotomo/bdagro-sync/modules/bdagro/services"
)

func writeJSONLine(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	return nil
}

type skippedFolder struct {
	Folder string `json:"folder"`
	Reason string `json:"reason"`
}

type mergedClient struct {
	ClientID   int64  `json:"client_id"`
	ClientName string `json:"client_name"`
	Rows       int    `json:"rows"`
}

type runSummary struct {
	Status     string          `json:"status"`
	Command    string          `json:"command"`
	RunID      string          `json:"run_id"`
	Root       string          `json:"root"`
	Clients    []int64         `json:"clients"`
	Discovered int             `json:"discovered"`
	Skipped    []skippedFolder `json:"skipped,omitempty"`
	Merged     []mergedClient  `json:"merged"`
	Rows       int             `json:"rows"`
	Output     string          `json:"output,omitempty"`

	Target           string `json:"target,omitempty"`
	SyncMode         string `json:"sync_mode,omitempty"`
	Apply            bool   `json:"apply"`
	Deleted          int64  `json:"deleted"`
	Inserted         int64  `json:"inserted"`
	Partial          bool   `json:"partial,omitempty"`
	GroupLookupError string `json:"group_lookup_error,omitempty"`
	PersistenceError string `json:"persistence_error,omitempty"`

	DurationMS int64 `json:"duration_ms"`
}

func newRunSummary(command, status, root string, clients []int64, r services.Report) runSummary {
	s := runSummary{
		Status:     status,
		Command:    command,
		RunID:      r.RunID.String(),
		Root:       root,
		Clients:    clients,
		Discovered: r.Discovered,
		Merged:     []mergedClient{},
		Rows:       r.Rows,
		Output:     r.ExportPath,
		Apply:      r.Applied,
		Deleted:    r.Sync.Deleted,
		Inserted:   r.Sync.Inserted,
		Partial:    r.Sync.Partial,
		DurationMS: r.FinishedAt.Sub(r.StartedAt).Milliseconds(),
	}
	if s.Clients == nil {
		s.Clients = []int64{}
	}
	for _, sk := range r.Skipped {
		s.Skipped = append(s.Skipped, skippedFolder{Folder: sk.Folder, Reason: string(sk.Reason)})
	}
	for _, m := range r.Merged {
		s.Merged = append(s.Merged, mergedClient{ClientID: m.Client.ID, ClientName: m.Client.Name, Rows: m.Rows})
	}
	if r.GroupLookupError != nil {
		s.GroupLookupError = r.GroupLookupError.Error()
	}
	if r.Sync.Err != nil {
		s.PersistenceError = r.Sync.Err.Error()
	}
	if r.FinishedAt.IsZero() {
		s.DurationMS = time.Since(r.StartedAt).Milliseconds()
	}
	return s
}
