package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/agrotomo/bdagro-sync/modules/bdagro/domain/entity"
	"github.com/agrotomo/bdagro-sync/pkg/eventbus"
)

const (
	ExportDirName    = "2_bd_agro"
	ExportFilePrefix = "BD_AGRO_"
	ExportFileExt    = ".xlsx"
)

// DefaultExcludedClients are client folders never processed.
var DefaultExcludedClients = []string{
	"98", "99", "126",
	"127", "133", "134",
	"137", "139", "140",
	"141", "148", "149",
	"150", "151", "152",
	"154", "155", "999",
}

// Discovery is the outcome of walking the clients folder.
type Discovery struct {
	Files   []entity.ExportFile
	Skipped []EntitySkipped
}

// ExportFileProvider yields the export files a run reads from.
type ExportFileProvider interface {
	Discover(ctx context.Context) (Discovery, error)
}

// Locator finds one BD_AGRO export per client folder under Root.
type Locator struct {
	root     string
	excluded map[string]struct{}
	events   eventbus.EventBus
}

func NewLocator(root string, excluded []string, events eventbus.EventBus) *Locator {
	set := make(map[string]struct{}, len(excluded))
	for _, id := range excluded {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		set[id] = struct{}{}
		if n, err := strconv.ParseInt(id, 10, 64); err == nil {
			set[strconv.FormatInt(n, 10)] = struct{}{}
		}
	}
	if events == nil {
		events = eventbus.New(nil)
	}
	return &Locator{root: root, excluded: set, events: events}
}

// parseFolderName splits "<id>_<name>..." into the id token, the parsed id
// and the display name.
func parseFolderName(name string) (token string, id int64, display string, ok bool) {
	parts := strings.Split(name, "_")
	token = parts[0]
	if token == "" {
		return token, 0, "", false
	}
	for _, r := range token {
		if r < '0' || r > '9' {
			return token, 0, "", false
		}
	}
	id, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return token, 0, "", false
	}
	if len(parts) > 1 {
		display = norm.NFC.String(parts[1])
	}
	return token, id, display, true
}

func (l *Locator) isExcluded(token string, id int64) bool {
	if _, ok := l.excluded[token]; ok {
		return true
	}
	_, ok := l.excluded[strconv.FormatInt(id, 10)]
	return ok
}

// Discover lists the immediate subfolders of the root in lexical order and
// returns the export file of every candidate. Missing folders or files are
// reported as skips; only an unreadable root is an error.
func (l *Locator) Discover(ctx context.Context) (Discovery, error) {
	start := time.Now()
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return Discovery{}, fmt.Errorf("read clients folder %s: %w", l.root, err)
	}

	var out Discovery
	skip := func(s EntitySkipped) {
		out.Skipped = append(out.Skipped, s)
		l.events.Publish(s)
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return Discovery{}, err
		}
		if !e.IsDir() {
			continue
		}
		token, id, display, ok := parseFolderName(e.Name())
		if !ok {
			skip(EntitySkipped{Folder: e.Name(), Reason: SkipNonNumericPrefix})
			continue
		}
		folder := entity.Folder{ID: id, Name: display, Path: filepath.Join(l.root, e.Name())}
		if l.isExcluded(token, id) {
			skip(EntitySkipped{Folder: e.Name(), Client: folder, Reason: SkipExcluded})
			continue
		}

		file, reason, err := findExportFile(folder)
		if err != nil {
			return Discovery{}, err
		}
		if reason != "" {
			skip(EntitySkipped{Folder: e.Name(), Client: folder, Reason: reason})
			continue
		}
		out.Files = append(out.Files, file)
		l.events.Publish(EntityDiscovered{File: file})
	}

	l.events.Publish(StageCompleted{Stage: StageDiscover, Rows: len(out.Files), Duration: time.Since(start)})
	return out, nil
}

func findExportFile(folder entity.Folder) (entity.ExportFile, SkipReason, error) {
	dir := filepath.Join(folder.Path, ExportDirName)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		if err != nil && !os.IsNotExist(err) {
			return entity.ExportFile{}, "", fmt.Errorf("stat %s: %w", dir, err)
		}
		return entity.ExportFile{}, SkipNoExportFolder, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return entity.ExportFile{}, "", fmt.Errorf("read %s: %w", dir, err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, ExportFilePrefix) || !strings.HasSuffix(name, ExportFileExt) {
			continue
		}
		return entity.ExportFile{Folder: folder, Path: filepath.Join(dir, name)}, "", nil
	}
	return entity.ExportFile{}, SkipNoExportFile, nil
}

// StaticFiles serves a fixed list of export files.
type StaticFiles []entity.ExportFile

func (s StaticFiles) Discover(context.Context) (Discovery, error) {
	return Discovery{Files: append([]entity.ExportFile(nil), s...)}, nil
}
