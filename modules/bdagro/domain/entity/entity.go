// Package entity describes the client folders the pipeline reads from and
// the selection of clients a run is scoped to.
package entity

import (
	"sort"
	"strconv"
	"strings"
)

// Folder is a client folder named "<id>_<name>...".
type Folder struct {
	ID   int64
	Name string
	Path string
}

// ExportFile is the single BD_AGRO export located for a client folder.
type ExportFile struct {
	Folder Folder
	Path   string
}

func (f ExportFile) ClientID() int64 {
	return f.Folder.ID
}

func (f ExportFile) ClientName() string {
	return f.Folder.Name
}

// Selection is the set of client ids a run works on. The zero value selects
// nothing.
type Selection struct {
	ids map[int64]struct{}
}

func NewSelection(ids ...int64) Selection {
	s := Selection{ids: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// ParseSelection reads a comma or whitespace separated list of ids.
func ParseSelection(raw string) (Selection, error) {
	var ids []int64
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	}) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return Selection{}, err
		}
		ids = append(ids, id)
	}
	return NewSelection(ids...), nil
}

func (s Selection) Contains(id int64) bool {
	_, ok := s.ids[id]
	return ok
}

func (s Selection) Len() int {
	return len(s.ids)
}

func (s Selection) IsEmpty() bool {
	return len(s.ids) == 0
}

// IDs returns the selected ids in ascending order.
func (s Selection) IDs() []int64 {
	out := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
