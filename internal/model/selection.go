package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// SelectionKind tags a GroupSelection variant.
type SelectionKind string

const (
	SelectionAll     SelectionKind = "all"
	SelectionPattern SelectionKind = "pattern"
)

// GroupSelection narrows a group set to its participating groups: either all
// groups or only those whose name matches a restricted glob pattern, in both
// cases minus explicit exclusions.
//
// Stored form (§ persisted state):
//
//	{"kind":"all","excluded_group_ids":[...]}
//	{"kind":"pattern","pattern":"...","excluded_group_ids":[...]}
type GroupSelection struct {
	Kind             SelectionKind
	Pattern          string
	ExcludedGroupIDs []string
}

// SelectAll is the zero-exclusion all-groups selection.
func SelectAll() GroupSelection {
	return GroupSelection{Kind: SelectionAll}
}

type selectionJSON struct {
	Kind             SelectionKind `json:"kind"`
	Pattern          string        `json:"pattern,omitempty"`
	ExcludedGroupIDs []string      `json:"excluded_group_ids"`
}

func (s GroupSelection) MarshalJSON() ([]byte, error) {
	kind := s.Kind
	if kind == "" {
		kind = SelectionAll
	}
	excluded := s.ExcludedGroupIDs
	if excluded == nil {
		excluded = []string{}
	}
	return json.Marshal(selectionJSON{Kind: kind, Pattern: s.Pattern, ExcludedGroupIDs: excluded})
}

func (s *GroupSelection) UnmarshalJSON(data []byte) error {
	var raw selectionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Kind {
	case SelectionAll, SelectionPattern:
	case "":
		raw.Kind = SelectionAll
	default:
		return fmt.Errorf("unknown selection kind %q", raw.Kind)
	}
	s.Kind = raw.Kind
	s.Pattern = raw.Pattern
	s.ExcludedGroupIDs = raw.ExcludedGroupIDs
	return nil
}

// ConnectionKind tags a GroupSetConnection variant.
type ConnectionKind string

const (
	ConnectionSystem ConnectionKind = "system"
	ConnectionImport ConnectionKind = "import"
	ConnectionLms    ConnectionKind = "lms"
)

// GroupSetConnection records where a group set came from: maintained by the
// system, imported from a CSV file, or linked to an LMS group category.
//
// Stored forms:
//
//	{"kind":"system","system_type":"individual_students"|"staff"}
//	{"kind":"import","source_filename":"...","source_path":"...","last_updated":"<ISO-8601-UTC>"}
//	{"kind":"lms","lms_group_set_id":"..."}
type GroupSetConnection struct {
	Kind ConnectionKind

	// system
	SystemType SystemSetType

	// import
	SourceFilename string
	SourcePath     string
	LastUpdated    time.Time

	// lms
	LmsGroupSetID string
}

type connectionJSON struct {
	Kind           ConnectionKind `json:"kind"`
	SystemType     SystemSetType  `json:"system_type,omitempty"`
	SourceFilename string         `json:"source_filename,omitempty"`
	SourcePath     string         `json:"source_path,omitempty"`
	LastUpdated    string         `json:"last_updated,omitempty"`
	LmsGroupSetID  string         `json:"lms_group_set_id,omitempty"`
}

func (c GroupSetConnection) MarshalJSON() ([]byte, error) {
	raw := connectionJSON{
		Kind:           c.Kind,
		SystemType:     c.SystemType,
		SourceFilename: c.SourceFilename,
		SourcePath:     c.SourcePath,
		LmsGroupSetID:  c.LmsGroupSetID,
	}
	if !c.LastUpdated.IsZero() {
		raw.LastUpdated = c.LastUpdated.UTC().Format(time.RFC3339)
	}
	return json.Marshal(raw)
}

func (c *GroupSetConnection) UnmarshalJSON(data []byte) error {
	var raw connectionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Kind {
	case ConnectionSystem, ConnectionImport, ConnectionLms:
	default:
		return fmt.Errorf("unknown connection kind %q", raw.Kind)
	}
	c.Kind = raw.Kind
	c.SystemType = raw.SystemType
	c.SourceFilename = raw.SourceFilename
	c.SourcePath = raw.SourcePath
	c.LmsGroupSetID = raw.LmsGroupSetID
	if raw.LastUpdated != "" {
		ts, err := time.Parse(time.RFC3339, raw.LastUpdated)
		if err != nil {
			return fmt.Errorf("invalid last_updated %q: %w", raw.LastUpdated, err)
		}
		c.LastUpdated = ts
	} else {
		c.LastUpdated = time.Time{}
	}
	return nil
}

// IsSystem reports whether the connection marks a system set of the given
// type.
func (c *GroupSetConnection) IsSystem(t SystemSetType) bool {
	return c != nil && c.Kind == ConnectionSystem && c.SystemType == t
}
