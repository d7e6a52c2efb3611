package models

import (
	"fmt"
	"strings"
	"time"
)

// Revision is one immutable, numbered snapshot of a prompt's text.
// Revisions are append-only; corrections are new revisions.
type Revision struct {
	PromptName  string                 `json:"prompt"`
	Version     int                    `json:"version"`
	Content     string                 `json:"content,omitempty"`
	ContentHash string                 `json:"hash"`
	CreatedAt   time.Time              `json:"created_at"`
	Message     string                 `json:"message,omitempty"`
	Tag         string                 `json:"tag,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Label returns the short display form, e.g. "v3".
func (r *Revision) Label() string {
	return fmt.Sprintf("v%d", r.Version)
}

// PromptInfo is a summary of a tracked prompt for listings.
type PromptInfo struct {
	Name          string    `json:"name"`
	Created       time.Time `json:"created"`
	Tags          []string  `json:"tags,omitempty"`
	LatestVersion int       `json:"latest_version"`
	TotalVersions int       `json:"total_versions"`
	LatestMessage string    `json:"latest_message,omitempty"`
}

// Implement list.Item interface for bubbles list component

// FilterValue returns the value used for filtering in lists
func (p PromptInfo) FilterValue() string {
	return p.Name
}

// Title satisfies the list.Item interface
func (p PromptInfo) Title() string {
	return fmt.Sprintf("%s (v%d)", p.Name, p.LatestVersion)
}

// Description satisfies the list.Item interface
func (p PromptInfo) Description() string {
	var parts []string

	if p.LatestMessage != "" {
		msg := p.LatestMessage
		if len(msg) > 60 {
			msg = msg[:57] + "..."
		}
		parts = append(parts, msg)
	}

	if p.TotalVersions == 1 {
		parts = append(parts, "1 version")
	} else {
		parts = append(parts, fmt.Sprintf("%d versions", p.TotalVersions))
	}

	if len(p.Tags) > 0 {
		parts = append(parts, "Tags: "+strings.Join(p.Tags, ", "))
	}

	return strings.Join(parts, " • ")
}
