package model

import "time"

// FlagTarget names the kind of row a flag points at.
type FlagTarget string

const (
	FlagTargetArticle FlagTarget = "article"
	FlagTargetComment FlagTarget = "comment"
)

// Valid reports whether t is one of the known targets.
func (t FlagTarget) Valid() bool {
	return t == FlagTargetArticle || t == FlagTargetComment
}

// Flag is a moderation marker. An admin may delete an article someone else
// wrote only while at least one flag is outstanding against it.
type Flag struct {
	ID         string     `json:"id"`
	TargetType FlagTarget `json:"targetType"`
	TargetID   string     `json:"targetId"`
	FlaggedBy  string     `json:"flaggedBy"`
	Reason     string     `json:"reason"`
	CreatedOn  time.Time  `json:"createdOn"`
}
