package domain

import "github.com/yungbote/reqmatch-backend/internal/domain/matching"

type (
	Document             = matching.Document
	Requirement          = matching.Requirement
	Classification       = matching.Classification
	DocumentMatch        = matching.DocumentMatch
	RequirementSyncState = matching.RequirementSyncState
	EvidenceItem         = matching.EvidenceItem
	RawScores            = matching.RawScores
	Confidence           = matching.Confidence
)

var MatchFor = matching.MatchFor

const (
	ClassificationSchemaVersion = matching.ClassificationSchemaVersion

	ConfidenceLow    = matching.ConfidenceLow
	ConfidenceMedium = matching.ConfidenceMedium
	ConfidenceHigh   = matching.ConfidenceHigh

	SyncStatusRunning   = matching.SyncStatusRunning
	SyncStatusSucceeded = matching.SyncStatusSucceeded
	SyncStatusPartial   = matching.SyncStatusPartial
	SyncStatusFailed    = matching.SyncStatusFailed
)
