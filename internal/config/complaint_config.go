package config

import "time"

const (
	// Points
	SubmissionPoints    = 10
	AwardRetryLimit     = 20
	AwardRetrySchedule  = "0 */5 * * * *"
	AwardRetryBatchSize = 50

	// Attachments
	MaxPhotoSizeMB   = 5
	MaxVoiceSizeMB   = 10
	UploadPrefix     = "complaints"
	UploadRandLength = 9
	UploadCacheAge   = 3600
	VoiceMemoName    = "voice-memo.wav"

	// Tracking codes
	TrackingPrefix       = "WS"
	TrackingRandLength   = 3
	TrackingCodeAttempts = 8

	// Titles
	TitleDescriptionRunes = 50

	// Submission guard
	SubmissionLockTTL = 2 * time.Minute

	// Lists
	RecentComplaintsLimit = 5
	ActivityWindowDays    = 7
	DefaultAnalyticsDays  = 30
)
