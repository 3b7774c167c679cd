package pipeline

import "sync/atomic"

// Stats tracks cumulative pipeline activity.
type Stats struct {
	sessions          atomic.Uint64
	restarts          atomic.Uint64
	transcriptUpdates atomic.Uint64
	settles           atomic.Uint64
	recognitionErrors atomic.Uint64
	translationErrors atomic.Uint64
}

// StatsSnapshot is an immutable view of Stats plus dispatcher totals.
type StatsSnapshot struct {
	Sessions          uint64 `json:"sessions"`
	Restarts          uint64 `json:"restarts"`
	TranscriptUpdates uint64 `json:"transcript_updates"`
	Settles           uint64 `json:"settles"`
	Dispatched        uint64 `json:"dispatched"`
	Applied           uint64 `json:"applied"`
	StaleDropped      uint64 `json:"stale_dropped"`
	RecognitionErrors uint64 `json:"recognition_errors"`
	TranslationErrors uint64 `json:"translation_errors"`
}

func (s *Stats) snapshot() StatsSnapshot {
	return StatsSnapshot{
		Sessions:          s.sessions.Load(),
		Restarts:          s.restarts.Load(),
		TranscriptUpdates: s.transcriptUpdates.Load(),
		Settles:           s.settles.Load(),
		RecognitionErrors: s.recognitionErrors.Load(),
		TranslationErrors: s.translationErrors.Load(),
	}
}
