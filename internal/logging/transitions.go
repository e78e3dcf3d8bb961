package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// #region log-transition
// LogTransition writes one entry to the transition_log table.
func LogTransition(db *sql.DB, entry TransitionEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO transition_log (session_id, checkpoint_id, trigger_type, from_phase, to_phase, topic_index, detail_json, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.SessionID,
		nullIfEmpty(entry.CheckpointID),
		entry.TriggerType,
		entry.FromPhase,
		entry.ToPhase,
		entry.TopicIndex,
		nullIfEmpty(entry.DetailJSON),
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log transition: %w", err)
	}
	return nil
}
// #endregion log-transition

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
