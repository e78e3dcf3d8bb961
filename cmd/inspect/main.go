package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/chalktalk/lesson-controller/internal/session"
	_ "modernc.org/sqlite"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to lesson_sessions.db")
	sessionID := flag.String("session", "", "filter to one session")
	last := flag.Int("last", 20, "show N most recent entries")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/lesson_sessions.db [--session id] [--last N] [--json]")
		os.Exit(2)
	}

	store, err := session.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := run(store.DB(), *sessionID, *last, *jsonOut); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region transitions

type transitionRow struct {
	SessionID  string `json:"session_id"`
	Trigger    string `json:"trigger"`
	FromPhase  string `json:"from_phase"`
	ToPhase    string `json:"to_phase"`
	TopicIndex int    `json:"topic_index"`
	Reason     string `json:"reason,omitempty"`
	CreatedAt  string `json:"created_at"`
}

func run(db *sql.DB, sessionID string, last int, jsonOut bool) error {
	query := `SELECT session_id, trigger_type, from_phase, to_phase, topic_index, reason, created_at
	          FROM transition_log`
	args := []interface{}{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, last)

	rows, err := db.Query(query, args...)
	if err != nil {
		return fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	var out []transitionRow
	for rows.Next() {
		var r transitionRow
		var reason sql.NullString
		if err := rows.Scan(&r.SessionID, &r.Trigger, &r.FromPhase, &r.ToPhase, &r.TopicIndex, &reason, &r.CreatedAt); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		if reason.Valid {
			r.Reason = reason.String
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(out) == 0 {
		fmt.Fprintln(os.Stderr, "no transitions found")
		return nil
	}

	// Reverse for chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("%-10s  %-18s  %-12s  %-12s  %5s  %s\n", "Session", "Trigger", "From", "To", "Topic", "Time")
	for _, r := range out {
		sid := r.SessionID
		if len(sid) > 8 {
			sid = sid[:8]
		}
		fmt.Printf("%-10s  %-18s  %-12s  %-12s  %5d  %s\n", sid, r.Trigger, r.FromPhase, r.ToPhase, r.TopicIndex, r.CreatedAt)
	}
	return nil
}

// #endregion transitions
