package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chalktalk/lesson-controller/internal/content"
	"github.com/chalktalk/lesson-controller/internal/lesson"
	"github.com/chalktalk/lesson-controller/internal/listener"
	"github.com/chalktalk/lesson-controller/internal/loop"
	"github.com/chalktalk/lesson-controller/internal/render"
	"github.com/chalktalk/lesson-controller/internal/session"
)

// #region main
func main() {
	dbPath := envOr("LESSON_DB", "lesson_sessions.db")
	contentAddr := os.Getenv("CONTENT_ADDR")
	redisAddr := os.Getenv("REDIS_ADDR")

	store, err := session.NewStore(dbPath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	var source content.Source
	if contentAddr != "" {
		client, err := content.NewClient(contentAddr)
		if err != nil {
			log.Fatalf("failed to connect to content planner at %s: %v", contentAddr, err)
		}
		defer client.Close()
		source = client
	} else {
		log.Println("CONTENT_ADDR not set, using canned content source")
		source = content.NewCannedSource()
	}

	var sink render.Sink = render.LogSink{}
	if redisAddr != "" {
		bus, err := render.NewBus(redisAddr, envOr("REDIS_CHANNEL", "render"))
		if err != nil {
			log.Fatalf("failed to connect to render bus at %s: %v", redisAddr, err)
		}
		defer bus.Close()
		sink = bus
	}

	syllabus := []session.TopicRef{
		{ID: "variables", Title: "variables and types"},
		{ID: "loops", Title: "for loops"},
	}
	sessionID := envOr("SESSION_ID", uuid.New().String())

	sctx := session.NewContext(sessionID, syllabus)
	if saved, err := store.LoadContext(sessionID); err == nil {
		log.Printf("resuming session %s at phase %s topic %d", sessionID, saved.CurrentPhase, saved.CurrentTopicIndex)
		sctx = saved
	}

	ctrl := loop.New(loop.DefaultConfig(), source, sink, store, sctx)
	if err := ctrl.Begin(); err != nil {
		log.Fatalf("failed to request opening block: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := ctrl.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("control loop exited: %v", err)
		}
	}()

	fmt.Println("Lesson controller ready.")
	fmt.Printf("  DB: %s | Session: %s\n", dbPath, sessionID)
	fmt.Println("Commands: speak <text> | submit pass|fail|unsure | resume | quit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cmd, rest, _ := strings.Cut(line, " ")

		switch cmd {
		case "speak":
			ctrl.Speech(listener.SpeechEvent{Type: listener.SpeechStarted, AtWallClock: time.Now()})
			ctrl.Speech(listener.SpeechEvent{Type: listener.SpeechEnded, AtWallClock: time.Now(), Utterance: rest})
		case "submit":
			result := lesson.SubmissionResult{}
			switch rest {
			case "pass":
				result.Passed = true
			case "fail":
				result.Feedback = "expected output did not match"
			case "unsure":
				result.Indeterminate = true
			default:
				fmt.Println("usage: submit pass|fail|unsure")
				continue
			}
			ctrl.Submit(result)
		case "resume":
			ctrl.ResumeLesson()
		case "quit", "exit":
			ctrl.End()
			// Give the loop a beat to checkpoint before exiting.
			time.Sleep(200 * time.Millisecond)
			return
		default:
			fmt.Println("unknown command:", cmd)
		}
	}
}
// #endregion main

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
// #endregion helpers
