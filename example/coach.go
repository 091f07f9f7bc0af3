package main

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/jpalmerr/daystatus"
)

// coachMessages pairs each status with what a coach might write.
var coachMessages = map[daystatus.Status]string{
	daystatus.StatusScheduled: "",
	daystatus.StatusCancelled: "Thunderstorm warning",
	daystatus.StatusIndoor:    "Rain, we meet in hall B",
	daystatus.StatusPostponed: "Pitch maintenance, starting 30 minutes later",
}

// RunCoach cycles today's status through every status, waiting 20-60
// seconds between changes, until ctx is cancelled.
func RunCoach(ctx context.Context, st *daystatus.Store, logger *slog.Logger) {
	defs := daystatus.StatusDefinitions()
	idx := 0

	for {
		wait := time.Duration(20+rand.Intn(41)) * time.Second
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		idx = (idx + 1) % len(defs)
		status := defs[idx].Key
		in := daystatus.RecordInput{
			GlobalStatus:  status,
			GlobalMessage: coachMessages[status],
		}
		// the kids course is never postponed; it is cancelled instead
		if status == daystatus.StatusPostponed {
			in.Courses = map[string]daystatus.CourseInput{
				"kids": {Status: daystatus.StatusCancelled, Message: "Too late for the kids group"},
			}
		}

		if res := st.Save(ctx, in, ""); !res.Success {
			logger.Warn("coach update failed", "errors", res.Errors)
			continue
		}
		logger.Info("coach changed today's status", "status", status)
	}
}
