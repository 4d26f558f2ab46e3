package workflow

import (
	"fmt"

	"github.com/yukikurage/taskflow-api/internal/constants"
	"github.com/yukikurage/taskflow-api/internal/models"
)

func entry(action models.HistoryAction, actor *models.User, description string) models.TaskHistory {
	return models.TaskHistory{Action: action, ActorID: actor.ID, Description: description}
}

// Created is the history row for a new task.
func Created(task *models.Task, actor *models.User) models.TaskHistory {
	return entry(models.ActionCreated, actor, fmt.Sprintf("Task '%s' was created", task.Title))
}

// Commented is the history row for a new comment, quoting its start.
func Commented(text string, actor *models.User) models.TaskHistory {
	return entry(models.ActionCommented, actor, "Comment added: "+Preview(text, constants.CommentPreviewLength))
}

// AttachmentAdded is the history row for an uploaded file.
func AttachmentAdded(filename string, actor *models.User) models.TaskHistory {
	return entry(models.ActionUpdated, actor, "File attachment added: "+filename)
}

// TimeLogged is the history row for a time entry.
func TimeLogged(e *models.TimeEntry, actor *models.User) models.TaskHistory {
	return entry(models.ActionUpdated, actor,
		fmt.Sprintf("Time logged: %s hours on %s", e.Hours.StringFixed(2), e.SpentOn.Format(dateLayout)))
}

// Preview cuts text to n runes, marking the cut with "...".
func Preview(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
