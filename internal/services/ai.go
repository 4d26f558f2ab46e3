package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/yukikurage/taskflow-api/internal/models"
)

// TaskDrafter turns free text into draft tasks.
type TaskDrafter interface {
	DraftTasks(ctx context.Context, text string, now time.Time) ([]DraftTask, error)
}

// DraftTask is a task suggested from free text. Drafts are never stored
// until the caller creates them.
type DraftTask struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Priority    models.TaskPriority `json:"priority"`
	Category    string              `json:"category"`
	DueDate     *time.Time          `json:"due_date"`
}

// AIService drafts tasks with an OpenAI chat model.
type AIService struct {
	client *openai.Client
	model  string
}

func NewAIService(apiKey string) *AIService {
	return &AIService{
		client: openai.NewClient(apiKey),
		model:  openai.GPT4o,
	}
}

const draftPrompt = `You extract actionable tasks from project notes.

Current time: %s

Notes:
%s

Reply with a JSON object of the form
{"tasks": [{"title": "...", "description": "...", "priority": "low|medium|high|urgent", "category": "...", "due_date": "2025-10-28T23:59:59Z or null"}]}

Rules:
- Keep titles short and imperative.
- Resolve relative deadlines such as "tomorrow" or "next week" against the current time.
- Use null for due_date when the notes give no deadline.
- Return {"tasks": []} when there is nothing to do.`

// DraftTasks asks the model for tasks found in text.
func (s *AIService) DraftTasks(ctx context.Context, text string, now time.Time) ([]DraftTask, error) {
	if s.client == nil {
		return nil, errors.New("OpenAI client not initialized")
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(draftPrompt, now.Format(time.RFC3339), text)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no response from OpenAI")
	}

	return parseDrafts(resp.Choices[0].Message.Content)
}

func parseDrafts(content string) ([]DraftTask, error) {
	var out struct {
		Tasks []DraftTask `json:"tasks"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &out); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w", err)
	}
	return out.Tasks, nil
}
