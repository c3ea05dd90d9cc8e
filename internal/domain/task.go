package domain

import "time"

// Task is an action item assigned to a room member.
type Task struct {
	ID          string    `json:"task_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedBy   string    `json:"created_by"`
	Timestamp   time.Time `json:"timestamp"`
}

// ExtractedTask is one record returned by the task-extraction service.
type ExtractedTask struct {
	Title          string `json:"task_title"`
	Description    string `json:"task_description"`
	Assignee       string `json:"assignee"`
	AssigneeGithub string `json:"assignee_github"`
	DueDate        string `json:"due_date"`
}
