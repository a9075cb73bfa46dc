package domain

// Team, Project, Task and Comment mirror the backend collaborator payloads.
// The portal forwards them without interpreting anything beyond IDs.

type Team struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   Timestamp `json:"created_at"`
}

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
)

type Project struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	TeamID      string        `json:"team_id"`
	ManagerID   string        `json:"manager_id"`
	Status      ProjectStatus `json:"status"`
	StartDate   Timestamp     `json:"start_date"`
	EndDate     Timestamp     `json:"end_date"`
	CreatedAt   Timestamp     `json:"created_at"`
}

type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
)

type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	ProjectID   string     `json:"project_id"`
	AssignedTo  string     `json:"assigned_to"`
	Status      TaskStatus `json:"status"`
	Priority    string     `json:"priority,omitempty"`
	DueDate     Timestamp  `json:"due_date"`
	CreatedAt   Timestamp  `json:"created_at"`
}

type Comment struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"task_id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name,omitempty"`
	Message    string    `json:"message"`
	CreatedAt  Timestamp `json:"created_at"`
}

// FindTask returns the task with the given id from a listing, or a
// *NotFoundError when the listing does not contain it.
func FindTask(tasks []Task, id string) (*Task, error) {
	for i := range tasks {
		if tasks[i].ID == id {
			t := tasks[i]
			return &t, nil
		}
	}
	return nil, &NotFoundError{Kind: "task", ID: id}
}
