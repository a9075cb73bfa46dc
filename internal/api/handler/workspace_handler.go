package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/projecthub/portal/internal/core/domain"
	"github.com/projecthub/portal/internal/core/ports"
)

// WorkspaceHandler serves the team, project, task and comment pages.
type WorkspaceHandler struct {
	service  ports.WorkspaceService
	sessions Sessions
}

func NewWorkspaceHandler(service ports.WorkspaceService, sessions Sessions) *WorkspaceHandler {
	return &WorkspaceHandler{service: service, sessions: sessions}
}

// settle turns the errors every workspace call shares into responses.
func (h *WorkspaceHandler) settle(c echo.Context, sid string, err error) error {
	switch {
	case errors.Is(err, domain.ErrSessionExpired):
		return expireSession(c, h.sessions, sid)
	case errors.Is(err, domain.ErrDiscarded):
		return nil
	default:
		return err
	}
}

func bindValid(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return nil
}

// Teams lists teams.
//
// @Summary      List teams
// @Tags         teams
// @Produce      json
// @Success      200  {object}  teamList
// @Failure      302  "not logged in, redirected to /login"
// @Router       /teams [get]
func (h *WorkspaceHandler) Teams(c echo.Context) error {
	sid, token, _, err := ctxSession(c)
	if err != nil {
		return err
	}
	teams, notice, err := h.service.Teams(c.Request().Context(), token)
	if err != nil {
		return h.settle(c, sid, err)
	}
	return c.JSON(http.StatusOK, teamList{Items: teams, Notice: notice})
}

// CreateTeam creates a team. Admins only.
//
// @Summary      Create a team
// @Tags         teams
// @Accept       json
// @Produce      json
// @Param        body  body      teamRequest  true  "Team"
// @Success      201   {object}  domain.Team
// @Failure      422   {object}  errorResponse
// @Failure      502   {object}  errorResponse
// @Router       /teams [post]
func (h *WorkspaceHandler) CreateTeam(c echo.Context) error {
	sid, token, _, err := ctxSession(c)
	if err != nil {
		return err
	}
	var req teamRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	team, err := h.service.CreateTeam(c.Request().Context(), token, ports.TeamInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return h.settle(c, sid, err)
	}
	return c.JSON(http.StatusCreated, team)
}

// Projects lists projects, optionally filtered by status.
//
// @Summary      List projects
// @Tags         projects
// @Produce      json
// @Param        status  query     string  false  "active, completed or all"
// @Success      200     {object}  projectList
// @Failure      302     "not logged in, redirected to /login"
// @Router       /projects [get]
func (h *WorkspaceHandler) Projects(c echo.Context) error {
	sid, token, _, err := ctxSession(c)
	if err != nil {
		return err
	}
	projects, notice, err := h.service.Projects(c.Request().Context(), token, c.QueryParam("status"))
	if err != nil {
		return h.settle(c, sid, err)
	}
	return c.JSON(http.StatusOK, projectList{Items: projects, Notice: notice})
}

// CreateProject creates a project. Admins and managers only.
//
// @Summary      Create a project
// @Tags         projects
// @Accept       json
// @Produce      json
// @Param        body  body      projectRequest  true  "Project"
// @Success      201   {object}  domain.Project
// @Failure      422   {object}  errorResponse
// @Failure      502   {object}  errorResponse
// @Router       /projects [post]
func (h *WorkspaceHandler) CreateProject(c echo.Context) error {
	sid, token, _, err := ctxSession(c)
	if err != nil {
		return err
	}
	var req projectRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	project, err := h.service.CreateProject(c.Request().Context(), token, ports.ProjectInput{
		Name:        req.Name,
		Description: req.Description,
		TeamID:      req.TeamID,
		Status:      req.Status,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	})
	if err != nil {
		return h.settle(c, sid, err)
	}
	return c.JSON(http.StatusCreated, project)
}

// Tasks lists tasks, optionally filtered by status.
//
// @Summary      List tasks
// @Tags         tasks
// @Produce      json
// @Param        status  query     string  false  "todo, in_progress, done or all"
// @Success      200     {object}  taskList
// @Failure      302     "not logged in, redirected to /login"
// @Router       /tasks [get]
func (h *WorkspaceHandler) Tasks(c echo.Context) error {
	sid, token, _, err := ctxSession(c)
	if err != nil {
		return err
	}
	tasks, notice, err := h.service.Tasks(c.Request().Context(), token, c.QueryParam("status"))
	if err != nil {
		return h.settle(c, sid, err)
	}
	return c.JSON(http.StatusOK, taskList{Items: tasks, Notice: notice})
}

// Task shows one task.
//
// @Summary      Get a task
// @Tags         tasks
// @Produce      json
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  domain.Task
// @Failure      404  {object}  errorResponse
// @Failure      502  {object}  errorResponse
// @Router       /tasks/{id} [get]
func (h *WorkspaceHandler) Task(c echo.Context) error {
	sid, token, _, err := ctxSession(c)
	if err != nil {
		return err
	}
	task, err := h.service.Task(c.Request().Context(), token, c.Param("id"))
	if err != nil {
		return h.settle(c, sid, err)
	}
	return c.JSON(http.StatusOK, task)
}

// UpdateTask changes a task's fields.
//
// @Summary      Update a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        id    path      string             true  "Task ID"
// @Param        body  body      taskUpdateRequest  true  "Fields to change"
// @Success      200   {object}  domain.Task
// @Failure      422   {object}  errorResponse
// @Failure      502   {object}  errorResponse
// @Router       /tasks/{id} [put]
func (h *WorkspaceHandler) UpdateTask(c echo.Context) error {
	sid, token, _, err := ctxSession(c)
	if err != nil {
		return err
	}
	var req taskUpdateRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	task, err := h.service.UpdateTask(c.Request().Context(), token, c.Param("id"), ports.TaskUpdateInput{
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
		Status:      req.Status,
		DueDate:     req.DueDate,
	})
	if err != nil {
		return h.settle(c, sid, err)
	}
	return c.JSON(http.StatusOK, task)
}

// Comments lists the comment thread of a task.
//
// @Summary      List task comments
// @Tags         tasks
// @Produce      json
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  commentList
// @Router       /tasks/{id}/comments [get]
func (h *WorkspaceHandler) Comments(c echo.Context) error {
	sid, token, _, err := ctxSession(c)
	if err != nil {
		return err
	}
	comments, notice, err := h.service.Comments(c.Request().Context(), token, c.Param("id"))
	if err != nil {
		return h.settle(c, sid, err)
	}
	return c.JSON(http.StatusOK, commentList{Items: comments, Notice: notice})
}

// AddComment posts a comment on a task.
//
// @Summary      Comment on a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        id    path      string          true  "Task ID"
// @Param        body  body      commentRequest  true  "Comment"
// @Success      201   {object}  domain.Comment
// @Failure      422   {object}  errorResponse
// @Failure      502   {object}  errorResponse
// @Router       /tasks/{id}/comments [post]
func (h *WorkspaceHandler) AddComment(c echo.Context) error {
	sid, token, _, err := ctxSession(c)
	if err != nil {
		return err
	}
	var req commentRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	comment, err := h.service.AddComment(c.Request().Context(), token, c.Param("id"), req.Message)
	if err != nil {
		return h.settle(c, sid, err)
	}
	return c.JSON(http.StatusCreated, comment)
}
