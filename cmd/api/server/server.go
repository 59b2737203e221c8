package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Tsinling0525/flowc/format/n8n"
	"github.com/Tsinling0525/flowc/infra/n8napi"
	"github.com/Tsinling0525/flowc/logger"
	"github.com/Tsinling0525/flowc/model"
)

const Version = "1.0.0"

const (
	errInvalidFormat  = "Invalid workflow format"
	errCreateWorkflow = "Failed to create workflow in n8n"
)

// WorkflowCreator submits compiled workflows to the automation platform.
type WorkflowCreator interface {
	CreateWorkflow(ctx context.Context, wf n8n.Workflow) (*n8napi.CreatedWorkflow, error)
}

// APIResponse wraps auxiliary endpoint payloads such as /health.
type APIResponse struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// CompileResponse is returned by POST /compile on success.
type CompileResponse struct {
	Status       string            `json:"status"`
	WorkflowID   n8napi.WorkflowID `json:"workflowId"`
	WorkflowName string            `json:"workflowName"`
	Warnings     []string          `json:"warnings,omitempty"`
}

// PreviewResponse is returned by POST /compile/preview.
type PreviewResponse struct {
	Workflow n8n.Workflow         `json:"workflow"`
	Warnings []n8n.UnresolvedEdge `json:"warnings,omitempty"`
}

// ErrorResponse is the body of every failed compile call.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

type handlers struct {
	creator WorkflowCreator
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    map[string]any{"status": "healthy", "timestamp": time.Now().Unix(), "version": Version},
	})
}

// bindWorkflow decodes and checks the request. It writes the 400 response itself
// and returns false when the request must stop.
func bindWorkflow(c *gin.Context) (model.Workflow, bool) {
	log := logger.FromContext(c.Request.Context())

	var req model.CompileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Debug("rejecting undecodable body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: errInvalidFormat})
		return model.Workflow{}, false
	}
	if err := req.Workflow.Validate(); err != nil {
		log.Debug("rejecting workflow", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: errInvalidFormat})
		return model.Workflow{}, false
	}
	return *req.Workflow, true
}

func compile(c *gin.Context, wf model.Workflow) n8n.Result {
	res := n8n.Compile(wf)
	log := logger.FromContext(c.Request.Context())
	for _, u := range res.Unresolved {
		log.Warn("dropped edge with unknown endpoint", "edge", u.Index, "source", u.Source.String(), "target", u.Target.String())
	}
	log.Debug("workflow compiled", "name", res.Workflow.Name, "nodes", len(res.Workflow.Nodes), "connections", len(res.Workflow.Connections))
	return res
}

func (h *handlers) handleCompile(c *gin.Context) {
	wf, ok := bindWorkflow(c)
	if !ok {
		return
	}
	res := compile(c, wf)

	created, err := h.creator.CreateWorkflow(c.Request.Context(), res.Workflow)
	if err != nil {
		body := ErrorResponse{Error: errCreateWorkflow, Details: err.Error()}
		var rerr *n8napi.RemoteError
		if errors.As(err, &rerr) {
			body.Details = rerr.Details()
		}
		c.JSON(http.StatusInternalServerError, body)
		return
	}

	resp := CompileResponse{
		Status:       "success",
		WorkflowID:   created.ID,
		WorkflowName: created.Name,
	}
	for _, u := range res.Unresolved {
		resp.Warnings = append(resp.Warnings, u.String())
	}
	c.JSON(http.StatusOK, resp)
}

func handlePreview(c *gin.Context) {
	wf, ok := bindWorkflow(c)
	if !ok {
		return
	}
	res := compile(c, wf)
	c.JSON(http.StatusOK, PreviewResponse{Workflow: res.Workflow, Warnings: res.Unresolved})
}

// NewRouter builds the Gin router with routes and middleware
func NewRouter(creator WorkflowCreator, log logger.Logger) *gin.Engine {
	if log == nil {
		log = logger.Default()
	}
	h := &handlers{creator: creator}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware(log))
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	r.GET("/health", handleHealth)
	r.POST("/compile", h.handleCompile)
	r.POST("/compile/preview", handlePreview)

	return r
}
