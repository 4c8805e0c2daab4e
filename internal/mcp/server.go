// Package mcp exposes binding-task operations as MCP tools, mirroring the
// HTTP API for clients that speak the Model Context Protocol.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"bindrelay/internal/api"
	"bindrelay/internal/core"
	"bindrelay/internal/platform"
	"bindrelay/internal/store"
)

// MCPServer handles MCP protocol communication over stdio.
type MCPServer struct {
	store     *store.Store
	scheduler *core.Scheduler
	contracts api.ContractSource
	tokens    platform.TokenSource
	logger    *slog.Logger
}

// NewMCPServer creates a new MCP server instance.
func NewMCPServer(st *store.Store, scheduler *core.Scheduler, contracts api.ContractSource, tokens platform.TokenSource, logger *slog.Logger) *MCPServer {
	return &MCPServer{
		store:     st,
		scheduler: scheduler,
		contracts: contracts,
		tokens:    tokens,
		logger:    logger,
	}
}

// Run starts the MCP server using stdio transport.
func (s *MCPServer) Run() error {
	mcpServer := server.NewMCPServer(
		"bindrelay",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	s.registerTools(mcpServer)
	s.logger.Info("MCP server starting on stdio")
	return server.ServeStdio(mcpServer)
}

func (s *MCPServer) registerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(mcp.NewTool("binding_create_task",
		mcp.WithDescription("Create a persistent binding task. Interval, expiry, data kinds and allowed attributes come from the referenced contract."),
		mcp.WithString("producer_id", mcp.Required(), mcp.Description("Producer company identifier")),
		mcp.WithString("binding_id", mcp.Required(), mcp.Description("Binding identifier")),
		mcp.WithString("asset_id", mcp.Required(), mcp.Description("Asset URN the task extracts from")),
		mcp.WithString("contract_id", mcp.Required(), mcp.Description("Contract identifier")),
	), s.handleCreateTask)

	mcpServer.AddTool(mcp.NewTool("binding_list_tasks",
		mcp.WithDescription("List all persisted binding tasks and whether each currently holds a live timer."),
	), s.handleListTasks)

	mcpServer.AddTool(mcp.NewTool("binding_get_task",
		mcp.WithDescription("Get one binding task with its recent firing history."),
		mcp.WithString("task_id", mcp.Required(), mcp.Description("Task identifier")),
	), s.handleGetTask)

	mcpServer.AddTool(mcp.NewTool("binding_delete_task",
		mcp.WithDescription("Delete a binding task definition. A live timer already scheduled for it keeps firing until its captured expiry."),
		mcp.WithString("task_id", mcp.Required(), mcp.Description("Task identifier")),
	), s.handleDeleteTask)

	mcpServer.AddTool(mcp.NewTool("binding_reconcile",
		mcp.WithDescription("Request an immediate reconciliation pass of the live-timer registry against the task store."),
	), s.handleReconcile)

	s.logger.Info("MCP tools registered", "count", 5)
}

func (s *MCPServer) handleCreateTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	producerID := mcp.ParseString(request, "producer_id", "")
	bindingID := mcp.ParseString(request, "binding_id", "")
	assetID := mcp.ParseString(request, "asset_id", "")
	contractID := mcp.ParseString(request, "contract_id", "")
	if producerID == "" || bindingID == "" || assetID == "" || contractID == "" {
		return mcp.NewToolResultError("producer_id, binding_id, asset_id and contract_id are required"), nil
	}

	token, err := s.tokens.Token(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to resolve platform token: %v", err)), nil
	}
	contract, err := s.contracts.GetContract(ctx, contractID, token)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to fetch contract: %v", err)), nil
	}
	if contract.Interval <= 0 {
		return mcp.NewToolResultError("contract interval must be positive"), nil
	}

	task := &core.BindingTask{
		ID:              core.NewID(),
		ProducerID:      producerID,
		BindingID:       bindingID,
		AssetID:         assetID,
		ContractID:      contractID,
		Interval:        contract.Interval,
		Expiry:          contract.Expiry.UTC(),
		DataKinds:       contract.DataKinds,
		AssetProperties: contract.AssetProperties,
	}
	if err := s.store.InsertTask(ctx, task); err != nil {
		s.logger.Error("insert task", "err", err)
		return mcp.NewToolResultError(fmt.Sprintf("failed to insert task: %v", err)), nil
	}
	s.scheduler.Kick()

	return mcp.NewToolResultText(fmt.Sprintf("Task created\nID: %s\nInterval: %ds\nExpiry: %s",
		task.ID, task.Interval, formatTime(task.Expiry))), nil
}

func (s *MCPServer) handleListTasks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		s.logger.Error("list tasks", "err", err)
		return mcp.NewToolResultError(fmt.Sprintf("failed to list tasks: %v", err)), nil
	}
	if len(tasks) == 0 {
		return mcp.NewToolResultText("No binding tasks found."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d binding tasks:\n\n", len(tasks))
	for _, t := range tasks {
		b.WriteString(s.describeTask(t))
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *MCPServer) handleGetTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID := mcp.ParseString(request, "task_id", "")
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		if err == store.ErrTaskNotFound {
			return mcp.NewToolResultError(fmt.Sprintf("task not found: %s", taskID)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to load task: %v", err)), nil
	}

	var b strings.Builder
	b.WriteString(s.describeTask(task))
	firings, err := s.store.ListFirings(ctx, taskID, 10)
	if err == nil && len(firings) > 0 {
		b.WriteString("\nRecent firings:\n")
		for _, f := range firings {
			fmt.Fprintf(&b, "  %s  %s  relayed=%d", formatTime(f.FiredAt), f.Status, f.RelayedCount)
			if f.Error != nil {
				fmt.Fprintf(&b, "  error=%s", *f.Error)
			}
			b.WriteString("\n")
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *MCPServer) handleDeleteTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID := mcp.ParseString(request, "task_id", "")
	if err := s.store.DeleteTask(ctx, taskID); err != nil {
		if err == store.ErrTaskNotFound {
			return mcp.NewToolResultError(fmt.Sprintf("task not found: %s", taskID)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete task: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Task %s deleted. A live timer, if any, runs until its captured expiry.", taskID)), nil
}

func (s *MCPServer) handleReconcile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.scheduler.Kick()
	return mcp.NewToolResultText("Reconciliation pass requested."), nil
}

func (s *MCPServer) describeTask(t *core.BindingTask) string {
	state := "idle"
	if s.scheduler.HasTimer(t.ID) {
		state = "live"
	}
	kinds := make([]string, 0, len(t.DataKinds))
	for _, k := range t.DataKinds {
		kinds = append(kinds, string(k))
	}
	return fmt.Sprintf("%s [%s]\n  binding: %s\n  asset: %s\n  interval: %ds\n  expiry: %s\n  kinds: %s\n  attributes: %s\n",
		t.ID, state, t.BindingID, t.AssetID, t.Interval, formatTime(t.Expiry),
		strings.Join(kinds, ", "), strings.Join(t.AssetProperties, ", "))
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
