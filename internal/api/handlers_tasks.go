package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"bindrelay/internal/core"
	"bindrelay/internal/store"
)

type createTaskRequest struct {
	ProducerID string `json:"producerId"`
	BindingID  string `json:"bindingId"`
	AssetID    string `json:"assetId"`
	ContractID string `json:"contractId"`
}

type taskResponse struct {
	ID              string          `json:"id"`
	ProducerID      string          `json:"producerId"`
	BindingID       string          `json:"bindingId"`
	AssetID         string          `json:"assetId"`
	ContractID      string          `json:"contractId"`
	Interval        int             `json:"interval"`
	Expiry          string          `json:"expiry"`
	DataKinds       []core.DataKind `json:"dataType"`
	AssetProperties []string        `json:"assetProperties"`
	Live            bool            `json:"live"`
	CreatedAt       string          `json:"created_at"`
	UpdatedAt       string          `json:"updated_at"`
}

// handleCreateTask is the task creation entrypoint: resolve the contract the
// binding points at, persist a task with the contract's interval, expiry,
// data kinds and allowed attributes, then kick the reconciler so the timer
// starts without waiting for the next cadence.
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.ProducerID = strings.TrimSpace(req.ProducerID)
	req.BindingID = strings.TrimSpace(req.BindingID)
	req.AssetID = strings.TrimSpace(req.AssetID)
	req.ContractID = strings.TrimSpace(req.ContractID)
	if req.ProducerID == "" || req.BindingID == "" || req.AssetID == "" || req.ContractID == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "producerId, bindingId, assetId and contractId are required")
		return
	}

	token, err := s.tokens.Token(r.Context())
	if err != nil {
		s.logger.Error("resolve token", "err", err)
		writeError(w, http.StatusBadGateway, "token_error", "failed to resolve platform token")
		return
	}

	contract, err := s.contracts.GetContract(r.Context(), req.ContractID, token)
	if err != nil {
		s.logger.Error("fetch contract", "contract_id", req.ContractID, "err", err)
		writeError(w, http.StatusBadGateway, "contract_error", "failed to fetch contract")
		return
	}
	if contract.Interval <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "invalid_contract", "contract interval must be positive")
		return
	}
	if contract.Expiry.IsZero() {
		writeError(w, http.StatusUnprocessableEntity, "invalid_contract", "contract has no expiry")
		return
	}

	task := &core.BindingTask{
		ID:              core.NewID(),
		ProducerID:      req.ProducerID,
		BindingID:       req.BindingID,
		AssetID:         req.AssetID,
		ContractID:      req.ContractID,
		Interval:        contract.Interval,
		Expiry:          contract.Expiry.UTC(),
		DataKinds:       contract.DataKinds,
		AssetProperties: contract.AssetProperties,
	}

	if err := s.store.InsertTask(r.Context(), task); err != nil {
		s.logger.Error("insert task", "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to insert task")
		return
	}
	s.scheduler.Kick()

	writeJSON(w, http.StatusCreated, s.taskToResponse(task))
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.store.ListTasks(r.Context())
	if err != nil {
		s.logger.Error("list tasks", "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list tasks")
		return
	}
	resp := make([]taskResponse, 0, len(tasks))
	for _, task := range tasks {
		resp = append(resp, s.taskToResponse(task))
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": resp})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	taskID := chiURLParam(r, "taskID")
	task, err := s.store.GetTask(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "task not found")
			return
		}
		s.logger.Error("get task", "task_id", taskID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load task")
		return
	}
	writeJSON(w, http.StatusOK, s.taskToResponse(task))
}

// handleDeleteTask removes the stored definition only. An already scheduled
// timer keeps firing until its captured expiry; there is no external cancel.
func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	taskID := chiURLParam(r, "taskID")
	if err := s.store.DeleteTask(r.Context(), taskID); err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "task not found")
			return
		}
		s.logger.Error("delete task", "task_id", taskID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to delete task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) taskToResponse(task *core.BindingTask) taskResponse {
	return taskResponse{
		ID:              task.ID,
		ProducerID:      task.ProducerID,
		BindingID:       task.BindingID,
		AssetID:         task.AssetID,
		ContractID:      task.ContractID,
		Interval:        task.Interval,
		Expiry:          task.Expiry.UTC().Format(time.RFC3339),
		DataKinds:       task.DataKinds,
		AssetProperties: task.AssetProperties,
		Live:            s.scheduler.HasTimer(task.ID),
		CreatedAt:       task.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       task.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	payload := map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	}
	writeJSON(w, status, payload)
}
