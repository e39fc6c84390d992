package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/sitemirror/internal/metrics"
	"github.com/JakeFAU/sitemirror/internal/mirror"
	"github.com/JakeFAU/sitemirror/internal/session"
	"github.com/JakeFAU/sitemirror/internal/users"
)

const publishTimeout = 5 * time.Second

func (s *Server) runTask(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		s.writeBodyError(w, err)
		return
	}
	task, err := mirror.DecodeTask(body)
	if err != nil {
		metrics.ObserveTask("unknown", mirror.Category(err))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	taskType := string(task.Type())
	result, err := s.executor.Execute(r.Context(), task)
	if err != nil {
		metrics.ObserveTask(taskType, mirror.Category(err))
		s.logger.Error("task failed",
			zap.String("task_type", taskType),
			zap.String("url", task.TargetURL()),
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.ObserveTask(taskType, mirror.Category(nil))
	if task.Type() == mirror.TaskTypeParse {
		metrics.ObserveAssets(task.TargetURL(), len(result.Assets))
		s.announceAssets(r.Context(), task.TargetURL(), result.Assets)
	}
	writeJSON(w, http.StatusOK, result)
}

// announceAssets publishes discovered assets. Failures are logged and counted
// but never change the task outcome.
func (s *Server) announceAssets(ctx context.Context, pageURL string, assets []string) {
	if s.publisher == nil || len(assets) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	batch := mirror.AssetBatch{
		PageURL:      pageURL,
		Assets:       assets,
		DiscoveredAt: s.clock.Now(),
	}
	id, err := s.publisher.Publish(ctx, s.topic, batch)
	if err != nil {
		metrics.ObservePublishFailure()
		s.logger.Warn("asset batch publish failed",
			zap.String("page_url", pageURL),
			zap.Int("assets", len(assets)),
			zap.Error(err),
		)
		return
	}
	s.logger.Debug("asset batch published",
		zap.String("page_url", pageURL),
		zap.String("message_id", id),
	)
}

func (s *Server) startSession(w http.ResponseWriter, _ *http.Request) {
	sess, err := s.sessions.Start()
	switch {
	case errors.Is(err, session.ErrAlreadyActive):
		writeError(w, http.StatusNotAcceptable, err.Error())
		return
	case err != nil:
		s.logger.Error("start session failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.SetSessionActive(true)
	s.logger.Info("archival session started", zap.String("path", sess.Path))
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) endSession(w http.ResponseWriter, _ *http.Request) {
	sess, err := s.sessions.End()
	switch {
	case errors.Is(err, session.ErrNotActive):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		s.logger.Error("end session failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.SetSessionActive(false)
	s.logger.Info("archival session ended", zap.String("path", sess.Path))
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) currentSession(w http.ResponseWriter, _ *http.Request) {
	sess, err := s.sessions.Current()
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type createUserRequest struct {
	Username string `json:"username"`
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		s.writeBodyError(w, err)
		return
	}
	var req createUserRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	user, err := s.users.Create(r.Context(), req.Username)
	switch {
	case errors.Is(err, users.ErrInvalidUsername):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.logger.Error("create user failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	list, err := s.users.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if list == nil {
		list = []users.User{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	reader := r.Body
	if limit := s.cfg.HTTP.MaxBodyBytes; limit > 0 {
		reader = http.MaxBytesReader(w, r.Body, limit)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func (s *Server) writeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	writeError(w, http.StatusBadRequest, "unreadable request body")
}
