// internal/app/features/status/handler.go
package status

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/dalemusser/shipyard/internal/app/system/auditlog"
	"github.com/dalemusser/shipyard/internal/app/system/authz"
	"github.com/dalemusser/shipyard/internal/app/system/httperr"
	"github.com/dalemusser/shipyard/internal/app/system/timeouts"
	"github.com/dalemusser/shipyard/internal/domain/models"
	"go.uber.org/zap"
)

// BackupStore holds the latest backup run. *backupstore.Store implements it.
type BackupStore interface {
	Get(ctx context.Context) (models.BackupStatus, error)
	Record(ctx context.Context, st models.BackupStatus) (models.BackupStatus, error)
}

// LicenseStore returns the aggregated license, nil when none is installed.
type LicenseStore interface {
	Get(ctx context.Context) (*models.LicenseInfo, error)
}

// NodeCounter sums the nodes of all managed environments.
type NodeCounter interface {
	NodesCount(ctx context.Context) (int, error)
}

// KubeTokens mints per-user Kubernetes proxy tokens.
type KubeTokens interface {
	GetOrCreate(userID string) string
}

// Handler serves the status endpoints behind the console's home panels.
type Handler struct {
	Backups  BackupStore
	Licenses LicenseStore
	Nodes    NodeCounter
	Kube     KubeTokens
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(backups BackupStore, licenses LicenseStore, nodes NodeCounter, kube KubeTokens, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Backups:  backups,
		Licenses: licenses,
		Nodes:    nodes,
		Kube:     kube,
		AuditLog: audit,
		Log:      logger,
	}
}

type nodesResponse struct {
	Nodes int `json:"nodes"`
}

type kubeTokenResponse struct {
	Token string `json:"token"`
}

// ServeBackupStatus handles GET /api/backup/status.
func (h *Handler) ServeBackupStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	st, err := h.Backups.Get(ctx)
	if err != nil {
		h.Log.Error("status: load backup status", zap.Error(err))
		httperr.Write(w, http.StatusInternalServerError, "Unable to retrieve backup status", err)
		return
	}
	httperr.JSON(w, http.StatusOK, st)
}

// ServeRecordBackup handles PUT /api/backup/status (admin). The backup
// runner reports each run here.
func (h *Handler) ServeRecordBackup(w http.ResponseWriter, r *http.Request) {
	var st models.BackupStatus
	if err := json.NewDecoder(io.LimitReader(r.Body, 16<<10)).Decode(&st); err != nil {
		httperr.Write(w, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	saved, err := h.Backups.Record(ctx, st)
	if err != nil {
		h.Log.Error("status: record backup status", zap.Error(err))
		httperr.Write(w, http.StatusInternalServerError, "Unable to persist backup status", err)
		return
	}
	if caller, ok := authz.CallerFrom(r); ok {
		h.AuditLog.BackupStatusUpdated(ctx, r, caller.UserID, saved.Failed)
	}
	httperr.JSON(w, http.StatusOK, saved)
}

// ServeLicenseInfo handles GET /api/licenses/info.
func (h *Handler) ServeLicenseInfo(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	info, err := h.Licenses.Get(ctx)
	if err != nil {
		h.Log.Error("status: load license info", zap.Error(err))
		httperr.Write(w, http.StatusInternalServerError, "Unable to retrieve license info", err)
		return
	}
	if info == nil {
		httperr.Write(w, http.StatusNotFound, "No license installed", nil)
		return
	}
	httperr.JSON(w, http.StatusOK, info)
}

// ServeNodesCount handles GET /api/system/nodes.
func (h *Handler) ServeNodesCount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.Nodes.NodesCount(ctx)
	if err != nil {
		h.Log.Error("status: count nodes", zap.Error(err))
		httperr.Write(w, http.StatusInternalServerError, "Unable to count nodes", err)
		return
	}
	httperr.JSON(w, http.StatusOK, nodesResponse{Nodes: n})
}

// ServeKubernetesToken handles GET /api/kubernetes/token.
func (h *Handler) ServeKubernetesToken(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.CallerFrom(r)
	if !ok {
		httperr.Write(w, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}
	httperr.JSON(w, http.StatusOK, kubeTokenResponse{Token: h.Kube.GetOrCreate(caller.UserID.Hex())})
}
