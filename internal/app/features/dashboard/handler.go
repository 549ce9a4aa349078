// internal/app/features/dashboard/handler.go
package dashboard

import (
	"context"
	"net/http"

	"github.com/dalemusser/shipyard/internal/app/system/authz"
	"github.com/dalemusser/shipyard/internal/app/system/query"
	"github.com/dalemusser/shipyard/internal/app/system/timeouts"
	"github.com/dalemusser/shipyard/internal/app/system/viewdata"
	"github.com/dalemusser/shipyard/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// BackupSource returns the latest backup status.
type BackupSource interface {
	Get(ctx context.Context) (models.BackupStatus, error)
}

// LicenseSource returns the installed license, nil when none.
type LicenseSource interface {
	Get(ctx context.Context) (*models.LicenseInfo, error)
}

// NodeCounter sums the nodes of all managed environments.
type NodeCounter interface {
	NodesCount(ctx context.Context) (int, error)
}

type Handler struct {
	Backups  BackupSource
	Licenses LicenseSource
	Nodes    NodeCounter
	Settings viewdata.SettingsSource
	Log      *zap.Logger
}

func NewHandler(backups BackupSource, licenses LicenseSource, nodes NodeCounter, settings viewdata.SettingsSource, logger *zap.Logger) *Handler {
	return &Handler{
		Backups:  backups,
		Licenses: licenses,
		Nodes:    nodes,
		Settings: settings,
		Log:      logger,
	}
}

type panelsData struct {
	BackupFailed *BackupPanel
	License      *IntegratedLicense
	IsAdmin      bool
}

type dashboardData struct {
	viewdata.BaseVM
	Panels panelsData
}

// loadPanels fetches the three status sources concurrently. Failures are
// logged at debug level and hide the affected panel.
func (h *Handler) loadPanels(r *http.Request) panelsData {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	backup := query.Async(ctx, h.Log, "backup_status", h.Backups.Get)
	license := query.Async(ctx, h.Log, "license_info", h.Licenses.Get)
	nodes := query.Async(ctx, h.Log, "nodes_count", h.Nodes.NodesCount)

	return panelsData{
		BackupFailed: BackupFailedPanel(backup()),
		License:      IntegratedLicenseInfo(license(), nodes()),
		IsAdmin:      authz.IsAdmin(r),
	}
}

// ServeDashboard handles GET /dashboard.
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	if _, _, _, ok := authz.UserCtx(r); !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	data := dashboardData{
		BaseVM: viewdata.NewBaseVM(r, h.Settings, "Home", "/"),
		Panels: h.loadPanels(r),
	}
	templates.Render(w, r, "dashboard", data)
}

// ServePanels handles GET /dashboard/panels. The dashboard page reloads
// its status panels from here every minute.
func (h *Handler) ServePanels(w http.ResponseWriter, r *http.Request) {
	templates.RenderSnippet(w, "dashboard_panels", h.loadPanels(r))
}
