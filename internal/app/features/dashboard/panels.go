// internal/app/features/dashboard/panels.go
package dashboard

import (
	"github.com/dalemusser/shipyard/internal/app/system/query"
	"github.com/dalemusser/shipyard/internal/domain/models"
)

// isoDate matches the date format used across the console.
const isoDate = "2006-01-02"

// BackupPanel is shown when the latest automated backup failed.
type BackupPanel struct {
	FailedAt string
	Message  string
}

// BackupFailedPanel returns the panel, or nil when the status did not load
// or the last backup succeeded.
func BackupFailedPanel(res query.Result[models.BackupStatus]) *BackupPanel {
	if !res.OK || !res.Data.Failed {
		return nil
	}
	return &BackupPanel{
		FailedAt: res.Data.TimestampUTC.UTC().Format(isoDate),
		Message:  res.Data.Message,
	}
}

// IntegratedLicense pairs the license with the nodes it covers.
type IntegratedLicense struct {
	LicenseInfo models.LicenseInfo
	UsedNodes   int
}

// OverLimit reports whether more nodes are in use than licensed.
func (l IntegratedLicense) OverLimit() bool {
	return l.UsedNodes > l.LicenseInfo.Nodes
}

// IntegratedLicenseInfo combines the license and node count. It is nil when
// the license failed to load, none is installed, or it is a trial. A failed
// node count counts as zero nodes.
func IntegratedLicenseInfo(license query.Result[*models.LicenseInfo], nodes query.Result[int]) *IntegratedLicense {
	if !license.OK || license.Data == nil || license.Data.Type == models.LicenseTrial {
		return nil
	}
	used := 0
	if nodes.OK {
		used = nodes.Data
	}
	return &IntegratedLicense{LicenseInfo: *license.Data, UsedNodes: used}
}
