// internal/domain/models/license.go
package models

import "time"

// LicenseType classifies a console license.
type LicenseType int

const (
	_ LicenseType = iota
	LicenseTrial
	LicenseSubscription
	LicenseEssentials
)

// String returns the lowercase name of the license type.
func (t LicenseType) String() string {
	switch t {
	case LicenseTrial:
		return "trial"
	case LicenseSubscription:
		return "subscription"
	case LicenseEssentials:
		return "essentials"
	default:
		return "unknown"
	}
}

// LicenseInfo is the aggregated license entitlement of the console.
type LicenseInfo struct {
	Company   string      `bson:"company" json:"company"`
	Email     string      `bson:"email" json:"email"`
	Nodes     int         `bson:"nodes" json:"nodes"`
	Type      LicenseType `bson:"type" json:"type"`
	Valid     bool        `bson:"valid" json:"valid"`
	ExpiresAt time.Time   `bson:"expires_at" json:"expiresAt"`
}
