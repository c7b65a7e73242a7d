// Package stats computes role-shaped dashboard aggregates. The key set in a
// response depends on who is asking: admins get platform-wide user counts,
// distributors get their retailer network, retailers get only their own
// certificate totals.
package stats

import (
	"context"
	"fmt"

	"github.com/tapecert/tapecert/pkg/auth"
	"github.com/tapecert/tapecert/pkg/authz"
	"github.com/tapecert/tapecert/pkg/cert"
	"github.com/tapecert/tapecert/pkg/store"
)

// DashboardStats is one dashboard response. Pointer fields are omitted for
// roles that do not receive them.
type DashboardStats struct {
	TotalUsers            *int64 `json:"total_users,omitempty"`
	TotalDistributors     *int64 `json:"total_distributors,omitempty"`
	TotalRetailers        *int64 `json:"total_retailers,omitempty"`
	TotalCertificates     int64  `json:"total_certificates"`
	SubmittedCertificates int64  `json:"submitted_certificates"`
	DraftCertificates     int64  `json:"draft_certificates"`
}

// Reporter aggregates dashboard numbers from the stores, scoped by the
// authorization engine.
type Reporter struct {
	users  store.UserStore
	certs  store.CertificateStore
	engine *authz.Engine
}

// NewReporter builds a Reporter.
func NewReporter(users store.UserStore, certs store.CertificateStore, engine *authz.Engine) *Reporter {
	return &Reporter{users: users, certs: certs, engine: engine}
}

// Dashboard returns the aggregate view for caller. Draft counts are derived
// as total minus submitted, so the three certificate numbers always agree.
func (r *Reporter) Dashboard(ctx context.Context, caller *auth.Identity) (*DashboardStats, error) {
	scope, err := r.engine.ScopeCertificates(ctx, caller)
	if err != nil {
		return nil, err
	}

	total, err := r.certs.CountCertificates(ctx, scope, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count certificates: %w", err)
	}
	submitted := cert.StatusSubmitted
	submittedCount, err := r.certs.CountCertificates(ctx, scope, &submitted)
	if err != nil {
		return nil, fmt.Errorf("failed to count submitted certificates: %w", err)
	}

	out := &DashboardStats{
		TotalCertificates:     total,
		SubmittedCertificates: submittedCount,
		DraftCertificates:     total - submittedCount,
	}

	switch caller.Role {
	case auth.RoleAdmin:
		totalUsers, err := r.users.CountUsers(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count users: %w", err)
		}
		distributors, err := r.users.CountUsersByRole(ctx, auth.RoleDistributor)
		if err != nil {
			return nil, fmt.Errorf("failed to count distributors: %w", err)
		}
		retailers, err := r.users.CountUsersByRole(ctx, auth.RoleRetailer)
		if err != nil {
			return nil, fmt.Errorf("failed to count retailers: %w", err)
		}
		out.TotalUsers = &totalUsers
		out.TotalDistributors = &distributors
		out.TotalRetailers = &retailers
	case auth.RoleDistributor:
		// retailer network size, not a user-table count
		network := int64(len(scope.IDs))
		out.TotalRetailers = &network
	}

	return out, nil
}
