// Package menu stores per-user menu visibility. It only hides navigation in
// the client; route access is decided by the rbac page gate.
package menu

import (
	"fmt"
	"strings"
	"time"

	"github.com/adsuite/backoffice/internal/shared"
)

// Section is a top-level navigation entry.
type Section uint8

const (
	SectionDashboard Section = iota + 1
	SectionCampaigns
	SectionClients
	SectionAdAccounts
	SectionWorkReports
	SectionFinance
	SectionSalary
	SectionClientMailbox
	SectionAdmin
)

var sectionNames = map[Section]string{
	SectionDashboard:     "dashboard",
	SectionCampaigns:     "campaigns",
	SectionClients:       "clients",
	SectionAdAccounts:    "ad_accounts",
	SectionWorkReports:   "work_reports",
	SectionFinance:       "finance",
	SectionSalary:        "salary",
	SectionClientMailbox: "client_mailbox",
	SectionAdmin:         "admin",
}

// ParseSection converts a URL segment into a Section.
func ParseSection(raw string) (Section, error) {
	key := strings.TrimSpace(strings.ToLower(raw))
	for s, name := range sectionNames {
		if name == key {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown menu section %q", shared.ErrValidation, raw)
}

func (s Section) String() string {
	if name, ok := sectionNames[s]; ok {
		return name
	}
	return "unknown"
}

// column maps a section to its storage column.
func (s Section) column() (string, bool) {
	switch s {
	case SectionDashboard:
		return "show_dashboard", true
	case SectionCampaigns:
		return "show_campaigns", true
	case SectionClients:
		return "show_clients", true
	case SectionAdAccounts:
		return "show_ad_accounts", true
	case SectionWorkReports:
		return "show_work_reports", true
	case SectionFinance:
		return "show_finance", true
	case SectionSalary:
		return "show_salary", true
	case SectionClientMailbox:
		return "show_client_mailbox", true
	case SectionAdmin:
		return "show_admin", true
	}
	return "", false
}

// Flags is the set of visible sections.
type Flags struct {
	ShowDashboard     bool `json:"showDashboard"`
	ShowCampaigns     bool `json:"showCampaigns"`
	ShowClients       bool `json:"showClients"`
	ShowAdAccounts    bool `json:"showAdAccounts"`
	ShowWorkReports   bool `json:"showWorkReports"`
	ShowFinance       bool `json:"showFinance"`
	ShowSalary        bool `json:"showSalary"`
	ShowClientMailbox bool `json:"showClientMailbox"`
	ShowAdmin         bool `json:"showAdmin"`
}

// Get returns the flag for s.
func (f Flags) Get(s Section) bool {
	switch s {
	case SectionDashboard:
		return f.ShowDashboard
	case SectionCampaigns:
		return f.ShowCampaigns
	case SectionClients:
		return f.ShowClients
	case SectionAdAccounts:
		return f.ShowAdAccounts
	case SectionWorkReports:
		return f.ShowWorkReports
	case SectionFinance:
		return f.ShowFinance
	case SectionSalary:
		return f.ShowSalary
	case SectionClientMailbox:
		return f.ShowClientMailbox
	case SectionAdmin:
		return f.ShowAdmin
	}
	return false
}

// With returns a copy of f with s set to v.
func (f Flags) With(s Section, v bool) Flags {
	switch s {
	case SectionDashboard:
		f.ShowDashboard = v
	case SectionCampaigns:
		f.ShowCampaigns = v
	case SectionClients:
		f.ShowClients = v
	case SectionAdAccounts:
		f.ShowAdAccounts = v
	case SectionWorkReports:
		f.ShowWorkReports = v
	case SectionFinance:
		f.ShowFinance = v
	case SectionSalary:
		f.ShowSalary = v
	case SectionClientMailbox:
		f.ShowClientMailbox = v
	case SectionAdmin:
		f.ShowAdmin = v
	}
	return f
}

// UserMenu is the stored row for one user.
type UserMenu struct {
	UserID string `json:"userId"`
	Flags
	UpdatedAt time.Time `json:"updatedAt"`
}

// Defaults is the menu a new account of role starts with.
func Defaults(role shared.Role) Flags {
	switch role {
	case shared.RoleSuperAdmin, shared.RoleAdmin:
		return Flags{
			ShowDashboard: true, ShowCampaigns: true, ShowClients: true, ShowAdAccounts: true,
			ShowWorkReports: true, ShowFinance: true, ShowSalary: true, ShowClientMailbox: true, ShowAdmin: true,
		}
	case shared.RoleManager:
		return Flags{ShowDashboard: true, ShowCampaigns: true, ShowClients: true, ShowAdAccounts: true, ShowWorkReports: true, ShowFinance: true, ShowClientMailbox: true}
	case shared.RoleClient:
		return Flags{ShowDashboard: true, ShowCampaigns: true, ShowAdAccounts: true, ShowClientMailbox: true}
	}
	return Flags{ShowDashboard: true, ShowCampaigns: true, ShowClients: true, ShowAdAccounts: true, ShowWorkReports: true}
}
