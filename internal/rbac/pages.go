package rbac

import "github.com/adsuite/backoffice/internal/shared"

// Page keys referenced by route declarations. Each one is part of the seeded catalog.
const (
	PageDashboard        = "dashboard"
	PageCampaigns        = "campaigns"
	PageClients          = "clients"
	PageAdAccounts       = "ad_accounts"
	PageWorkReports      = "work_reports"
	PageFinance          = "finance"
	PageSalaryManagement = "salary_management"
	PageEmployees        = "employees"
	PageAdmin            = "admin"
	PageClientMailbox    = "client_mailbox"
)

// DefaultPages is the catalog seeded on first start.
func DefaultPages() []PageInput {
	return []PageInput{
		{PageKey: PageDashboard, DisplayName: "Dashboard", Path: "/", Description: "Overview and KPIs"},
		{PageKey: PageCampaigns, DisplayName: "Campaigns", Path: "/campaigns", Description: "Campaign management"},
		{PageKey: PageClients, DisplayName: "Clients", Path: "/clients", Description: "Client records"},
		{PageKey: PageAdAccounts, DisplayName: "Ad Accounts", Path: "/ad-accounts", Description: "Advertising accounts"},
		{PageKey: PageWorkReports, DisplayName: "Work Reports", Path: "/work-reports", Description: "Daily work reports"},
		{PageKey: PageFinance, DisplayName: "Finance", Path: "/finance", Description: "Finance projects and spend"},
		{PageKey: PageSalaryManagement, DisplayName: "Salary Management", Path: "/salaries", Description: "Employee salaries"},
		{PageKey: PageEmployees, DisplayName: "Employees", Path: "/employees", Description: "Employee records"},
		{PageKey: PageAdmin, DisplayName: "Administration", Path: "/admin", Description: "Roles and page permissions"},
		{PageKey: PageClientMailbox, DisplayName: "Client Mailbox", Path: "/mailbox", Description: "Messages exchanged with clients"},
	}
}

var (
	full     = Flags{CanView: true, CanEdit: true, CanDelete: true}
	viewOnly = Flags{CanView: true}
	viewEdit = Flags{CanView: true, CanEdit: true}
)

// DefaultFlags is the seed value for (role, pageKey). Unknown pages default to no access
// except for super_admin and admin.
func DefaultFlags(role shared.Role, pageKey string) Flags {
	switch role {
	case shared.RoleSuperAdmin, shared.RoleAdmin:
		return full
	case shared.RoleManager:
		switch pageKey {
		case PageDashboard, PageFinance, PageEmployees:
			return viewOnly
		case PageCampaigns, PageClients, PageAdAccounts, PageClientMailbox:
			return viewEdit
		case PageWorkReports:
			return full
		}
	case shared.RoleUser:
		switch pageKey {
		case PageDashboard, PageCampaigns, PageAdAccounts, PageClients:
			return viewOnly
		case PageWorkReports:
			return full
		}
	case shared.RoleClient:
		switch pageKey {
		case PageDashboard, PageCampaigns, PageAdAccounts:
			return viewOnly
		case PageClientMailbox:
			return viewEdit
		}
	}
	return Flags{}
}
