package view

import "github.com/smartpocket/console/core/session"

// View identifies the top-level screen the console should present.
type View int

const (
	Loading View = iota
	Login
	AdminDashboard
	SchoolDashboard
	AccessDenied
)

var viewNames = map[View]string{
	Loading:         "loading",
	Login:           "login",
	AdminDashboard:  "admin-dashboard",
	SchoolDashboard: "school-dashboard",
	AccessDenied:    "access-denied",
}

func (v View) String() string {
	if name, ok := viewNames[v]; ok {
		return name
	}
	return "unknown"
}

// Route selects the view for a session snapshot. It is a pure dispatch:
// no role aliasing or normalization happens here — an unrecognized role,
// including "super_admin" and "school_admin", lands on AccessDenied, where
// the only way out is a user-triggered full reload.
func Route(sess session.Session) View {
	if sess.IsResolving {
		return Loading
	}
	if sess.Identity == nil {
		return Login
	}
	switch sess.Identity.Role {
	case session.RoleAdmin:
		return AdminDashboard
	case session.RoleSchool:
		return SchoolDashboard
	}
	return AccessDenied
}
