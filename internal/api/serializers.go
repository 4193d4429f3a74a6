package api

import (
	"time"

	"github.com/Formula-SAE/bugreport/internal/db"
)

type lookupResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type userResponse struct {
	ID         uint    `json:"id"`
	Username   string  `json:"username"`
	Email      string  `json:"email"`
	Department *uint   `json:"department"`
	Role       *uint   `json:"role"`
	ProfilePic *string `json:"profile_pic"`
	IsStaff    bool    `json:"is_staff"`
}

type projectResponse struct {
	ID              uint   `json:"id"`
	ProjectName     string `json:"project_name"`
	ProjectDuration int    `json:"project_duration"`
	Status          string `json:"status"`
	Users           []uint `json:"users"`
}

type bugResponse struct {
	ID               uint      `json:"id"`
	BugType          string    `json:"bug_type"`
	CreatedBy        uint      `json:"created_by"`
	AssignedTo       *uint     `json:"assigned_to"`
	ReportDate       time.Time `json:"report_date"`
	UpdatedDate      time.Time `json:"updated_date"`
	BugDescription   string    `json:"bug_description"`
	URLBug           *string   `json:"url_bug"`
	Image            *string   `json:"image"`
	Project          uint      `json:"project"`
	BugPriority      string    `json:"bug_priority"`
	BugSeverity      string    `json:"bug_severity"`
	Status           string    `json:"status"`
	IsCurrentProject bool      `json:"is_current_project"`
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func serializeUser(u *db.User) userResponse {
	return userResponse{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Department: u.DepartmentID,
		Role:       u.RoleID,
		ProfilePic: nullString(u.ProfilePic),
		IsStaff:    u.IsStaff,
	}
}

func serializeUsers(users []db.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for i := range users {
		out = append(out, serializeUser(&users[i]))
	}
	return out
}

func serializeProject(p *db.Project) projectResponse {
	return projectResponse{
		ID:              p.ID,
		ProjectName:     p.ProjectName,
		ProjectDuration: p.ProjectDuration,
		Status:          p.Status,
		Users:           p.MemberIDs(),
	}
}

func serializeProjects(projects []db.Project) []projectResponse {
	out := make([]projectResponse, 0, len(projects))
	for i := range projects {
		out = append(out, serializeProject(&projects[i]))
	}
	return out
}

func serializeBug(b *db.Bug) bugResponse {
	return bugResponse{
		ID:               b.ID,
		BugType:          b.BugType,
		CreatedBy:        b.CreatedByID,
		AssignedTo:       b.AssignedToID,
		ReportDate:       b.ReportDate,
		UpdatedDate:      b.UpdatedDate,
		BugDescription:   b.BugDescription,
		URLBug:           b.URLBug,
		Image:            nullString(b.Image),
		Project:          b.ProjectID,
		BugPriority:      b.BugPriority,
		BugSeverity:      b.BugSeverity,
		Status:           b.Status,
		IsCurrentProject: b.IsCurrentProject,
	}
}

func serializeBugs(bugs []db.Bug) []bugResponse {
	out := make([]bugResponse, 0, len(bugs))
	for i := range bugs {
		out = append(out, serializeBug(&bugs[i]))
	}
	return out
}
