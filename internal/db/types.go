package db

import (
	"errors"
	"time"

	"github.com/Formula-SAE/bugreport/internal/utils"
	"gorm.io/gorm"
)

const MANAGER_ROLE = "manager"

const (
	PROJECT_OPEN   = "open"
	PROJECT_CLOSED = "closed"
)

const (
	BUG_OPEN        = "open"
	BUG_CLOSED      = "closed"
	BUG_IN_PROGRESS = "in_progress"
)

var (
	ProjectStatuses = []string{PROJECT_OPEN, PROJECT_CLOSED}
	BugStatuses     = []string{BUG_OPEN, BUG_CLOSED, BUG_IN_PROGRESS}
	BugTypes        = []string{"error", "mistake", "bug", "issue", "fault", "defect", "other"}
	BugPriorities   = []string{"low", "medium", "high"}
	BugSeverities   = []string{"critical", "major", "normal", "minor", "trivial", "enhancements"}
)

type Department struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:255;not null"`
}

func (d *Department) BeforeSave(tx *gorm.DB) error {
	d.Name = utils.NormalizeName(d.Name)
	return nil
}

type Role struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:255;not null"`
}

func (r *Role) BeforeSave(tx *gorm.DB) error {
	r.Name = utils.NormalizeName(r.Name)
	return nil
}

type User struct {
	ID       uint   `gorm:"primaryKey"`
	Username string `gorm:"size:150;unique;not null"`
	Email    string `gorm:"unique;not null"`
	Password string `gorm:"not null"`

	DepartmentID *uint
	Department   *Department `gorm:"constraint:OnDelete:SET NULL"`

	RoleID *uint
	Role   *Role `gorm:"constraint:OnDelete:SET NULL"`

	ProfilePic string
	IsStaff    bool
	DateJoined time.Time `gorm:"autoCreateTime"`
}

// BeforeSave promotes users holding the manager role to staff. The role is
// looked up on the hook's own connection so it works inside transactions.
func (u *User) BeforeSave(tx *gorm.DB) error {
	if u.RoleID == nil {
		return nil
	}

	role := &Role{}
	err := tx.Session(&gorm.Session{NewDB: true}).First(role, *u.RoleID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if role.Name == MANAGER_ROLE {
		u.IsStaff = true
	}
	return nil
}

type Project struct {
	ID              uint   `gorm:"primaryKey"`
	ProjectName     string `gorm:"size:255;not null"`
	ProjectDuration int    `gorm:"not null"`
	Status          string `gorm:"size:20;default:open"`

	Users []User `gorm:"many2many:project_users;constraint:OnDelete:CASCADE"`
}

// MemberIDs returns the ids of the loaded members.
func (p *Project) MemberIDs() []uint {
	ids := make([]uint, 0, len(p.Users))
	for _, u := range p.Users {
		ids = append(ids, u.ID)
	}
	return ids
}

type Bug struct {
	ID      uint   `gorm:"primaryKey"`
	BugType string `gorm:"size:20;not null"`

	CreatedByID uint `gorm:"not null;index"`
	CreatedBy   User `gorm:"constraint:OnDelete:CASCADE"`

	AssignedToID *uint `gorm:"index"`
	AssignedTo   *User `gorm:"constraint:OnDelete:SET NULL"`

	ReportDate  time.Time `gorm:"autoCreateTime"`
	UpdatedDate time.Time `gorm:"autoUpdateTime"`

	BugDescription string `gorm:"type:text;not null"`
	URLBug         *string
	Image          string

	ProjectID uint    `gorm:"not null;index"`
	Project   Project `gorm:"constraint:OnDelete:CASCADE"`

	BugPriority      string `gorm:"size:10;not null"`
	BugSeverity      string `gorm:"size:20;not null"`
	Status           string `gorm:"size:20;not null;index"`
	IsCurrentProject bool   `gorm:"default:true"`
}

// BlacklistedToken records a refresh token that can no longer be used.
type BlacklistedToken struct {
	ID            uint   `gorm:"primaryKey"`
	JTI           string `gorm:"unique;not null"`
	UserID        uint   `gorm:"index"`
	ExpiresAt     time.Time
	BlacklistedAt time.Time `gorm:"autoCreateTime"`
}
