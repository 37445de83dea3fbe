package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Role string

const (
	RoleMember     Role = "member"
	RoleUnitLeader Role = "unit_leader"
	RoleZoneLeader Role = "zone_leader"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// AllRoles are the roles that can carry billing obligations.
var AllRoles = []Role{RoleMember, RoleUnitLeader, RoleZoneLeader}

func ValidRole(r Role) bool {
	switch r {
	case RoleMember, RoleUnitLeader, RoleZoneLeader:
		return true
	}
	return false
}

func ValidStatus(s Status) bool {
	return s == StatusActive || s == StatusInactive
}

type Member struct {
	ID       snowflake.ID  `gorm:"primaryKey"`
	Name     string        `gorm:"type:text;not null"`
	Phone    string        `gorm:"type:text;not null;uniqueIndex"`
	Role     Role          `gorm:"type:text;not null;index"`
	Status   Status        `gorm:"type:text;not null;index"`
	UnitID   *snowflake.ID `gorm:"column:unit_id;index"`
	JoinedAt time.Time     `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Member) TableName() string { return "members" }
