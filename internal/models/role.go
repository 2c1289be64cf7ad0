package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleMinter   Role = "MINTER"
	RoleVerifier Role = "VERIFIER"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleMinter, RoleVerifier:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

type RoleAssignment struct {
	bun.BaseModel `bun:"table:role_assignments"`

	FestivalID string    `bun:"festival_id,pk" json:"festival_id"`
	Role       Role      `bun:"role,pk" json:"role"`
	Address    string    `bun:"address,pk" json:"address"`
	GrantedBy  string    `bun:"granted_by,notnull" json:"granted_by"`
	GrantedAt  time.Time `bun:"granted_at,notnull" json:"granted_at"`
}
