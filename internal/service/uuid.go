package service

import "github.com/google/uuid"

// UUIDGenerator issues tenant and chunk ids. Tests swap in a fixed sequence.
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator issues time-ordered v7 ids, so tenants created later
// also sort later within the same created_at in the admin listing.
type DefaultUUIDGenerator struct{}

func (g *DefaultUUIDGenerator) NewString() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
