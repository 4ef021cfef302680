package services

import (
	"context"
	"log/slog"
	"strings"

	"bookkeeper-backend/internal/models"
	repo "bookkeeper-backend/internal/repository"
)

// ActorResolver turns an actor reference into the human-readable label
// stored on audit events. The label is denormalized at write time on
// purpose: it records who the actor was when the action happened.
type ActorResolver struct {
	users repo.Users
}

func NewActorResolver(users repo.Users) *ActorResolver { return &ActorResolver{users: users} }

// ResolveLabel never fails: a missing or unknown actor degrades the label,
// it does not block the audit write. A non-blank explicit label wins and
// skips the lookup.
func (r *ActorResolver) ResolveLabel(ctx context.Context, actorType models.ActorType, actorID *string, explicit string) string {
	if l := strings.TrimSpace(explicit); l != "" {
		return l
	}

	switch actorType {
	case models.ActorUser:
		if actorID == nil {
			return "User"
		}
		u, err := r.users.GetByID(ctx, *actorID)
		if err != nil {
			slog.Debug("actor lookup miss", "actor_id", *actorID, "err", err)
			return *actorID
		}
		if u.Email != "" {
			return u.Email
		}
		if u.Username != "" {
			return u.Username
		}
		return *actorID
	case models.ActorIntegration:
		return "Integration"
	default:
		return "System"
	}
}
