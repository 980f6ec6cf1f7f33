package chatclient

import (
	"context"
	"fmt"

	"github.com/armin-rsh/FitLinkApp/pkg/model"
)

// Contacts is the permitted-recipient set of one authenticated user. A plain
// user may reach their assigned coach and the admin account; a coach may
// reach their clients and the admin; the admin may reach everyone. The check
// is a UX guard only, the backend enforces the same rule authoritatively.
type Contacts struct {
	Self      model.User
	permitted map[int64]model.User
	allowAll  bool
}

// LoadContacts resolves the current user and their permitted recipients.
func LoadContacts(ctx context.Context, api *API) (*Contacts, error) {
	me, err := api.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve current user: %w", err)
	}

	contacts := &Contacts{
		Self:      *me,
		permitted: make(map[int64]model.User),
	}

	switch me.Role {
	case model.RoleAdmin:
		contacts.allowAll = true
		return contacts, nil
	case model.RoleCoach:
		clients, err := api.ClientsOf(ctx, me.ID)
		if err != nil {
			return nil, fmt.Errorf("resolve clients: %w", err)
		}
		for _, client := range clients {
			contacts.permitted[client.ID] = client
		}
	case model.RoleUser:
		coach, err := api.CoachOf(ctx, me.ID)
		if err != nil {
			return nil, fmt.Errorf("resolve coach: %w", err)
		}
		if coach != nil {
			contacts.permitted[coach.ID] = *coach
		}
	default:
		return nil, fmt.Errorf("unknown role %q", me.Role)
	}

	admin, err := api.Admin(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve admin: %w", err)
	}
	if admin.ID != me.ID {
		contacts.permitted[admin.ID] = *admin
	}

	return contacts, nil
}

// CanMessage reports whether the given peer is a permitted recipient.
func (c *Contacts) CanMessage(peerID int64) bool {
	if peerID == c.Self.ID {
		return false
	}
	if c.allowAll {
		return true
	}
	_, ok := c.permitted[peerID]
	return ok
}

// Recipients lists the resolved permitted recipients. Empty for admin, whose
// recipient set is unbounded.
func (c *Contacts) Recipients() []model.User {
	users := make([]model.User, 0, len(c.permitted))
	for _, user := range c.permitted {
		users = append(users, user)
	}
	return users
}
