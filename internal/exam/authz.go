package exam

import (
	"fmt"

	"github.com/pavelanni/examhall/internal/model"
)

// Capability is a permission checked at each operation boundary.
type Capability string

const (
	CapManageTests Capability = "manage_tests" // create, end, monitor
	CapViewKey     Capability = "view_key"     // see correct answers
	CapReadTests   Capability = "read_tests"
	CapTakeTests   Capability = "take_tests" // begin and submit attempts
)

var roleCapabilities = map[model.UserRole][]Capability{
	model.UserRoleAdmin:   {CapManageTests, CapViewKey, CapReadTests},
	model.UserRoleStudent: {CapReadTests, CapTakeTests},
}

// Actor identifies the caller of an operation.
type Actor struct {
	ID     int64
	Role   model.UserRole
	Branch string
}

// ActorFromUser builds an Actor from an authenticated user.
func ActorFromUser(u *model.User) Actor {
	if u == nil {
		return Actor{}
	}
	return Actor{ID: u.ID, Role: u.Role, Branch: u.Branch}
}

// Can reports whether the actor holds the capability.
func (a Actor) Can(c Capability) bool {
	for _, have := range roleCapabilities[a.Role] {
		if have == c {
			return true
		}
	}
	return false
}

// authorize is the single gate consulted by every Service operation.
func authorize(a Actor, c Capability) error {
	if a.ID == 0 || !a.Can(c) {
		return fmt.Errorf("%w: role %q lacks %s", ErrUnauthorized, a.Role, c)
	}
	return nil
}
