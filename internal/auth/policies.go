package auth

import (
	"fmt"
	"go-blog-app/internal/logger"

	"github.com/casbin/casbin/v2"
)

const (
	methodGet     = "^GET$"
	methodPost    = "^POST$"
	methodGetPost = "^(GET|POST)$"
)

// DefaultPolicies is the route access table. Anonymous visitors can read
// and sign in; members can additionally write. Ownership of individual
// posts and comments is checked by the services, not here.
var DefaultPolicies = [][]string{
	{RoleAnonymous, "/", methodGet},
	{RoleAnonymous, "/posts/:id/", methodGet},
	{RoleAnonymous, "/category/:slug/", methodGet},
	{RoleAnonymous, "/profile/:username/", methodGet},
	{RoleAnonymous, "/auth/registration/", methodGetPost},
	{RoleAnonymous, "/auth/login/", methodGetPost},
	{RoleAnonymous, "/auth/logout/", methodGetPost},
	{RoleAnonymous, "/auth/oidc/login", methodGet},
	{RoleAnonymous, "/auth/oidc/callback", methodGet},

	{RoleMember, "/posts/create/", methodGetPost},
	{RoleMember, "/posts/:id/edit/", methodGetPost},
	{RoleMember, "/posts/:id/delete/", methodGetPost},
	{RoleMember, "/posts/:id/comment/", methodPost},
	{RoleMember, "/posts/:id/edit_comment/:cid/", methodGetPost},
	{RoleMember, "/posts/:id/delete_comment/:cid/", methodGetPost},
	{RoleMember, "/profile/edit/", methodGetPost},
	{RoleMember, "/edit_profile/", methodGetPost},
	{RoleMember, "/auth/password_change/", methodGetPost},
	{RoleMember, "/auth/password_change/done/", methodGet},
}

// SeedDefaultPolicies ensures that the application has a baseline set of authorization rules.
// It checks if each default policy exists before adding it, making the operation idempotent
// and safe to run on every application start.
func SeedDefaultPolicies(e casbin.IEnforcer, log logger.Logger) {
	log.Info("Seeding default authorization policies...")

	for _, p := range DefaultPolicies {
		if has, _ := e.HasPolicy(p); !has {
			if _, err := e.AddPolicy(p); err != nil {
				log.Error(err, fmt.Sprintf("Failed to add policy %v", p))
			}
		}
	}

	// Members can do everything anonymous visitors can.
	if has, _ := e.HasRoleForUser(RoleMember, RoleAnonymous); !has {
		if _, err := e.AddRoleForUser(RoleMember, RoleAnonymous); err != nil {
			log.Error(err, "Failed to add role 'member' -> 'anonymous'")
		}
	}
	log.Info("Policy seeding complete.")
}
