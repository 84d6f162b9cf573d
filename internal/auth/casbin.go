package auth

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"
	"github.com/casbin/casbin/v2/util"
	sqlxadapter "github.com/memwey/casbin-sqlx-adapter"
)

// Role subjects known to the policy set.
const (
	RoleAnonymous = "anonymous"
	RoleMember    = "member"
)

// modelText is an RBAC model over request paths. Objects are keyMatch2
// patterns such as /posts/:id/, actions are regular expressions over the
// HTTP method.
const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && regexMatch(r.act, p.act)
`

// NewSQLAdapter returns a casbin adapter that stores policies in the
// casbin_rule table of the application database.
func NewSQLAdapter(driverName, dsn string) persist.Adapter {
	opts := &sqlxadapter.AdapterOptions{
		DriverName:     driverName,
		DataSourceName: dsn,
		TableName:      "casbin_rule",
	}
	return sqlxadapter.NewAdapterFromOptions(opts)
}

// NewEnforcer creates and configures a new Casbin enforcer.
// With a nil adapter the policies live in memory only.
func NewEnforcer(adapter persist.Adapter) (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse casbin model: %w", err)
	}

	var enforcer *casbin.Enforcer
	if adapter != nil {
		enforcer, err = casbin.NewEnforcer(m, adapter)
	} else {
		enforcer, err = casbin.NewEnforcer(m)
	}
	if err != nil {
		return nil, err
	}

	// keyMatch2 turns "/posts/:id/" into a path pattern.
	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)

	if adapter != nil {
		if err := enforcer.LoadPolicy(); err != nil {
			return nil, err
		}
	}
	return enforcer, nil
}
