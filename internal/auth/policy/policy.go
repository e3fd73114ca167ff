// Package policy maps roles to the operations they may perform.
//
// Every protected route names one Permission; the gate consults a single
// Table instead of per-route role checks.
package policy

import "github.com/fybs47/Library/internal/models"

// Permission names an operation on a resource
type Permission string

const (
	BooksRead     Permission = "books:read"
	BooksWrite    Permission = "books:write"
	BooksUpdate   Permission = "books:update"
	BooksDelete   Permission = "books:delete"
	BooksBorrow   Permission = "books:borrow"
	AuthorsRead   Permission = "authors:read"
	AuthorsWrite  Permission = "authors:write"
	AuthorsUpdate Permission = "authors:update"
	AuthorsDelete Permission = "authors:delete"
	UsersManage   Permission = "users:manage"
)

// Table maps each role to the permissions it holds
type Table map[models.Role][]Permission

// DefaultTable returns the policy used by the API.
// Users read the catalog and borrow books; admins may do everything.
func DefaultTable() Table {
	return Table{
		models.RoleUser: {
			BooksRead,
			AuthorsRead,
			BooksBorrow,
		},
		models.RoleAdmin: {
			BooksRead,
			BooksWrite,
			BooksUpdate,
			BooksDelete,
			BooksBorrow,
			AuthorsRead,
			AuthorsWrite,
			AuthorsUpdate,
			AuthorsDelete,
			UsersManage,
		},
	}
}

// Allowed reports whether the role holds the permission.
// Unknown roles hold nothing.
func (t Table) Allowed(role models.Role, perm Permission) bool {
	for _, p := range t[role] {
		if p == perm {
			return true
		}
	}
	return false
}
