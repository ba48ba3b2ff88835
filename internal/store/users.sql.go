// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const userColumns = `id, name, email, created_at`

type CreateUserParams struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	id, err := insertID(q.db.ExecContext(ctx,
		`INSERT INTO users (name, email, created_at) VALUES (?, ?, ?)`,
		arg.Name, arg.Email, arg.CreatedAt,
	))
	if err != nil {
		return User{}, err
	}
	return User{ID: id, Name: arg.Name, Email: arg.Email, CreatedAt: arg.CreatedAt}, nil
}

func (q *Queries) GetUser(ctx context.Context, id int64) (User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	var i User
	err := row.Scan(&i.ID, &i.Name, &i.Email, &i.CreatedAt)
	return i, err
}

func (q *Queries) GetUserByName(ctx context.Context, name string) (User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE name = ?`, name)
	var i User
	err := row.Scan(&i.ID, &i.Name, &i.Email, &i.CreatedAt)
	return i, err
}

// GetUsersByIDs returns the users with the given ids in id order.
func (q *Queries) GetUsersByIDs(ctx context.Context, ids []int64) ([]User, error) {
	if len(ids) == 0 {
		return []User{}, nil
	}
	return q.listUsers(ctx,
		`SELECT `+userColumns+` FROM users WHERE id IN (`+Placeholders(len(ids))+`) ORDER BY id`,
		Int64Args(ids)...)
}

// GetUsersByNames returns the users with the given names in id order.
func (q *Queries) GetUsersByNames(ctx context.Context, names []string) ([]User, error) {
	if len(names) == 0 {
		return []User{}, nil
	}
	return q.listUsers(ctx,
		`SELECT `+userColumns+` FROM users WHERE name IN (`+Placeholders(len(names))+`) ORDER BY id`,
		StringArgs(names)...)
}

func (q *Queries) listUsers(ctx context.Context, query string, args ...any) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []User{}
	for rows.Next() {
		var i User
		if err := rows.Scan(&i.ID, &i.Name, &i.Email, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
