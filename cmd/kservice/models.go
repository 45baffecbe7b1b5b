package main

import (
	"context"
	"fmt"
	"time"

	"github.com/vingarcia/kservice/kdb"
)

// User is exposed on /users
type User struct {
	ID    int    `kdb:"id"`
	Name  string `kdb:"name"`
	Email string `kdb:"email,unique"`
}

// Post is exposed on /posts
type Post struct {
	ID        int       `kdb:"id"`
	UserID    *int      `kdb:"user_id"`
	Title     string    `kdb:"title"`
	Content   *string   `kdb:"content"`
	CreatedAt time.Time `kdb:"created_at,timeNowUTC/skipUpdates"`
}

var usersSchema = kdb.MustSchema("User", "users", User{})
var postsSchema = kdb.MustSchema("Post", "posts", Post{})

type route struct {
	service string
	path    string
	example string
}

var routes = []route{
	{service: "User", path: "/users", example: `{"name": "Jane", "email": "jane@mail.fr"}`},
	{service: "Post", path: "/posts", example: `{"title": "Hello", "content": "world"}`},
}

// migrations are indexed by the driver name of each dialect
var migrations = map[string][]string{
	"sqlite3": {
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY,
			name TEXT,
			email TEXT UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS posts (
			id INTEGER PRIMARY KEY,
			user_id INTEGER REFERENCES users(id),
			title TEXT DEFAULT '',
			content TEXT,
			created_at DATETIME
		)`,
	},
	"postgres": {
		`CREATE TABLE IF NOT EXISTS users (
			id serial PRIMARY KEY,
			name VARCHAR(50),
			email VARCHAR(100) UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS posts (
			id serial PRIMARY KEY,
			user_id INT REFERENCES users(id),
			title VARCHAR(200) DEFAULT '',
			content TEXT,
			created_at TIMESTAMP
		)`,
	},
	"mysql": {
		`CREATE TABLE IF NOT EXISTS users (
			id INT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(50),
			email VARCHAR(100) UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS posts (
			id INT AUTO_INCREMENT PRIMARY KEY,
			user_id INT REFERENCES users(id),
			title VARCHAR(200) DEFAULT '',
			content TEXT,
			created_at DATETIME
		)`,
	},
	"sqlserver": {
		`IF OBJECT_ID('users', 'U') IS NULL CREATE TABLE users (
			id INT IDENTITY(1,1) PRIMARY KEY,
			name VARCHAR(50),
			email VARCHAR(100) UNIQUE
		)`,
		`IF OBJECT_ID('posts', 'U') IS NULL CREATE TABLE posts (
			id INT IDENTITY(1,1) PRIMARY KEY,
			user_id INT REFERENCES users(id),
			title VARCHAR(200) DEFAULT '',
			content VARCHAR(MAX),
			created_at DATETIME
		)`,
	},
}

func migrate(ctx context.Context, db kdb.DB) error {
	driver := db.Dialect().DriverName()
	queries, found := migrations[driver]
	if !found {
		return fmt.Errorf("no migrations available for the driver %s", driver)
	}

	return db.Transaction(ctx, func(tx kdb.Provider) error {
		for _, query := range queries {
			_, err := tx.Exec(ctx, query)
			if err != nil {
				return fmt.Errorf("error running migration: %w", err)
			}
		}
		return nil
	})
}
