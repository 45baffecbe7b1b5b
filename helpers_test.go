package kservice_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/vingarcia/kservice/adapters/ksqlite3"
	tt "github.com/vingarcia/kservice/internal/testtools"
	"github.com/vingarcia/kservice/kdb"
)

type user struct {
	ID    int    `kdb:"id"`
	Name  string `kdb:"name"`
	Email string `kdb:"email,unique"`
}

type post struct {
	ID        int       `kdb:"id"`
	UserID    *int      `kdb:"user_id"`
	Title     string    `kdb:"title"`
	Content   *string   `kdb:"content"`
	CreatedAt time.Time `kdb:"created_at,timeNowUTC/skipUpdates"`
}

var usersSchema = kdb.MustSchema("User", "users", user{})
var postsSchema = kdb.MustSchema("Post", "posts", post{})

func newTestDB(t *testing.T) kdb.DB {
	ctx := context.Background()

	db, err := ksqlite3.New(ctx, filepath.Join(t.TempDir(), "kservice.db"), kdb.Config{}, usersSchema, postsSchema)
	tt.AssertNoErr(t, err)
	t.Cleanup(func() {
		db.Close()
	})

	_, err = db.Exec(ctx, `CREATE TABLE users (
		id INTEGER PRIMARY KEY,
		name TEXT,
		email TEXT UNIQUE
	)`)
	tt.AssertNoErr(t, err)

	_, err = db.Exec(ctx, `CREATE TABLE posts (
		id INTEGER PRIMARY KEY,
		user_id INTEGER,
		title TEXT DEFAULT '',
		content TEXT,
		created_at DATETIME
	)`)
	tt.AssertNoErr(t, err)

	return db
}

func doRequest(t *testing.T, method string, url string, body interface{}) (status int, rawBody []byte) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(tt.ToJSON(t, body))
	}

	req, err := http.NewRequest(method, url, reqBody)
	tt.AssertNoErr(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	tt.AssertNoErr(t, err)
	defer resp.Body.Close()

	rawBody, err = io.ReadAll(resp.Body)
	tt.AssertNoErr(t, err)

	return resp.StatusCode, rawBody
}

func decodeError(t *testing.T, rawBody []byte) (code string) {
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	err := json.Unmarshal(rawBody, &body)
	tt.AssertNoErr(t, err)
	return body.Code
}
