package kdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	tt "github.com/vingarcia/kservice/internal/testtools"
	"github.com/vingarcia/kservice/nullable"
	"github.com/vingarcia/kservice/sqldialect"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

type user struct {
	ID    uint   `kdb:"id"`
	Name  string `kdb:"name"`
	Email string `kdb:"email,unique"`
	Age   *int   `kdb:"age"`

	Address address `kdb:"address,json"`

	CreatedAt time.Time `kdb:"created_at,timeNowUTC/skipUpdates"`
	UpdatedAt time.Time `kdb:"updated_at,timeNowUTC"`

	// This attr has no kdb tag, thus, it should be ignored:
	AttrThatShouldBeIgnored string
}

type address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	Country string `json:"country"`
}

type post struct {
	ID     int     `kdb:"id"`
	UserID uint    `kdb:"user_id"`
	Title  string  `kdb:"title"`
	Views  int     `kdb:"views"`
	Body   *string `kdb:"body"`
}

var usersSchema = MustSchema("User", "users", user{})
var postsSchema = MustSchema("Post", "posts", post{})

// RunTestsForAdapter will run all necessary tests for making sure
// a given adapter is working as expected.
//
// Optionally it is also possible to run each of these tests
// separatedly, which might be useful during the development
// of a new adapter.
func RunTestsForAdapter(
	t *testing.T,
	adapterName string,
	dialect sqldialect.Provider,
	connStr string,
	newDBAdapter func(t *testing.T) (DBAdapter, io.Closer),
) {
	t.Run(adapterName, func(t *testing.T) {
		t.Run(dialect.DriverName(), func(t *testing.T) {
			CreateTest(t, dialect, connStr, newDBAdapter)
			FindManyTest(t, dialect, connStr, newDBAdapter)
			FindUniqueTest(t, dialect, connStr, newDBAdapter)
			UpdateTest(t, dialect, connStr, newDBAdapter)
			DeleteTest(t, dialect, connStr, newDBAdapter)
			TransactionTest(t, dialect, connStr, newDBAdapter)
		})
	})
}

// CreateTest runs all tests for making sure the Create function is
// working for a given adapter and dialect.
func CreateTest(
	t *testing.T,
	dialect sqldialect.Provider,
	connStr string,
	newDBAdapter func(t *testing.T) (DBAdapter, io.Closer),
) {
	ctx := context.Background()

	t.Run("Create", func(t *testing.T) {
		c, closer := newTestDB(t, dialect, newDBAdapter)
		defer closer.Close()

		users := mustModel(t, c, "User")

		t.Run("should insert a record and return it with the generated id", func(t *testing.T) {
			record, err := users.Create(ctx, CreateArgs{
				Data: Record{
					"name":    "Fernanda",
					"email":   "fernanda@example.com",
					"address": map[string]interface{}{"country": "BR"},
				},
			})
			tt.AssertNoErr(t, err)
			tt.AssertNotEqual(t, record["id"], uint(0))
			tt.AssertEqual(t, record["name"], "Fernanda")
			tt.AssertEqual(t, record["email"], "fernanda@example.com")
			tt.AssertEqual(t, record["age"], nil)
			tt.AssertEqual(t, record["address"], address{Country: "BR"})

			var u user
			err = record.Decode(&u)
			tt.AssertNoErr(t, err)
			tt.AssertApproxTime(t, 2*time.Second, u.CreatedAt, time.Now(), "created_at should be set on insert")
			tt.AssertApproxTime(t, 2*time.Second, u.UpdatedAt, time.Now(), "updated_at should be set on insert")
		})

		t.Run("should convert the input values to the attribute types", func(t *testing.T) {
			record, err := users.Create(ctx, CreateArgs{
				Data: Record{
					"name":  "Bia",
					"email": "bia@example.com",
					"age":   float64(22),
				},
			})
			tt.AssertNoErr(t, err)
			tt.AssertEqual(t, record["age"], 22)
		})

		t.Run("should reject unknown attributes", func(t *testing.T) {
			_, err := users.Create(ctx, CreateArgs{
				Data: Record{
					"name":        "Bia",
					"nonexistent": 42,
				},
			})
			tt.AssertErrContains(t, err, "unknown attribute", "nonexistent", "User")

			var invalidArgsErr InvalidArgsError
			tt.AssertEqual(t, errors.As(err, &invalidArgsErr), true)
		})

		t.Run("should reject values that cannot be converted", func(t *testing.T) {
			_, err := users.Create(ctx, CreateArgs{
				Data: Record{
					"name": "Bia",
					"age":  "not a number",
				},
			})
			tt.AssertErrContains(t, err, "age", "not a number")
		})

		t.Run("should report errors from the database", func(t *testing.T) {
			_, err := users.Create(ctx, CreateArgs{
				Data: Record{
					"name":  "Fernanda again",
					"email": "fernanda@example.com",
				},
			})
			tt.AssertErrContains(t, err, "unable to create User")
		})

		t.Run("should not keep the record if it cannot be loaded back", func(t *testing.T) {
			// The name column is nullable but the name attribute is not,
			// so the inserted row fails to be scanned:
			_, err := users.Create(ctx, CreateArgs{
				Data: Record{
					"email": "nameless@example.com",
				},
			})
			tt.AssertErrContains(t, err, "NULL")

			count, err := users.Count(ctx, CountArgs{
				Where: Where{"email": "nameless@example.com"},
			})
			tt.AssertNoErr(t, err)
			tt.AssertEqual(t, count, int64(0))
		})

		t.Run("should insert records without any values", func(t *testing.T) {
			posts := mustModel(t, c, "Post")
			record, err := posts.Create(ctx, CreateArgs{})
			tt.AssertNoErr(t, err)
			tt.AssertNotEqual(t, record["id"], 0)
			tt.AssertEqual(t, record["body"], nil)
		})
	})
}

// FindManyTest runs all tests for making sure the FindMany, FindFirst
// and Count functions are working for a given adapter and dialect.
func FindManyTest(
	t *testing.T,
	dialect sqldialect.Provider,
	connStr string,
	newDBAdapter func(t *testing.T) (DBAdapter, io.Closer),
) {
	ctx := context.Background()

	t.Run("FindMany", func(t *testing.T) {
		c, closer := newTestDB(t, dialect, newDBAdapter)
		defer closer.Close()

		users := mustModel(t, c, "User")

		t.Run("should return an empty list when there are no records", func(t *testing.T) {
			records, err := users.FindMany(ctx, FindManyArgs{})
			tt.AssertNoErr(t, err)
			tt.AssertEqual(t, records, []Record{})
		})

		for i, name := range []string{"João Garcia", "Bia Garcia", "Bia Ribeiro", "100%_match"} {
			_, err := users.Create(ctx, CreateArgs{
				Data: Record{
					"name":  name,
					"email": fmt.Sprintf("user%d@example.com", i),
					"age":   20 + i,
				},
			})
			tt.AssertNoErr(t, err)
		}

		tests := []struct {
			desc          string
			args          FindManyArgs
			expectedNames []string
		}{
			{
				desc: "should filter by equality",
				args: FindManyArgs{
					Where: Where{"name": "Bia Garcia"},
				},
				expectedNames: []string{"Bia Garcia"},
			},
			{
				desc: "should filter by startsWith",
				args: FindManyArgs{
					Where:   Where{"name": Where{"startsWith": "Bia"}},
					OrderBy: Asc("name"),
				},
				expectedNames: []string{"Bia Garcia", "Bia Ribeiro"},
			},
			{
				desc: "should filter by endsWith and order desc",
				args: FindManyArgs{
					Where:   Where{"name": Where{"endsWith": "Garcia"}},
					OrderBy: Desc("name"),
				},
				expectedNames: []string{"João Garcia", "Bia Garcia"},
			},
			{
				desc: "should escape LIKE wildcards",
				args: FindManyArgs{
					Where: Where{"name": Where{"contains": "%_"}},
				},
				expectedNames: []string{"100%_match"},
			},
			{
				desc: "should filter with OR and numeric comparisons",
				args: FindManyArgs{
					Where: Where{
						"OR": []Where{
							{"age": Where{"lt": 21}},
							{"age": Where{"gte": 23}},
						},
					},
					OrderBy: Asc("age"),
				},
				expectedNames: []string{"João Garcia", "100%_match"},
			},
			{
				desc: "should filter with in and NOT",
				args: FindManyArgs{
					Where: Where{
						"age": Where{"in": []interface{}{20, 21, 22}},
						"NOT": Where{"name": "Bia Garcia"},
					},
					OrderBy: Asc("age"),
				},
				expectedNames: []string{"João Garcia", "Bia Ribeiro"},
			},
			{
				desc: "should return nothing for an empty in list",
				args: FindManyArgs{
					Where: Where{"age": Where{"in": []interface{}{}}},
				},
				expectedNames: nil,
			},
			{
				desc: "should paginate with take and skip",
				args: FindManyArgs{
					OrderBy: Asc("age"),
					Take:    ldvalue.NewOptionalInt(2),
					Skip:    ldvalue.NewOptionalInt(1),
				},
				expectedNames: []string{"Bia Garcia", "Bia Ribeiro"},
			},
			{
				desc: "should skip without a take",
				args: FindManyArgs{
					OrderBy: Asc("age"),
					Skip:    ldvalue.NewOptionalInt(3),
				},
				expectedNames: []string{"100%_match"},
			},
			{
				desc: "should return nothing when take is zero",
				args: FindManyArgs{
					Take: ldvalue.NewOptionalInt(0),
				},
				expectedNames: nil,
			},
		}

		for _, test := range tests {
			t.Run(test.desc, func(t *testing.T) {
				records, err := users.FindMany(ctx, test.args)
				tt.AssertNoErr(t, err)

				var names []string
				for _, record := range records {
					names = append(names, record["name"].(string))
				}
				tt.AssertEqual(t, names, test.expectedNames)
			})
		}

		t.Run("FindFirst should return the first record", func(t *testing.T) {
			record, err := users.FindFirst(ctx, FindManyArgs{
				OrderBy: Desc("age"),
			})
			tt.AssertNoErr(t, err)
			tt.AssertEqual(t, record["name"], "100%_match")

			_, err = users.FindFirst(ctx, FindManyArgs{
				Where: Where{"name": "nobody"},
			})
			tt.AssertEqual(t, errors.Is(err, ErrRecordNotFound), true)
		})

		t.Run("Count should count the matching records", func(t *testing.T) {
			count, err := users.Count(ctx, CountArgs{})
			tt.AssertNoErr(t, err)
			tt.AssertEqual(t, count, int64(4))

			count, err = users.Count(ctx, CountArgs{
				Where: Where{"name": Where{"startsWith": "Bia"}},
			})
			tt.AssertNoErr(t, err)
			tt.AssertEqual(t, count, int64(2))
		})

		t.Run("should report invalid arguments", func(t *testing.T) {
			_, err := users.FindMany(ctx, FindManyArgs{
				Where: Where{"nonexistent": 42},
			})
			tt.AssertErrContains(t, err, "unknown attribute", "nonexistent")

			_, err = users.FindMany(ctx, FindManyArgs{
				Take: ldvalue.NewOptionalInt(-1),
			})
			tt.AssertErrContains(t, err, "take", "negative")

			_, err = users.FindMany(ctx, FindManyArgs{
				OrderBy: Asc("nonexistent"),
			})
			tt.AssertErrContains(t, err, "unknown attribute", "nonexistent")
		})
	})
}

// FindUniqueTest runs all tests for making sure the FindUnique function is
// working for a given adapter and dialect.
func FindUniqueTest(
	t *testing.T,
	dialect sqldialect.Provider,
	connStr string,
	newDBAdapter func(t *testing.T) (DBAdapter, io.Closer),
) {
	ctx := context.Background()

	t.Run("FindUnique", func(t *testing.T) {
		c, closer := newTestDB(t, dialect, newDBAdapter)
		defer closer.Close()

		users := mustModel(t, c, "User")

		created, err := users.Create(ctx, CreateArgs{
			Data: Record{"name": "Jane", "email": "jane@example.com"},
		})
		tt.AssertNoErr(t, err)

		t.Run("should find records by id", func(t *testing.T) {
			record, err := users.FindUnique(ctx, FindUniqueArgs{
				Where: Where{"id": created["id"]},
			})
			tt.AssertNoErr(t, err)
			tt.AssertEqual(t, record["email"], "jane@example.com")
		})

		t.Run("should find records by id received as string", func(t *testing.T) {
			record, err := users.FindUnique(ctx, FindUniqueArgs{
				Where: Where{"id": fmt.Sprint(created["id"])},
			})
			tt.AssertNoErr(t, err)
			tt.AssertEqual(t, record["id"], created["id"])
		})

		t.Run("should find records by unique attributes", func(t *testing.T) {
			record, err := users.FindUnique(ctx, FindUniqueArgs{
				Where: Where{"email": Where{"equals": "jane@example.com"}},
			})
			tt.AssertNoErr(t, err)
			tt.AssertEqual(t, record["name"], "Jane")
		})

		t.Run("should return ErrRecordNotFound for missing records", func(t *testing.T) {
			_, err := users.FindUnique(ctx, FindUniqueArgs{
				Where: Where{"email": "nobody@example.com"},
			})
			tt.AssertEqual(t, errors.Is(err, ErrRecordNotFound), true)
		})

		t.Run("should reject filters on non unique attributes", func(t *testing.T) {
			_, err := users.FindUnique(ctx, FindUniqueArgs{
				Where: Where{"name": "Jane"},
			})
			tt.AssertErrContains(t, err, "unique")
		})
	})
}

// UpdateTest runs all tests for making sure the Update and UpdateMany
// functions are working for a given adapter and dialect.
func UpdateTest(
	t *testing.T,
	dialect sqldialect.Provider,
	connStr string,
	newDBAdapter func(t *testing.T) (DBAdapter, io.Closer),
) {
	ctx := context.Background()

	t.Run("Update", func(t *testing.T) {
		c, closer := newTestDB(t, dialect, newDBAdapter)
		defer closer.Close()

		users := mustModel(t, c, "User")
		posts := mustModel(t, c, "Post")

		created, err := users.Create(ctx, CreateArgs{
			Data: Record{"name": "Jane", "email": "jane@example.com", "age": 20},
		})
		tt.AssertNoErr(t, err)

		t.Run("should update only the informed attributes", func(t *testing.T) {
			record, err := users.Update(ctx, UpdateArgs{
				Where: Where{"id": created["id"]},
				Data:  Record{"name": "Janet"},
			})
			tt.AssertNoErr(t, err)
			tt.AssertEqual(t, record["name"], "Janet")
			tt.AssertEqual(t, record["email"], "jane@example.com")
			tt.AssertEqual(t, record["age"], 20)
		})

		t.Run("should set attributes to null", func(t *testing.T) {
			record, err := users.Update(ctx, UpdateArgs{
				Where: Where{"email": "jane@example.com"},
				Data:  Record{"age": nil},
			})
			tt.AssertNoErr(t, err)
			tt.AssertEqual(t, record["age"], nil)
		})

		t.Run("should apply atomic operations", func(t *testing.T) {
			post, err := posts.Create(ctx, CreateArgs{
				Data: Record{"title": "post", "views": 10},
			})
			tt.AssertNoErr(t, err)

			post, err = posts.Update(ctx, UpdateArgs{
				Where: Where{"id": post["id"]},
				Data:  Record{"views": Where{"increment": 5}},
			})
			tt.AssertNoErr(t, err)
			tt.AssertEqual(t, post["views"], 15)

			post, err = posts.Update(ctx, UpdateArgs{
				Where: Where{"id": post["id"]},
				Data:  Record{"views": Where{"multiply": 2}, "body": nullable.String("edited")},
			})
			tt.AssertNoErr(t, err)
			tt.AssertEqual(t, post["views"], 30)
			tt.AssertEqual(t, post["body"], "edited")
		})

		t.Run("should report missing records", func(t *testing.T) {
			_, err := users.Update(ctx, UpdateArgs{
				Where: Where{"id": 4242},
				Data:  Record{"name": "nobody"},
			})
			tt.AssertEqual(t, errors.Is(err, ErrRecordNotFound), true)
		})

		t.Run("should report updates with no values", func(t *testing.T) {
			_, err := users.Update(ctx, UpdateArgs{
				Where: Where{"id": created["id"]},
				Data:  Record{},
			})
			tt.AssertEqual(t, errors.Is(err, ErrNoValuesToUpdate), true)
		})

		t.Run("UpdateMany should return the number of updated records", func(t *testing.T) {
			for i := 0; i < 3; i++ {
				_, err := posts.Create(ctx, CreateArgs{
					Data: Record{"title": "many", "views": i},
				})
				tt.AssertNoErr(t, err)
			}

			result, err := posts.UpdateMany(ctx, UpdateManyArgs{
				Where: Where{"title": "many", "views": Where{"gt": 0}},
				Data:  Record{"title": "updated"},
			})
			tt.AssertNoErr(t, err)
			tt.AssertEqual(t, result, BatchResult{Count: 2})

			count, err := posts.Count(ctx, CountArgs{Where: Where{"title": "updated"}})
			tt.AssertNoErr(t, err)
			tt.AssertEqual(t, count, int64(2))
		})
	})
}

// DeleteTest runs all tests for making sure the Delete and DeleteMany
// functions are working for a given adapter and dialect.
func DeleteTest(
	t *testing.T,
	dialect sqldialect.Provider,
	connStr string,
	newDBAdapter func(t *testing.T) (DBAdapter, io.Closer),
) {
	ctx := context.Background()

	t.Run("Delete", func(t *testing.T) {
		c, closer := newTestDB(t, dialect, newDBAdapter)
		defer closer.Close()

		users := mustModel(t, c, "User")

		var ids []interface{}
		for i := 0; i < 3; i++ {
			record, err := users.Create(ctx, CreateArgs{
				Data: Record{"name": "user", "email": fmt.Sprintf("user%d@example.com", i)},
			})
			tt.AssertNoErr(t, err)
			ids = append(ids, record["id"])
		}

		t.Run("should delete a record and return it", func(t *testing.T) {
			record, err := users.Delete(ctx, DeleteArgs{
				Where: Where{"id": ids[0]},
			})
			tt.AssertNoErr(t, err)
			tt.AssertEqual(t, record["email"], "user0@example.com")

			_, err = users.FindUnique(ctx, FindUniqueArgs{Where: Where{"id": ids[0]}})
			tt.AssertEqual(t, errors.Is(err, ErrRecordNotFound), true)
		})

		t.Run("should report missing records", func(t *testing.T) {
			_, err := users.Delete(ctx, DeleteArgs{
				Where: Where{"id": ids[0]},
			})
			tt.AssertEqual(t, errors.Is(err, ErrRecordNotFound), true)
		})

		t.Run("DeleteMany should delete the matching records", func(t *testing.T) {
			result, err := users.DeleteMany(ctx, DeleteManyArgs{
				Where: Where{"email": "user1@example.com"},
			})
			tt.AssertNoErr(t, err)
			tt.AssertEqual(t, result, BatchResult{Count: 1})

			result, err = users.DeleteMany(ctx, DeleteManyArgs{})
			tt.AssertNoErr(t, err)
			tt.AssertEqual(t, result, BatchResult{Count: 1})

			result, err = users.DeleteMany(ctx, DeleteManyArgs{})
			tt.AssertNoErr(t, err)
			tt.AssertEqual(t, result, BatchResult{Count: 0})
		})
	})
}

// TransactionTest runs all tests for making sure the Transaction function is
// working for a given adapter and dialect.
func TransactionTest(
	t *testing.T,
	dialect sqldialect.Provider,
	connStr string,
	newDBAdapter func(t *testing.T) (DBAdapter, io.Closer),
) {
	ctx := context.Background()

	t.Run("Transaction", func(t *testing.T) {
		c, closer := newTestDB(t, dialect, newDBAdapter)
		defer closer.Close()

		t.Run("should commit when no errors occur", func(t *testing.T) {
			err := c.Transaction(ctx, func(db Provider) error {
				users := mustModel(t, db, "User")
				_, err := users.Create(ctx, CreateArgs{
					Data: Record{"name": "committed", "email": "committed@example.com"},
				})
				return err
			})
			tt.AssertNoErr(t, err)

			count, err := mustModel(t, c, "User").Count(ctx, CountArgs{
				Where: Where{"name": "committed"},
			})
			tt.AssertNoErr(t, err)
			tt.AssertEqual(t, count, int64(1))
		})

		t.Run("should rollback when an error occurs", func(t *testing.T) {
			err := c.Transaction(ctx, func(db Provider) error {
				users := mustModel(t, db, "User")
				_, err := users.Create(ctx, CreateArgs{
					Data: Record{"name": "rolled back", "email": "rolledback@example.com"},
				})
				tt.AssertNoErr(t, err)

				return errors.New("fake error")
			})
			tt.AssertErrContains(t, err, "fake error")

			count, err := mustModel(t, c, "User").Count(ctx, CountArgs{
				Where: Where{"name": "rolled back"},
			})
			tt.AssertNoErr(t, err)
			tt.AssertEqual(t, count, int64(0))
		})

		t.Run("should rollback and repanic when a panic occurs", func(t *testing.T) {
			panicPayload := tt.PanicHandler(func() {
				_ = c.Transaction(ctx, func(db Provider) error {
					users := mustModel(t, db, "User")
					_, err := users.Create(ctx, CreateArgs{
						Data: Record{"name": "panicked", "email": "panicked@example.com"},
					})
					tt.AssertNoErr(t, err)

					panic("fake panic")
				})
			})
			tt.AssertEqual(t, panicPayload, "fake panic")

			count, err := mustModel(t, c, "User").Count(ctx, CountArgs{
				Where: Where{"name": "panicked"},
			})
			tt.AssertNoErr(t, err)
			tt.AssertEqual(t, count, int64(0))
		})
	})
}

func newTestDB(
	t *testing.T,
	dialect sqldialect.Provider,
	newDBAdapter func(t *testing.T) (DBAdapter, io.Closer),
) (DB, io.Closer) {
	ctx := context.Background()

	adapter, closer := newDBAdapter(t)
	err := createTables(ctx, adapter, dialect)
	if err != nil {
		closer.Close()
		t.Fatal("could not create test tables!, reason:", err.Error())
	}

	db, err := NewWithAdapter(adapter, dialect, usersSchema, postsSchema)
	tt.AssertNoErr(t, err)

	return db, closer
}

func mustModel(t *testing.T, db Provider, name string) ModelProvider {
	model, err := db.Model(name)
	tt.AssertNoErr(t, err)
	return model
}

func createTables(ctx context.Context, db DBAdapter, dialect sqldialect.Provider) (err error) {
	_, _ = db.ExecContext(ctx, `DROP TABLE users`)

	switch dialect.DriverName() {
	case "sqlite3":
		_, err = db.ExecContext(ctx, `CREATE TABLE users (
			id INTEGER PRIMARY KEY,
			name TEXT,
			email TEXT UNIQUE,
			age INTEGER,
			address BLOB,
			created_at DATETIME,
			updated_at DATETIME
		)`)
	case "postgres":
		_, err = db.ExecContext(ctx, `CREATE TABLE users (
			id serial PRIMARY KEY,
			name VARCHAR(50),
			email VARCHAR(50) UNIQUE,
			age INT,
			address jsonb,
			created_at TIMESTAMP,
			updated_at TIMESTAMP
		)`)
	case "mysql":
		_, err = db.ExecContext(ctx, `CREATE TABLE users (
			id INT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(50),
			email VARCHAR(50) UNIQUE,
			age INT,
			address JSON,
			created_at DATETIME,
			updated_at DATETIME
		)`)
	case "sqlserver":
		_, err = db.ExecContext(ctx, `CREATE TABLE users (
			id INT IDENTITY(1,1) PRIMARY KEY,
			name VARCHAR(50),
			email VARCHAR(50) UNIQUE,
			age INT,
			address NVARCHAR(4000),
			created_at DATETIME,
			updated_at DATETIME
		)`)
	}
	if err != nil {
		return fmt.Errorf("failed to create new users table: %s", err.Error())
	}

	_, _ = db.ExecContext(ctx, `DROP TABLE posts`)

	switch dialect.DriverName() {
	case "sqlite3":
		_, err = db.ExecContext(ctx, `CREATE TABLE posts (
			id INTEGER PRIMARY KEY,
			user_id INTEGER DEFAULT 0,
			title TEXT DEFAULT '',
			views INTEGER DEFAULT 0,
			body TEXT
		)`)
	case "postgres":
		_, err = db.ExecContext(ctx, `CREATE TABLE posts (
			id serial PRIMARY KEY,
			user_id INT DEFAULT 0,
			title VARCHAR(50) DEFAULT '',
			views INT DEFAULT 0,
			body TEXT
		)`)
	case "mysql":
		_, err = db.ExecContext(ctx, `CREATE TABLE posts (
			id INT AUTO_INCREMENT PRIMARY KEY,
			user_id INT DEFAULT 0,
			title VARCHAR(50) DEFAULT '',
			views INT DEFAULT 0,
			body TEXT
		)`)
	case "sqlserver":
		_, err = db.ExecContext(ctx, `CREATE TABLE posts (
			id INT IDENTITY(1,1) PRIMARY KEY,
			user_id INT DEFAULT 0,
			title VARCHAR(50) DEFAULT '',
			views INT DEFAULT 0,
			body VARCHAR(4000)
		)`)
	}
	if err != nil {
		return fmt.Errorf("failed to create new posts table: %s", err.Error())
	}

	return nil
}
