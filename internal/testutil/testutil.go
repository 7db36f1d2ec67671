// Package testutil holds shared fixtures for package tests: an in-memory
// SQLite database with the service schema, a controllable clock and model
// factories.
package testutil

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/safety-core/internal/database"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory database and migrates the schema. A single
// connection serializes writers, matching row-lock semantics closely enough
// for concurrency tests.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Password is the plaintext used for every fixture account.
const Password = "correct-horse-battery"

var (
	hashOnce sync.Once
	hash     string
)

func passwordHash() string {
	hashOnce.Do(func() {
		h, _ := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
		hash = string(h)
	})
	return hash
}

func CreateUser(t *testing.T, db *gorm.DB, role models.Role) *models.User {
	t.Helper()
	id := uuid.New()
	u := &models.User{
		ID:       id,
		Email:    id.String() + "@example.test",
		Password: passwordHash(),
		Role:     role,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func CreateContent(t *testing.T, db *gorm.DB, kind models.TargetType, authorID uuid.UUID) *models.Content {
	t.Helper()
	c := &models.Content{
		ID:               uuid.New(),
		Kind:             kind,
		AuthorID:         authorID,
		ModerationStatus: models.ModerationApproved,
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

func ReloadUser(t *testing.T, db *gorm.DB, id uuid.UUID) *models.User {
	t.Helper()
	var u models.User
	require.NoError(t, db.First(&u, "id = ?", id).Error)
	return &u
}
