package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"finance-tracker/internal/auth"
	"finance-tracker/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// DBTestSuite provides a test suite for database operations
type DBTestSuite struct {
	suite.Suite
	db   *DB
	ctx  context.Context
	user *models.User
}

// SetupTest runs before each test
func (suite *DBTestSuite) SetupTest() {
	db, err := NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
	suite.ctx = context.Background()

	user, err := suite.db.CreateUser(suite.ctx, "user1", "User One", "", "hash")
	require.NoError(suite.T(), err, "failed to create test user")
	suite.user = user
}

// TearDownTest runs after each test
func (suite *DBTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *DBTestSuite) tx(date, amount string, category models.Category) models.Transaction {
	return models.Transaction{
		Date:     date,
		Amount:   decimal.RequireFromString(amount),
		Category: category,
	}
}

func (suite *DBTestSuite) TestCreateUser() {
	assert.Equal(suite.T(), "user1", suite.user.Username)
	assert.Equal(suite.T(), "User One", suite.user.Name)
	assert.False(suite.T(), suite.user.CreatedAt.IsZero())
}

func (suite *DBTestSuite) TestCreateUserDuplicateIgnoresCase() {
	_, err := suite.db.CreateUser(suite.ctx, "User1", "Someone Else", "", "hash")
	assert.ErrorIs(suite.T(), err, ErrUsernameTaken)

	count, err := suite.db.UserCount(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, count)
}

func (suite *DBTestSuite) TestUserExists() {
	exists, err := suite.db.UserExists(suite.ctx, "USER1")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), exists)

	exists, err = suite.db.UserExists(suite.ctx, "nobody")
	require.NoError(suite.T(), err)
	assert.False(suite.T(), exists)
}

func (suite *DBTestSuite) TestGetUserByUsername() {
	u, err := suite.db.GetUserByUsername(suite.ctx, " uSeR1 ")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.user.ID, u.ID)

	_, err = suite.db.GetUserByUsername(suite.ctx, "missing")
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestListUsersNewestFirst() {
	suite.db.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err := suite.db.CreateUser(suite.ctx, "user2", "User Two", "two@example.com", "hash")
	require.NoError(suite.T(), err)

	users, err := suite.db.ListUsers(suite.ctx)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), users, 2)
	assert.Equal(suite.T(), "user2", users[0].Username)
	assert.Equal(suite.T(), "two@example.com", users[0].Email)
	assert.Equal(suite.T(), "user1", users[1].Username)
}

func (suite *DBTestSuite) TestAddTransaction() {
	tx := suite.tx("2024-03-05", "42.00", models.CategoryGroceries)
	tx.Merchant = "  Target "
	tx.Notes = "   "

	id, err := suite.db.AddTransaction(suite.ctx, suite.user.ID, tx)
	require.NoError(suite.T(), err)
	assert.NotZero(suite.T(), id)

	txs, err := suite.db.ListTransactions(suite.ctx, suite.user.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), txs, 1)

	got := txs[0]
	assert.Equal(suite.T(), id, got.ID)
	require.NotNil(suite.T(), got.UserID)
	assert.Equal(suite.T(), suite.user.ID, *got.UserID)
	assert.Equal(suite.T(), "2024-03-05", got.Date)
	assert.True(suite.T(), decimal.NewFromInt(42).Equal(got.Amount))
	assert.Equal(suite.T(), models.CategoryGroceries, got.Category)
	assert.Equal(suite.T(), "Target", got.Merchant)
	assert.Empty(suite.T(), got.Notes)
}

func (suite *DBTestSuite) TestAddTransactionRejectsInvalid() {
	_, err := suite.db.AddTransaction(suite.ctx, suite.user.ID, suite.tx("2024-03-05", "0", models.CategoryGroceries))
	assert.ErrorIs(suite.T(), err, models.ErrInvalidAmount)

	_, err = suite.db.AddTransaction(suite.ctx, suite.user.ID, suite.tx("2024-03-05", "5", models.CategoryNone))
	assert.ErrorIs(suite.T(), err, models.ErrUnknownCategory)

	_, err = suite.db.AddTransaction(suite.ctx, suite.user.ID, suite.tx("03/05/2024", "5", models.CategoryOther))
	assert.ErrorIs(suite.T(), err, models.ErrInvalidDate)

	txs, err := suite.db.ListTransactions(suite.ctx, suite.user.ID)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), txs)
}

func (suite *DBTestSuite) TestListTransactionsOrder() {
	inputs := []models.Transaction{
		suite.tx("2024-03-05", "1", models.CategoryGroceries),
		suite.tx("2024-03-07", "2", models.CategoryDining),
		suite.tx("2024-03-05", "3", models.CategoryIncome),
		suite.tx("2024-02-28", "4", models.CategoryOther),
	}
	for _, tx := range inputs {
		_, err := suite.db.AddTransaction(suite.ctx, suite.user.ID, tx)
		require.NoError(suite.T(), err)
	}

	txs, err := suite.db.ListTransactions(suite.ctx, suite.user.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), txs, 4)

	// Newest date first, newest ID first within a day.
	var amounts []string
	for _, tx := range txs {
		amounts = append(amounts, tx.Amount.String())
	}
	assert.Equal(suite.T(), []string{"2", "3", "1", "4"}, amounts)
}

func (suite *DBTestSuite) TestListTransactionsScopedToUser() {
	other, err := suite.db.CreateUser(suite.ctx, "user2", "User Two", "", "hash")
	require.NoError(suite.T(), err)

	_, err = suite.db.AddTransaction(suite.ctx, suite.user.ID, suite.tx("2024-03-05", "1", models.CategoryGroceries))
	require.NoError(suite.T(), err)
	_, err = suite.db.AddTransaction(suite.ctx, other.ID, suite.tx("2024-03-05", "2", models.CategoryGroceries))
	require.NoError(suite.T(), err)

	txs, err := suite.db.ListTransactions(suite.ctx, other.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), txs, 1)
	assert.Equal(suite.T(), "2", txs[0].Amount.String())
}

func (suite *DBTestSuite) TestClearUserDataKeepsUser() {
	_, err := suite.db.AddTransaction(suite.ctx, suite.user.ID, suite.tx("2024-03-05", "1", models.CategoryGroceries))
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), suite.db.UpsertBudget(suite.ctx, models.Budget{
		UserID: suite.user.ID, Month: "2024-03", Category: models.CategoryGroceries, Amount: decimal.NewFromInt(300),
	}))

	require.NoError(suite.T(), suite.db.ClearUserData(suite.ctx, suite.user.ID))

	txs, err := suite.db.ListTransactions(suite.ctx, suite.user.ID)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), txs)

	budgets, err := suite.db.ListBudgets(suite.ctx, suite.user.ID, "2024-03")
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), budgets)

	_, err = suite.db.GetUserByID(suite.ctx, suite.user.ID)
	assert.NoError(suite.T(), err)
}

func (suite *DBTestSuite) TestUpsertBudget() {
	b := models.Budget{UserID: suite.user.ID, Month: "2024-03", Category: models.CategoryDining, Amount: decimal.NewFromInt(100)}
	require.NoError(suite.T(), suite.db.UpsertBudget(suite.ctx, b))

	b.Amount = decimal.NewFromInt(150)
	require.NoError(suite.T(), suite.db.UpsertBudget(suite.ctx, b))

	budgets, err := suite.db.ListBudgets(suite.ctx, suite.user.ID, "2024-03")
	require.NoError(suite.T(), err)
	require.Len(suite.T(), budgets, 1)
	assert.True(suite.T(), decimal.NewFromInt(150).Equal(budgets[0].Amount))
	assert.Equal(suite.T(), models.CategoryDining, budgets[0].Category)

	b.Month = "March"
	assert.Error(suite.T(), suite.db.UpsertBudget(suite.ctx, b))
}

// SessionTestSuite provides a test suite for session operations
type SessionTestSuite struct {
	suite.Suite
	db   *DB
	ctx  context.Context
	user *models.User
}

// SetupTest runs before each test
func (suite *SessionTestSuite) SetupTest() {
	db, err := NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
	suite.ctx = context.Background()

	password, err := auth.HashPassword("Testpass1!")
	require.NoError(suite.T(), err, "failed to hash password")

	user, err := suite.db.CreateUser(suite.ctx, "testuser", "Test User", "", password)
	require.NoError(suite.T(), err, "failed to create test user")
	suite.user = user
}

// TearDownTest runs after each test
func (suite *SessionTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *SessionTestSuite) newSession(expiresAt time.Time) string {
	token, err := auth.GenerateSessionToken()
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), suite.db.CreateSession(suite.ctx, token, suite.user.ID, expiresAt))
	return token
}

func (suite *SessionTestSuite) TestCreateAndValidateSession() {
	token := suite.newSession(time.Now().Add(30 * 24 * time.Hour))

	info, err := suite.db.ValidateSession(suite.ctx, token)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "testuser", info.User.Username)
	assert.Equal(suite.T(), "Test User", info.User.Name)
	assert.Less(suite.T(), time.Since(info.LastActivity), 5*time.Second, "LastActivity should be recent")
}

func (suite *SessionTestSuite) TestExpiredSessionIsRejected() {
	token := suite.newSession(time.Now().Add(-time.Minute))

	_, err := suite.db.ValidateSession(suite.ctx, token)
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	n, err := suite.db.CleanExpiredSessions(suite.ctx)
	require.NoError(suite.T(), err)
	assert.EqualValues(suite.T(), 1, n)
}

func (suite *SessionTestSuite) TestRenewSession() {
	token := suite.newSession(time.Now().Add(time.Hour))

	original, err := suite.db.ValidateSession(suite.ctx, token)
	require.NoError(suite.T(), err)

	later := time.Now().Add(2 * time.Second)
	suite.db.now = func() time.Time { return later }
	require.NoError(suite.T(), suite.db.RenewSession(suite.ctx, token, later.Add(60*24*time.Hour)))

	updated, err := suite.db.ValidateSession(suite.ctx, token)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), updated.LastActivity.After(original.LastActivity),
		"LastActivity should be updated after renewal")
	assert.True(suite.T(), updated.ExpiresAt.After(original.ExpiresAt),
		"ExpiresAt should be extended after renewal")
}

func (suite *SessionTestSuite) TestDeleteSession() {
	token := suite.newSession(time.Now().Add(time.Hour))

	_, err := suite.db.ValidateSession(suite.ctx, token)
	require.NoError(suite.T(), err, "session should exist before deletion")

	require.NoError(suite.T(), suite.db.DeleteSession(suite.ctx, token))

	_, err = suite.db.ValidateSession(suite.ctx, token)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func TestNewDBCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "finance.db")

	db, err := NewDB(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Reopening runs the migrations again without error.
	db, err = NewDB(path)
	require.NoError(t, err)
	defer db.Close()
	assert.FileExists(t, path)
}

func TestNewDBUpgradesLegacyDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	legacy, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = legacy.Exec(`
		CREATE TABLE transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			date TEXT NOT NULL,
			amount REAL NOT NULL,
			category TEXT NOT NULL,
			merchant TEXT,
			notes TEXT,
			created_at TEXT NOT NULL
		);
		CREATE TABLE budgets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			month TEXT NOT NULL,
			category TEXT NOT NULL,
			budget_amount REAL NOT NULL
		);
		INSERT INTO transactions (date, amount, category, created_at)
		VALUES ('2024-03-05', 12.5, 'Dining', '2024-03-05T10:00:00');
	`)
	require.NoError(t, err)
	require.NoError(t, legacy.Close())

	db, err := NewDB(path)
	require.NoError(t, err, "legacy database should open")
	defer db.Close()

	for _, c := range legacyColumns {
		cols, err := tableColumns(db.conn, c.table)
		require.NoError(t, err)
		assert.True(t, cols[c.column], "%s.%s", c.table, c.column)
	}

	var rows int
	require.NoError(t, db.conn.QueryRow("SELECT COUNT(*) FROM transactions").Scan(&rows))
	assert.Equal(t, 1, rows, "existing rows are kept")

	ctx := context.Background()
	user, err := db.CreateUser(ctx, "user1", "User One", "", "hash")
	require.NoError(t, err)
	_, err = db.AddTransaction(ctx, user.ID, models.Transaction{
		Date:     "2024-03-06",
		Amount:   decimal.RequireFromString("20"),
		Category: models.CategoryGroceries,
	})
	require.NoError(t, err)
	list, err := db.ListTransactions(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1, "rows without an owner stay out of user lists")
}

// Test suite runners
func TestDBSuite(t *testing.T) {
	suite.Run(t, new(DBTestSuite))
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionTestSuite))
}
