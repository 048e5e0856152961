package repositories

import (
	"context"
	"testing"
	"time"

	"sakan/internal/models"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type AccessCodeRepoTestSuite struct {
	suite.Suite
	mock     pgxmock.PgxPoolIface
	repo     AccessCodeRepository
	originID uuid.UUID
	context  context.Context
}

func (suite *AccessCodeRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewAccessCodeRepo(mock)
	suite.originID = uuid.New()
	suite.context = context.Background()
}

func (suite *AccessCodeRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestAccessCodeRepoTestSuite(t *testing.T) {
	suite.Run(t, new(AccessCodeRepoTestSuite))
}

func (suite *AccessCodeRepoTestSuite) TestCreate() {
	code := &models.AccessCode{
		Code:         "ABCD2345",
		OriginUserID: suite.originID,
		TargetEmail:  "successor@example.test",
		ActionType:   models.ActionChangeRole,
		ExpiresAt:    time.Now().Add(7 * 24 * time.Hour),
	}

	suite.mock.ExpectExec(`INSERT INTO access_codes`).
		WithArgs(code.Code, code.OriginUserID, code.TargetEmail, code.ResidenceID, code.ActionType, code.ExpiresAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := suite.repo.Create(suite.context, code)
	assert.NoError(suite.T(), err)
}

func (suite *AccessCodeRepoTestSuite) TestGetByCode_Found() {
	now := time.Now()
	rows := pgxmock.NewRows([]string{
		"code", "origin_user_id", "target_email", "residence_id", "action_type",
		"used", "used_by", "failed_attempts", "expires_at", "created_at",
	}).AddRow("ABCD2345", suite.originID, "successor@example.test", nil, models.ActionChangeRole,
		false, nil, 1, now.Add(time.Hour), now)

	suite.mock.ExpectQuery(`SELECT code, origin_user_id, target_email, residence_id, action_type, used, used_by, failed_attempts, expires_at, created_at\s+FROM access_codes\s+WHERE code = \$1`).
		WithArgs("ABCD2345").
		WillReturnRows(rows)

	record, err := suite.repo.GetByCode(suite.context, "ABCD2345")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, record.FailedAttempts)
	assert.False(suite.T(), record.Used)
}

func (suite *AccessCodeRepoTestSuite) TestGetByCode_NotFound() {
	suite.mock.ExpectQuery(`SELECT .+ FROM access_codes`).
		WithArgs("MISSING2").
		WillReturnError(pgx.ErrNoRows)

	record, err := suite.repo.GetByCode(suite.context, "MISSING2")
	assert.Error(suite.T(), err)
	assert.Nil(suite.T(), record)
}

func (suite *AccessCodeRepoTestSuite) TestExists() {
	suite.mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM access_codes WHERE code = \$1\)`).
		WithArgs("ABCD2345").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := suite.repo.Exists(suite.context, "ABCD2345")
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), exists)
}

func (suite *AccessCodeRepoTestSuite) TestIncrementFailedAttempts_ReturnsNewValue() {
	suite.mock.ExpectQuery(`UPDATE access_codes SET failed_attempts = failed_attempts \+ 1 WHERE code = \$1 RETURNING failed_attempts`).
		WithArgs("ABCD2345").
		WillReturnRows(pgxmock.NewRows([]string{"failed_attempts"}).AddRow(2))

	attempts, err := suite.repo.IncrementFailedAttempts(suite.context, "ABCD2345")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 2, attempts)
}

func (suite *AccessCodeRepoTestSuite) TestMarkUsed() {
	usedBy := uuid.New()
	suite.mock.ExpectExec(`UPDATE access_codes SET used = TRUE, used_by = \$1 WHERE code = \$2`).
		WithArgs(usedBy, "ABCD2345").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := suite.repo.MarkUsed(suite.context, "ABCD2345", usedBy)
	assert.NoError(suite.T(), err)
}

func (suite *AccessCodeRepoTestSuite) TestDelete() {
	suite.mock.ExpectExec(`DELETE FROM access_codes WHERE code = \$1`).
		WithArgs("ABCD2345").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err := suite.repo.Delete(suite.context, "ABCD2345")
	assert.NoError(suite.T(), err)
}
