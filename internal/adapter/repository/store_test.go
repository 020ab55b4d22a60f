package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github-profile-miner/internal/common"
	"github-profile-miner/internal/config"
	"github-profile-miner/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var profileColumns = []string{
	"id", "username", "name", "bio", "bio_language", "bio_sentiment",
	"public_repos", "followers", "following", "avatar_url", "created_at", "updated_at",
}

// setupMockDB 创建一个模拟的数据库连接
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open gorm db: %v", err)
	}

	cleanup := func() {
		db.Close()
	}

	return gormDB, mock, cleanup
}

func newTestStore(gormDB *gorm.DB, now time.Time) *Store {
	store := NewStore(gormDB, nil)
	store.nowFunc = func() time.Time { return now }
	return store
}

func strPtr(s string) *string { return &s }

func sampleProfile() *domain.Profile {
	sentiment := 0.25
	return &domain.Profile{
		Username:     "octocat",
		Name:         "The Octocat",
		Bio:          strPtr("Hello World"),
		BioLanguage:  "en",
		BioSentiment: &sentiment,
		PublicRepos:  8,
		Followers:    100,
		Following:    9,
		AvatarURL:    "https://avatars.githubusercontent.com/u/583231",
		Repositories: []domain.Repository{
			{Name: "hello-world", Stars: 42, HTMLURL: "https://github.com/octocat/hello-world"},
			{Name: "spoon-knife", Stars: 7, HTMLURL: "https://github.com/octocat/spoon-knife", Language: strPtr("HTML")},
		},
	}
}

func existingRow(id uint, updatedAt time.Time) *sqlmock.Rows {
	created := updatedAt.Add(-24 * time.Hour)
	return sqlmock.NewRows(profileColumns).AddRow(
		id, "octocat", "Old Name", "old bio", "en", 0.1,
		1, 2, 3, "https://old.example/avatar", created, updatedAt,
	)
}

func TestStore_Upsert(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		profile       func() *domain.Profile
		setupMock     func(sqlmock.Sqlmock)
		expectID      uint
		expectError   bool
		expectUpdated time.Time
	}{
		{
			name:    "新档案：先插父记录再插仓库",
			profile: sampleProfile,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "github_profiles"`)).
					WillReturnRows(sqlmock.NewRows(profileColumns))
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "github_profiles"`)).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "repositories"`)).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))
				mock.ExpectCommit()
			},
			expectID:      7,
			expectUpdated: now,
		},
		{
			name:    "已存在：更新字段、删除旧仓库、插入新快照",
			profile: sampleProfile,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "github_profiles"`)).
					WillReturnRows(existingRow(3, now.Add(-time.Hour)))
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE "github_profiles"`)).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "repositories"`)).
					WillReturnResult(sqlmock.NewResult(0, 5))
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "repositories"`)).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10).AddRow(11))
				mock.ExpectCommit()
			},
			expectID:      3,
			expectUpdated: now,
		},
		{
			name: "已存在且没有仓库：只清空旧快照",
			profile: func() *domain.Profile {
				p := sampleProfile()
				p.Repositories = nil
				return p
			},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "github_profiles"`)).
					WillReturnRows(existingRow(3, now.Add(-time.Hour)))
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE "github_profiles"`)).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "repositories"`)).
					WillReturnResult(sqlmock.NewResult(0, 2))
				mock.ExpectCommit()
			},
			expectID:      3,
			expectUpdated: now,
		},
		{
			name:    "时钟回拨时 updated_at 不后退",
			profile: sampleProfile,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "github_profiles"`)).
					WillReturnRows(existingRow(3, now.Add(time.Hour)))
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE "github_profiles"`)).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "repositories"`)).
					WillReturnResult(sqlmock.NewResult(0, 2))
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "repositories"`)).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10).AddRow(11))
				mock.ExpectCommit()
			},
			expectID:      3,
			expectUpdated: now.Add(time.Hour),
		},
		{
			name:    "插入仓库失败：整个事务回滚",
			profile: sampleProfile,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "github_profiles"`)).
					WillReturnRows(sqlmock.NewRows(profileColumns))
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "github_profiles"`)).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "repositories"`)).
					WillReturnError(gorm.ErrInvalidDB)
				mock.ExpectRollback()
			},
			expectError: true,
		},
		{
			name:    "首次插入撞唯一索引：重跑事务走更新分支",
			profile: sampleProfile,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "github_profiles"`)).
					WillReturnRows(sqlmock.NewRows(profileColumns))
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "github_profiles"`)).
					WillReturnError(gorm.ErrDuplicatedKey)
				mock.ExpectRollback()

				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "github_profiles"`)).
					WillReturnRows(existingRow(9, now.Add(-time.Second)))
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE "github_profiles"`)).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "repositories"`)).
					WillReturnResult(sqlmock.NewResult(0, 2))
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "repositories"`)).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(20).AddRow(21))
				mock.ExpectCommit()
			},
			expectID:      9,
			expectUpdated: now,
		},
		{
			name:    "查询失败",
			profile: sampleProfile,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "github_profiles"`)).
					WillReturnError(gorm.ErrInvalidDB)
				mock.ExpectRollback()
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gormDB, mock, cleanup := setupMockDB(t)
			defer cleanup()

			tt.setupMock(mock)

			store := newTestStore(gormDB, now)
			profile := tt.profile()

			id, err := store.Upsert(context.Background(), profile)

			if tt.expectError {
				assert.Error(t, err)
				assert.Equal(t, common.ErrCodeDatabase, common.CodeOf(err))
				assert.Zero(t, id)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectID, id)
				assert.Equal(t, tt.expectID, profile.ID)
				assert.True(t, tt.expectUpdated.Equal(profile.UpdatedAt), "updated_at = %v", profile.UpdatedAt)
				for i, r := range profile.Repositories {
					assert.Equal(t, i, r.Position)
					assert.Equal(t, tt.expectID, r.ProfileID)
				}
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_FindByUsername(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("读取档案和按排名排序的仓库", func(t *testing.T) {
		gormDB, mock, cleanup := setupMockDB(t)
		defer cleanup()

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "github_profiles"`)).
			WillReturnRows(existingRow(3, now))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "repositories"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "profile_id", "position", "name", "description", "stars", "language", "html_url"}).
				AddRow(10, 3, 0, "hello-world", nil, 42, "Go", "https://github.com/octocat/hello-world").
				AddRow(11, 3, 1, "spoon-knife", "fork me", 7, nil, "https://github.com/octocat/spoon-knife"))

		store := newTestStore(gormDB, now)
		profile, err := store.FindByUsername(context.Background(), "octocat")

		require.NoError(t, err)
		assert.Equal(t, uint(3), profile.ID)
		assert.Equal(t, "Old Name", profile.Name)
		require.Len(t, profile.Repositories, 2)
		assert.Equal(t, "hello-world", profile.Repositories[0].Name)
		assert.Nil(t, profile.Repositories[0].Description)
		assert.Equal(t, "fork me", *profile.Repositories[1].Description)
		assert.Nil(t, profile.Repositories[1].Language)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("不存在", func(t *testing.T) {
		gormDB, mock, cleanup := setupMockDB(t)
		defer cleanup()

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "github_profiles"`)).
			WillReturnRows(sqlmock.NewRows(profileColumns))

		store := newTestStore(gormDB, now)
		profile, err := store.FindByUsername(context.Background(), "ghost")

		assert.Nil(t, profile)
		assert.Equal(t, common.ErrCodeNotFound, common.CodeOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("数据库错误", func(t *testing.T) {
		gormDB, mock, cleanup := setupMockDB(t)
		defer cleanup()

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "github_profiles"`)).
			WillReturnError(gorm.ErrInvalidDB)

		store := newTestStore(gormDB, now)
		_, err := store.FindByUsername(context.Background(), "octocat")

		assert.Equal(t, common.ErrCodeDatabase, common.CodeOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStore_RecordExport(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		setupMock   func(sqlmock.Sqlmock)
		expectError bool
	}{
		{
			name: "成功写入",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "data_exports"`)).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
				mock.ExpectCommit()
			},
		},
		{
			name: "写入失败",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "data_exports"`)).
					WillReturnError(gorm.ErrInvalidDB)
				mock.ExpectRollback()
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gormDB, mock, cleanup := setupMockDB(t)
			defer cleanup()

			tt.setupMock(mock)

			store := newTestStore(gormDB, now)
			export := &domain.DataExport{ProfileID: 3, Format: "xml", FilePath: "octocat_profile.xml"}
			err := store.RecordExport(context.Background(), export)

			if tt.expectError {
				assert.Equal(t, common.ErrCodeDatabase, common.CodeOf(err))
			} else {
				assert.NoError(t, err)
				assert.Equal(t, uint(1), export.ID)
				assert.True(t, now.Equal(export.CreatedAt))
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_Delete(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("按子表到父表顺序删除", func(t *testing.T) {
		gormDB, mock, cleanup := setupMockDB(t)
		defer cleanup()

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "github_profiles"`)).
			WillReturnRows(existingRow(3, now))
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "data_exports"`)).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "repositories"`)).
			WillReturnResult(sqlmock.NewResult(0, 5))
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "github_profiles"`)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		store := newTestStore(gormDB, now)
		assert.NoError(t, store.Delete(context.Background(), "octocat"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("不存在", func(t *testing.T) {
		gormDB, mock, cleanup := setupMockDB(t)
		defer cleanup()

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "github_profiles"`)).
			WillReturnRows(sqlmock.NewRows(profileColumns))
		mock.ExpectRollback()

		store := newTestStore(gormDB, now)
		err := store.Delete(context.Background(), "ghost")
		assert.Equal(t, common.ErrCodeNotFound, common.CodeOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDialectorFor(t *testing.T) {
	d, err := dialectorFor(config.DatabaseConfig{Driver: config.DriverPostgres, DSN: "host=localhost"})
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	d, err = dialectorFor(config.DatabaseConfig{Driver: config.DriverMySQL, DSN: "root:secret@tcp(localhost:3306)/profiles"})
	require.NoError(t, err)
	assert.Equal(t, "mysql", d.Name())

	_, err = dialectorFor(config.DatabaseConfig{Driver: "sqlite"})
	assert.Error(t, err)
}

func TestMySQLDSN(t *testing.T) {
	dsn, err := mysqlDSN("root:secret@tcp(localhost:3306)/profiles")
	require.NoError(t, err)
	assert.Contains(t, dsn, "parseTime=true")

	_, err = mysqlDSN("not a dsn")
	assert.Error(t, err)
}
