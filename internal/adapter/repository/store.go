package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github-profile-miner/internal/common"
	"github-profile-miner/internal/config"
	"github-profile-miner/internal/domain"

	"github.com/charmbracelet/log"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Store 实现了 port.ProfileStore 接口
type Store struct {
	db      *gorm.DB
	logger  *log.Logger
	nowFunc func() time.Time
}

// NewStore 包装一个已经打开的连接
func NewStore(db *gorm.DB, l *log.Logger) *Store {
	if l == nil {
		l = common.NopLogger()
	}
	return &Store{
		db:      db,
		logger:  l.With("component", "store"),
		nowFunc: time.Now,
	}
}

// Open 连接数据库、配置连接池并自动迁移表结构
// 启动时数据库可能还没就绪，Ping 会按配置重试
func Open(ctx context.Context, cfg config.DatabaseConfig, l *log.Logger) (*Store, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取连接池失败: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	store := NewStore(db, l)

	err = common.Do(ctx, func() error {
		return sqlDB.PingContext(ctx)
	},
		common.WithMaxRetries(cfg.ConnectRetries),
		common.WithInitialDelay(500*time.Millisecond),
		common.WithMaxDelay(5*time.Second),
		common.WithOnRetry(func(attempt int, err error) {
			store.logger.Warn("database not ready, retrying", "attempt", attempt, "err", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("数据库不可用: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&domain.Profile{}, &domain.Repository{}, &domain.DataExport{}); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	return store, nil
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return postgres.Open(cfg.DSN), nil
	case config.DriverMySQL:
		dsn, err := mysqlDSN(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return mysql.Open(dsn), nil
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %q", cfg.Driver)
	}
}

// mysqlDSN 强制 parseTime，否则 DATETIME 无法扫描到 time.Time
func mysqlDSN(raw string) (string, error) {
	parsed, err := mysqlDriver.ParseDSN(raw)
	if err != nil {
		return "", fmt.Errorf("解析 MySQL DSN 失败: %w", err)
	}
	parsed.ParseTime = true
	parsed.Loc = time.UTC
	return parsed.FormatDSN(), nil
}

// Close 关闭底层连接池
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Upsert 按 username 插入或更新档案，并整体替换仓库快照
// 档案字段和仓库替换在同一个事务里，要么全部提交，要么全部回滚
// 首次插入时两个请求同时到达会撞上唯一索引，此时重跑一次事务走更新分支
func (s *Store) Upsert(ctx context.Context, profile *domain.Profile) (uint, error) {
	var stored *domain.Profile
	err := common.Do(ctx, func() error {
		var txErr error
		stored, txErr = s.upsertOnce(ctx, profile)
		return txErr
	},
		common.WithMaxRetries(1),
		common.WithInitialDelay(20*time.Millisecond),
		common.WithRetryIf(func(err error) bool {
			return errors.Is(err, gorm.ErrDuplicatedKey)
		}),
	)
	if err != nil {
		s.logger.Error("upsert profile failed", "username", profile.Username, "err", err)
		return 0, common.WrapError(common.ErrCodeDatabase, "保存档案失败", err)
	}

	profile.ID = stored.ID
	profile.CreatedAt = stored.CreatedAt
	profile.UpdatedAt = stored.UpdatedAt
	return stored.ID, nil
}

func (s *Store) upsertOnce(ctx context.Context, profile *domain.Profile) (*domain.Profile, error) {
	var stored domain.Profile

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.nowFunc().UTC()

		// SELECT ... FOR UPDATE，同一个 username 的并发构建在这里串行化
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("username = ?", profile.Username).
			Take(&stored).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			// 父记录先落库拿到 ID，子记录才能引用它
			stored = copyProfileFields(domain.Profile{}, profile)
			stored.CreatedAt = now
			stored.UpdatedAt = now
			if err := tx.Omit(clause.Associations).Create(&stored).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			stored = copyProfileFields(stored, profile)
			if now.After(stored.UpdatedAt) {
				stored.UpdatedAt = now
			}
			if err := tx.Omit(clause.Associations).Save(&stored).Error; err != nil {
				return err
			}
			if err := tx.Where("profile_id = ?", stored.ID).Delete(&domain.Repository{}).Error; err != nil {
				return err
			}
		}

		if len(profile.Repositories) == 0 {
			return nil
		}
		repos := make([]domain.Repository, len(profile.Repositories))
		for i, r := range profile.Repositories {
			r.ID = 0
			r.ProfileID = stored.ID
			r.Position = i
			repos[i] = r
		}
		if err := tx.Create(&repos).Error; err != nil {
			return err
		}
		for i := range profile.Repositories {
			profile.Repositories[i].ID = repos[i].ID
			profile.Repositories[i].ProfileID = stored.ID
			profile.Repositories[i].Position = i
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// copyProfileFields 复制可变字段，保留 dst 的 ID 和 CreatedAt
func copyProfileFields(dst domain.Profile, src *domain.Profile) domain.Profile {
	dst.Username = src.Username
	dst.Name = src.Name
	dst.Bio = src.Bio
	dst.BioLanguage = src.BioLanguage
	dst.BioSentiment = src.BioSentiment
	dst.PublicRepos = src.PublicRepos
	dst.Followers = src.Followers
	dst.Following = src.Following
	dst.AvatarURL = src.AvatarURL
	dst.Repositories = nil
	dst.Exports = nil
	return dst
}

// FindByUsername 读取档案及其仓库，仓库按排名排序
func (s *Store) FindByUsername(ctx context.Context, username string) (*domain.Profile, error) {
	var profile domain.Profile
	err := s.db.WithContext(ctx).
		Preload("Repositories", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("username = ?", username).
		Take(&profile).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.WrapError(common.ErrCodeNotFound, "档案不存在", err)
	}
	if err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, "读取档案失败", err)
	}
	return &profile, nil
}

// RecordExport 追加导出审计记录
func (s *Store) RecordExport(ctx context.Context, export *domain.DataExport) error {
	if export.CreatedAt.IsZero() {
		export.CreatedAt = s.nowFunc().UTC()
	}
	if err := s.db.WithContext(ctx).Create(export).Error; err != nil {
		s.logger.Error("record export failed", "profile_id", export.ProfileID, "err", err)
		return common.WrapError(common.ErrCodeDatabase, "写入导出记录失败", err)
	}
	return nil
}

// Delete 删除档案及其拥有的仓库和导出记录
// 显式按子表到父表的顺序删除，不依赖外键级联
func (s *Store) Delete(ctx context.Context, username string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var profile domain.Profile
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("username = ?", username).
			Take(&profile).Error; err != nil {
			return err
		}
		if err := tx.Where("profile_id = ?", profile.ID).Delete(&domain.DataExport{}).Error; err != nil {
			return err
		}
		if err := tx.Where("profile_id = ?", profile.ID).Delete(&domain.Repository{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Profile{}, profile.ID).Error
	})

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return common.WrapError(common.ErrCodeNotFound, "档案不存在", err)
	}
	if err != nil {
		return common.WrapError(common.ErrCodeDatabase, "删除档案失败", err)
	}
	return nil
}
