package database

import (
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/gorm"

	"github.com/qs3c/datafair_server/internal/model"
)

// Models AutoMigrate 使用的全部模型
var Models = []interface{}{
	&model.User{},
	&model.Survey{},
	&model.Question{},
	&model.SurveyResponse{},
	&model.QualificationResponse{},
	&model.Earning{},
	&model.Payout{},
	&model.DataType{},
	&model.DataPermission{},
	&model.Activity{},
}

// Migrate migrationsPath 为空时退回 AutoMigrate，仅用于本地开发
func Migrate(db *gorm.DB, migrationsPath string) error {
	if migrationsPath == "" {
		log.Println("No migrations path configured, running AutoMigrate")
		return db.AutoMigrate(Models...)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB from gorm.DB: %w", err)
	}

	driver, err := migratemysql.WithInstance(sqlDB, &migratemysql.Config{})
	if err != nil {
		return fmt.Errorf("creating mysql driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"mysql",
		driver,
	)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	log.Printf("Migrations applied, version=%d dirty=%v", version, dirty)
	return nil
}
