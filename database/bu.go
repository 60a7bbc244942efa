package database

import (
	"fmt"
	"time"

	"freshdock/config"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to the configured database and sizes the pool.
func Open() (*gorm.DB, error) {
	dialector, err := getDialector(config.DBName)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", config.DBDriver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// EnsureDatabaseExists creates the database on servers that allow it.
func EnsureDatabaseExists(dbName string) error {
	var (
		db  *gorm.DB
		err error
	)

	quiet := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}

	switch config.DBDriver {
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=postgres port=%s sslmode=disable",
			config.DBHost, config.DBUser, config.DBPassword, config.DBPort)
		db, err = gorm.Open(postgres.Open(dsn), quiet)
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/?charset=utf8mb4&parseTime=True&loc=Local",
			config.DBUser, config.DBPassword, config.DBHost, config.DBPort)
		db, err = gorm.Open(mysql.Open(dsn), quiet)
	case "mssql":
		dsn := fmt.Sprintf("sqlserver://%s:%s@%s:%s?database=master",
			config.DBUser, config.DBPassword, config.DBHost, config.DBPort)
		db, err = gorm.Open(sqlserver.Open(dsn), quiet)
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s", config.DBDriver)
	}
	if err != nil {
		return fmt.Errorf("connect to DB server: %w", err)
	}

	exists, err := checkDatabaseExists(db, dbName)
	if err != nil || exists {
		return err
	}

	switch config.DBDriver {
	case "postgres":
		return db.Exec("CREATE DATABASE " + dbName).Error
	case "mysql":
		return db.Exec("CREATE DATABASE IF NOT EXISTS " + dbName).Error
	default:
		return db.Exec("IF DB_ID('" + dbName + "') IS NULL CREATE DATABASE " + dbName).Error
	}
}

func checkDatabaseExists(db *gorm.DB, dbName string) (bool, error) {
	var count int64
	switch config.DBDriver {
	case "postgres":
		err := db.Raw("SELECT COUNT(*) FROM pg_database WHERE datname = ?", dbName).Scan(&count).Error
		return count > 0, err
	case "mysql":
		err := db.Raw("SELECT COUNT(*) FROM INFORMATION_SCHEMA.SCHEMATA WHERE SCHEMA_NAME = ?", dbName).Scan(&count).Error
		return count > 0, err
	case "mssql":
		err := db.Raw("SELECT COUNT(*) FROM master.sys.databases WHERE name = ?", dbName).Scan(&count).Error
		return count > 0, err
	default:
		return false, fmt.Errorf("unsupported DB driver")
	}
}

func getDialector(dbName string) (gorm.Dialector, error) {
	switch config.DBDriver {
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			config.DBHost, config.DBUser, config.DBPassword, dbName, config.DBPort)
		return postgres.Open(dsn), nil
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			config.DBUser, config.DBPassword, config.DBHost, config.DBPort, dbName)
		return mysql.Open(dsn), nil
	case "mssql":
		dsn := fmt.Sprintf("sqlserver://%s:%s@%s:%s?database=%s",
			config.DBUser, config.DBPassword, config.DBHost, config.DBPort, dbName)
		return sqlserver.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER: %s", config.DBDriver)
	}
}
