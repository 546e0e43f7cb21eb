package db

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func NewPSQLStorage(connString string) (*gorm.DB, error) {

	db, err := gorm.Open(postgres.Open(connString), &gorm.Config{})

	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(25)

	sqlDB.SetMaxIdleConns(25)

	return db, nil
}
