//go:build !wasm
// +build !wasm

// Package gorm provides a GORM-based implementation of habitbuddy.Store.
// It supports any database that GORM supports (PostgreSQL, MySQL, SQLite, etc.)
//
// # Database Schema
//
// The package auto-migrates the following tables:
//   - users: accounts, with a unique index on email
//   - habits: habits, indexed by user_id
//
// # Usage
//
//	db, _ := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
//	gormstore.AutoMigrate(db)
//	store := gormstore.NewStore(db)
package gorm
