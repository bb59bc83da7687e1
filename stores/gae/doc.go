//go:build !wasm
// +build !wasm

// Package gae provides a Google Cloud Datastore implementation of
// habitbuddy.Store. It supports multi-tenancy through Datastore namespaces.
//
// # Datastore Kinds
//
// The package uses the following Datastore kinds:
//   - User: User accounts
//   - UserEmail: One entity per registered email, keyed by its SHA-256.
//     Written in the same transaction as the User so emails stay unique.
//   - Habit: Habits, queried by user_id
//
// # Usage
//
//	client, _ := datastore.NewClient(ctx, projectID)
//	store := gae.NewStore(client, "")  // default namespace
package gae
