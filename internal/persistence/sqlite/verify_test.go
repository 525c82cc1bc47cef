// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package sqlite

import (
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_AppliesPragmas(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "pragmas.db"), DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil || mode != "wal" {
		t.Errorf("expected WAL mode, got %s (err: %v)", mode, err)
	}

	var timeout int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil || timeout != 5000 {
		t.Errorf("expected busy_timeout=5000, got %d (err: %v)", timeout, err)
	}
}

func TestVerifyIntegrity_DetectsCorruption(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "corruptible.sqlite")

	db, err := Open(dbPath, DefaultConfig())
	if err != nil {
		t.Fatalf("create database: %v", err)
	}
	if _, err := db.Exec("CREATE TABLE attendance (id INTEGER PRIMARY KEY, subject TEXT);"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	for i := 0; i < 100; i++ {
		_, _ = db.Exec("INSERT INTO attendance (subject) VALUES (printf('%.100c', 'A'));")
	}
	// Fold the WAL back into the main file so the corruption below hits real pages.
	_, _ = db.Exec("PRAGMA wal_checkpoint(TRUNCATE);")
	db.Close()

	issues, err := VerifyIntegrity(dbPath, "quick")
	if err != nil {
		t.Fatalf("initial verification: %v", err)
	}
	if issues != nil {
		t.Fatalf("fresh database reported issues: %v", issues)
	}

	f, err := os.OpenFile(dbPath, os.O_RDWR, 0o644)
	if err != nil {
		t.Fatalf("open for corruption: %v", err)
	}
	junk := make([]byte, 100)
	_, _ = rand.Read(junk)
	_, err = f.WriteAt(junk, 4096)
	f.Close()
	if err != nil {
		t.Fatalf("write corrupt data: %v", err)
	}

	issues, err = VerifyIntegrity(dbPath, "full")
	if err != nil {
		t.Fatalf("verification after corruption: %v", err)
	}
	if issues == nil {
		t.Error("corrupted database passed the integrity check")
	}
}

func TestVerifyIntegrity_NotADatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "garbage.sqlite")
	junk := make([]byte, 8192)
	_, _ = rand.Read(junk)
	if err := os.WriteFile(dbPath, junk, 0o600); err != nil {
		t.Fatal(err)
	}

	issues, err := VerifyIntegrity(dbPath, "quick")
	if err != nil {
		t.Fatalf("damaged file should yield findings, got error: %v", err)
	}
	if len(issues) == 0 {
		t.Fatal("garbage file passed the integrity check")
	}
}
