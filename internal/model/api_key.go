// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain models and types used throughout the application.
package model

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"slices"
)

// API permissions
const (
	PermissionThemesWrite      = "themes:write"
	PermissionDiscussionsWrite = "discussions:write"
	PermissionTaxonomyWrite    = "taxonomy:write"

	// PermissionAdmin grants every other permission, including all
	// category view permissions.
	PermissionAdmin = "site:admin"
)

// APIKeyPrefixLength is the number of leading key characters stored in clear.
const APIKeyPrefixLength = 8

// AllPermissions returns all built-in API permissions.
func AllPermissions() []string {
	return []string{
		PermissionThemesWrite,
		PermissionDiscussionsWrite,
		PermissionTaxonomyWrite,
		PermissionAdmin,
	}
}

// GenerateAPIKey generates a new random API key.
// Returns the raw key (to show the user once) and the key prefix.
func GenerateAPIKey() (rawKey string, prefix string, err error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", err
	}

	rawKey = base64.URLEncoding.EncodeToString(bytes)
	return rawKey, rawKey[:APIKeyPrefixLength], nil
}

// HashAPIKey creates a SHA-256 hash of the API key for storage.
func HashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// ParsePermissions parses a JSON permissions array.
// Returns nil for empty or invalid input.
func ParsePermissions(raw string) []string {
	if raw == "" || raw == "[]" {
		return nil
	}
	var perms []string
	if err := json.Unmarshal([]byte(raw), &perms); err != nil {
		return nil
	}
	return perms
}

// PermissionsToJSON converts a slice of permissions to a JSON string.
func PermissionsToJSON(perms []string) string {
	if len(perms) == 0 {
		return "[]"
	}
	data, _ := json.Marshal(perms)
	return string(data)
}

// Caller identifies who is making a request. The zero value is an
// anonymous caller with no permissions.
type Caller struct {
	KeyID       int64
	UserID      int64
	Permissions []string
}

// Anonymous returns a caller without credentials.
func Anonymous() Caller {
	return Caller{}
}

// IsAuthenticated reports whether the caller presented a valid key.
func (c Caller) IsAuthenticated() bool {
	return c.KeyID != 0
}

// Has reports whether the caller holds perm. An empty perm is always held.
func (c Caller) Has(perm string) bool {
	if perm == "" {
		return true
	}
	return slices.Contains(c.Permissions, perm) || slices.Contains(c.Permissions, PermissionAdmin)
}
