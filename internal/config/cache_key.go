package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserSessionKey returns the cache key for a user's login session (JTI).
func (r *CacheKeyStruct) UserSessionKey(userID int) string {
	return fmt.Sprintf("login:%d", userID)
}

// OpenPackageKey returns the cache key for an unsealed package's metadata,
// held between unseal and attempt start.
func (r *CacheKeyStruct) OpenPackageKey(packageID string) string {
	return fmt.Sprintf("package:%s:open", packageID)
}

// PackageImageKey returns the cache key for one question image of an
// unsealed package.
func (r *CacheKeyStruct) PackageImageKey(packageID, imagePath string) string {
	return fmt.Sprintf("package:%s:image:%s", packageID, imagePath)
}

// UserActiveAttemptKey returns the cache key for a user's currently active
// attempt.
func (r *CacheKeyStruct) UserActiveAttemptKey(userID int) string {
	return fmt.Sprintf("user:%d:active_attempt", userID)
}

var CacheKey = NewCacheKeyStruct()
