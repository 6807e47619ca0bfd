package models

import "fmt"

// PhotoCategory selects which visibility tier governs a photo.
type PhotoCategory string

const (
	PhotoCategoryProfile PhotoCategory = "profile"
	PhotoCategoryGallery PhotoCategory = "gallery"
)

// ParsePhotoCategory validates a category taken from a request path.
func ParsePhotoCategory(s string) (PhotoCategory, error) {
	switch PhotoCategory(s) {
	case PhotoCategoryProfile, PhotoCategoryGallery:
		return PhotoCategory(s), nil
	}
	return "", fmt.Errorf("unknown photo category %q", s)
}

// ProfileVisibility is the owner-configured tier for profile photos.
type ProfileVisibility string

const (
	ProfileVisibilityPublic          ProfileVisibility = "public"
	ProfileVisibilityLoggedInUsers   ProfileVisibility = "logged_in_users"
	ProfileVisibilityInterestedUsers ProfileVisibility = "interested_users"
	ProfileVisibilityConnectedUsers  ProfileVisibility = "connected_users"
	ProfileVisibilityPremiumUsers    ProfileVisibility = "premium_users"
	ProfileVisibilityPrivate         ProfileVisibility = "private"
)

// Valid reports whether v is one of the known profile tiers.
func (v ProfileVisibility) Valid() bool {
	switch v {
	case ProfileVisibilityPublic, ProfileVisibilityLoggedInUsers, ProfileVisibilityInterestedUsers,
		ProfileVisibilityConnectedUsers, ProfileVisibilityPremiumUsers, ProfileVisibilityPrivate:
		return true
	}
	return false
}

// GalleryVisibility is the owner-configured tier for gallery photos.
type GalleryVisibility string

const (
	GalleryVisibilityConnectedUsers GalleryVisibility = "connected_users"
	GalleryVisibilityMutualInterest GalleryVisibility = "mutual_interest"
	GalleryVisibilityPremiumUsers   GalleryVisibility = "premium_users"
	GalleryVisibilityPrivate        GalleryVisibility = "private"
)

// Valid reports whether v is one of the known gallery tiers.
func (v GalleryVisibility) Valid() bool {
	switch v {
	case GalleryVisibilityConnectedUsers, GalleryVisibilityMutualInterest,
		GalleryVisibilityPremiumUsers, GalleryVisibilityPrivate:
		return true
	}
	return false
}

// PrivacySettings holds the raw stored tiers. Empty means not configured;
// values are kept as stored so the resolver can tell "missing" from
// "unrecognized".
type PrivacySettings struct {
	ProfilePhotoVisibility ProfileVisibility `json:"profile_photo_visibility"`
	GalleryVisibility      GalleryVisibility `json:"gallery_visibility"`
}

// DefaultPrivacySettings is what new profiles are created with.
func DefaultPrivacySettings() PrivacySettings {
	return PrivacySettings{
		ProfilePhotoVisibility: ProfileVisibilityLoggedInUsers,
		GalleryVisibility:      GalleryVisibilityConnectedUsers,
	}
}
