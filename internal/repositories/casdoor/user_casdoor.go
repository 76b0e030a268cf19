package casdoor

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"

	"github.com/SAP-F-2025/exam-service/internal/cache"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

// CasdoorConfig holds the configuration for Casdoor connection
type CasdoorConfig struct {
	Endpoint         string
	ClientID         string
	ClientSecret     string
	Certificate      string
	OrganizationName string
	ApplicationName  string
}

// Casdoor user properties carrying the academic cohort
const (
	PropertyClass      = "class"
	PropertySemester   = "semester"
	PropertyDepartment = "department"
)

type UserCasdoor struct {
	client *casdoorsdk.Client
	cache  *cache.CacheHelper
}

func NewUserCasdoor(config CasdoorConfig, cacheManager *cache.CacheManager) repositories.UserRepository {
	client := casdoorsdk.NewClient(
		config.Endpoint,
		config.ClientID,
		config.ClientSecret,
		config.Certificate,
		config.OrganizationName,
		config.ApplicationName,
	)

	return &UserCasdoor{
		client: client,
		cache:  cacheManager.User,
	}
}

// ===== CONVERSION METHODS =====

// ConvertUser maps a Casdoor user to the service model
func ConvertUser(casdoorUser *casdoorsdk.User) *models.User {
	if casdoorUser == nil {
		return nil
	}

	name := casdoorUser.DisplayName
	if name == "" {
		name = casdoorUser.Name
	}

	user := &models.User{
		ID:         casdoorUser.Id,
		FullName:   name,
		Email:      casdoorUser.Email,
		Role:       resolveRole(casdoorUser),
		Class:      property(casdoorUser.Properties, PropertyClass),
		Semester:   property(casdoorUser.Properties, PropertySemester),
		Department: property(casdoorUser.Properties, PropertyDepartment),
	}
	if casdoorUser.Avatar != "" {
		avatar := casdoorUser.Avatar
		user.AvatarURL = &avatar
	}
	return user
}

// resolveRole prefers admin, then the first mapped Casdoor role, then the user type
func resolveRole(casdoorUser *casdoorsdk.User) models.UserRole {
	if casdoorUser.IsAdmin {
		return models.RoleAdmin
	}

	var roles []models.UserRole
	for _, role := range casdoorUser.Roles {
		if role == nil {
			continue
		}
		roles = append(roles, MapRole(role.Name))
	}
	if slices.Contains(roles, models.RoleAdmin) {
		return models.RoleAdmin
	}
	if len(roles) > 0 {
		return roles[0]
	}
	return MapRole(casdoorUser.Type)
}

// MapRole maps a Casdoor role name or user type to an internal role
func MapRole(casdoorType string) models.UserRole {
	switch strings.ToLower(casdoorType) {
	case "admin", "administrator":
		return models.RoleAdmin
	case "teacher", "instructor", "educator":
		return models.RoleTeacher
	case "proctor", "supervisor":
		return models.RoleProctor
	default:
		return models.RoleStudent
	}
}

func property(properties map[string]string, key string) string {
	if properties == nil {
		return ""
	}
	return strings.TrimSpace(properties[key])
}

// ===== READ OPERATIONS =====

// GetByID retrieves a user by ID
func (u *UserCasdoor) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := u.cache.CacheOrExecute(ctx, "id:"+id, &user, cache.UserCacheConfig.TTL, func() (interface{}, error) {
		casdoorUser, err := u.client.GetUserByUserId(id)
		if err != nil {
			return nil, fmt.Errorf("failed to get user from Casdoor: %w", err)
		}
		if casdoorUser == nil {
			return nil, fmt.Errorf("user %s: %w", id, repositories.ErrNotFound)
		}
		return ConvertUser(casdoorUser), nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByIDs retrieves several users, skipping unknown ids
func (u *UserCasdoor) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	users := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		user, err := u.GetByID(ctx, id)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				continue
			}
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// ListStudents lists the students of a class and semester
func (u *UserCasdoor) ListStudents(ctx context.Context, filters repositories.RosterFilters) ([]*models.User, error) {
	var students []*models.User
	key := fmt.Sprintf("roster:%s:%s", filters.Class, filters.Semester)

	err := u.cache.CacheOrExecute(ctx, key, &students, cache.UserCacheConfig.TTL, func() (interface{}, error) {
		casdoorUsers, err := u.client.GetUsers()
		if err != nil {
			return nil, fmt.Errorf("failed to get users from Casdoor: %w", err)
		}

		roster := make([]*models.User, 0)
		for _, casdoorUser := range casdoorUsers {
			user := ConvertUser(casdoorUser)
			if user == nil || user.Role != models.RoleStudent {
				continue
			}
			if filters.Class != "" && user.Class != filters.Class {
				continue
			}
			if filters.Semester != "" && user.Semester != filters.Semester {
				continue
			}
			roster = append(roster, user)
		}
		return roster, nil
	})
	if err != nil {
		return nil, err
	}

	return students, nil
}
