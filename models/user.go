package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/payables_backend/config"
	"bitbucket.org/mmdatafocus/payables_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Username  string    `gorm:"size:100;not null;unique" json:"username"`
	Password  string    `gorm:"size:255;not null" json:"password"`
	Role      UserRole  `gorm:"size:10;not null;default:user;check:role IN ('admin','user')" json:"role"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Username string `json:"username" binding:"required,max=100"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

type LoginInput struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

type LoginInfo struct {
	Token    string   `json:"token"`
	Username string   `json:"username"`
	Role     UserRole `json:"role"`
}

/*
caches:
	User:$username
	Token:$token -> username
	Tokens:$username -> set of tokens
*/

func (user User) userCacheKey() string {
	return "User:" + user.Username
}

// PrepareGive strips the hash before the user leaves the process.
func (user *User) PrepareGive() {
	user.Password = ""
}

func (user User) Active() bool {
	return user.IsActive == nil || *user.IsActive
}

var errInvalidCredentials = utils.AuthError("invalid username or password")

// userCacheLifespan bounds how long a role or is_active change written
// outside SetUserActive takes to reach open sessions.
const userCacheLifespan = 5 * time.Minute

// findUser reads the cached copy first, then the users table.
func findUser(ctx context.Context, username string) (*User, error) {
	var user User
	exists, err := config.GetRedisObject(ctx, "User:"+username, &user)
	if err != nil {
		config.LogError(config.GetLogger(), "models", "findUser", "reading user cache", username, err)
	}
	if exists && user.Username == username {
		return &user, nil
	}

	db, err := readDB(ctx)
	if err != nil {
		return nil, err
	}
	if err := db.Where("username = ?", username).Take(&user).Error; err != nil {
		return nil, notFoundOr(err, "user")
	}
	if err := config.SetRedisObject(ctx, user.userCacheKey(), &user, userCacheLifespan); err != nil {
		config.LogError(config.GetLogger(), "models", "findUser", "writing user cache", username, err)
	}
	return &user, nil
}

func Login(ctx context.Context, username string, password string) (*LoginInfo, error) {
	username = strings.TrimSpace(username)
	user, err := findUser(ctx, username)
	if err != nil {
		if utils.IsNotFound(err) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	// check login credentials. a corrupt hash is a failed login too
	if err := utils.ComparePassword(user.Password, password); err != nil {
		if !errors.Is(err, utils.ErrMismatchedPassword) {
			config.LogError(config.GetLogger(), "models", "Login", "comparing password", username, err)
		}
		return nil, errInvalidCredentials
	}
	if !user.Active() {
		return nil, utils.AuthError("user is disabled")
	}

	token := uuid.NewString()
	if err := config.AddRedisSet(ctx, "Tokens:"+user.Username, token); err != nil {
		return nil, utils.StoreError(err)
	}
	if err := config.SetRedisValue(ctx, "Token:"+token, user.Username, config.TokenLifespan()); err != nil {
		return nil, utils.StoreError(err)
	}

	return &LoginInfo{Token: token, Username: user.Username, Role: user.Role}, nil
}

// Logout destroys the session carried by ctx.
func Logout(ctx context.Context) error {
	token, ok := utils.GetTokenFromContext(ctx)
	if !ok || token == "" {
		return utils.AuthError("token is required")
	}
	if err := config.RemoveRedisKey(ctx, "Token:"+token); err != nil {
		return utils.StoreError(err)
	}
	username, ok := utils.GetUsernameFromContext(ctx)
	if !ok || username == "" {
		return nil
	}
	if err := config.RemoveRedisSetMember(ctx, "Tokens:"+username, token); err != nil {
		return utils.StoreError(err)
	}
	return nil
}

// GetSessionUser resolves a session token to its user.
// Unknown or expired tokens, and users deleted or disabled since login, are AuthErrors.
func GetSessionUser(ctx context.Context, token string) (*User, error) {
	username, exists, err := config.GetRedisValue(ctx, "Token:"+token)
	if err != nil {
		return nil, utils.StoreError(err)
	}
	if !exists {
		return nil, utils.AuthError("unauthorized")
	}
	user, err := findUser(ctx, username)
	if err != nil {
		if utils.IsNotFound(err) {
			return nil, utils.AuthError("unauthorized")
		}
		return nil, err
	}
	if !user.Active() {
		return nil, utils.AuthError("user is disabled")
	}
	return user, nil
}

// CreateUser is used by seeding and `payablesctl user add`; there is no HTTP route for it.
func CreateUser(ctx context.Context, input *NewUser) (*User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, utils.ValidationError("username is required")
	}
	role, err := ParseUserRole(input.Role)
	if err != nil {
		return nil, err
	}
	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	active := true
	user := User{Username: username, Password: hashedPassword, Role: role, IsActive: &active}
	err = WithTransaction(ctx, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&User{}).Where("username = ?", username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return utils.ValidationError("duplicate username %q", username)
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SetUserActive enables or disables a login. Disabling also ends every open session.
func SetUserActive(ctx context.Context, username string, active bool) (*User, error) {
	username = strings.TrimSpace(username)
	var user User
	err := WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("username = ?", username).Take(&user).Error; err != nil {
			return notFoundOr(err, "user")
		}
		user.IsActive = &active
		return tx.Model(&User{}).Where("id = ?", user.ID).Update("is_active", active).Error
	})
	if err != nil {
		return nil, err
	}

	if err := config.RemoveRedisKey(ctx, user.userCacheKey()); err != nil {
		return nil, utils.StoreError(err)
	}
	if !active {
		if err := revokeSessions(ctx, user.Username); err != nil {
			return nil, err
		}
	}
	return &user, nil
}

func revokeSessions(ctx context.Context, username string) error {
	tokens, err := config.GetRedisSetMembers(ctx, "Tokens:"+username)
	if err != nil {
		return utils.StoreError(err)
	}
	keys := make([]string, 0, len(tokens)+1)
	for _, token := range tokens {
		keys = append(keys, "Token:"+token)
	}
	keys = append(keys, "Tokens:"+username)
	if err := config.RemoveRedisKey(ctx, keys...); err != nil {
		return utils.StoreError(err)
	}
	return nil
}
