package sessions

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dODM/lib/cache"
	"github.com/lni/dragonboat/v4/logger"
	"golang.org/x/crypto/bcrypt"
	"math/big"
	"strconv"
	"time"
)

var log = logger.GetLogger("sessions")

const (
	// TokenTTL is the lifetime of a session token
	TokenTTL = 30 * 24 * time.Hour
	// MaxPrivilege is the upper bound of randomly assigned privilege levels
	MaxPrivilege = 10

	tokenSpace       = 1_000_000 // 6 digits
	maxTokenAttempts = 5

	fieldUsername   = "username"
	fieldFullName   = "full_name"
	fieldPassword   = "password"
	fieldPrivileges = "privileges"
	fieldToken      = "token"
)

// Options configures a directory
type Options struct {
	BcryptCost int           // Cost of the password hashes (0 = bcrypt.DefaultCost)
	TokenTTL   time.Duration // Lifetime of session tokens (0 = TokenTTL)
}

type directoryImpl struct {
	store    cache.ICacheStore
	cost     int
	tokenTTL time.Duration
}

// NewDirectory creates a session directory. It keeps no state besides the store, so any
// number of directories can share one store.
func NewDirectory(store cache.ICacheStore, opts *Options) IDirectory {
	d := &directoryImpl{
		store:    store,
		cost:     bcrypt.DefaultCost,
		tokenTTL: TokenTTL,
	}
	if opts != nil {
		if opts.BcryptCost != 0 {
			d.cost = opts.BcryptCost
		}
		if opts.TokenTTL > 0 {
			d.tokenTTL = opts.TokenTTL
		}
	}
	return d
}

// --------------------------------------------------------------------------
// Interface Methods (docu see sessions.IDirectory)
// --------------------------------------------------------------------------

func (d *directoryImpl) Register(ctx context.Context, username, password, fullName string, opts ...RegisterOption) (bool, error) {
	if username == "" {
		return false, errors.New("username must not be empty")
	}

	o := registerOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.privileges == 0 {
		level, err := randomInt(MaxPrivilege)
		if err != nil {
			return false, err
		}
		o.privileges = int(level) + 1
	}
	if o.privileges < 0 {
		return false, fmt.Errorf("privilege level must be positive, got %d", o.privileges)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.cost)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}

	// the username field is the guard: only one registration can create it
	key := cache.UserKey(username)
	created, err := d.store.HSetNX(ctx, key, fieldUsername, username)
	if err != nil || !created {
		return false, err
	}

	err = d.store.HSet(ctx, key, map[string]string{
		fieldFullName:   fullName,
		fieldPassword:   string(hash),
		fieldPrivileges: strconv.Itoa(o.privileges),
		fieldToken:      "",
	})
	if err != nil {
		// release the guard, a half written record would block the username forever
		if delErr := d.store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			log.Errorf("failed to remove incomplete record of %s: %v", username, delErr)
		}
		return false, fmt.Errorf("register %s: %w", username, err)
	}
	log.Infof("registered user %s with privilege level %d", username, o.privileges)
	return true, nil
}

func (d *directoryImpl) Login(ctx context.Context, username, password string) (Session, error) {
	key := cache.UserKey(username)
	record, err := d.store.HGetAll(ctx, key)
	if err != nil {
		return Session{}, err
	}
	if len(record) == 0 {
		return Session{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(record[fieldPassword]), []byte(password)) != nil {
		log.Debugf("failed login for %s", username)
		return Session{}, ErrInvalidCredentials
	}

	privileges, err := strconv.Atoi(record[fieldPrivileges])
	if err != nil {
		return Session{}, fmt.Errorf("corrupt user record %s: %w", key, err)
	}

	token, err := d.newToken(ctx)
	if err != nil {
		return Session{}, err
	}
	if err := d.store.HSet(ctx, key, map[string]string{fieldToken: token}); err != nil {
		return Session{}, err
	}
	if err := d.store.SetE(ctx, cache.SessionKey(token), []byte(username), d.tokenTTL); err != nil {
		return Session{}, err
	}
	return Session{Privileges: privileges, Token: token}, nil
}

func (d *directoryImpl) LoginByToken(ctx context.Context, token string) (int, error) {
	username, ok, err := d.store.Get(ctx, cache.SessionKey(token))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrInvalidCredentials
	}

	value, ok, err := d.store.HGet(ctx, cache.UserKey(string(username)), fieldPrivileges)
	if err != nil {
		return 0, err
	}
	if !ok {
		// the user record is gone, the token is worthless
		return 0, ErrInvalidCredentials
	}
	privileges, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("corrupt user record %s: %w", cache.UserKey(string(username)), err)
	}
	return privileges, nil
}

func (d *directoryImpl) Logout(ctx context.Context, token string) error {
	sessionKey := cache.SessionKey(token)
	username, ok, err := d.store.Get(ctx, sessionKey)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCredentials
	}
	if err := d.store.Delete(ctx, sessionKey); err != nil {
		return err
	}

	userKey := cache.UserKey(string(username))
	current, ok, err := d.store.HGet(ctx, userKey, fieldToken)
	if err != nil {
		return err
	}
	if ok && current == token {
		return d.store.HSet(ctx, userKey, map[string]string{fieldToken: ""})
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// newToken draws a zero-padded 6-digit token that is not in use
func (d *directoryImpl) newToken(ctx context.Context) (string, error) {
	for i := 0; i < maxTokenAttempts; i++ {
		n, err := randomInt(tokenSpace)
		if err != nil {
			return "", err
		}
		token := fmt.Sprintf("%06d", n)
		taken, err := d.store.Has(ctx, cache.SessionKey(token))
		if err != nil {
			return "", err
		}
		if !taken {
			return token, nil
		}
	}
	return "", fmt.Errorf("no free session token after %d attempts", maxTokenAttempts)
}

// randomInt returns a uniform random number in [0, n)
func randomInt(n int64) (int64, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return 0, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return v.Int64(), nil
}
