package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hoo-game/hoo-server/internal/core/data"
	"gorm.io/gorm"
)

// Store is the SQL-backed AccountStore. Reads go through a short-lived account
// cache which every write invalidates. Writes made by another process (such as
// the account tool) only reach the cache once the entry expires; the lock and
// ban flags are the exception, logins always read them from the database.
type Store struct {
	dialector gorm.Dialector
	debug     bool

	db    *gorm.DB
	cache *accountCache
	now   func() time.Time
}

var _ AccountStore = (*Store)(nil)

func NewStore(dialector gorm.Dialector, debug bool) *Store {
	return &Store{
		dialector: dialector,
		debug:     debug,
		cache:     newAccountCache(),
		now:       time.Now,
	}
}

// Connect opens the database and migrates the schema.
func (s *Store) Connect(ctx context.Context) error {
	db, err := data.Open(s.dialector, s.debug)
	if err != nil {
		return err
	}
	s.db = db
	return nil
}

func (s *Store) Close() error {
	s.cache.flush()
	if s.db == nil {
		return nil
	}
	return data.Close(s.db)
}

func (s *Store) findAccount(ctx context.Context, login string) (*data.Account, error) {
	if account, ok := s.cache.get(login); ok {
		return account, nil
	}
	account, err := data.FindAccountByLogin(s.db.WithContext(ctx), login)
	if err != nil {
		return nil, fmt.Errorf("error looking up account %s: %w", login, err)
	}
	if account == nil {
		return nil, ErrNoAccount
	}
	s.cache.put(account)
	return account, nil
}

// write runs a change to the row of login. The cached account is dropped both
// before and after so that a read racing the write cannot cache the old row.
func (s *Store) write(ctx context.Context, login string, change func(db *gorm.DB) error) error {
	s.cache.invalidate(login)
	defer s.cache.invalidate(login)
	if err := change(s.db.WithContext(ctx)); err != nil {
		return fmt.Errorf("error updating account %s: %w", login, err)
	}
	return nil
}

func (s *Store) updateColumns(ctx context.Context, login string, columns map[string]interface{}) error {
	account, err := s.findAccount(ctx, login)
	if err != nil {
		return err
	}
	return s.write(ctx, login, func(db *gorm.DB) error {
		return data.UpdateColumns(db, account.ID, columns)
	})
}

// checkAccess refreshes the lock and ban flags of account from the database
// and returns the error preventing a login to it, if any.
func (s *Store) checkAccess(ctx context.Context, account *data.Account) error {
	access, err := data.FindAccess(s.db.WithContext(ctx), account.ID)
	if err != nil {
		return fmt.Errorf("error reading access flags of %s: %w", account.Login, err)
	}
	account.Locked, account.Banned, account.BannedUntil = access.Locked, access.Banned, access.BannedUntil

	if account.IsBanned(s.now()) {
		return ErrAccountBanned
	}
	if account.Locked {
		return ErrAccountLocked
	}
	return nil
}

func (s *Store) Login(ctx context.Context, login, password string) (*data.Account, error) {
	if err := ValidateLogin(login); err != nil {
		return nil, err
	}
	account, err := s.findAccount(ctx, login)
	if err != nil {
		return nil, err
	}
	if !CheckPassword(account.Password, password) {
		return nil, ErrBadPassword
	}
	if err := s.checkAccess(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// LoginAcCode logs in with an activation code set by SetActivationCode. A valid
// code unlocks the account and is consumed. The account is read from the
// database so a code set by another process is seen immediately.
func (s *Store) LoginAcCode(ctx context.Context, login, code string) (*data.Account, error) {
	if err := ValidateLogin(login); err != nil {
		return nil, err
	}
	account, err := data.FindAccountByLogin(s.db.WithContext(ctx), login)
	if err != nil {
		return nil, fmt.Errorf("error looking up account %s: %w", login, err)
	}
	if account == nil {
		return nil, ErrNoAccount
	}
	if code == "" || account.ActivationCode != code {
		return nil, ErrBadPassword
	}
	if account.ActivationExpires != nil && !s.now().Before(*account.ActivationExpires) {
		return nil, ErrBadPassword
	}
	if account.IsBanned(s.now()) {
		return nil, ErrAccountBanned
	}

	err = s.write(ctx, login, func(db *gorm.DB) error {
		return data.UpdateColumns(db, account.ID, map[string]interface{}{
			"locked":             false,
			"activation_code":    "",
			"activation_expires": nil,
		})
	})
	if err != nil {
		return nil, err
	}
	account.Locked = false
	account.ActivationCode = ""
	account.ActivationExpires = nil
	return account, nil
}

func (s *Store) UpdateAccount(ctx context.Context, account *data.Account) error {
	return s.write(ctx, account.Login, func(db *gorm.DB) error {
		return data.UpdateColumns(db, account.ID, map[string]interface{}{
			"experience": account.Experience,
			"character":  account.Character,
		})
	})
}

func (s *Store) SetCharacter(ctx context.Context, login string, character uint32) error {
	account, err := s.findAccount(ctx, login)
	if err != nil {
		return err
	}
	return s.write(ctx, login, func(db *gorm.DB) error {
		return data.SetCharacter(db, account.ID, character)
	})
}

// SetAdmin grants or revokes the administrator flag.
func (s *Store) SetAdmin(ctx context.Context, login string, admin bool) error {
	return s.updateColumns(ctx, login, map[string]interface{}{"admin": admin})
}

// SetItems replaces the inventory of the account.
func (s *Store) SetItems(ctx context.Context, login string, items []data.Item) error {
	account, err := s.findAccount(ctx, login)
	if err != nil {
		return err
	}
	return s.write(ctx, login, func(db *gorm.DB) error {
		return data.ReplaceItems(db, account.ID, items)
	})
}

func (s *Store) CheckLoginAvailability(ctx context.Context, login string) (bool, error) {
	if ValidateLogin(login) != nil {
		return false, nil
	}
	_, err := s.findAccount(ctx, login)
	if errors.Is(err, ErrNoAccount) {
		return true, nil
	}
	return false, err
}

// CreateAccount takes the specified credentials and creates a new record in
// the database, returning either the result or any errors encountered.
func (s *Store) CreateAccount(ctx context.Context, login, password, mail string) (*data.Account, error) {
	if err := ValidateLogin(login); err != nil {
		return nil, err
	}
	if err := ValidateMail(mail); err != nil {
		return nil, err
	}
	available, err := s.CheckLoginAvailability(ctx, login)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, ErrLoginUnavailable
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}
	account := &data.Account{
		Login:            login,
		Password:         hash,
		Mail:             mail,
		RegistrationDate: s.now(),
	}
	if err := data.CreateAccount(s.db.WithContext(ctx), account); err != nil {
		return nil, fmt.Errorf("error creating account %s: %w", login, err)
	}
	return account, nil
}

// BanUser bans login for days days. PermanentBan bans until lifted and LiftBan
// lifts a ban.
func (s *Store) BanUser(ctx context.Context, login string, days int) error {
	if days < LiftBan {
		return ErrBadBanDuration
	}
	columns := map[string]interface{}{"banned": days != LiftBan, "banned_until": nil}
	if days > 0 {
		columns["banned_until"] = s.now().Add(time.Duration(days) * 24 * time.Hour)
	}
	return s.updateColumns(ctx, login, columns)
}

func (s *Store) LockAccount(ctx context.Context, login string) error {
	return s.setLocked(ctx, login, true)
}

func (s *Store) UnlockAccount(ctx context.Context, login string) error {
	return s.setLocked(ctx, login, false)
}

func (s *Store) setLocked(ctx context.Context, login string, locked bool) error {
	return s.updateColumns(ctx, login, map[string]interface{}{"locked": locked})
}

func (s *Store) GetLogins(ctx context.Context, mail string) ([]string, error) {
	logins, err := data.FindLoginsByMail(s.db.WithContext(ctx), mail)
	if err != nil {
		return nil, fmt.Errorf("error looking up logins for %s: %w", mail, err)
	}
	return logins, nil
}

// SetActivationCode assigns codes[i] to logins[i]. Either every account is
// updated or none is.
func (s *Store) SetActivationCode(ctx context.Context, logins, codes []string, expires time.Time) error {
	if len(logins) != len(codes) {
		return ErrCodeCountMismatch
	}
	for _, login := range logins {
		s.cache.invalidate(login)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, login := range logins {
			account, err := data.FindAccountByLogin(tx, login)
			if err != nil {
				return err
			}
			if account == nil {
				return fmt.Errorf("%w: %s", ErrNoAccount, login)
			}
			columns := map[string]interface{}{"activation_code": codes[i], "activation_expires": expires}
			if err := data.UpdateColumns(tx, account.ID, columns); err != nil {
				return err
			}
		}
		return nil
	})
	for _, login := range logins {
		s.cache.invalidate(login)
	}
	return err
}

func (s *Store) SaveConfiguration(ctx context.Context, login, name string, configuration []uint32) error {
	account, err := s.findAccount(ctx, login)
	if err != nil {
		return err
	}
	return s.write(ctx, login, func(db *gorm.DB) error {
		return data.UpsertConfiguration(db, &data.SavedConfiguration{
			AccountID: account.ID,
			Name:      name,
			Data:      configuration,
		})
	})
}

func (s *Store) GetConfigurations(ctx context.Context, login string) ([]data.SavedConfiguration, error) {
	account, err := s.findAccount(ctx, login)
	if err != nil {
		return nil, err
	}
	return data.FindConfigurations(s.db.WithContext(ctx), account.ID)
}
