package auth

import (
	"context"
	"errors"
	"net/mail"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/hoo-game/hoo-server/internal/core/bytes"
	"github.com/hoo-game/hoo-server/internal/core/data"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrBadLogin          = errors.New("login is not valid")
	ErrNoAccount         = errors.New("no account exists with this login")
	ErrBadPassword       = errors.New("password does not match")
	ErrAccountLocked     = errors.New("this account is locked")
	ErrAccountBanned     = errors.New("this account has been suspended")
	ErrLoginUnavailable  = errors.New("login is already taken")
	ErrBadMail           = errors.New("mail address is not valid")
	ErrBadBanDuration    = errors.New("ban duration must be -1, 0 or a positive number of days")
	ErrCodeCountMismatch = errors.New("number of activation codes does not match number of logins")
)

const (
	// Ban durations accepted by BanUser besides a positive number of days.
	PermanentBan = 0
	LiftBan      = -1

	MaxLoginLength = 32
)

// AccountStore is the persistent account backend the session layer and the
// admin protocol depend on. Implementations must be safe for concurrent use.
type AccountStore interface {
	Connect(ctx context.Context) error
	Close() error

	// Login and LoginAcCode return the account on success or one of ErrBadLogin,
	// ErrNoAccount, ErrBadPassword, ErrAccountLocked or ErrAccountBanned. Any
	// other error is a failure of the store itself.
	Login(ctx context.Context, login, password string) (*data.Account, error)
	LoginAcCode(ctx context.Context, login, code string) (*data.Account, error)

	// UpdateAccount writes the progress of the account (experience and
	// character). Access flags and activation state are never written from a
	// copy; they change only through their own setters.
	UpdateAccount(ctx context.Context, account *data.Account) error
	SetAdmin(ctx context.Context, login string, admin bool) error
	SetCharacter(ctx context.Context, login string, character uint32) error
	SetItems(ctx context.Context, login string, items []data.Item) error
	CheckLoginAvailability(ctx context.Context, login string) (bool, error)
	CreateAccount(ctx context.Context, login, password, mail string) (*data.Account, error)

	BanUser(ctx context.Context, login string, days int) error
	LockAccount(ctx context.Context, login string) error
	UnlockAccount(ctx context.Context, login string) error
	GetLogins(ctx context.Context, mail string) ([]string, error)
	SetActivationCode(ctx context.Context, logins, codes []string, expires time.Time) error

	SaveConfiguration(ctx context.Context, login, name string, configuration []uint32) error
	GetConfigurations(ctx context.Context, login string) ([]data.SavedConfiguration, error)
}

var hashCost = bcrypt.DefaultCost

// HashPassword returns password hashed with the server's chosen hashing strategy.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(bytes.StripPadding([]byte(password)), hashCost)
	return string(hash), err
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), bytes.StripPadding([]byte(password))) == nil
}

// ValidateLogin returns ErrBadLogin unless login is 1 to MaxLoginLength letters,
// digits, '_', '-' or '.'.
func ValidateLogin(login string) error {
	n := utf8.RuneCountInString(login)
	if n == 0 || n > MaxLoginLength {
		return ErrBadLogin
	}
	for _, r := range login {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-' && r != '.' {
			return ErrBadLogin
		}
	}
	return nil
}

func ValidateMail(address string) error {
	parsed, err := mail.ParseAddress(address)
	if err != nil || parsed.Address != address {
		return ErrBadMail
	}
	return nil
}
