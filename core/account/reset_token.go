package account

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/smartclass/portal/core"
)

var (
	resetTokenSalt = []byte("smartclass.core.account.reset_token")

	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")

	tsEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)
)

// ResetTokenGenerator makes stateless password reset tokens.
// Tokens are signed over the password hash and last login, so they are single use.
type ResetTokenGenerator struct {
	secret  []byte
	timeout time.Duration
	baseURL string
}

func NewResetTokenGenerator(conf *core.Config) *ResetTokenGenerator {
	return &ResetTokenGenerator{
		secret:  []byte(conf.SecretKey),
		timeout: conf.PasswordResetTimeout,
		baseURL: strings.TrimSuffix(conf.BaseURL, "/"),
	}
}

// EncodeUID base64 encodes the account id.
func EncodeUID(acc Account) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(acc.ID, 10)))
}

func decodeUID(uid string) (int64, error) {
	b, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(string(b), 10, 64)
}

// Link is the password reset page of acc, as sent by email.
func (g *ResetTokenGenerator) Link(acc Account) string {
	return fmt.Sprintf("%s/password-reset/%s/%s", g.baseURL, EncodeUID(acc), g.MakeToken(acc))
}

func (g *ResetTokenGenerator) MakeToken(acc Account) string {
	return g.makeTokenWithTimestamp(acc, numDaysSince2001(NowFunc()))
}

// CheckToken reports whether token was made for acc and has not expired.
func (g *ResetTokenGenerator) CheckToken(acc Account, token string) error {
	parts := strings.SplitN(token, "-", 2)
	if token == "" || len(parts) < 2 {
		return errInvalidToken
	}
	data, err := tsEncoding.DecodeString(parts[0])
	if err != nil {
		return errInvalidToken
	}
	ts, err := strconv.Atoi(string(data))
	if err != nil {
		return errInvalidToken
	}

	// tampered with?
	if subtle.ConstantTimeCompare([]byte(g.makeTokenWithTimestamp(acc, ts)), []byte(token)) == 0 {
		return errInvalidToken
	}
	if numDaysSince2001(NowFunc())-ts > int(g.timeout/(24*time.Hour)) {
		return errTokenExpired
	}
	return nil
}

func (g *ResetTokenGenerator) makeTokenWithTimestamp(acc Account, ts int) string {
	key := sha256.Sum256(append(append([]byte{}, resetTokenSalt...), g.secret...))
	h := hmac.New(sha256.New, key[:])
	h.Write(hashValue(acc, ts))
	return tsEncoding.EncodeToString([]byte(strconv.Itoa(ts))) + "-" + base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func numDaysSince2001(t time.Time) int {
	ref := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(t.Sub(ref).Hours() / 24))
}

func hashValue(acc Account, ts int) []byte {
	var val bytes.Buffer
	val.WriteString(strconv.FormatInt(acc.ID, 10))
	val.Write(acc.PasswordHash)
	if !acc.LastLogin.IsZero() {
		val.WriteString(strconv.FormatInt(acc.LastLogin.Unix(), 10))
	}
	val.WriteString(strconv.Itoa(ts))
	return val.Bytes()
}
