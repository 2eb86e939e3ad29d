package logsvc

import (
	"log"
	"strconv"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/smartclass/portal/core"
	"github.com/smartclass/portal/core/account"
)

// RollbarLogger reports every entry to Rollbar and mirrors it on a std logger.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) { l.log(rollbar.DEBUG, msg, args) }
func (l RollbarLogger) Info(msg string, args ...interface{})  { l.log(rollbar.INFO, msg, args) }
func (l RollbarLogger) Warn(msg string, args ...interface{})  { l.log(rollbar.WARN, msg, args) }
func (l RollbarLogger) Error(msg string, args ...interface{}) { l.log(rollbar.ERR, msg, args) }

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(rollbar.CRIT, msg, args)
	l.std.Fatal(msg)
}

func (l RollbarLogger) log(level, msg string, args []interface{}) {
	payload := []interface{}{msg}
	var who *account.Account
	for _, arg := range args {
		if acc, ok := accountOf(arg); ok {
			if who == nil {
				who = acc
			}
			continue
		}
		payload = append(payload, arg)
	}

	if who != nil {
		rollbar.SetPerson(strconv.FormatInt(who.ID, 10), who.Username, who.Email)
	} else {
		rollbar.ClearPerson()
	}
	rollbar.Log(level, payload...)

	l.std.Printf("[%s] %s", level, msg)
	for _, arg := range args {
		l.std.Printf("  %+v", arg)
	}
}

// accountOf extracts the account behind an Account value, pointer or Principal.
// The first one found becomes the Rollbar person of the entry.
func accountOf(arg interface{}) (*account.Account, bool) {
	switch a := arg.(type) {
	case account.Account:
		return &a, true
	case *account.Account:
		return a, a != nil
	case account.Principal:
		acc := a.GetAccount()
		return acc, acc != nil
	}
	return nil, false
}
