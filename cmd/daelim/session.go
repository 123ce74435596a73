package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/muurk/daelim/internal/client"
	"github.com/muurk/daelim/internal/config"
	"github.com/muurk/daelim/internal/discovery"
	"github.com/muurk/daelim/internal/home"
	"github.com/muurk/daelim/internal/logging"
	"github.com/muurk/daelim/internal/protocol"
	"github.com/muurk/daelim/internal/ui"
)

const (
	passwordEnvVar  = "DAELIM_PASSWORD"
	defaultHomeName = "default"

	// commandTimeout bounds one-shot commands including login
	commandTimeout = 60 * time.Second
)

// reportedError marks an error whose failure box was already printed
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// session ties a registry home entry to a client
type session struct {
	registry *config.Registry
	name     string
	entry    *config.Home
	client   *client.Client
	password string
	out      *ui.Printer
}

// openSession resolves the home entry, applies flag overrides and builds
// a client seeded with the saved pins. Nothing is dialed yet.
func openSession(cmd *cobra.Command) (*session, error) {
	registry, err := config.LoadRegistry()
	if err != nil {
		return nil, err
	}

	name := homeName
	if name == "" {
		name = registry.Preferences.DefaultHome
	}
	if name == "" {
		name = defaultHomeName
	}
	entry := registry.EnsureHome(name)

	flags := cmd.Flags()
	if flags.Changed("host") {
		if entry.Host != serverHost {
			entry.ClearSession()
		}
		entry.Host = serverHost
	}
	if flags.Changed("port") {
		entry.Port = serverPort
	}
	if flags.Changed("user") {
		if entry.UserID != userID {
			entry.ClearSession()
		}
		entry.UserID = userID
	}
	if flags.Changed("guard-profile") {
		entry.GuardProfile = guardProfile
	}
	if loginFresh {
		entry.ClearSession()
	}

	if entry.Host == "" && loginDiscover {
		if err := discoverServer(cmd.Context(), entry); err != nil {
			return nil, err
		}
	}
	if entry.Host == "" {
		return nil, fmt.Errorf("no server configured for home %q: pass --host, --discover or run 'daelim import'", name)
	}
	if entry.UserID == "" {
		return nil, fmt.Errorf("no user configured for home %q: pass --user", name)
	}
	if entry.UUID == "" {
		entry.UUID = client.NewDeviceUUID()
	}

	c := client.New(entry.Host, entry.Port)
	c.SetUUID(entry.UUID)
	c.SetSavedPins(entry.CertPin, entry.LoginPin)
	if entry.GuardProfile != "" {
		p, err := protocol.ParseGuardProfile(entry.GuardProfile)
		if err != nil {
			return nil, err
		}
		c.GuardProfile = p
	}

	s := &session{
		registry: registry,
		name:     name,
		entry:    entry,
		client:   c,
		out:      ui.NewPrinter(cmd.OutOrStdout()),
	}

	s.password, err = resolvePassword(entry.CertPin == "" && entry.LoginPin == "")
	if err != nil {
		return nil, err
	}
	return s, nil
}

// discoverServer fills the entry with the first server found over mDNS
func discoverServer(ctx context.Context, entry *config.Home) error {
	svc, err := discovery.NewScanner().WaitFor(ctx, discovery.RoleServer)
	if err != nil {
		return err
	}
	logging.Info("Discovered server", zap.String("service", svc.String()))
	entry.Host = svc.IP
	entry.Port = svc.Port
	return nil
}

// resolvePassword reads the password from the flag, the environment or a
// terminal prompt. Without saved pins a password is required.
func resolvePassword(required bool) (string, error) {
	if password != "" {
		return password, nil
	}
	if env := os.Getenv(passwordEnvVar); env != "" {
		return env, nil
	}
	if !required {
		return "", nil
	}
	if !ui.IsTerminal() {
		return "", fmt.Errorf("password required: pass --password or set %s", passwordEnvVar)
	}

	fmt.Fprint(os.Stderr, "Password: ")
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(string(pw)), nil
}

func (s *session) close() {
	s.client.Disconnect()
}

// params describes the session for command headers
func (s *session) params() map[string]string {
	return map[string]string{
		"Home":   s.name,
		"Server": s.client.Addr(),
		"User":   s.entry.UserID,
	}
}

// login runs the login cascade and saves the new session
func (s *session) login(ctx context.Context) error {
	res := s.client.Login(ctx, s.entry.UserID, s.password, s.entry.UUID)
	if !res.OK() {
		return s.fail("Login failed", res.Err())
	}
	return s.save()
}

// save records the client's current pins and catalog in the registry
func (s *session) save() error {
	return s.saveSession(s.client.SavedCertPin(), s.client.SavedLoginPin(), s.client.ControlInfo())
}

func (s *session) saveSession(certPin, loginPin string, ci protocol.ControlInfo) error {
	s.entry.UpdateSession(certPin, loginPin, ci)
	if err := s.registry.Save(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	logging.Debug("Session saved", zap.String("home", s.name))
	return nil
}

// newHome builds the application layer over the client. Pins changed by
// a re-login are saved through the session store.
func (s *session) newHome(poll time.Duration, yearly bool) *home.Home {
	opts := home.Options{
		UserID:       s.entry.UserID,
		Password:     s.password,
		UUID:         s.entry.UUID,
		PollInterval: poll,
		YearlyEnergy: yearly,
		Store:        home.StoreFunc(s.saveSession),
	}
	if cat, ok := home.LoadStoredCatalog(s.entry.ControlInfo); ok {
		opts.Catalog = cat
	}
	h := home.New(s.client, opts)
	h.Start()
	return h
}

// pollInterval returns the configured refresh period
func (s *session) pollInterval() time.Duration {
	secs := s.registry.Preferences.PollInterval
	if secs <= 0 {
		secs = config.DefaultPollInterval
	}
	return time.Duration(secs) * time.Second
}

// explain swaps a local result code for the transport error behind it
func (s *session) explain(err error) error {
	var srv *client.ServerError
	if errors.As(err, &srv) && srv.Code == protocol.CodeLocal {
		if last := s.client.LastError(); last != nil {
			return last
		}
	}
	return err
}

// fail prints a failure box with hints and returns a reported error
func (s *session) fail(title string, err error) error {
	err = s.explain(err)
	s.out.PrintError(title, err, client.Hint(err))
	return &reportedError{err: err}
}

// check turns a control result into a success box or a failure
func (s *session) check(title string, res client.Result, err error, details map[string]string) error {
	if err != nil {
		return s.fail(title+" failed", err)
	}
	if !res.OK() {
		return s.fail(title+" failed", res.Err())
	}
	s.out.PrintSuccess(title, details)
	return nil
}

// withTimeout derives the command context
func withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), commandTimeout)
}

// parseSwitch accepts on/off
func parseSwitch(s string) (string, error) {
	switch strings.ToLower(s) {
	case protocol.StateOn:
		return protocol.StateOn, nil
	case protocol.StateOff:
		return protocol.StateOff, nil
	}
	return "", fmt.Errorf("invalid state %q (want on or off)", s)
}

// optionalInt returns client.Unset unless the flag was set
func optionalInt(cmd *cobra.Command, name string, v int) int {
	if cmd.Flags().Changed(name) {
		return v
	}
	return client.Unset
}

func itoa(n int) string { return strconv.Itoa(n) }
