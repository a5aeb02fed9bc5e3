package specific

import (
	"net"
	"os"
	"os/user"
	"strings"
	"time"
)

// Identity holds the environment facts whose appearance in output makes a
// reference non-portable. Empty fields never match.
type Identity struct {
	Host    string
	IP      string
	Cwd     string
	HomeDir string
	User    string
}

// CurrentIdentity reads the identity of the running process, with cwd as
// the working directory of the command under test.
func CurrentIdentity(cwd string) Identity {
	host, _ := os.Hostname()
	return Identity{
		Host:    host,
		IP:      lookupIP(host),
		Cwd:     cwd,
		HomeDir: homeDir(),
		User:    userName(),
	}
}

// UserInHome reports whether the user name is part of the home directory.
func (id Identity) UserInHome() bool {
	return id.User != "" && strings.Contains(id.HomeDir, id.User)
}

// CwdInHome reports whether the working directory lies inside the home
// directory.
func (id Identity) CwdInHome() bool {
	return id.HomeDir != "" && strings.HasPrefix(id.Cwd, id.HomeDir)
}

func lookupIP(host string) string {
	if host == "" {
		return ""
	}
	addrs, err := net.LookupHost(host)
	if err != nil || len(addrs) == 0 {
		return ""
	}
	for _, a := range addrs {
		if ip := net.ParseIP(a); ip != nil && ip.To4() != nil {
			return a
		}
	}
	return addrs[0]
}

func homeDir() string {
	if h := os.Getenv("HOME"); h != "" {
		return h
	}
	h, _ := os.UserHomeDir()
	return h
}

func userName() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return os.Getenv("LOGNAME")
}

// Window bounds the calendar dates considered plausible for a run.
type Window struct {
	Min time.Time
	Max time.Time
}

// NewWindow returns the window from one day before start to one day after
// stop.
func NewWindow(start, stop time.Time) Window {
	return Window{Min: start.AddDate(0, 0, -1), Max: stop.AddDate(0, 0, 1)}
}

// Contains reports whether the calendar date y-m-d lies inside the window.
func (w Window) Contains(y, m, d int) bool {
	if !validDate(y, m, d) {
		return false
	}
	loc := w.Min.Location()
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, loc)
	lo := dateOf(w.Min)
	hi := dateOf(w.Max.In(loc))
	return !t.Before(lo) && !t.After(hi)
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func validDate(y, m, d int) bool {
	if y < 1 || m < 1 || m > 12 || d < 1 || d > 31 {
		return false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return t.Year() == y && int(t.Month()) == m && t.Day() == d
}
