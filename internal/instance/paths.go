package instance

import (
	"os"
	"path/filepath"
)

// HomeEnv overrides the base directory when set.
const HomeEnv = "CHATLOG_HOME"

// BaseDir returns $CHATLOG_HOME, or ~/.chatlog.
func BaseDir() string {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".chatlog")
}

// Dir returns the instance-specific directory.
func Dir(name string) string {
	return filepath.Join(BaseDir(), "instances", name)
}

// SocketPath returns the control socket path for an instance.
func SocketPath(name string) string {
	return filepath.Join(Dir(name), "daemon.sock")
}

// LockPath returns the lock file path for an instance.
func LockPath(name string) string {
	return filepath.Join(Dir(name), "LOCK")
}

// DBPath returns the message archive path.
func DBPath(name string) string {
	return filepath.Join(Dir(name), "chatlog.db")
}

// LogDir returns the log directory for an instance. It is also the default
// location of the message log.
func LogDir(name string) string {
	return filepath.Join(Dir(name), "logs")
}

// DaemonLogPath returns the daemon's own structured log file.
func DaemonLogPath(name string) string {
	return filepath.Join(LogDir(name), "chatlogd.log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the instance directory tree with proper permissions.
func EnsureDir(name string) error {
	for _, d := range []string{Dir(name), LogDir(name)} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
