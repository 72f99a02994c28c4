package cli

import (
	"fmt"
	"io"
)

// Migrator is the schema migration surface used by the migrate command.
type Migrator interface {
	Up() error
	Down() error
	Version() (uint, bool, error)
	Close() error
}

// Migrate runs action ("up", "down" or "version") and prints the resulting version.
func Migrate(m Migrator, action string, out io.Writer) error {
	defer func() { _ = m.Close() }()
	switch action {
	case "up":
		if err := m.Up(); err != nil {
			return err
		}
	case "down":
		if err := m.Down(); err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("migrate: unknown action %q (want up, down or version)", action)
	}
	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("migrate: version: %w", err)
	}
	_, err = fmt.Fprintf(out, "schema version %d dirty=%t\n", version, dirty)
	return err
}
