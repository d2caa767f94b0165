package pg

import (
	"database/sql"
	"fmt"
)

// Config holds the connection parameters for one side of the pair.
type Config struct {
	User     string
	Host     string
	Port     string
	Password string
	Database string
	// SSLMode defaults to disable; the databases sit on a private
	// network behind the service.
	SSLMode string
}

func (c Config) dsn() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Host, c.User, c.Password, c.Database, c.Port, sslMode)
}

// newSQLConnection opens a plain database/sql connection for tools that
// bypass gorm, such as the goose migrator.
func newSQLConnection(config Config) (*sql.DB, error) {
	return sql.Open("postgres", config.dsn())
}
