package dbops

import (
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-pg/pg/v10"
	"github.com/pkg/errors"
)

// Alias to pg.DB.
type PgDB = pg.DB

// Alias to pg.Options.
type PgOptions = pg.Options

// Database connection settings shared by the go-pg connection used to
// read the devices and the lib/pq listener receiving the change
// notifications.
type DatabaseSettings struct {
	DBName       string
	User         string
	Password     string
	Host         string
	Port         int
	SSLMode      string
	TraceSQL     bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Returns the host and port joined.
func (s *DatabaseSettings) address() string {
	host := s.Host
	if host == "" {
		host = "localhost"
	}
	return net.JoinHostPort(host, strconv.Itoa(s.Port))
}

// Returns the TLS configuration matching the SSL mode.
func (s *DatabaseSettings) tlsConfig() (*tls.Config, error) {
	switch s.SSLMode {
	case "", "disable":
		return nil, nil
	case "require":
		return &tls.Config{InsecureSkipVerify: true}, nil //nolint:gosec
	case "verify-ca", "verify-full":
		return &tls.Config{ServerName: s.Host, MinVersion: tls.VersionTLS12}, nil
	default:
		return nil, errors.Errorf("unsupported SSL mode: %s", s.SSLMode)
	}
}

// Converts generic connection parameters to go-pg specific parameters.
func (s *DatabaseSettings) PgParams() (*PgOptions, error) {
	tlsConfig, err := s.tlsConfig()
	if err != nil {
		return nil, err
	}
	return &PgOptions{
		Addr:         s.address(),
		Database:     s.DBName,
		User:         s.User,
		Password:     s.Password,
		TLSConfig:    tlsConfig,
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
	}, nil
}

// Returns the connection parameters as a list of space separated
// name/value pairs understood by lib/pq.
func (s *DatabaseSettings) ConnectionParams() string {
	escape := func(value string) string {
		value = strings.ReplaceAll(value, `\`, `\\`)
		value = strings.ReplaceAll(value, `'`, `\'`)
		return fmt.Sprintf("'%s'", value)
	}
	host := s.Host
	if host == "" {
		host = "localhost"
	}
	params := []string{
		fmt.Sprintf("dbname=%s", escape(s.DBName)),
		fmt.Sprintf("user=%s", escape(s.User)),
		fmt.Sprintf("host=%s", escape(host)),
		fmt.Sprintf("port=%d", s.Port),
	}
	if s.Password != "" {
		params = append(params, fmt.Sprintf("password=%s", escape(s.Password)))
	}
	sslMode := s.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	params = append(params, fmt.Sprintf("sslmode=%s", sslMode))
	return strings.Join(params, " ")
}
