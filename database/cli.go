// The package provides the database settings and the CLI flags used to
// connect to the PostgreSQL database holding the registered devices. The
// agent and the tool accept the same flags and environment variables.
package dbops

import (
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-pg/pg/v10"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

// Iterates over the struct fields and calls the function for each leaf
// field. The nested structs are iterated breadth-first. If the object is
// nil, the value passed to the callback is invalid.
func iterateOverFields(obj any, f func(field reflect.StructField, valueField reflect.Value)) {
	type fieldValuePair struct {
		field reflect.StructField
		value reflect.Value
	}

	v := reflect.ValueOf(obj).Elem()
	vType := reflect.TypeOf(obj).Elem()

	var fieldQueue []fieldValuePair
	for i := 0; i < vType.NumField(); i++ {
		var valueField reflect.Value
		if v.IsValid() {
			valueField = v.Field(i)
		}
		fieldQueue = append(fieldQueue, fieldValuePair{field: vType.Field(i), value: valueField})
	}

	for len(fieldQueue) != 0 {
		pair := fieldQueue[0]
		fieldQueue = fieldQueue[1:]

		fieldType := pair.field.Type
		if fieldType.Kind() == reflect.Struct {
			for i := 0; i < fieldType.NumField(); i++ {
				var valueField reflect.Value
				if v.IsValid() {
					valueField = pair.value.Field(i)
				}
				fieldQueue = append(fieldQueue, fieldValuePair{field: fieldType.Field(i), value: valueField})
			}
			continue
		}
		f(pair.field, pair.value)
	}
}

// Sets the member values based on the keys in the member tags and an
// external value lookup. Values that cannot be converted are skipped.
func setFieldsBasedOnTags(obj any, tagName string, valueLookup func(string) (string, bool)) {
	iterateOverFields(obj, func(field reflect.StructField, valueField reflect.Value) {
		key, ok := field.Tag.Lookup(tagName)
		if !ok {
			return
		}
		value, ok := valueLookup(key)
		if !ok {
			return
		}

		switch field.Type.Kind() {
		case reflect.Int64:
			if field.Type.AssignableTo(reflect.TypeOf(time.Duration(0))) {
				duration, err := time.ParseDuration(value)
				if err != nil {
					return
				}
				valueField.SetInt(int64(duration))
			}
		case reflect.String:
			valueField.SetString(value)
		case reflect.Int:
			valueInt, err := strconv.ParseInt(value, 10, 0)
			if err != nil {
				return
			}
			valueField.SetInt(valueInt)
		case reflect.Bool:
			valueBool, err := strconv.ParseBool(value)
			if err != nil {
				return
			}
			valueField.SetBool(valueBool)
		default:
			// Unsupported field.
		}
	})
}

// The lookup object to read the CLI values from the external source.
type CLILookup interface {
	IsSet(key string) bool
	String(key string) string
}

// The definition of the CLI flag read from the struct tags.
type CLIFlagDefinition struct {
	Short               string
	Long                string
	Description         string
	EnvironmentVariable string
	Default             string
	Kind                reflect.Kind
}

// General definition of the CLI flags used to connect to the database.
type DatabaseCLIFlags struct {
	URL          string        `long:"db-url" description:"The URL to locate the PostgreSQL database with the registered devices" env:"WALLEDGARDEN_DATABASE_URL"`
	DBName       string        `short:"d" long:"db-name" description:"The name of the database to connect to" env:"WALLEDGARDEN_DATABASE_NAME" default:"captive_portal"`
	User         string        `short:"u" long:"db-user" description:"The user name to be used for database connections" env:"WALLEDGARDEN_DATABASE_USER_NAME" default:"captive_user"`
	Password     string        `long:"db-password" description:"The database password to be used for database connections; it is recommended to provide this value using an environment variable" env:"WALLEDGARDEN_DATABASE_PASSWORD"`
	Host         string        `long:"db-host" description:"The host name, IP address or socket where database is available" env:"WALLEDGARDEN_DATABASE_HOST" default:"127.0.0.1"`
	Port         int           `short:"p" long:"db-port" description:"The port on which the database is available" env:"WALLEDGARDEN_DATABASE_PORT" default:"5432"`
	SSLMode      string        `long:"db-sslmode" description:"The SSL mode for connecting to the database: disable, require, verify-ca or verify-full" env:"WALLEDGARDEN_DATABASE_SSLMODE" default:"disable"`
	TraceSQL     string        `long:"db-trace-queries" description:"Enable tracing SQL queries: true or false" env:"WALLEDGARDEN_DATABASE_TRACE" default:"false"`
	ReadTimeout  time.Duration `long:"db-read-timeout" description:"Timeout for socket reads, zero disables the timeout; requires unit, e.g.: 42s" env:"WALLEDGARDEN_DATABASE_READ_TIMEOUT" default:"0s"`
	WriteTimeout time.Duration `long:"db-write-timeout" description:"Timeout for socket writes, zero disables the timeout; requires unit, e.g.: 42s" env:"WALLEDGARDEN_DATABASE_WRITE_TIMEOUT" default:"0s"`
}

// Converts the CLI flag values to the database settings object. The URL
// is mutually exclusive with the password, host and port parameters.
func (s *DatabaseCLIFlags) ConvertToDatabaseSettings() (*DatabaseSettings, error) {
	trace, _ := strconv.ParseBool(s.TraceSQL)
	settings := &DatabaseSettings{
		DBName:       s.DBName,
		User:         s.User,
		Password:     s.Password,
		Host:         s.Host,
		Port:         s.Port,
		SSLMode:      s.SSLMode,
		TraceSQL:     trace,
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
	}

	if s.URL == "" {
		return settings, nil
	}

	if s.Password != "" {
		return nil, errors.New("URL is mutually exclusive with the password")
	}

	opts, err := pg.ParseURL(s.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid database URL: %s", s.URL)
	}
	host, portRaw, ok := strings.Cut(opts.Addr, ":")
	if !ok {
		return nil, errors.Errorf("unknown address format: '%s'", opts.Addr)
	}
	port, err := strconv.ParseInt(portRaw, 10, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid port: '%s'", portRaw)
	}
	settings.DBName = opts.Database
	settings.Host = host
	settings.Port = int(port)
	settings.Password = opts.Password
	settings.User = opts.User
	return settings, nil
}

// Returns the CLI flag definitions read from the struct tags.
func (s *DatabaseCLIFlags) ConvertToCLIFlagDefinitions() []*CLIFlagDefinition {
	var flags []*CLIFlagDefinition
	iterateOverFields(s, func(field reflect.StructField, _ reflect.Value) {
		flag := &CLIFlagDefinition{Kind: field.Type.Kind()}
		flag.Short = field.Tag.Get("short")
		flag.Long = field.Tag.Get("long")
		flag.Description = field.Tag.Get("description")
		flag.EnvironmentVariable = field.Tag.Get("env")
		flag.Default = field.Tag.Get("default")
		flags = append(flags, flag)
	})
	return flags
}

// Reads the member values from the environment variables.
func (s *DatabaseCLIFlags) ReadFromEnvironment() {
	setFieldsBasedOnTags(s, "env", os.LookupEnv)
}

// Reads the member values from the CLI flags using the external CLI lookup.
func (s *DatabaseCLIFlags) ReadFromCLI(lookup CLILookup) {
	setFieldsBasedOnTags(s, "long", func(key string) (string, bool) {
		value := lookup.String(key)
		if value != "" || lookup.IsSet(key) {
			return value, true
		}
		return "", false
	})
}

// Converts the flag definitions into the objects compatible with the CLI
// library.
func ConvertToCLIFlags(flagDefinitions []*CLIFlagDefinition) ([]cli.Flag, error) {
	var flags []cli.Flag
	for _, definition := range flagDefinitions {
		var aliases []string
		if definition.Short != "" {
			aliases = append(aliases, definition.Short)
		}
		var envVars []string
		if definition.EnvironmentVariable != "" {
			envVars = append(envVars, definition.EnvironmentVariable)
		}

		if definition.Kind == reflect.Int {
			valueInt, err := strconv.ParseInt(definition.Default, 10, 0)
			if err != nil {
				return nil, errors.Wrapf(
					err, "invalid default value ('%s') for parameter ('%s')",
					definition.Default, definition.Long,
				)
			}
			flags = append(flags, &cli.Int64Flag{
				Name:    definition.Long,
				Aliases: aliases,
				Usage:   definition.Description,
				EnvVars: envVars,
				Value:   valueInt,
			})
			continue
		}

		flags = append(flags, &cli.StringFlag{
			Name:    definition.Long,
			Aliases: aliases,
			Usage:   definition.Description,
			EnvVars: envVars,
			Value:   definition.Default,
		})
	}
	return flags, nil
}

// Returns the urfave/cli flags used to connect to the database.
func GetCLIFlags() ([]cli.Flag, error) {
	return ConvertToCLIFlags((*DatabaseCLIFlags)(nil).ConvertToCLIFlagDefinitions())
}

// Reads the database settings from the parsed CLI context.
func ReadSettingsFromCLI(lookup CLILookup) (*DatabaseSettings, error) {
	flags := &DatabaseCLIFlags{}
	flags.ReadFromCLI(lookup)
	return flags.ConvertToDatabaseSettings()
}
