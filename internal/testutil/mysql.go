package testutil

import (
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"go.uber.org/multierr"
)

// Cleanup releases a resource started for a test run.
type Cleanup func() error

const mysqlExpireSeconds = 120

// StartMySQL runs a throwaway MySQL container and returns a DSN for it. pool
// may be nil.
func StartMySQL(pool *dockertest.Pool) (_ string, _ Cleanup, err error) {
	if pool == nil {
		if pool, err = dockertest.NewPool(""); err != nil {
			return "", nil, fmt.Errorf("could not construct pool: %w", err)
		}
	}
	if err = pool.Client.Ping(); err != nil {
		return "", nil, fmt.Errorf("could not connect to Docker: %w", err)
	}

	resource, err := pool.RunWithOptions(
		&dockertest.RunOptions{
			Repository: "mysql",
			Tag:        "8.0",
			Env: []string{
				"MYSQL_DATABASE=microblog",
				"MYSQL_PASSWORD=password",
				"MYSQL_USER=user",
				"MYSQL_ROOT_PASSWORD=password",
			},
		},
		func(config *docker.HostConfig) {
			config.AutoRemove = true
			config.RestartPolicy = docker.RestartPolicy{Name: "no"}
		},
	)
	if err != nil {
		return "", nil, fmt.Errorf("failed to run mysql container: %w", err)
	}

	cleanup := func() error {
		if purgeErr := pool.Purge(resource); purgeErr != nil {
			return fmt.Errorf("failed to purge mysql container: %w", purgeErr)
		}
		return nil
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, cleanup())
		}
	}()

	if err = resource.Expire(mysqlExpireSeconds); err != nil {
		return "", nil, fmt.Errorf("failed to set expire time: %w", err)
	}

	config := mysql.NewConfig()
	config.User = "user"
	config.Passwd = "password"
	config.Net = "tcp"
	config.Addr = resource.GetHostPort("3306/tcp")
	config.DBName = "microblog"
	config.ParseTime = true
	config.AllowNativePasswords = true
	dsn := config.FormatDSN()

	err = pool.Retry(func() error {
		m, retryErr := sql.Open("mysql", dsn)
		if retryErr != nil {
			return retryErr
		}
		defer m.Close()
		return m.Ping()
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to connect to mysql: %w", err)
	}

	return dsn, cleanup, nil
}
